package slidingsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Transport is the engine's sole collaborator for actually reaching a
// homeserver. It is deliberately narrow — build the HTTP request, get back
// a response or an error — so the engine never has to know about retries,
// connection pooling, or TLS configuration; those live in whatever
// implementation is plugged in (see internal/httputil for the default).
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// EngineConfig is the caller-supplied configuration for constructing an
// Engine (§6 "Programmatic surface").
type EngineConfig struct {
	Transport       Transport
	ConnID          string
	CatchUpTimeout  time.Duration
	LongPollTimeout time.Duration
}

// Engine owns the cursor, the named lists, the explicit room subscriptions,
// and the enabled extensions for one sliding sync session. It is not safe
// for concurrent use: configuration calls and SyncOnce must be serialized
// by the caller (§5).
type Engine struct {
	transport Transport
	connID    string
	cursor    *cursor

	lists     map[string]*List
	listOrder []string

	subscriptions map[string]RoomSubscription
	subOrder      []string

	extensions *extensionRegistry

	log *logrus.Entry
}

// NewEngine constructs an Engine with no lists, no subscriptions, and no
// extensions enabled.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		transport:     cfg.Transport,
		connID:        cfg.ConnID,
		cursor:        newCursor(cfg.CatchUpTimeout, cfg.LongPollTimeout),
		lists:         make(map[string]*List),
		subscriptions: make(map[string]RoomSubscription),
		extensions:    newExtensionRegistry(),
		log:           logrus.WithField("conn_id", cfg.ConnID),
	}
}

// AddList registers a new named list. Names must be unique within the
// engine; calling AddList with a name already in use replaces that list's
// configuration and resets its progress, mirroring a caller who decided to
// reconfigure a view from scratch.
func (e *Engine) AddList(cfg ListConfig) *List {
	l := NewList(cfg)
	if _, exists := e.lists[cfg.Name]; !exists {
		e.listOrder = append(e.listOrder, cfg.Name)
	}
	e.lists[cfg.Name] = l
	return l
}

// GetList returns a read-only handle to a named list, or nil if unknown.
func (e *Engine) GetList(name string) *List {
	return e.lists[name]
}

// SubscribeToRooms adds or updates explicit subscriptions for the given
// room ids.
func (e *Engine) SubscribeToRooms(roomIDs []string, sub RoomSubscription) {
	for _, id := range roomIDs {
		if _, exists := e.subscriptions[id]; !exists {
			e.subOrder = append(e.subOrder, id)
		}
		e.subscriptions[id] = sub
	}
}

// UnsubscribeFromRooms removes the given room ids from the subscription set.
func (e *Engine) UnsubscribeFromRooms(roomIDs []string) {
	for _, id := range roomIDs {
		if _, exists := e.subscriptions[id]; exists {
			delete(e.subscriptions, id)
			for i, name := range e.subOrder {
				if name == id {
					e.subOrder = append(e.subOrder[:i], e.subOrder[i+1:]...)
					break
				}
			}
		}
	}
}

// EnableExtension installs a config for the named extension.
func (e *Engine) EnableExtension(name string) {
	e.extensions.enable(name)
}

// EnableAllExtensions enables exactly {e2ee, to_device, account_data,
// typing, receipts}.
func (e *Engine) EnableAllExtensions() {
	e.extensions.enableAll()
}

// IsFullySynced is true iff there is at least one list and every list is
// fully_loaded (§4.2).
func (e *Engine) isFullySynced() bool {
	if len(e.listOrder) == 0 {
		return false
	}
	for _, name := range e.listOrder {
		if e.lists[name].LoadingState() != FullyLoaded {
			return false
		}
	}
	return true
}

func (e *Engine) IsFullySynced() bool { return e.isFullySynced() }

// BuildRequest exposes the request builder for callers who want to inspect
// or log a request without sending it.
func (e *Engine) BuildRequest(overrides *TimeoutOverrides) *Request {
	return e.buildRequest(overrides)
}

// SyncOnceOverrides groups the optional per-call knobs sync_once accepts.
type SyncOnceOverrides struct {
	Timeout     *TimeoutOverrides
	SetPresence string
}

const syncEndpointPath = "/_matrix/client/unstable/org.matrix.msc4186/sync"

// SyncOnce performs a single tick of the sync loop (§4.6): build request,
// send, handle response, classify, return. Transport-level cancellation
// (ctx) must leave engine state untouched — the request is built from a
// snapshot of current state, but pos/lists/to_device_since are only mutated
// after a successful decode, never mid-flight.
func (e *Engine) SyncOnce(ctx context.Context, homeserverURL, accessToken string, currentUserID string, overrides *SyncOnceOverrides) (*SyncUpdate, error) {
	var timeoutOverrides *TimeoutOverrides
	setPresence := ""
	if overrides != nil {
		timeoutOverrides = overrides.Timeout
		setPresence = overrides.SetPresence
	}

	req := e.buildRequest(timeoutOverrides)
	wireReq := req.toWire(setPresence, e)
	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("marshal sliding sync request: %w", err)
	}

	e.log.Debug(FormatRequestLog(req))

	httpReq, err := e.newHTTPRequest(ctx, homeserverURL, accessToken, req, setPresence, body)
	if err != nil {
		return nil, fmt.Errorf("build http request: %w", err)
	}

	httpResp, err := e.transport.Do(httpReq)
	if err != nil {
		return nil, &TransportFailureError{Cause: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportFailureError{StatusCode: httpResp.StatusCode, Cause: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		var werr wireErrorResponse
		if jsonErr := json.Unmarshal(respBody, &werr); jsonErr == nil && werr.ErrCode == errCodeUnknownPos {
			e.cursor.onCursorExpired()
			return nil, &CursorExpiredError{HomeserverErrCode: werr.ErrCode, HomeserverError: werr.Error}
		}
		return nil, &TransportFailureError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	var wresp wireResponse
	if err := json.Unmarshal(respBody, &wresp); err != nil {
		return nil, &MalformedResponseError{Reason: err.Error()}
	}
	if wresp.Pos == "" {
		return nil, &MalformedResponseError{Reason: "response missing pos"}
	}

	update := e.handleResponse(&wresp, currentUserID)
	e.log.Debug(FormatResponseLog(&wresp, update, e))
	return update, nil
}

// newHTTPRequest assembles the POST .../sync request per §6: query params
// {pos?, timeout?, set_presence?}, Authorization/Content-Type headers, JSON
// body.
func (e *Engine) newHTTPRequest(ctx context.Context, homeserverURL, accessToken string, req *Request, setPresence string, body []byte) (*http.Request, error) {
	u, err := url.Parse(homeserverURL)
	if err != nil {
		return nil, fmt.Errorf("parse homeserver url: %w", err)
	}
	u.Path = u.Path + syncEndpointPath

	q := u.Query()
	if req.Pos != nil {
		q.Set("pos", *req.Pos)
	}
	if req.Timeout > 0 {
		q.Set("timeout", strconv.Itoa(req.Timeout))
	}
	if setPresence != "" {
		q.Set("set_presence", setPresence)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}
