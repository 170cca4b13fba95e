// Package httputil provides the default net/http-backed implementation of
// slidingsync.Transport, plus small helpers for reading the errcode and
// error fields of a non-200 Matrix error body.
package httputil

import (
	"net/http"
	"time"

	"github.com/matrix-org/util"
	"github.com/tidwall/gjson"
)

// DefaultTimeout is a round-trip bound longer than any long-poll timeout
// the engine asks the server to hold the connection open for. NewClient
// does not apply it; no code in this module reads it.
const DefaultTimeout = 2 * time.Minute

// ClientTimeoutMargin is a margin to add on top of a request's own timeout
// value when sizing a per-request deadline. NewClient does not apply it; no
// code in this module reads it.
const ClientTimeoutMargin = 10 * time.Second

// NewClient builds the *http.Client used as the engine's default Transport.
// A long-poll request can legitimately take as long as the requested
// timeout value, so the client itself applies no fixed deadline: per-call
// cancellation is expected to flow through the request's own context
// instead (see slidingsync.Engine.SyncOnce).
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// ErrCode cheaply extracts the "errcode" field from a non-200 Matrix error
// body without a full struct decode, the way dendrite peeks at JSON
// fragments with gjson rather than unmarshalling a whole response just to
// read one field.
func ErrCode(body []byte) string {
	return gjson.GetBytes(body, "errcode").Str
}

// ErrorMessage cheaply extracts the "error" field from a non-200 body.
func ErrorMessage(body []byte) string {
	return gjson.GetBytes(body, "error").Str
}

// LoggingTransport wraps another http.Client-shaped transport and logs each
// round trip via the request's context-scoped logger, the same
// util.GetLogger(ctx) call dendrite's own routing handlers use to keep log
// lines tied to the request that produced them.
type LoggingTransport struct {
	Next interface {
		Do(req *http.Request) (*http.Response, error)
	}
}

func (t LoggingTransport) Do(req *http.Request) (*http.Response, error) {
	log := util.GetLogger(req.Context()).WithField("method", req.Method).WithField("url", req.URL.String())
	start := time.Now()

	resp, err := t.Next.Do(req)
	if err != nil {
		log.WithError(err).WithField("duration", time.Since(start)).Warn("sliding sync request failed")
		return nil, err
	}

	log.WithField("status", resp.StatusCode).WithField("duration", time.Since(start)).Debug("sliding sync request completed")
	return resp, nil
}
