// Package slidingsync implements a client-side engine for Matrix Simplified
// Sliding Sync (MSC4186): a long-polling loop that keeps a small set of
// windowed room lists, explicit room subscriptions, and protocol extensions
// in sync with a homeserver without replaying full account state on every
// tick.
package slidingsync

import (
	"github.com/matrix-org/gomatrixserverlib"
	"github.com/matrix-org/gomatrixserverlib/spec"
	"maunium.net/go/mautrix/id"
)

// Mode selects the windowing strategy a List uses to compute its next range.
type Mode string

const (
	ModeSelective Mode = "selective"
	ModePaging    Mode = "paging"
	ModeGrowing   Mode = "growing"
)

// LoadingState describes how much of a List's intended window has been
// observed from the server.
type LoadingState string

const (
	NotLoaded       LoadingState = "not_loaded"
	Preloaded       LoadingState = "preloaded" // never written by this engine; see SPEC_FULL.md
	PartiallyLoaded LoadingState = "partially_loaded"
	FullyLoaded     LoadingState = "fully_loaded"
)

// Range is an inclusive integer pair of indices into the server's filtered
// room list for a given List.
type Range struct {
	Start int `json:"-"`
	End   int `json:"-"`
}

// Pair renders the range as the two-element array the wire format expects.
func (r Range) Pair() [2]int {
	return [2]int{r.Start, r.End}
}

// StateKeyTuple is a (event_type, state_key) pair used to describe required
// state on a List or RoomSubscription.
type StateKeyTuple struct {
	Type     string
	StateKey string
}

// Pair renders the tuple as the two-element array the wire format expects.
func (t StateKeyTuple) Pair() [2]string {
	return [2]string{t.Type, t.StateKey}
}

// RoomFilter narrows a List to a subset of the user's rooms.
type RoomFilter struct {
	IsDM        *bool    `json:"is_dm,omitempty"`
	IsEncrypted *bool    `json:"is_encrypted,omitempty"`
	IsInvite    *bool    `json:"is_invite,omitempty"`
	Spaces      []string `json:"spaces,omitempty"`
	RoomTypes   []string `json:"room_types,omitempty"`
}

// RoomSubscription is the per-room override of timeline/state limits for an
// explicitly subscribed room.
type RoomSubscription struct {
	TimelineLimit int
	RequiredState []StateKeyTuple
}

// ExtensionConfig is the generic `{enabled}` shape shared by every extension
// except to_device.
type ExtensionConfig struct {
	Enabled bool
}

// ToDeviceExtensionConfig is the to_device variant, which additionally
// carries a since-token advanced from responses.
type ToDeviceExtensionConfig struct {
	Enabled bool
	Since   *string
}

// Event is a parsed timeline/state/stripped-state event. It mirrors the
// wire's ClientEvent shape closely enough for the classifier's purposes
// without pulling in full event-validation machinery.
type Event struct {
	Type           string          `json:"type"`
	StateKey       *string         `json:"state_key,omitempty"`
	Sender         id.UserID       `json:"sender"`
	EventID        id.EventID      `json:"event_id,omitempty"`
	RoomID         id.RoomID       `json:"room_id,omitempty"`
	Content        RawJSON         `json:"content"`
	OriginServerTS spec.Timestamp  `json:"origin_server_ts,omitempty"`
}

// RawJSON is a thin alias kept distinct from json.RawMessage so the types in
// this package don't force callers to import encoding/json just to read a
// field name.
type RawJSON []byte

// Hero is the MSC4186 hero shape used when a room has no explicit name.
type Hero struct {
	UserID      id.UserID `json:"user_id"`
	Displayname string    `json:"displayname,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

// NotificationCounts mirrors unread_notifications on a joined room.
type NotificationCounts struct {
	HighlightCount    int
	NotificationCount int
}

// JoinedRoomUpdate is the per-room payload for a room classified as joined.
type JoinedRoomUpdate struct {
	RoomID            id.RoomID
	Name              string
	AvatarURL         string
	Topic             string
	Initial           bool
	Limited           bool
	ExpandedTimeline  bool
	IsDM              bool
	PrevBatch         string
	Timeline          []Event
	RequiredState     []Event
	Notifications     NotificationCounts
	JoinedCount       int
	InvitedCount      int
	BumpStamp         int64
	NumLive           int
	Heroes            []Hero
	HeroMemberships   []Event

	// Merged per-room extension data (see §4.5). Any of these may be the
	// zero value when the corresponding extension wasn't enabled or had no
	// data for this room.
	AccountData       []Event
	TypingUserIDs     []id.UserID
	Receipt           *Event
}

// InvitedRoomUpdate is the per-room payload for a room classified as
// invited, carrying the stripped state from invite_state.
type InvitedRoomUpdate struct {
	RoomID      id.RoomID
	InviteState []Event
}

// LeftRoomUpdate is the per-room payload for a room classified as left
// (self-leave, kick, or ban).
type LeftRoomUpdate struct {
	RoomID   id.RoomID
	Timeline []Event
	State    []Event
}

// RoomUpdates buckets a tick's rooms by membership classification.
type RoomUpdates struct {
	Joined  map[id.RoomID]*JoinedRoomUpdate
	Invited map[id.RoomID]*InvitedRoomUpdate
	Left    map[id.RoomID]*LeftRoomUpdate
}

// ExtensionUpdates carries the tick's extension deltas.
type ExtensionUpdates struct {
	AccountData *AccountDataUpdate
	E2EE        *E2EEUpdate
	ToDevice    *ToDeviceUpdate
	Typing      *TypingUpdate
	Receipts    *ReceiptsUpdate
}

// AccountDataUpdate mirrors the account_data extension response.
type AccountDataUpdate struct {
	Global []Event
	Rooms  map[id.RoomID][]Event
}

// DeviceLists mirrors the e2ee extension's device_lists sub-object.
type DeviceLists struct {
	Changed []id.UserID
	Left    []id.UserID
}

// E2EEUpdate mirrors the e2ee extension response (MSC3884).
type E2EEUpdate struct {
	DeviceOneTimeKeysCount       map[string]int
	DeviceUnusedFallbackKeyTypes []string
	DeviceLists                  *DeviceLists // nil on initial sync
}

// ToDeviceUpdate mirrors the to_device extension response. Events use
// gomatrixserverlib's own wire type, the same one the server side of this
// protocol (dendrite's v4 sync handler) emits.
type ToDeviceUpdate struct {
	NextBatch string
	Events    []gomatrixserverlib.SendToDeviceEvent
}

// TypingUpdate mirrors the typing extension response, keyed by room.
type TypingUpdate struct {
	Rooms map[id.RoomID][]id.UserID
}

// ReceiptsUpdate mirrors the receipts extension response, keyed by room.
type ReceiptsUpdate struct {
	Rooms map[id.RoomID]Event
}

// SyncUpdate is the per-tick output handed back to the caller of sync_once.
type SyncUpdate struct {
	Pos          string
	UpdatedLists []string
	Rooms        RoomUpdates
	Extensions   ExtensionUpdates
}
