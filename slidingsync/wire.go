package slidingsync

import (
	"encoding/json"

	"github.com/matrix-org/gomatrixserverlib"
)

// This file holds the JSON wire shapes for POST .../sync (§6). They are
// kept separate from the public types in types.go because the wire shapes
// are an encoding detail (field names, omitempty rules, MSC4186 quirks like
// a single range per response op but a one-element ranges array per list
// request) while types.go
// is the semantic model the rest of the package and its callers work with.

type wireRequest struct {
	ConnID            string                          `json:"conn_id,omitempty"`
	Pos               string                          `json:"pos,omitempty"`
	Timeout           int                             `json:"timeout,omitempty"`
	SetPresence       string                          `json:"set_presence,omitempty"`
	Lists             map[string]wireListConfig       `json:"lists"`
	RoomSubscriptions map[string]wireRoomSubscription `json:"room_subscriptions,omitempty"`
	Extensions        map[string]any                  `json:"extensions,omitempty"`
}

type wireListConfig struct {
	Ranges        [][2]int        `json:"ranges,omitempty"`
	TimelineLimit int             `json:"timeline_limit"`
	RequiredState [][2]string     `json:"required_state"`
	Filters       *wireRoomFilter `json:"filters,omitempty"`
}

type wireRoomFilter struct {
	IsDM        *bool    `json:"is_dm,omitempty"`
	IsEncrypted *bool    `json:"is_encrypted,omitempty"`
	IsInvite    *bool    `json:"is_invite,omitempty"`
	Spaces      []string `json:"spaces,omitempty"`
	RoomTypes   []string `json:"room_types,omitempty"`
}

type wireRoomSubscription struct {
	TimelineLimit int         `json:"timeline_limit"`
	RequiredState [][2]string `json:"required_state"`
}

type wireGenericExtension struct {
	Enabled bool `json:"enabled"`
}

type wireToDeviceExtension struct {
	Enabled bool    `json:"enabled"`
	Since   *string `json:"since,omitempty"`
}

type wireResponse struct {
	Pos        string                    `json:"pos"`
	Lists      map[string]wireListResult `json:"lists"`
	Rooms      map[string]wireRoomData   `json:"rooms"`
	Extensions wireExtensionsResponse    `json:"extensions"`
}

type wireListResult struct {
	Count int      `json:"count"`
	Ops   []wireOp `json:"ops,omitempty"`
}

type wireOp struct {
	Op    string `json:"op"`
	Range []int  `json:"range,omitempty"`
}

type wireRoomData struct {
	Name                string                  `json:"name,omitempty"`
	AvatarURL           string                  `json:"avatar_url,omitempty"`
	Topic               string                  `json:"topic,omitempty"`
	Initial             bool                    `json:"initial,omitempty"`
	Limited             bool                    `json:"limited,omitempty"`
	ExpandedTimeline    bool                    `json:"expanded_timeline,omitempty"`
	IsDM                bool                    `json:"is_dm,omitempty"`
	PrevBatch           string                  `json:"prev_batch,omitempty"`
	Timeline            []wireEvent             `json:"timeline,omitempty"`
	RequiredState       []wireEvent             `json:"required_state,omitempty"`
	InviteState         []wireEvent             `json:"invite_state,omitempty"`
	UnreadNotifications wireUnreadNotifications `json:"unread_notifications"`
	JoinedCount         int                     `json:"joined_count,omitempty"`
	InvitedCount        int                     `json:"invited_count,omitempty"`
	BumpStamp           int64                   `json:"bump_stamp,omitempty"`
	NumLive             int                     `json:"num_live"`
	Heroes              []wireHero              `json:"heroes,omitempty"`
	HeroMemberships     []wireEvent             `json:"hero_memberships,omitempty"`
}

type wireUnreadNotifications struct {
	HighlightCount    int `json:"highlight_count,omitempty"`
	NotificationCount int `json:"notification_count,omitempty"`
}

type wireHero struct {
	UserID      string `json:"user_id"`
	Displayname string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type wireEvent struct {
	Type           string          `json:"type"`
	StateKey       *string         `json:"state_key,omitempty"`
	Sender         string          `json:"sender"`
	EventID        string          `json:"event_id,omitempty"`
	RoomID         string          `json:"room_id,omitempty"`
	Content        json.RawMessage `json:"content"`
	OriginServerTS int64           `json:"origin_server_ts,omitempty"`
}

type wireExtensionsResponse struct {
	ToDevice    *wireToDeviceResponse    `json:"to_device,omitempty"`
	E2EE        *wireE2EEResponse        `json:"e2ee,omitempty"`
	AccountData *wireAccountDataResponse `json:"account_data,omitempty"`
	Typing      *wireTypingResponse      `json:"typing,omitempty"`
	Receipts    *wireReceiptsResponse    `json:"receipts,omitempty"`
}

type wireToDeviceResponse struct {
	NextBatch string                                 `json:"next_batch"`
	Events    []gomatrixserverlib.SendToDeviceEvent `json:"events,omitempty"`
}

type wireDeviceLists struct {
	Changed []string `json:"changed,omitempty"`
	Left    []string `json:"left,omitempty"`
}

type wireE2EEResponse struct {
	DeviceLists            *wireDeviceLists `json:"device_lists,omitempty"`
	DeviceOneTimeKeysCount map[string]int   `json:"device_one_time_keys_count,omitempty"`

	// Two historical field names carry the same data (MSC2732's prefixed
	// form predates the unprefixed one landing in the spec); servers may
	// emit either, so both are accepted on read.
	DeviceUnusedFallbackKeyTypes       []string `json:"device_unused_fallback_key_types,omitempty"`
	LegacyDeviceUnusedFallbackKeyTypes []string `json:"org.matrix.msc2732.device_unused_fallback_key_types,omitempty"`
}

// unusedFallbackKeyTypes prefers the unprefixed field and falls back to the
// MSC2732-prefixed one when only that was present in the response.
func (w *wireE2EEResponse) unusedFallbackKeyTypes() []string {
	if len(w.DeviceUnusedFallbackKeyTypes) > 0 {
		return w.DeviceUnusedFallbackKeyTypes
	}
	return w.LegacyDeviceUnusedFallbackKeyTypes
}

type wireAccountDataResponse struct {
	Global []wireEvent            `json:"global,omitempty"`
	Rooms  map[string][]wireEvent `json:"rooms,omitempty"`
}

type wireTypingRoomPayload struct {
	UserIDs []string `json:"user_ids"`
}

type wireTypingResponse struct {
	Rooms map[string]wireTypingRoomPayload `json:"rooms,omitempty"`
}

type wireReceiptsResponse struct {
	Rooms map[string]wireEvent `json:"rooms,omitempty"`
}

// wireErrorResponse is the shape of a non-200 body (§7).
type wireErrorResponse struct {
	ErrCode string `json:"errcode"`
	Error   string `json:"error"`
}

const errCodeUnknownPos = "M_UNKNOWN_POS"
