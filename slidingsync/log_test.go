package slidingsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"maunium.net/go/mautrix/id"
)

func TestFormatRequestLogPinnedSubstrings(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "rooms", Mode: ModeSelective, InitialRanges: []Range{{Start: 0, End: 9}}})
	e.SubscribeToRooms([]string{"!room:example.org"}, RoomSubscription{TimelineLimit: 5})
	e.EnableExtension("typing")
	e.cursor.onSuccess("p0")

	req := e.buildRequest(nil)
	line := FormatRequestLog(req)

	assert.Contains(t, line, ">>> REQUEST")
	assert.Contains(t, line, "pos=p0")
	assert.Contains(t, line, "timeout=")
	assert.Contains(t, line, "ms")
	assert.Contains(t, line, "conn_id=conn-1")
	assert.Contains(t, line, "list:rooms=[0, 9]")
	assert.Contains(t, line, "subscriptions=[!room:example.org]")
	assert.Contains(t, line, "extensions=[typing]")
}

func TestFormatRequestLogOmitsEmptySubscriptionsAndExtensions(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "rooms", Mode: ModeSelective, InitialRanges: []Range{{Start: 0, End: 9}}})

	req := e.buildRequest(nil)
	line := FormatRequestLog(req)

	assert.Contains(t, line, "pos=null")
	assert.NotContains(t, line, "subscriptions=")
	assert.NotContains(t, line, "extensions=")
}

func TestFormatResponseLogPinnedSubstrings(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "rooms", Mode: ModeSelective, InitialRanges: []Range{{Start: 0, End: 9}}})

	wresp := &wireResponse{
		Pos: "p1",
		Lists: map[string]wireListResult{
			"rooms": {Count: 42, Ops: []wireOp{{Op: "SYNC", Range: []int{0, 9}}}},
		},
	}
	e.lists["rooms"].HandleResponse(toListResponse(wresp.Lists["rooms"]))

	update := &SyncUpdate{
		Pos:          "p1",
		UpdatedLists: []string{"rooms"},
		Rooms: RoomUpdates{
			Joined: map[id.RoomID]*JoinedRoomUpdate{
				"!room:example.org": {
					RoomID:  "!room:example.org",
					Name:    "Test Room",
					Initial: true,
					RequiredState: []Event{
						{Type: "m.room.create"},
					},
					Timeline: []Event{
						{Type: "m.room.message", Sender: "@alice:example.org"},
					},
					Notifications: NotificationCounts{HighlightCount: 1, NotificationCount: 3},
				},
			},
			Invited: map[id.RoomID]*InvitedRoomUpdate{
				"!invite:example.org": {
					RoomID: "!invite:example.org",
					InviteState: []Event{
						{Type: "m.room.member"},
						{Type: "m.room.name"},
					},
				},
			},
			Left: map[id.RoomID]*LeftRoomUpdate{},
		},
		Extensions: ExtensionUpdates{
			ToDevice:    &ToDeviceUpdate{NextBatch: "nb1"},
			E2EE:        &E2EEUpdate{DeviceLists: &DeviceLists{Changed: []id.UserID{"@bob:example.org"}}},
			AccountData: &AccountDataUpdate{Global: []Event{{Type: "m.push_rules"}}},
			Typing:      &TypingUpdate{Rooms: map[id.RoomID][]id.UserID{"!room:example.org": {"@bob:example.org"}}},
			Receipts:    &ReceiptsUpdate{Rooms: map[id.RoomID]Event{"!room:example.org": {Type: "m.receipt"}}},
		},
	}

	line := FormatResponseLog(wresp, update, e)

	assert.Contains(t, line, "<<< RESPONSE")
	assert.Contains(t, line, "pos=p1")
	assert.Contains(t, line, "list:rooms count=42")
	assert.Contains(t, line, "range=[0, 9]")
	assert.Contains(t, line, "rooms:fully_loaded")
	assert.Contains(t, line, "rooms=2 updated")

	assert.Contains(t, line, "room:!room:example.org")
	assert.Contains(t, line, "name=Test Room")
	assert.Contains(t, line, "initial=true")
	assert.Contains(t, line, "required_state=[m.room.create]")
	assert.Contains(t, line, "timeline=1 events")
	assert.Contains(t, line, "m.room.message from @alice:example.org")
	assert.Contains(t, line, "notification_count=3 highlight_count=1")

	assert.Contains(t, line, "invited:!invite:example.org")
	assert.Contains(t, line, "invite_state=[m.room.member, m.room.name]")

	assert.Contains(t, line, "to_device: 0 events, next_batch=nb1")
	assert.Contains(t, line, "e2ee:")
	assert.Contains(t, line, "account_data: global=1 rooms=0")
	assert.Contains(t, line, "typing: rooms=1")
	assert.Contains(t, line, "receipts: rooms=1")

	assert.Contains(t, line, "[FULLY SYNCED]")
}

func TestFormatResponseLogOmitsFullySyncedWhenNotDone(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "rooms", Mode: ModePaging, BatchSize: 10})

	wresp := &wireResponse{Pos: "p1"}
	update := &SyncUpdate{Pos: "p1"}

	line := FormatResponseLog(wresp, update, e)
	assert.NotContains(t, line, "[FULLY SYNCED]")
	assert.Contains(t, line, "rooms:not_loaded")
}
