package slidingsync

import (
	"encoding/json"

	"github.com/matrix-org/gomatrixserverlib/spec"
	"maunium.net/go/mautrix/id"
)

func toTimestamp(ts int64) spec.Timestamp {
	return spec.Timestamp(ts)
}

// handleResponse is the non-pure half of response handling: it advances
// cursor/list/extension state and then calls the classifier to produce the
// tick's SyncUpdate. The classifier itself (classifyRooms below) touches no
// engine state (§4.5).
func (e *Engine) handleResponse(wresp *wireResponse, currentUserID string) *SyncUpdate {
	e.cursor.onSuccess(wresp.Pos)

	var updatedLists []string
	for _, name := range e.listOrder {
		lr, ok := wresp.Lists[name]
		if !ok {
			continue
		}
		e.lists[name].HandleResponse(toListResponse(lr))
		updatedLists = append(updatedLists, name)
	}

	if wresp.Extensions.ToDevice != nil && wresp.Extensions.ToDevice.NextBatch != "" {
		e.cursor.onToDeviceNextBatch(wresp.Extensions.ToDevice.NextBatch)
	}

	rooms := classifyRooms(wresp, currentUserID)
	extUpdates := toExtensionUpdates(wresp.Extensions)

	return &SyncUpdate{
		Pos:          wresp.Pos,
		UpdatedLists: updatedLists,
		Rooms:        rooms,
		Extensions:   extUpdates,
	}
}

func toListResponse(lr wireListResult) ListResponse {
	out := ListResponse{Count: lr.Count, Ops: make([]ListResponseOp, 0, len(lr.Ops))}
	for _, op := range lr.Ops {
		var rng *Range
		if len(op.Range) == 2 {
			rng = &Range{Start: op.Range[0], End: op.Range[1]}
		}
		out.Ops = append(out.Ops, ListResponseOp{Range: rng})
	}
	return out
}

// classifyRooms is pure with respect to engine state: given the raw
// response and an optional current user id, it splits rooms into
// joined/invited/left updates and merges in per-room extension data,
// including the extension-only rooms that never appear in response.rooms
// at all (§4.5 final paragraph).
func classifyRooms(wresp *wireResponse, currentUserID string) RoomUpdates {
	updates := RoomUpdates{
		Joined:  make(map[id.RoomID]*JoinedRoomUpdate),
		Invited: make(map[id.RoomID]*InvitedRoomUpdate),
		Left:    make(map[id.RoomID]*LeftRoomUpdate),
	}

	extensionRoomIDs := unionExtensionRoomIDs(wresp.Extensions)
	seen := make(map[string]bool, len(wresp.Rooms))

	for roomID, raw := range wresp.Rooms {
		seen[roomID] = true
		classifyOneRoom(updates, roomID, raw, currentUserID, wresp.Extensions)
	}

	for roomID := range extensionRoomIDs {
		if seen[roomID] {
			continue
		}
		// Extension-only room: never appeared in response.rooms this tick,
		// but carries typing/receipts/account_data. It still surfaces as a
		// joined update, with only the merged extension data populated.
		u := &JoinedRoomUpdate{RoomID: id.RoomID(roomID)}
		mergeExtensionData(u, roomID, wresp.Extensions)
		updates.Joined[id.RoomID(roomID)] = u
	}

	return updates
}

func unionExtensionRoomIDs(ext wireExtensionsResponse) map[string]bool {
	ids := make(map[string]bool)
	if ext.AccountData != nil {
		for roomID := range ext.AccountData.Rooms {
			ids[roomID] = true
		}
	}
	if ext.Typing != nil {
		for roomID := range ext.Typing.Rooms {
			ids[roomID] = true
		}
	}
	if ext.Receipts != nil {
		for roomID := range ext.Receipts.Rooms {
			ids[roomID] = true
		}
	}
	return ids
}

type membershipContent struct {
	Membership string `json:"membership"`
}

func classifyOneRoom(updates RoomUpdates, roomID string, raw wireRoomData, currentUserID string, ext wireExtensionsResponse) {
	timeline := eventsFromWire(raw.Timeline)
	requiredState := eventsFromWire(raw.RequiredState)

	if len(raw.InviteState) > 0 {
		updates.Invited[id.RoomID(roomID)] = &InvitedRoomUpdate{
			RoomID:      id.RoomID(roomID),
			InviteState: eventsFromWire(raw.InviteState),
		}
		return
	}

	if currentUserID != "" {
		for _, ev := range requiredState {
			if ev.Type != "m.room.member" || ev.StateKey == nil || *ev.StateKey != currentUserID {
				continue
			}
			var mc membershipContent
			if err := json.Unmarshal(ev.Content, &mc); err != nil {
				continue
			}
			if mc.Membership == "leave" || mc.Membership == "ban" {
				updates.Left[id.RoomID(roomID)] = &LeftRoomUpdate{
					RoomID:   id.RoomID(roomID),
					Timeline: timeline,
					State:    requiredState,
				}
				return
			}
		}
	}

	u := &JoinedRoomUpdate{
		RoomID:           id.RoomID(roomID),
		Name:             raw.Name,
		AvatarURL:        raw.AvatarURL,
		Topic:            raw.Topic,
		Initial:          raw.Initial,
		Limited:          raw.Limited,
		ExpandedTimeline: raw.ExpandedTimeline,
		IsDM:             raw.IsDM,
		PrevBatch:        raw.PrevBatch,
		Timeline:         timeline,
		RequiredState:    requiredState,
		Notifications: NotificationCounts{
			HighlightCount:    raw.UnreadNotifications.HighlightCount,
			NotificationCount: raw.UnreadNotifications.NotificationCount,
		},
		JoinedCount:     raw.JoinedCount,
		InvitedCount:    raw.InvitedCount,
		BumpStamp:       raw.BumpStamp,
		NumLive:         raw.NumLive,
		Heroes:          heroesFromWire(raw.Heroes),
		HeroMemberships: eventsFromWire(raw.HeroMemberships),
	}
	mergeExtensionData(u, roomID, ext)
	updates.Joined[id.RoomID(roomID)] = u
}

// mergeExtensionData looks up roomID's merged per-room extension data
// (account_data, typing user-ids, receipts) and attaches it to a joined
// room update.
func mergeExtensionData(u *JoinedRoomUpdate, roomID string, ext wireExtensionsResponse) {
	if ext.AccountData != nil {
		if evs, ok := ext.AccountData.Rooms[roomID]; ok {
			u.AccountData = eventsFromWire(evs)
		}
	}
	if ext.Typing != nil {
		if payload, ok := ext.Typing.Rooms[roomID]; ok {
			users := make([]id.UserID, 0, len(payload.UserIDs))
			for _, uid := range payload.UserIDs {
				users = append(users, id.UserID(uid))
			}
			u.TypingUserIDs = users
		}
	}
	if ext.Receipts != nil {
		if ev, ok := ext.Receipts.Rooms[roomID]; ok {
			converted := eventFromWire(ev)
			u.Receipt = &converted
		}
	}
}

func eventFromWire(w wireEvent) Event {
	return Event{
		Type:           w.Type,
		StateKey:       w.StateKey,
		Sender:         id.UserID(w.Sender),
		EventID:        id.EventID(w.EventID),
		RoomID:         id.RoomID(w.RoomID),
		Content:        RawJSON(w.Content),
		OriginServerTS: toTimestamp(w.OriginServerTS),
	}
}

func eventsFromWire(evs []wireEvent) []Event {
	out := make([]Event, 0, len(evs))
	for _, w := range evs {
		out = append(out, eventFromWire(w))
	}
	return out
}

func heroesFromWire(hs []wireHero) []Hero {
	out := make([]Hero, 0, len(hs))
	for _, h := range hs {
		out = append(out, Hero{
			UserID:      id.UserID(h.UserID),
			Displayname: h.Displayname,
			AvatarURL:   h.AvatarURL,
		})
	}
	return out
}

func toExtensionUpdates(ext wireExtensionsResponse) ExtensionUpdates {
	var out ExtensionUpdates
	if ext.AccountData != nil {
		rooms := make(map[id.RoomID][]Event, len(ext.AccountData.Rooms))
		for roomID, evs := range ext.AccountData.Rooms {
			rooms[id.RoomID(roomID)] = eventsFromWire(evs)
		}
		out.AccountData = &AccountDataUpdate{
			Global: eventsFromWire(ext.AccountData.Global),
			Rooms:  rooms,
		}
	}
	if ext.E2EE != nil {
		u := &E2EEUpdate{
			DeviceOneTimeKeysCount:       ext.E2EE.DeviceOneTimeKeysCount,
			DeviceUnusedFallbackKeyTypes: ext.E2EE.unusedFallbackKeyTypes(),
		}
		if ext.E2EE.DeviceLists != nil {
			u.DeviceLists = &DeviceLists{
				Changed: stringsToUserIDs(ext.E2EE.DeviceLists.Changed),
				Left:    stringsToUserIDs(ext.E2EE.DeviceLists.Left),
			}
		}
		out.E2EE = u
	}
	if ext.ToDevice != nil {
		out.ToDevice = &ToDeviceUpdate{
			NextBatch: ext.ToDevice.NextBatch,
			Events:    ext.ToDevice.Events,
		}
	}
	if ext.Typing != nil {
		rooms := make(map[id.RoomID][]id.UserID, len(ext.Typing.Rooms))
		for roomID, payload := range ext.Typing.Rooms {
			users := make([]id.UserID, 0, len(payload.UserIDs))
			for _, uid := range payload.UserIDs {
				users = append(users, id.UserID(uid))
			}
			rooms[id.RoomID(roomID)] = users
		}
		out.Typing = &TypingUpdate{Rooms: rooms}
	}
	if ext.Receipts != nil {
		rooms := make(map[id.RoomID]Event, len(ext.Receipts.Rooms))
		for roomID, ev := range ext.Receipts.Rooms {
			rooms[id.RoomID(roomID)] = eventFromWire(ev)
		}
		out.Receipts = &ReceiptsUpdate{Rooms: rooms}
	}
	return out
}

func stringsToUserIDs(ss []string) []id.UserID {
	out := make([]id.UserID, 0, len(ss))
	for _, s := range ss {
		out = append(out, id.UserID(s))
	}
	return out
}
