package slidingsync

import (
	"fmt"
	"strings"
)

// FormatRequestLog renders a Request the way §4.8 pins: a ">>> REQUEST"
// header carrying pos/timeout/conn_id, then a list:<name>=[s, e] entry per
// list and subscriptions/extensions only when non-empty, all on one line.
func FormatRequestLog(r *Request) string {
	var b strings.Builder
	b.WriteString(">>> REQUEST ")

	pos := "null"
	if r.Pos != nil {
		pos = *r.Pos
	}
	fmt.Fprintf(&b, "pos=%s timeout=%dms conn_id=%s", pos, r.Timeout, r.ConnID)

	for _, name := range r.ListOrder {
		cfg := r.Lists[name]
		if cfg.Range != nil {
			fmt.Fprintf(&b, " list:%s=[%d, %d]", name, cfg.Range.Start, cfg.Range.End)
		} else {
			fmt.Fprintf(&b, " list:%s", name)
		}
	}

	if len(r.SubscriptionOrder) > 0 {
		fmt.Fprintf(&b, " subscriptions=[%s]", strings.Join(r.SubscriptionOrder, ", "))
	}

	if len(r.Extensions) > 0 {
		fmt.Fprintf(&b, " extensions=[%s]", strings.Join(r.Extensions, ", "))
	}

	return b.String()
}

// FormatResponseLog renders a response the way §4.8 pins: a "<<< RESPONSE"
// header carrying pos, per-list loading state and counts, room update
// summaries, invited-room blocks, extension sections (to_device and e2ee
// whenever present, the others only when non-empty), and a trailing
// "[FULLY SYNCED]" marker.
func FormatResponseLog(wresp *wireResponse, update *SyncUpdate, e *Engine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<<< RESPONSE pos=%s", wresp.Pos)

	for _, name := range update.UpdatedLists {
		lr := wresp.Lists[name]
		fmt.Fprintf(&b, " list:%s count=%d", name, lr.Count)
		for _, op := range lr.Ops {
			if len(op.Range) == 2 {
				fmt.Fprintf(&b, " range=[%d, %d]", op.Range[0], op.Range[1])
			}
		}
	}

	for _, name := range e.listOrder {
		fmt.Fprintf(&b, " %s:%s", name, e.lists[name].LoadingState())
	}

	nRooms := len(update.Rooms.Joined) + len(update.Rooms.Invited) + len(update.Rooms.Left)
	if nRooms > 0 {
		fmt.Fprintf(&b, " rooms=%d updated", nRooms)
		for _, u := range update.Rooms.Joined {
			writeJoinedRoomBlock(&b, u)
		}
		for _, u := range update.Rooms.Left {
			fmt.Fprintf(&b, "\n  left:%s timeline=%d events", u.RoomID, len(u.Timeline))
		}
		for _, u := range update.Rooms.Invited {
			types := make([]string, 0, len(u.InviteState))
			for _, ev := range u.InviteState {
				types = append(types, ev.Type)
			}
			fmt.Fprintf(&b, "\n  invited:%s invite_state=[%s]", u.RoomID, strings.Join(types, ", "))
		}
	}

	writeExtensionSections(&b, update.Extensions)

	if e.isFullySynced() {
		b.WriteString(" [FULLY SYNCED]")
	}

	return b.String()
}

func writeJoinedRoomBlock(b *strings.Builder, u *JoinedRoomUpdate) {
	fmt.Fprintf(b, "\n  room:%s", u.RoomID)
	if u.Name != "" {
		fmt.Fprintf(b, " name=%s", u.Name)
	}
	if u.Initial {
		b.WriteString(" initial=true")
	}
	if len(u.RequiredState) > 0 {
		types := make([]string, 0, len(u.RequiredState))
		for _, ev := range u.RequiredState {
			types = append(types, ev.Type)
		}
		fmt.Fprintf(b, " required_state=[%s]", strings.Join(types, ", "))
	}
	if len(u.Timeline) > 0 {
		fmt.Fprintf(b, " timeline=%d events", len(u.Timeline))
		for _, ev := range u.Timeline {
			fmt.Fprintf(b, "\n    %s from %s", ev.Type, ev.Sender)
		}
	}
	if u.Notifications.HighlightCount > 0 || u.Notifications.NotificationCount > 0 {
		fmt.Fprintf(b, " notification_count=%d highlight_count=%d", u.Notifications.NotificationCount, u.Notifications.HighlightCount)
	}
}

func writeExtensionSections(b *strings.Builder, ext ExtensionUpdates) {
	if ext.ToDevice != nil {
		fmt.Fprintf(b, "\n  to_device: %d events, next_batch=%s", len(ext.ToDevice.Events), ext.ToDevice.NextBatch)
	}
	if ext.E2EE != nil {
		b.WriteString("\n  e2ee:")
		if ext.E2EE.DeviceLists != nil {
			fmt.Fprintf(b, " device_lists changed=%d left=%d", len(ext.E2EE.DeviceLists.Changed), len(ext.E2EE.DeviceLists.Left))
		}
	}
	if ext.AccountData != nil && (len(ext.AccountData.Global) > 0 || len(ext.AccountData.Rooms) > 0) {
		fmt.Fprintf(b, "\n  account_data: global=%d rooms=%d", len(ext.AccountData.Global), len(ext.AccountData.Rooms))
	}
	if ext.Typing != nil && len(ext.Typing.Rooms) > 0 {
		fmt.Fprintf(b, "\n  typing: rooms=%d", len(ext.Typing.Rooms))
	}
	if ext.Receipts != nil && len(ext.Receipts.Rooms) > 0 {
		fmt.Fprintf(b, "\n  receipts: rooms=%d", len(ext.Receipts.Rooms))
	}
}
