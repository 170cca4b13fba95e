package slidingsync

import "encoding/json"

// SyncState is the JSON-persistable subset of an Engine's state (§4.7):
// cursor, to-device since-token, and each list's range/total. A SyncState
// round-trips through UTF-8 JSON byte-identically modulo key order.
type SyncState struct {
	Pos           *string                 `json:"pos,omitempty"`
	ToDeviceSince *string                 `json:"to_device_since,omitempty"`
	Lists         map[string]ListSnapshot `json:"lists,omitempty"`
}

type listSnapshotWire struct {
	Range           *[2]int `json:"range,omitempty"`
	ServerRoomCount *int    `json:"server_room_count,omitempty"`
}

// MarshalJSON renders a ListSnapshot's Range as the two-element array the
// rest of the wire format uses, rather than the {Start,End} struct shape.
func (s ListSnapshot) MarshalJSON() ([]byte, error) {
	w := listSnapshotWire{ServerRoomCount: s.ServerRoomCount}
	if s.Range != nil {
		pair := s.Range.Pair()
		w.Range = &pair
	}
	return json.Marshal(w)
}

func (s *ListSnapshot) UnmarshalJSON(data []byte) error {
	var w listSnapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.ServerRoomCount = w.ServerRoomCount
	if w.Range != nil {
		s.Range = &Range{Start: w.Range[0], End: w.Range[1]}
	} else {
		s.Range = nil
	}
	return nil
}

// ExportState returns a snapshot of pos, to_device_since, and each known
// list's range/server_room_count (§4.7).
func (e *Engine) ExportState() *SyncState {
	lists := make(map[string]ListSnapshot, len(e.listOrder))
	for _, name := range e.listOrder {
		lists[name] = e.lists[name].ExportState()
	}
	return &SyncState{
		Pos:           e.cursor.pos,
		ToDeviceSince: e.cursor.toDeviceSince,
		Lists:         lists,
	}
}

// RestoreState applies a previously exported snapshot. Snapshot entries for
// list names the engine doesn't currently know about are silently dropped
// (§4.7); lists must already be registered via AddList before restoring.
func (e *Engine) RestoreState(snap *SyncState) {
	e.cursor.pos = snap.Pos
	e.cursor.toDeviceSince = snap.ToDeviceSince

	for name, ls := range snap.Lists {
		l, ok := e.lists[name]
		if !ok {
			continue
		}
		l.RestoreState(ls)
	}
}
