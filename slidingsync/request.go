package slidingsync

// Request is the engine-level view of what will be sent on the wire: the
// same information buildRequest assembles, before it's flattened into JSON.
type Request struct {
	ConnID            string
	Pos               *string
	Timeout           int // milliseconds
	SetPresence       string
	Lists             map[string]ListWireConfig
	ListOrder         []string
	RoomSubscriptions map[string]RoomSubscription
	SubscriptionOrder []string
	Extensions        []string // enabled extension names, insertion order
	ToDeviceSince     *string
}

// buildRequest assembles the wire request from the engine's current lists,
// subscriptions, extensions, cursor, and timeout (§4.4). It is the single
// authoritative call per tick: each List's ComputeNextRange is invoked here
// exactly once, so the request that goes over the wire and the engine's own
// bookkeeping never disagree about what was asked for.
func (e *Engine) buildRequest(overrides *TimeoutOverrides) *Request {
	lists := make(map[string]ListWireConfig, len(e.listOrder))
	for _, name := range e.listOrder {
		lists[name] = e.lists[name].ToConfig()
	}

	subs := make(map[string]RoomSubscription, len(e.subOrder))
	for _, id := range e.subOrder {
		subs[id] = e.subscriptions[id]
	}

	// The to_device extension's since-token is a projection of the cursor's
	// truth, refreshed immediately before every request (§4.3).
	e.extensions.refreshToDeviceSince(e.cursor.toDeviceSince)

	req := &Request{
		ConnID:            e.connID,
		Pos:               e.cursor.pos,
		Timeout:           int(e.cursor.effectiveTimeout(e.isFullySynced(), overrides).Milliseconds()),
		Lists:             lists,
		ListOrder:         append([]string(nil), e.listOrder...),
		RoomSubscriptions: subs,
		SubscriptionOrder: append([]string(nil), e.subOrder...),
		Extensions:        e.extensions.names(),
		ToDeviceSince:     e.cursor.toDeviceSince,
	}
	if overrides != nil {
		// presence is an explicit per-call override only; it has no
		// standing engine-state equivalent to refresh from.
	}
	return req
}

// toWire renders a Request into the JSON wire shape (§4.4 serialization
// rules): range under "ranges" as a one-element list of pairs, empty
// room_subscriptions/extensions omitted, nil fields omitted.
func (r *Request) toWire(setPresence string, e *Engine) *wireRequest {
	// set_presence is sent as a query parameter only (see newHTTPRequest),
	// never in the JSON body.
	wr := &wireRequest{
		ConnID:  r.ConnID,
		Timeout: r.Timeout,
		Lists:   make(map[string]wireListConfig, len(r.Lists)),
	}
	if r.Pos != nil {
		wr.Pos = *r.Pos
	}
	for _, name := range r.ListOrder {
		cfg := r.Lists[name]
		wlc := wireListConfig{
			TimelineLimit: cfg.TimelineLimit,
			RequiredState: tuplesToWire(cfg.RequiredState),
		}
		if cfg.Range != nil {
			wlc.Ranges = [][2]int{cfg.Range.Pair()}
		}
		if cfg.Filter != nil {
			wlc.Filters = &wireRoomFilter{
				IsDM:        cfg.Filter.IsDM,
				IsEncrypted: cfg.Filter.IsEncrypted,
				IsInvite:    cfg.Filter.IsInvite,
				Spaces:      cfg.Filter.Spaces,
				RoomTypes:   cfg.Filter.RoomTypes,
			}
		}
		wr.Lists[name] = wlc
	}
	if len(r.RoomSubscriptions) > 0 {
		wr.RoomSubscriptions = make(map[string]wireRoomSubscription, len(r.RoomSubscriptions))
		for id, sub := range r.RoomSubscriptions {
			wr.RoomSubscriptions[id] = wireRoomSubscription{
				TimelineLimit: sub.TimelineLimit,
				RequiredState: tuplesToWire(sub.RequiredState),
			}
		}
	}
	if len(r.Extensions) > 0 {
		wr.Extensions = make(map[string]any, len(r.Extensions))
		for _, name := range r.Extensions {
			if name == extensionNameToDevice {
				wr.Extensions[name] = wireToDeviceExtension{Enabled: true, Since: r.ToDeviceSince}
				continue
			}
			wr.Extensions[name] = wireGenericExtension{Enabled: true}
		}
	}
	return wr
}

func tuplesToWire(tuples []StateKeyTuple) [][2]string {
	out := make([][2]string, 0, len(tuples))
	for _, t := range tuples {
		out = append(out, t.Pair())
	}
	return out
}
