package slidingsync

// List is the windowed view of a filtered room set. It owns its own mode
// (selective/paging/growing), filter, and mutable sync progress. The engine
// is the only mutator; callers obtain read-only handles via Engine.GetList.
type List struct {
	name          string
	batchSize     int
	maxRoomsToFetch *int
	timelineLimit int
	requiredState []StateKeyTuple
	filter        *RoomFilter

	ranges          []Range
	serverRoomCount *int
	loadingState    LoadingState

	mode windowMode
}

// ListConfig is the caller-supplied configuration used to construct a List.
type ListConfig struct {
	Name             string
	Mode             Mode
	BatchSize        int
	MaxRoomsToFetch  *int
	TimelineLimit    int
	RequiredState    []StateKeyTuple
	Filter           *RoomFilter
	InitialRanges    []Range // selective only; first element is authoritative
}

// NewList builds a List in its initial not_loaded state per §3.
func NewList(cfg ListConfig) *List {
	l := &List{
		name:            cfg.Name,
		batchSize:       cfg.BatchSize,
		maxRoomsToFetch: cfg.MaxRoomsToFetch,
		timelineLimit:   cfg.TimelineLimit,
		requiredState:   cfg.RequiredState,
		filter:          cfg.Filter,
		loadingState:    NotLoaded,
	}
	switch cfg.Mode {
	case ModePaging:
		l.mode = &pagingMode{}
	case ModeGrowing:
		l.mode = &growingMode{}
	default:
		l.mode = &selectiveMode{}
	}
	if len(cfg.InitialRanges) > 0 {
		l.ranges = append([]Range(nil), cfg.InitialRanges...)
	} else if cfg.Mode != ModePaging && cfg.Mode != ModeGrowing {
		// Paging and growing both derive their first window from an empty
		// ranges slice (current_end defaults to -1); only selective needs an
		// explicit starting window when the caller didn't supply one.
		end := cfg.BatchSize - 1
		if end < 0 {
			end = 0
		}
		l.ranges = []Range{{Start: 0, End: end}}
	}
	return l
}

func (l *List) Name() string             { return l.name }
func (l *List) LoadingState() LoadingState { return l.loadingState }
func (l *List) ServerRoomCount() *int     { return l.serverRoomCount }
func (l *List) Ranges() []Range          { return l.ranges }

// cap returns max_rooms_to_fetch if set, else the total if known, else nil.
func (l *List) cap() *int {
	if l.maxRoomsToFetch != nil {
		return l.maxRoomsToFetch
	}
	return l.serverRoomCount
}

// clamp bounds end by both the known total and the fetch cap, whichever are set.
func (l *List) clamp(end int) int {
	if l.serverRoomCount != nil && *l.serverRoomCount-1 < end {
		end = *l.serverRoomCount - 1
	}
	if c := l.cap(); c != nil && *c-1 < end {
		end = *c - 1
	}
	if end < 0 {
		end = 0
	}
	return end
}

// ComputeNextRange is a pure function of the List's current state producing
// the range to send on the next request, or nil when the mode has nothing
// further to request (paging only; selective/growing always return a range).
func (l *List) ComputeNextRange() *Range {
	return l.mode.computeNextRange(l)
}

// ListResponseOp is the subset of a server-echoed list operation this
// engine consumes: whether it carried a range.
type ListResponseOp struct {
	Range *Range
}

// ListResponse is the per-list slice of a sync response.
type ListResponse struct {
	Count int
	Ops   []ListResponseOp
}

// HandleResponse consumes the server's per-list response and advances
// internal state per §4.1.
func (l *List) HandleResponse(resp ListResponse) {
	count := resp.Count
	l.serverRoomCount = &count

	sawRange := false
	for _, op := range resp.Ops {
		if op.Range != nil {
			l.ranges = []Range{*op.Range}
			l.mode.observeEchoedRange(l, *op.Range)
			sawRange = true
		}
	}

	if !sawRange {
		l.loadingState = PartiallyLoaded
		if _, ok := l.mode.(*selectiveMode); ok {
			l.loadingState = FullyLoaded
		}
		return
	}

	if l.mode.fullyLoaded(l) {
		l.loadingState = FullyLoaded
	} else {
		l.loadingState = PartiallyLoaded
	}
}

// ToConfig renders the outgoing list config: range, timeline limit, required
// state, and filter. It calls ComputeNextRange, making this the single
// authoritative call per tick the request builder relies on.
type ListWireConfig struct {
	Range         *Range
	TimelineLimit int
	RequiredState []StateKeyTuple
	Filter        *RoomFilter
}

func (l *List) ToConfig() ListWireConfig {
	return ListWireConfig{
		Range:         l.ComputeNextRange(),
		TimelineLimit: l.timelineLimit,
		RequiredState: l.requiredState,
		Filter:        l.filter,
	}
}

// ListSnapshot is the persistable subset of a List's state (§4.7).
type ListSnapshot struct {
	Range           *Range
	ServerRoomCount *int
}

func (l *List) ExportState() ListSnapshot {
	var rng *Range
	if len(l.ranges) > 0 {
		r := l.ranges[0]
		rng = &r
	}
	return ListSnapshot{Range: rng, ServerRoomCount: l.serverRoomCount}
}

// RestoreState applies a persisted snapshot per §4.1's restore_state rule.
func (l *List) RestoreState(snap ListSnapshot) {
	if snap.Range != nil {
		l.ranges = []Range{*snap.Range}
		l.mode.observeEchoedRange(l, *snap.Range)
	}
	l.serverRoomCount = snap.ServerRoomCount

	if l.mode.fullyLoaded(l) {
		l.loadingState = FullyLoaded
	} else if snap.Range != nil {
		l.loadingState = PartiallyLoaded
	}
}

// windowMode is the tagged-variant interface that owns which fields a List
// consults for a given mode; this is what keeps e.g. page_offset from being
// a field every List carries regardless of mode (see DESIGN.md).
type windowMode interface {
	computeNextRange(l *List) *Range
	// observeEchoedRange is called whenever the server echoes back a range,
	// both from a live response and from a restored snapshot, so paging can
	// advance its page_offset consistently in both paths.
	observeEchoedRange(l *List, echoed Range)
	fullyLoaded(l *List) bool
}

type selectiveMode struct{}

func (m *selectiveMode) computeNextRange(l *List) *Range {
	if len(l.ranges) == 0 {
		return nil
	}
	r := l.ranges[0]
	return &r
}

func (m *selectiveMode) observeEchoedRange(l *List, echoed Range) {}

func (m *selectiveMode) fullyLoaded(l *List) bool {
	// A fixed window is "loaded" once any response has been observed;
	// HandleResponse only reaches here after seeing a range, and RestoreState
	// calls it for every restored snapshot.
	return true
}

type pagingMode struct {
	pageOffset int
}

func (m *pagingMode) computeNextRange(l *List) *Range {
	if l.serverRoomCount != nil && m.pageOffset >= *l.serverRoomCount {
		return nil
	}
	if c := l.cap(); c != nil && m.pageOffset >= *c {
		return nil
	}
	end := l.clamp(m.pageOffset + l.batchSize - 1)
	return &Range{Start: m.pageOffset, End: end}
}

func (m *pagingMode) observeEchoedRange(l *List, echoed Range) {
	m.pageOffset = echoed.End + 1
}

func (m *pagingMode) fullyLoaded(l *List) bool {
	if l.serverRoomCount != nil && m.pageOffset >= *l.serverRoomCount {
		return true
	}
	if c := l.cap(); c != nil && m.pageOffset >= *c {
		return true
	}
	return false
}

type growingMode struct{}

func (m *growingMode) computeNextRange(l *List) *Range {
	currentEnd := -1
	if len(l.ranges) > 0 {
		currentEnd = l.ranges[0].End
	}
	newEnd := l.clamp(currentEnd + l.batchSize)
	if newEnd <= currentEnd {
		// Cannot grow further; re-request the current window so the server
		// keeps streaming updates for it (S3's saturation re-request).
		return &Range{Start: 0, End: currentEnd}
	}
	return &Range{Start: 0, End: newEnd}
}

func (m *growingMode) observeEchoedRange(l *List, echoed Range) {}

func (m *growingMode) fullyLoaded(l *List) bool {
	if len(l.ranges) == 0 {
		return false
	}
	end := l.ranges[0].End
	if l.serverRoomCount != nil && end >= *l.serverRoomCount-1 {
		return true
	}
	if c := l.cap(); c != nil && end >= *c-1 {
		return true
	}
	return false
}
