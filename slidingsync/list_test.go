package slidingsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestGrowingListSaturatesAndRerequests(t *testing.T) {
	// S3: batch_size=20, max_rooms_to_fetch=40, count=200.
	l := NewList(ListConfig{
		Name:            "growing",
		Mode:            ModeGrowing,
		BatchSize:       20,
		MaxRoomsToFetch: intPtr(40),
	})

	r1 := l.ComputeNextRange()
	require.NotNil(t, r1)
	assert.Equal(t, Range{Start: 0, End: 19}, *r1)

	l.HandleResponse(ListResponse{
		Count: 200,
		Ops:   []ListResponseOp{{Range: &Range{Start: 0, End: 19}}},
	})
	assert.Equal(t, PartiallyLoaded, l.LoadingState())

	r2 := l.ComputeNextRange()
	require.NotNil(t, r2)
	assert.Equal(t, Range{Start: 0, End: 39}, *r2)

	l.HandleResponse(ListResponse{
		Count: 200,
		Ops:   []ListResponseOp{{Range: &Range{Start: 0, End: 39}}},
	})
	assert.Equal(t, FullyLoaded, l.LoadingState())

	// Saturated: re-requesting must echo the same window, not grow past the cap.
	r3 := l.ComputeNextRange()
	require.NotNil(t, r3)
	assert.Equal(t, Range{Start: 0, End: 39}, *r3)
}

func TestPagingListAdvancesOffsetAndStopsAtTotal(t *testing.T) {
	l := NewList(ListConfig{
		Name:      "paging",
		Mode:      ModePaging,
		BatchSize: 10,
	})

	r1 := l.ComputeNextRange()
	require.NotNil(t, r1)
	assert.Equal(t, Range{Start: 0, End: 9}, *r1)

	l.HandleResponse(ListResponse{
		Count: 15,
		Ops:   []ListResponseOp{{Range: &Range{Start: 0, End: 9}}},
	})
	assert.Equal(t, PartiallyLoaded, l.LoadingState())

	r2 := l.ComputeNextRange()
	require.NotNil(t, r2)
	assert.Equal(t, Range{Start: 10, End: 14}, *r2)

	l.HandleResponse(ListResponse{
		Count: 15,
		Ops:   []ListResponseOp{{Range: &Range{Start: 10, End: 14}}},
	})
	assert.Equal(t, FullyLoaded, l.LoadingState())

	// Fully paged: nothing further to request.
	assert.Nil(t, l.ComputeNextRange())
}

func TestPagingListZeroTotalHasNothingToFetch(t *testing.T) {
	l := NewList(ListConfig{
		Name:      "paging-empty",
		Mode:      ModePaging,
		BatchSize: 10,
	})

	l.HandleResponse(ListResponse{Count: 0})
	assert.True(t, l.LoadingState() == PartiallyLoaded || l.LoadingState() == FullyLoaded)
	assert.Nil(t, l.ComputeNextRange())
}

func TestSelectiveListIsLoadedAfterFirstResponse(t *testing.T) {
	l := NewList(ListConfig{
		Name:          "selective",
		Mode:          ModeSelective,
		InitialRanges: []Range{{Start: 0, End: 9}},
	})

	r1 := l.ComputeNextRange()
	require.NotNil(t, r1)
	assert.Equal(t, Range{Start: 0, End: 9}, *r1)

	l.HandleResponse(ListResponse{
		Count: 50,
		Ops:   []ListResponseOp{{Range: &Range{Start: 0, End: 9}}},
	})
	assert.Equal(t, FullyLoaded, l.LoadingState())

	r2 := l.ComputeNextRange()
	require.NotNil(t, r2)
	assert.Equal(t, Range{Start: 0, End: 9}, *r2)
}

func TestListExportRestoreStateRoundTrip(t *testing.T) {
	l := NewList(ListConfig{
		Name:      "paging",
		Mode:      ModePaging,
		BatchSize: 10,
	})
	l.HandleResponse(ListResponse{
		Count: 30,
		Ops:   []ListResponseOp{{Range: &Range{Start: 0, End: 9}}},
	})

	snap := l.ExportState()
	require.NotNil(t, snap.Range)
	assert.Equal(t, Range{Start: 0, End: 9}, *snap.Range)

	restored := NewList(ListConfig{
		Name:      "paging",
		Mode:      ModePaging,
		BatchSize: 10,
	})
	restored.RestoreState(snap)

	// page_offset must be recomputed from the restored range so the next
	// request picks up where the snapshot left off, exactly as a live
	// observeEchoedRange call would have done.
	got := restored.ComputeNextRange()
	require.NotNil(t, got)
	assert.Equal(t, Range{Start: 10, End: 19}, *got)
}
