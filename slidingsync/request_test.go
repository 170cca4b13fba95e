package slidingsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(EngineConfig{ConnID: "conn-1"})
}

func TestBuildRequestOmitsEmptySubscriptionsAndExtensions(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "rooms", Mode: ModeSelective, InitialRanges: []Range{{Start: 0, End: 9}}})

	req := e.buildRequest(nil)
	wr := req.toWire("", e)

	assert.Nil(t, wr.RoomSubscriptions)
	assert.Nil(t, wr.Extensions)
}

func TestBuildRequestIncludesNonEmptySubscriptionsAndExtensions(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "rooms", Mode: ModeSelective, InitialRanges: []Range{{Start: 0, End: 9}}})
	e.SubscribeToRooms([]string{"!room:example.org"}, RoomSubscription{TimelineLimit: 5})
	e.EnableExtension("typing")

	req := e.buildRequest(nil)
	wr := req.toWire("", e)

	require.Len(t, wr.RoomSubscriptions, 1)
	sub, ok := wr.RoomSubscriptions["!room:example.org"]
	require.True(t, ok)
	assert.Equal(t, 5, sub.TimelineLimit)

	require.Len(t, wr.Extensions, 1)
	typingCfg, ok := wr.Extensions["typing"].(wireGenericExtension)
	require.True(t, ok)
	assert.True(t, typingCfg.Enabled)
}

func TestBuildRequestRendersRangeAsOneElementPairList(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "rooms", Mode: ModeSelective, InitialRanges: []Range{{Start: 3, End: 17}}})

	req := e.buildRequest(nil)
	wr := req.toWire("", e)

	cfg, ok := wr.Lists["rooms"]
	require.True(t, ok)
	assert.Equal(t, [][2]int{{3, 17}}, cfg.Ranges)
}

func TestBuildRequestRefreshesToDeviceSinceFromCursorBeforeSerialization(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "rooms", Mode: ModeSelective, InitialRanges: []Range{{Start: 0, End: 9}}})
	e.EnableExtension("to_device")

	since := "s1"
	e.cursor.onToDeviceNextBatch(since)

	req := e.buildRequest(nil)
	wr := req.toWire("", e)

	toDeviceCfg, ok := wr.Extensions["to_device"].(wireToDeviceExtension)
	require.True(t, ok)
	require.NotNil(t, toDeviceCfg.Since)
	assert.Equal(t, since, *toDeviceCfg.Since)

	// A later cursor advance must be reflected on the next buildRequest
	// call without re-enabling the extension, since §4.3 refreshes the
	// since-token from the cursor immediately before every request.
	e.cursor.onToDeviceNextBatch("s2")
	req2 := e.buildRequest(nil)
	wr2 := req2.toWire("", e)
	toDeviceCfg2 := wr2.Extensions["to_device"].(wireToDeviceExtension)
	assert.Equal(t, "s2", *toDeviceCfg2.Since)
}

func TestBuildRequestPreservesListAndExtensionOrder(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "dms", Mode: ModeSelective, InitialRanges: []Range{{Start: 0, End: 9}}})
	e.AddList(ListConfig{Name: "rooms", Mode: ModeSelective, InitialRanges: []Range{{Start: 0, End: 9}}})
	e.EnableExtension("receipts")
	e.EnableExtension("typing")

	req := e.buildRequest(nil)
	assert.Equal(t, []string{"dms", "rooms"}, req.ListOrder)
	assert.Equal(t, []string{"receipts", "typing"}, req.Extensions)
}

func TestBuildRequestOmitsPosWhenUnset(t *testing.T) {
	e := newTestEngine()
	e.AddList(ListConfig{Name: "rooms", Mode: ModeSelective, InitialRanges: []Range{{Start: 0, End: 9}}})

	req := e.buildRequest(nil)
	wr := req.toWire("", e)
	assert.Equal(t, "", wr.Pos)

	e.cursor.onSuccess("p1")
	req2 := e.buildRequest(nil)
	wr2 := req2.toWire("", e)
	assert.Equal(t, "p1", wr2.Pos)
}
