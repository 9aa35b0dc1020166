package dpsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepOnEmptyQueue(t *testing.T) {
	evtMgr := CreateEventManager(1)

	require.False(t, evtMgr.Step(), "step on empty queue should report no progress")
	assert.Equal(t, 0.0, evtMgr.CurrentSeconds(), "empty step must not advance the clock")
}

func TestDeliveryOrderAndTieBreak(t *testing.T) {
	evtMgr := CreateEventManager(1)
	sink := &captureActor{}
	evtMgr.AddActor("sink", sink)

	// two events share time 1.0; their insertion order must survive
	evtMgr.Schedule("late", "src", "sink", 2.0)
	evtMgr.Schedule("tie-1", "src", "sink", 1.0)
	evtMgr.Schedule("tie-2", "src", "sink", 1.0)
	evtMgr.Schedule("first", "src", "sink", 0.0)

	evtMgr.StepUntilNoEvents()

	require.Len(t, sink.got, 4)
	assert.Equal(t, "first", sink.got[0].Payload)
	assert.Equal(t, "tie-1", sink.got[1].Payload)
	assert.Equal(t, "tie-2", sink.got[2].Payload)
	assert.Equal(t, "late", sink.got[3].Payload)

	prev := 0.0
	for _, ev := range sink.got {
		assert.GreaterOrEqual(t, ev.Time, prev, "delivery times must be nondecreasing")
		prev = ev.Time
	}
	assert.Equal(t, 2.0, evtMgr.CurrentSeconds())
}

func TestMonotonicClock(t *testing.T) {
	evtMgr := CreateEventManager(7)
	sink := &captureActor{}
	evtMgr.AddActor("sink", sink)

	for idx := 0; idx < 5; idx += 1 {
		evtMgr.Schedule(idx, "src", "sink", float64(5-idx))
	}

	prev := evtMgr.CurrentSeconds()
	for evtMgr.Step() {
		require.GreaterOrEqual(t, evtMgr.CurrentSeconds(), prev)
		prev = evtMgr.CurrentSeconds()
	}
}

func TestScheduleNegativeDelayPanics(t *testing.T) {
	evtMgr := CreateEventManager(1)
	evtMgr.AddActor("sink", &captureActor{})

	require.Panics(t, func() { evtMgr.Schedule("x", "src", "sink", -0.5) })
}

func TestDuplicateActorAddressPanics(t *testing.T) {
	evtMgr := CreateEventManager(1)
	evtMgr.AddActor("sink", &captureActor{})

	require.Panics(t, func() { evtMgr.AddActor("sink", &captureActor{}) })
}

func TestUnknownDestinationPanics(t *testing.T) {
	evtMgr := CreateEventManager(1)
	evtMgr.Schedule("x", "src", "nowhere", 0.0)

	require.Panics(t, func() { evtMgr.Step() })
}

func TestReadUndeliveredEvents(t *testing.T) {
	evtMgr := CreateEventManager(1)
	sink := &captureActor{}
	evtMgr.AddActor("sink", sink)

	evtMgr.Schedule("a", "src", "sink", 1.0)
	evtMgr.Schedule("b", "src", "sink", 2.0)
	evtMgr.Schedule("c", "src", "sink", 3.0)

	require.True(t, evtMgr.Step())
	assert.Equal(t, 1.0, evtMgr.CurrentSeconds())

	undelivered := evtMgr.ReadUndeliveredEvents()
	require.Len(t, undelivered, 2)
	assert.Equal(t, "b", undelivered[0].Payload)
	assert.Equal(t, "c", undelivered[1].Payload)

	// draining does not advance the clock, and empties the queue
	assert.Equal(t, 1.0, evtMgr.CurrentSeconds())
	assert.False(t, evtMgr.Step())
}

// lossyRun drives a fixed call sequence over a lossy, jittery network and
// returns everything externally observable about the run
func lossyRun(seed int64) ([]LocalEvent, int, float64) {
	sys := CreateSystemWithSeed(seed)
	sys.AddNode(&recorderNode{id: "A"})
	sys.AddNode(&recorderNode{id: "B"})
	sys.SetDelays(1.0, 5.0)
	sys.SetDropRate(0.3)
	sys.SetDuplRate(0.2)

	for idx := 0; idx < 20; idx += 1 {
		sys.Send(idx, "A", "B")
	}
	sys.StepUntilNoEvents()

	return sys.GetLocalEvents("B"), sys.GetNetworkMessageCount(), sys.CurrentSeconds()
}

func TestDeterministicReplay(t *testing.T) {
	events1, count1, time1 := lossyRun(314159)
	events2, count2, time2 := lossyRun(314159)

	assert.Equal(t, events1, events2, "same seed and call sequence must reproduce the local event log")
	assert.Equal(t, count1, count2)
	assert.Equal(t, time1, time2)
}

func TestSharedStreamDraws(t *testing.T) {
	evtMgr1 := CreateEventManager(99)
	evtMgr2 := CreateEventManager(99)

	for idx := 0; idx < 10; idx += 1 {
		require.Equal(t, evtMgr1.RandU01(), evtMgr2.RandU01())
	}
	require.Equal(t, evtMgr1.RandInt(1, 1000000), evtMgr2.RandInt(1, 1000000))
}
