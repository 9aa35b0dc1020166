package dpsim

// sim.go holds the event manager: the logical clock, the queue of
// pending events, and the registry of actors that events are dispatched to.
// The event manager is the sole owner of the simulation's random number
// stream, so that every consumer of randomness draws from one seeded
// sequence in a fixed order relative to event processing.  Two event
// managers created with the same seed and driven through the same sequence
// of calls deliver identical event sequences and identical random draws.

import (
	"container/heap"
	"fmt"

	"github.com/iti/rngstream"
)

// An Event is a scheduled delivery of a payload to the actor registered
// at the Dest address.  Events are totally ordered by (Time, seq), seq
// being the insertion counter, so that events carrying equal timestamps
// are delivered in the order they were scheduled.
type Event struct {
	Time    float64 // delivery time, in simulation seconds
	Src     string  // address of the scheduling actor
	Dest    string  // address of the actor the payload is dispatched to
	Payload any
	seq     int64
}

// An Actor is a dispatch target registered with the event manager under
// a unique address.  Recv is called synchronously when an event addressed
// to the actor comes due; the actor may schedule further events before
// returning.
type Actor interface {
	Recv(evtMgr *EventManager, ev *Event)
}

// evtHeap implements heap.Interface over pending events,
// ordered by time with the insertion sequence breaking ties
type evtHeap []*Event

func (eh evtHeap) Len() int { return len(eh) }

func (eh evtHeap) Less(i, j int) bool {
	if eh[i].Time != eh[j].Time {
		return eh[i].Time < eh[j].Time
	}
	return eh[i].seq < eh[j].seq
}

func (eh evtHeap) Swap(i, j int) { eh[i], eh[j] = eh[j], eh[i] }

func (eh *evtHeap) Push(x any) { *eh = append(*eh, x.(*Event)) }

func (eh *evtHeap) Pop() any {
	old := *eh
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*eh = old[:n-1]
	return ev
}

// EventManager advances the simulation.  Time starts at zero and moves
// only when an event is delivered, never backwards.  Nothing executes
// unless the owner calls one of the step methods.
type EventManager struct {
	now      float64
	queue    evtHeap
	actors   map[string]Actor
	rng      *rngstream.RngStream
	nxtSeq   int64
	traceMgr *TraceManager
}

// CreateEventManager is a constructor.  The seed initializes the random
// stream every consumer of randomness shares.
func CreateEventManager(seed int64) *EventManager {
	evtMgr := new(EventManager)
	evtMgr.queue = make(evtHeap, 0)
	evtMgr.actors = make(map[string]Actor)

	rngstream.SetRngStreamMasterSeed(uint64(seed))
	evtMgr.rng = rngstream.New("evtMgr")
	return evtMgr
}

// AddActor registers a dispatch target under the given address.
// Address collisions indicate a wiring bug in the experiment, not a
// simulated fault, so they panic.
func (evtMgr *EventManager) AddActor(addr string, actor Actor) {
	_, present := evtMgr.actors[addr]
	if present {
		panic(fmt.Errorf("address %s over-used in actor registry", addr))
	}
	evtMgr.actors[addr] = actor
}

// Schedule enqueues delivery of payload to the actor at dest, delay
// seconds past the current time
func (evtMgr *EventManager) Schedule(payload any, src, dest string, delay float64) {
	if delay < 0.0 {
		panic(fmt.Errorf("negative delay %f scheduling event for %s", delay, dest))
	}
	ev := new(Event)
	ev.Time = evtMgr.now + delay
	ev.Src = src
	ev.Dest = dest
	ev.Payload = payload
	ev.seq = evtMgr.nxtSeq
	evtMgr.nxtSeq += 1
	heap.Push(&evtMgr.queue, ev)
}

// Step removes the earliest pending event, advances the clock to its
// timestamp, and dispatches it to the destination actor.  The return
// reports whether an event was delivered; on an empty queue Step returns
// false and has no side effects.
func (evtMgr *EventManager) Step() bool {
	if len(evtMgr.queue) == 0 {
		return false
	}
	ev := heap.Pop(&evtMgr.queue).(*Event)
	evtMgr.now = ev.Time

	actor, present := evtMgr.actors[ev.Dest]
	if !present {
		panic(fmt.Errorf("event addressed to unregistered actor %s", ev.Dest))
	}

	AddDeliveryTrace(evtMgr.traceMgr, ev)
	actor.Recv(evtMgr, ev)
	return true
}

// Steps calls Step up to count times, stopping early if the queue empties
func (evtMgr *EventManager) Steps(count int) {
	for idx := 0; idx < count; idx += 1 {
		if !evtMgr.Step() {
			break
		}
	}
}

// StepUntilNoEvents steps until the queue is exhausted
func (evtMgr *EventManager) StepUntilNoEvents() {
	for evtMgr.Step() {
	}
}

// StepWhile peeks at the next event due for delivery and stops, without
// delivering it, as soon as pred rejects it.  Used to halt the simulation
// exactly before an event of interest.
func (evtMgr *EventManager) StepWhile(pred func(*Event) bool) {
	for len(evtMgr.queue) > 0 {
		if !pred(evtMgr.queue[0]) {
			return
		}
		evtMgr.Step()
	}
}

// CurrentSeconds returns the simulation clock.  The clock is logical;
// it has no relationship to wall-clock time.
func (evtMgr *EventManager) CurrentSeconds() float64 {
	return evtMgr.now
}

// ReadUndeliveredEvents drains the pending queue and returns the drained
// events in delivery order, without advancing the clock.  A caller that
// stopped stepping early uses this to observe messages still in flight.
func (evtMgr *EventManager) ReadUndeliveredEvents() []*Event {
	undelivered := make([]*Event, 0, len(evtMgr.queue))
	for len(evtMgr.queue) > 0 {
		undelivered = append(undelivered, heap.Pop(&evtMgr.queue).(*Event))
	}
	return undelivered
}

// RandU01 draws a uniform sample from the shared random stream
func (evtMgr *EventManager) RandU01() float64 {
	return evtMgr.rng.RandU01()
}

// RandInt draws an integer uniformly from [low, high] from the shared
// random stream
func (evtMgr *EventManager) RandInt(low, high int) int {
	return evtMgr.rng.RandInt(low, high)
}
