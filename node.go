package dpsim

// node.go holds the node capability interface, the context a node handler
// uses to act on the simulated world, and the actor that adapts a node to
// the event manager's dispatch

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Node is the capability a protocol implementation supplies to be run
// inside the simulation.  The framework never inspects message contents;
// what a node computes is its own business.  The reserved timer name
// "init" is fired once, at time zero, when the node is registered, and is
// the node's first opportunity to send messages or arm timers.
type Node interface {
	// ID returns a stable identifier, used as the node's address
	ID() string

	// OnMessage handles an application message delivered by the network,
	// with the address of its logical sender
	OnMessage(msg any, src string, ctx *Context)

	// OnLocalMessage handles a message injected by the test harness,
	// bypassing the network
	OnLocalMessage(msg any, ctx *Context)

	// OnTimer handles the firing of a named timer
	OnTimer(name string, ctx *Context)

	// OnCrash tells the node it has crashed.  This is the node's only
	// chance to stop producing further external effects.
	OnCrash()
}

type sentMsg struct {
	msg  any
	dest string
}

type timerReq struct {
	name  string
	delay float64
}

// A Context is handed to each node handler invocation.  Actions the
// handler takes (sends, local outputs, timers) are recorded on the
// context and turned into events by the node's actor after the handler
// returns.
type Context struct {
	time      float64
	evtMgr    *EventManager
	sent      []sentMsg
	sentLocal []any
	timers    []timerReq
}

// Send records an application message addressed to another node.  The
// message is routed through the network and subject to its fault model.
func (ctx *Context) Send(msg any, dest string) {
	ctx.sent = append(ctx.sent, sentMsg{msg: msg, dest: dest})
}

// SendLocal records a local output, the node's externally observable
// result.  The test harness reads these back with GetLocalEvents.
func (ctx *Context) SendLocal(msg any) {
	ctx.sentLocal = append(ctx.sentLocal, msg)
}

// SetTimer arms a named timer that fires delay seconds from now.  There
// is no cancellation; an armed timer always fires.
func (ctx *Context) SetTimer(name string, delay float64) {
	if delay < 0.0 {
		panic(fmt.Errorf("negative delay %f arming timer %s", delay, name))
	}
	ctx.timers = append(ctx.timers, timerReq{name: name, delay: delay})
}

// Time returns the simulation time of the event being handled
func (ctx *Context) Time() float64 {
	return ctx.time
}

// Rand draws a uniform sample from the simulation's shared random stream,
// so that randomized node logic stays reproducible under a fixed seed
func (ctx *Context) Rand() float64 {
	return ctx.evtMgr.RandU01()
}

// A LocalEvent is one output a node emitted, stamped with the simulation
// time of emission
type LocalEvent struct {
	Time float64 `json:"time" yaml:"time"`
	Msg  any     `json:"msg" yaml:"msg"`
}

// NodeActor adapts one Node to the event manager's dispatch, and owns the
// append-only log of the node's local events
type NodeActor struct {
	node        Node
	localEvents []LocalEvent
	crashed     bool
}

// createNodeActor is a constructor
func createNodeActor(node Node) *NodeActor {
	na := new(NodeActor)
	na.node = node
	na.localEvents = make([]LocalEvent, 0)
	return na
}

// Recv dispatches a delivered event to the wrapped node.  The network,
// not the adapter, filters traffic to and from crashed nodes, so a
// crashed adapter still dispatches whatever reaches it; in particular
// timers armed before the crash still fire.
func (na *NodeActor) Recv(evtMgr *EventManager, ev *Event) {
	ctx := &Context{time: evtMgr.CurrentSeconds(), evtMgr: evtMgr}

	switch pld := ev.Payload.(type) {
	case MessageReceive:
		na.node.OnMessage(pld.Msg, pld.Src, ctx)
	case LocalMessageReceive:
		na.node.OnLocalMessage(pld.Msg, ctx)
	case TimerFired:
		na.node.OnTimer(pld.Name, ctx)
	case TimerSet:
		// arming request: schedule the firing and return, no handler runs
		evtMgr.Schedule(TimerFired{Name: pld.Name}, ev.Dest, ev.Dest, pld.Delay)
		return
	default:
		panic(fmt.Errorf("node %s received payload of type %T", na.node.ID(), ev.Payload))
	}

	na.commit(evtMgr, ctx)
}

// commit turns the actions a handler recorded on its context into events
// and log entries.  Ordering is fixed: sends, then local outputs, then
// timers, in the order the handler issued them.
func (na *NodeActor) commit(evtMgr *EventManager, ctx *Context) {
	id := na.node.ID()
	for _, sm := range ctx.sent {
		evtMgr.Schedule(MessageSend{Msg: sm.msg, Src: id, Dest: sm.dest}, id, NetworkAddr, 0.0)
	}
	for _, msg := range ctx.sentLocal {
		na.localEvents = append(na.localEvents, LocalEvent{Time: ctx.time, Msg: msg})
	}
	for _, tr := range ctx.timers {
		evtMgr.Schedule(TimerFired{Name: tr.name}, id, id, tr.delay)
	}
}

// crash marks the actor crashed and runs the node's crash hook.  The hook
// runs at most once no matter how the crash is reported.
func (na *NodeActor) crash() {
	if na.crashed {
		return
	}
	na.crashed = true
	na.node.OnCrash()
}

// GetLocalEvents returns a copy of the node's local event log, in
// emission order
func (na *NodeActor) GetLocalEvents() []LocalEvent {
	return slices.Clone(na.localEvents)
}
