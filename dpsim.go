package dpsim

// dpsim simulates distributed protocols as discrete events.  Node
// implementations are registered with a System, wired together through a
// fault-injecting network model, and driven one logical event at a time
// by the test harness.  Given a fixed seed every run is reproducible bit
// for bit: event order, random draws, and each node's observable outputs.
//
// dpsim.go holds the System, the facade that builds the simulation and
// carries the full control surface the harness drives it with.

import (
	"fmt"
	"math/rand"

	"golang.org/x/exp/slices"
)

// The five payload kinds an event may carry.  MessageSend travels from a
// node to the network actor; the network turns each surviving copy into a
// MessageReceive addressed to the destination node.  LocalMessageReceive
// bypasses the network entirely.  TimerSet asks a node's actor to arm a
// named timer; TimerFired delivers its elapse.
type MessageSend struct {
	Msg  any
	Src  string
	Dest string
}

type MessageReceive struct {
	Msg  any
	Src  string
	Dest string
}

type LocalMessageReceive struct {
	Msg any
}

type TimerSet struct {
	Name  string
	Delay float64
}

type TimerFired struct {
	Name string
}

// System owns the event manager, the network actor, and the registry of
// node actors.  All mutation flows through it on the caller's goroutine;
// nothing inside runs concurrently.
type System struct {
	evtMgr    *EventManager
	net       *Network
	nodes     map[string]*NodeActor
	nodeOrder []string
	crashed   map[string]bool
	seed      int64
}

// CreateSystem builds a System with a seed drawn at random, for runs
// where reproducibility is wanted only after the fact.  The chosen seed
// is reported by Seed, so a failing run can be replayed exactly with
// CreateSystemWithSeed.
func CreateSystem() *System {
	return CreateSystemWithSeed(rand.Int63n(999999) + 1)
}

// CreateSystemWithSeed builds a System whose behavior is fully determined
// by the given seed and the sequence of calls made against it
func CreateSystemWithSeed(seed int64) *System {
	sys := new(System)
	sys.seed = seed
	sys.evtMgr = CreateEventManager(seed)
	sys.net = CreateNetwork()
	sys.evtMgr.AddActor(NetworkAddr, sys.net)
	sys.nodes = make(map[string]*NodeActor)
	sys.nodeOrder = make([]string, 0)
	sys.crashed = make(map[string]bool)
	return sys
}

// Seed returns the seed this System was built with
func (sys *System) Seed() int64 {
	return sys.seed
}

// AddNode registers a node under its own ID and arms its "init" timer at
// time zero.  Node IDs must be unique and must not collide with the
// network's address.
func (sys *System) AddNode(node Node) {
	id := node.ID()
	if id == NetworkAddr {
		panic(fmt.Errorf("node id %s collides with the network address", id))
	}
	_, present := sys.nodes[id]
	if present {
		panic(fmt.Errorf("node id %s over-used in node registry", id))
	}

	na := createNodeActor(node)
	sys.evtMgr.AddActor(id, na)
	sys.nodes[id] = na
	sys.nodeOrder = append(sys.nodeOrder, id)
	sys.AddTimer(id, "init")
}

// AddTimer schedules an immediate TimerFired for the named node, used to
// inject externally triggered timers
func (sys *System) AddTimer(nodeID, name string) {
	sys.nodeActor(nodeID)
	sys.evtMgr.Schedule(TimerFired{Name: name}, nodeID, nodeID, 0.0)
}

// Send schedules an application message from src to dest.  The message
// reaches the network actor with no delay; all modeled latency is applied
// by the network itself.
func (sys *System) Send(msg any, src, dest string) {
	sys.evtMgr.Schedule(MessageSend{Msg: msg, Src: src, Dest: dest}, src, NetworkAddr, 0.0)
}

// SendLocal delivers a message directly to the named node, bypassing the
// network and its fault model.  The synthetic source tag local@<node>
// marks the event as caller-injected.
func (sys *System) SendLocal(msg any, dest string) {
	src := "local@" + dest
	sys.evtMgr.Schedule(LocalMessageReceive{Msg: msg}, src, dest, 0.0)
}

// CrashNode marks the node crashed, runs its crash hook, and tells the
// network to discard its traffic from now on.  Timers belonging to the
// node are not network traffic and still fire; suppressing their effects
// is the node's job, from its crash hook.  Crashing a node twice is a
// harness bug; avoid it.
func (sys *System) CrashNode(nodeID string) {
	na := sys.nodeActor(nodeID)
	sys.crashed[nodeID] = true
	na.crash()
	sys.net.NodeCrashed(nodeID)
}

// NodeIsCrashed reports whether the named node has crashed
func (sys *System) NodeIsCrashed(nodeID string) bool {
	return sys.crashed[nodeID]
}

// NodeCount returns the number of registered nodes
func (sys *System) NodeCount() int {
	return len(sys.nodes)
}

// GetNodeIDs returns the registered node IDs in registration order
func (sys *System) GetNodeIDs() []string {
	return slices.Clone(sys.nodeOrder)
}

// GetLocalEvents returns the named node's local event log
func (sys *System) GetLocalEvents(nodeID string) []LocalEvent {
	return sys.nodeActor(nodeID).GetLocalEvents()
}

// nodeActor looks up the actor for a node id, treating an unknown id as
// the configuration error it is
func (sys *System) nodeActor(nodeID string) *NodeActor {
	na, present := sys.nodes[nodeID]
	if !present {
		panic(fmt.Errorf("reference to unregistered node %s", nodeID))
	}
	return na
}

// fault configuration, forwarded to the network model

func (sys *System) SetDelay(d float64)                   { sys.net.SetDelay(d) }
func (sys *System) SetDelays(minDelay, maxDelay float64) { sys.net.SetDelays(minDelay, maxDelay) }
func (sys *System) SetDropRate(rate float64)             { sys.net.SetDropRate(rate) }
func (sys *System) SetDuplRate(rate float64)             { sys.net.SetDuplRate(rate) }
func (sys *System) DropIncoming(nodeID string)           { sys.net.DropIncoming(nodeID) }
func (sys *System) PassIncoming(nodeID string)           { sys.net.PassIncoming(nodeID) }
func (sys *System) DropOutgoing(nodeID string)           { sys.net.DropOutgoing(nodeID) }
func (sys *System) PassOutgoing(nodeID string)           { sys.net.PassOutgoing(nodeID) }
func (sys *System) DisconnectNode(nodeID string)         { sys.net.DisconnectNode(nodeID) }
func (sys *System) ConnectNode(nodeID string)            { sys.net.ConnectNode(nodeID) }
func (sys *System) DisableLink(from, to string)          { sys.net.DisableLink(from, to) }
func (sys *System) EnableLink(from, to string)           { sys.net.EnableLink(from, to) }
func (sys *System) MakePartition(group1, group2 []string) {
	sys.net.MakePartition(group1, group2)
}
func (sys *System) ResetNetwork() { sys.net.ResetNetwork() }

// EnableBetween enables the link between two nodes in both directions
func (sys *System) EnableBetween(a, b string) {
	sys.net.EnableLink(a, b)
	sys.net.EnableLink(b, a)
}

// DisableAllLinks disables every directed link between distinct
// registered nodes, in registration order
func (sys *System) DisableAllLinks() {
	for _, from := range sys.nodeOrder {
		for _, to := range sys.nodeOrder {
			if from != to {
				sys.net.DisableLink(from, to)
			}
		}
	}
}

// EnableAllLinks enables every directed link between distinct registered
// nodes
func (sys *System) EnableAllLinks() {
	for _, from := range sys.nodeOrder {
		for _, to := range sys.nodeOrder {
			if from != to {
				sys.net.EnableLink(from, to)
			}
		}
	}
}

// GetNetworkMessageCount returns the number of messages that completed
// delivery through the network
func (sys *System) GetNetworkMessageCount() int {
	return sys.net.GetMessageCount()
}

// stepping controls, forwarded to the event manager

func (sys *System) Step() bool                       { return sys.evtMgr.Step() }
func (sys *System) Steps(count int)                  { sys.evtMgr.Steps(count) }
func (sys *System) StepUntilNoEvents()               { sys.evtMgr.StepUntilNoEvents() }
func (sys *System) StepWhile(pred func(*Event) bool) { sys.evtMgr.StepWhile(pred) }
func (sys *System) CurrentSeconds() float64          { return sys.evtMgr.CurrentSeconds() }

// CountUndeliveredEvents drains the pending queue and returns how many
// events were still in flight.  Used to assert quiescence after a
// truncated run.
func (sys *System) CountUndeliveredEvents() int {
	return len(sys.evtMgr.ReadUndeliveredEvents())
}

// SetTraceManager attaches a trace manager; every subsequently delivered
// event is recorded in it
func (sys *System) SetTraceManager(tm *TraceManager) {
	sys.evtMgr.traceMgr = tm
}
