package dpsim

// net.go holds the network model.  The network is itself an actor,
// registered under the address "net"; every inter-node message passes
// through it as a MessageSend event.  The network decides whether the
// message survives (crash, block, and link filters, then a drop draw),
// whether it is duplicated, and how long each surviving copy is delayed,
// then schedules MessageReceive events for the destination node.
//
// Fault configuration changes apply to messages sent afterwards.  Copies
// already scheduled for delivery are not recalled; like a real network,
// what is in flight stays in flight.

import (
	"fmt"
)

// NetworkAddr is the well-known address the network actor is registered under
const NetworkAddr string = "net"

// a directed edge between named nodes
type linkEnd struct {
	from, to string
}

// Network holds the fault model state.  The zero delay range, zero rates,
// and empty tables describe a perfect network: instant, lossless, fully
// connected.
type Network struct {
	minDelay float64
	maxDelay float64
	dropRate float64
	duplRate float64

	// directed links disabled by DisableLink or MakePartition
	disabledLink map[linkEnd]bool

	// per-node directional blocks
	blockIncoming map[string]bool
	blockOutgoing map[string]bool

	// nodes that have crashed.  Crash is permanent; ResetNetwork does not clear it
	crashed map[string]bool

	// count of MessageReceive events scheduled, duplicates counted separately
	msgCount int

	// sampled delay of every scheduled copy, for post-run statistics
	latencies []float64
}

// CreateNetwork is a constructor
func CreateNetwork() *Network {
	net := new(Network)
	net.disabledLink = make(map[linkEnd]bool)
	net.blockIncoming = make(map[string]bool)
	net.blockOutgoing = make(map[string]bool)
	net.crashed = make(map[string]bool)
	net.latencies = make([]float64, 0)
	return net
}

// Recv dispatches an event delivered to the network actor.  Only
// MessageSend payloads are routed through the network; anything else
// addressed to "net" is a wiring bug.
func (net *Network) Recv(evtMgr *EventManager, ev *Event) {
	ms, ok := ev.Payload.(MessageSend)
	if !ok {
		panic(fmt.Errorf("network received payload of type %T", ev.Payload))
	}
	net.deliver(evtMgr, ms)
}

// deliver applies the fault model to one MessageSend.  The order of
// random draws is fixed: drop first, then duplication, then one delay
// per surviving copy.  Changing this order changes every seeded run.
func (net *Network) deliver(evtMgr *EventManager, ms MessageSend) {
	// messages touching a crashed node disappear without a trace
	if net.crashed[ms.Src] || net.crashed[ms.Dest] {
		return
	}

	// directional blocks and disabled links likewise
	if net.blockIncoming[ms.Dest] || net.blockOutgoing[ms.Src] {
		return
	}
	if net.disabledLink[linkEnd{from: ms.Src, to: ms.Dest}] {
		return
	}

	// the drop coin flip
	if evtMgr.RandU01() < net.dropRate {
		return
	}

	// the duplication coin flip.  Duplication is binary: a duplicated
	// message yields exactly two delivery attempts, each delayed
	// independently.
	copies := 1
	if evtMgr.RandU01() < net.duplRate {
		copies = 2
	}

	for idx := 0; idx < copies; idx += 1 {
		delay := net.minDelay + (net.maxDelay-net.minDelay)*evtMgr.RandU01()
		evtMgr.Schedule(MessageReceive{Msg: ms.Msg, Src: ms.Src, Dest: ms.Dest}, ms.Src, ms.Dest, delay)
		net.msgCount += 1
		net.latencies = append(net.latencies, delay)
	}
}

// SetDelay collapses the delay range to the single fixed value d
func (net *Network) SetDelay(d float64) {
	net.SetDelays(d, d)
}

// SetDelays sets the inclusive range delivery delays are sampled from
func (net *Network) SetDelays(minDelay, maxDelay float64) {
	if minDelay < 0.0 || minDelay > maxDelay {
		panic(fmt.Errorf("malformed delay range [%f, %f]", minDelay, maxDelay))
	}
	net.minDelay = minDelay
	net.maxDelay = maxDelay
}

// SetDropRate sets the probability a message is lost in transit
func (net *Network) SetDropRate(rate float64) {
	net.dropRate = checkProb("drop rate", rate)
}

// SetDuplRate sets the probability a message is delivered twice
func (net *Network) SetDuplRate(rate float64) {
	net.duplRate = checkProb("duplication rate", rate)
}

func checkProb(label string, p float64) float64 {
	if p < 0.0 || p > 1.0 {
		panic(fmt.Errorf("%s %f outside [0,1]", label, p))
	}
	return p
}

// DropIncoming discards every message whose destination is the named node
func (net *Network) DropIncoming(name string) {
	net.blockIncoming[name] = true
}

// PassIncoming removes the incoming block on the named node
func (net *Network) PassIncoming(name string) {
	delete(net.blockIncoming, name)
}

// DropOutgoing discards every message whose source is the named node
func (net *Network) DropOutgoing(name string) {
	net.blockOutgoing[name] = true
}

// PassOutgoing removes the outgoing block on the named node
func (net *Network) PassOutgoing(name string) {
	delete(net.blockOutgoing, name)
}

// DisconnectNode blocks traffic in both directions at the named node
func (net *Network) DisconnectNode(name string) {
	net.DropIncoming(name)
	net.DropOutgoing(name)
}

// ConnectNode removes both directional blocks at the named node
func (net *Network) ConnectNode(name string) {
	net.PassIncoming(name)
	net.PassOutgoing(name)
}

// DisableLink disables the directed edge from -> to
func (net *Network) DisableLink(from, to string) {
	net.disabledLink[linkEnd{from: from, to: to}] = true
}

// EnableLink enables the directed edge from -> to
func (net *Network) EnableLink(from, to string) {
	delete(net.disabledLink, linkEnd{from: from, to: to})
}

// MakePartition disables every directed link that crosses between the two
// groups, in both directions.  Links within a group are untouched.
func (net *Network) MakePartition(group1, group2 []string) {
	for _, g1 := range group1 {
		for _, g2 := range group2 {
			net.DisableLink(g1, g2)
			net.DisableLink(g2, g1)
		}
	}
}

// ResetNetwork restores delay, rate, link, and block state to the
// defaults of a freshly created network.  The crashed set is preserved;
// a crash is a node lifecycle fact, not a transient network fault.
func (net *Network) ResetNetwork() {
	net.minDelay = 0.0
	net.maxDelay = 0.0
	net.dropRate = 0.0
	net.duplRate = 0.0
	net.disabledLink = make(map[linkEnd]bool)
	net.blockIncoming = make(map[string]bool)
	net.blockOutgoing = make(map[string]bool)
}

// NodeCrashed tells the network the named node has crashed.  All of the
// node's subsequent traffic, in either direction, is discarded.  There is
// no un-crash.
func (net *Network) NodeCrashed(name string) {
	net.crashed[name] = true
}

// GetMessageCount returns the number of messages that completed delivery
// through the network, counting duplicated copies separately
func (net *Network) GetMessageCount() int {
	return net.msgCount
}
