package dpsim

// helpers_test.go holds the small protocol implementations the tests
// register as nodes, and a bare actor for driving the event manager
// directly

import "gopkg.in/yaml.v3"

func yamlUnmarshalStr(s string, out any) error {
	return yaml.Unmarshal([]byte(s), out)
}

// rcvRecord is a recorder node's note of one incoming message
type rcvRecord struct {
	Msg any
	Src string
}

// recorderNode logs every network message it receives as a local event.
// Timer firings other than "init" are logged as "timer:<name>".  When
// fwd names a peer, locally injected messages are forwarded to it over
// the network.
type recorderNode struct {
	id      string
	fwd     string
	crashes int
}

func (rn *recorderNode) ID() string { return rn.id }

func (rn *recorderNode) OnMessage(msg any, src string, ctx *Context) {
	ctx.SendLocal(rcvRecord{Msg: msg, Src: src})
}

func (rn *recorderNode) OnLocalMessage(msg any, ctx *Context) {
	if rn.fwd != "" {
		ctx.Send(msg, rn.fwd)
	}
}

func (rn *recorderNode) OnTimer(name string, ctx *Context) {
	if name == "init" {
		return
	}
	ctx.SendLocal("timer:" + name)
}

func (rn *recorderNode) OnCrash() { rn.crashes += 1 }

// initProbeNode logs the firing of its "init" timer, and nothing else
type initProbeNode struct {
	id string
}

func (ip *initProbeNode) ID() string                                { return ip.id }
func (ip *initProbeNode) OnMessage(msg any, src string, _ *Context) {}
func (ip *initProbeNode) OnLocalMessage(msg any, _ *Context)        {}
func (ip *initProbeNode) OnCrash()                                  {}

func (ip *initProbeNode) OnTimer(name string, ctx *Context) {
	if name == "init" {
		ctx.SendLocal("init")
	}
}

// tickerNode arms a periodic "tick" timer from its init hook and logs
// each firing, re-arming itself until limit firings have happened
type tickerNode struct {
	id     string
	period float64
	limit  int
	fired  int
}

func (tn *tickerNode) ID() string                                { return tn.id }
func (tn *tickerNode) OnMessage(msg any, src string, _ *Context) {}
func (tn *tickerNode) OnLocalMessage(msg any, _ *Context)        {}
func (tn *tickerNode) OnCrash()                                  {}

func (tn *tickerNode) OnTimer(name string, ctx *Context) {
	if name == "init" {
		ctx.SetTimer("tick", tn.period)
		return
	}
	tn.fired += 1
	ctx.SendLocal("tick")
	if tn.fired < tn.limit {
		ctx.SetTimer("tick", tn.period)
	}
}

// captureActor records every event dispatched to it, for tests that
// drive the event manager without the System facade
type captureActor struct {
	got []*Event
}

func (ca *captureActor) Recv(evtMgr *EventManager, ev *Event) {
	ca.got = append(ca.got, ev)
}
