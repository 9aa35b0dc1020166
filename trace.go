package dpsim

// trace.go holds the trace manager, used to gather a record of every
// event delivery during a run for post-run analysis.  Tracing is off by
// default; the InUse flag lets trace calls stay embedded everywhere they
// are needed while costing nothing when a trace is not wanted.

import (
	"encoding/json"
	"os"
	"path"
	"strconv"

	"gopkg.in/yaml.v3"
)

// TraceInst is one stored trace record
type TraceInst struct {
	TraceTime string
	TraceType string
	TraceStr  string
}

// NameType is an entry in the trace dictionary mapping an address to a
// description of the object registered there
type NameType struct {
	Name string
	Type string
}

// TraceManager gathers information about one execution of a simulation
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// description of each registered address
	NameByAddr map[string]NameType `json:"namebyaddr" yaml:"namebyaddr"`

	// all trace records for this experiment, in delivery order
	Traces []TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the
// experiment and a flag indicating whether the trace manager is active.
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByAddr = make(map[string]NameType)
	tm.Traces = make([]TraceInst, 0)
	return tm
}

// Active tells the caller whether the trace manager is being used
func (tm *TraceManager) Active() bool {
	return tm != nil && tm.InUse
}

// AddTrace stores one trace record
func (tm *TraceManager) AddTrace(trace TraceInst) {
	if !tm.Active() {
		return
	}
	tm.Traces = append(tm.Traces, trace)
}

// AddName adds an element to the address -> (name, type) dictionary for
// the trace file
func (tm *TraceManager) AddName(addr, name, objDesc string) {
	if tm.Active() {
		_, present := tm.NameByAddr[addr]
		if present {
			panic("duplicated address in AddName")
		}
		tm.NameByAddr[addr] = NameType{Name: name, Type: objDesc}
	}
}

// WriteToFile stores the gathered trace to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of
// this name.
func (tm *TraceManager) WriteToFile(filename string) bool {
	if !tm.Active() {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tm)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tm, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	err := f.Close()
	if err != nil {
		panic(err)
	}
	return true
}

// DeliveryTrace records the delivery of one event: when, between which
// addresses, and what kind of payload it carried
type DeliveryTrace struct {
	Time    float64
	Src     string
	Dest    string
	Payload string
}

func (dt *DeliveryTrace) Serialize() string {
	bytes, merr := yaml.Marshal(*dt)
	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// payloadTypeStr is a translation table from payload kinds to the
// strings used in trace records
func payloadTypeStr(payload any) string {
	switch payload.(type) {
	case MessageSend:
		return "send"
	case MessageReceive:
		return "receive"
	case LocalMessageReceive:
		return "local"
	case TimerSet:
		return "timer-set"
	case TimerFired:
		return "timer-fired"
	}
	return "unknown"
}

// AddDeliveryTrace creates a record of one event delivery and stores it
func AddDeliveryTrace(tm *TraceManager, ev *Event) {
	if !tm.Active() {
		return
	}

	dt := new(DeliveryTrace)
	dt.Time = ev.Time
	dt.Src = ev.Src
	dt.Dest = ev.Dest
	dt.Payload = payloadTypeStr(ev.Payload)
	dtStr := dt.Serialize()

	traceTime := strconv.FormatFloat(ev.Time, 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: "delivery", TraceStr: dtStr}
	tm.AddTrace(trcInst)
}
