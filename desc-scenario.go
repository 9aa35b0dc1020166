package dpsim

// file desc-scenario.go holds structs and methods supporting description
// of a network fault scenario in a file, so that the same fault
// configuration can be stored, shared, and applied to many runs

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// A LinkDesc names one directed link
type LinkDesc struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// A ScenarioCfg describes a network fault configuration.  Node names it
// mentions must all be registered with the System the scenario is applied
// to.
type ScenarioCfg struct {
	// identifier for this scenario
	Name string `json:"name" yaml:"name"`

	// inclusive range delivery delays are sampled from
	MinDelay float64 `json:"mindelay" yaml:"mindelay"`
	MaxDelay float64 `json:"maxdelay" yaml:"maxdelay"`

	// loss and duplication probabilities
	DropRate float64 `json:"droprate" yaml:"droprate"`
	DuplRate float64 `json:"duplrate" yaml:"duplrate"`

	// directed links to disable
	DisabledLinks []LinkDesc `json:"disabledlinks" yaml:"disabledlinks"`

	// nodes to block in both directions
	Disconnected []string `json:"disconnected" yaml:"disconnected"`

	// when both groups are non-empty, every link crossing between them
	// is disabled
	PartitionA []string `json:"partitiona" yaml:"partitiona"`
	PartitionB []string `json:"partitionb" yaml:"partitionb"`
}

// CreateScenarioCfg is an initialization constructor
func CreateScenarioCfg(name string) *ScenarioCfg {
	scn := new(ScenarioCfg)
	scn.Name = name
	scn.DisabledLinks = make([]LinkDesc, 0)
	scn.Disconnected = make([]string, 0)
	return scn
}

// AddDisabledLink includes the directed link from -> to in the scenario
func (scn *ScenarioCfg) AddDisabledLink(from, to string) {
	scn.DisabledLinks = append(scn.DisabledLinks, LinkDesc{From: from, To: to})
}

// WriteToFile stores the ScenarioCfg struct to the file whose name is
// given.  Serialization to json or to yaml is selected based on the
// extension of this name.
func (scn *ScenarioCfg) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*scn)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*scn, "", "\t")
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

	return werr
}

// ReadScenarioCfg deserializes a byte slice holding a representation of a
// ScenarioCfg struct.  If the input argument of dict (those bytes) is
// empty, the file whose name is given is read to acquire them.  A
// deserialized representation is returned, or an error if one is
// generated from a file read or the deserialization.
func ReadScenarioCfg(filename string, useYAML bool, dict []byte) (*ScenarioCfg, error) {
	var err error

	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := ScenarioCfg{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	return &example, nil
}

// ApplyScenario configures the network from a scenario description.  A
// scenario that names an unregistered node is a configuration error.
func (sys *System) ApplyScenario(scn *ScenarioCfg) {
	for _, name := range scenarioNodes(scn) {
		if !slices.Contains(sys.nodeOrder, name) {
			panic(fmt.Errorf("scenario %s names unregistered node %s", scn.Name, name))
		}
	}

	sys.SetDelays(scn.MinDelay, scn.MaxDelay)
	sys.SetDropRate(scn.DropRate)
	sys.SetDuplRate(scn.DuplRate)

	for _, link := range scn.DisabledLinks {
		sys.DisableLink(link.From, link.To)
	}
	for _, name := range scn.Disconnected {
		sys.DisconnectNode(name)
	}
	if len(scn.PartitionA) > 0 && len(scn.PartitionB) > 0 {
		sys.MakePartition(scn.PartitionA, scn.PartitionB)
	}
}

// scenarioNodes gathers every node name a scenario mentions
func scenarioNodes(scn *ScenarioCfg) []string {
	names := make([]string, 0)
	for _, link := range scn.DisabledLinks {
		names = append(names, link.From, link.To)
	}
	names = append(names, scn.Disconnected...)
	names = append(names, scn.PartitionA...)
	names = append(names, scn.PartitionB...)
	return names
}
