package dpsim

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleScenario() *ScenarioCfg {
	scn := CreateScenarioCfg("lossy-split")
	scn.MinDelay = 1.0
	scn.MaxDelay = 2.0
	scn.DropRate = 0.25
	scn.DuplRate = 0.1
	scn.AddDisabledLink("A", "B")
	scn.Disconnected = append(scn.Disconnected, "D")
	scn.PartitionA = []string{"A", "B"}
	scn.PartitionB = []string{"C"}
	return scn
}

func TestScenarioFileRoundTrip(t *testing.T) {
	scn := sampleScenario()
	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, scn.WriteToFile(yamlFile))
	fromYAML, err := ReadScenarioCfg(yamlFile, true, []byte{})
	require.NoError(t, err)
	assert.Equal(t, scn, fromYAML)

	jsonFile := filepath.Join(dir, "scenario.json")
	require.NoError(t, scn.WriteToFile(jsonFile))
	fromJSON, err := ReadScenarioCfg(jsonFile, false, []byte{})
	require.NoError(t, err)
	assert.Equal(t, scn, fromJSON)
}

func TestReadScenarioCfgMissingFile(t *testing.T) {
	_, err := ReadScenarioCfg(filepath.Join(t.TempDir(), "absent.yaml"), true, []byte{})
	require.Error(t, err)
}

func TestApplyScenario(t *testing.T) {
	sys := CreateSystemWithSeed(5)
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		sys.AddNode(&recorderNode{id: id})
	}

	scn := sampleScenario()
	scn.DropRate = 0.0
	scn.DuplRate = 0.0
	sys.ApplyScenario(scn)

	sys.Send("x", "A", "B") // disabled link
	sys.Send("x", "A", "C") // cross partition
	sys.Send("x", "C", "B") // cross partition, reverse
	sys.Send("x", "E", "D") // D disconnected
	sys.Send("x", "B", "A") // allowed: within partition group, link only disabled A->B
	sys.StepUntilNoEvents()

	assert.Empty(t, sys.GetLocalEvents("B"))
	assert.Empty(t, sys.GetLocalEvents("C"))
	assert.Empty(t, sys.GetLocalEvents("D"))
	events := sys.GetLocalEvents("A")
	require.Len(t, events, 1)
	assert.GreaterOrEqual(t, events[0].Time, 1.0)
	assert.LessOrEqual(t, events[0].Time, 2.0)
	assert.Equal(t, 1, sys.GetNetworkMessageCount())
}

func TestApplyScenarioUnknownNodePanics(t *testing.T) {
	sys := CreateSystemWithSeed(1)
	sys.AddNode(&recorderNode{id: "A"})

	scn := CreateScenarioCfg("bad")
	scn.Disconnected = append(scn.Disconnected, "ghost")

	require.Panics(t, func() { sys.ApplyScenario(scn) })
}
