package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlowNetwork_DefaultTopology(t *testing.T) {
	cfg := faultFreeConfig()
	n, err := NewFlowNetwork(&cfg, NewPartitionedRNG(NewSimulationKey(1)), testEpoch)
	require.NoError(t, err)

	assert.Equal(t, []string{"cyan", "magenta", "yellow", "black", "white", "mixer"}, n.Names())
	mixer, ok := n.Tank("mixer")
	require.True(t, ok)
	assert.True(t, mixer.IsBasin())
	assert.Len(t, mixer.Upstream(), NumPigments)
	assert.Nil(t, mixer.Downstream())

	cyan, _ := n.Tank("cyan")
	assert.False(t, cyan.IsBasin())
	assert.Same(t, mixer, cyan.Downstream())
}

func TestNewFlowNetwork_BasinListedFirst_StillProcessedAfterSources(t *testing.T) {
	// GIVEN a config that lists the mixer before its sources
	cfg := faultFreeConfig()
	cfg.Tanks = append([]TankSpec{cfg.Tanks[len(cfg.Tanks)-1]}, cfg.Tanks[:len(cfg.Tanks)-1]...)

	n, err := NewFlowNetwork(&cfg, NewPartitionedRNG(NewSimulationKey(1)), testEpoch)
	require.NoError(t, err)

	// THEN sources keep their relative order and the mixer comes last
	assert.Equal(t, []string{"cyan", "magenta", "yellow", "black", "white", "mixer"}, n.Names())
}

func TestNewFlowNetwork_ChainedBasins_TopologicalOrder(t *testing.T) {
	cfg := faultFreeConfig()
	cfg.Tanks = []TankSpec{
		{Name: "drum", Capacity: 1000, OutflowRate: 1},
		{Name: "mixer", Capacity: 500, OutflowRate: 5, Downstream: "drum"},
		{Name: "cyan", Capacity: 100, OutflowRate: 2, Initial: Pure(Cyan, 100), Downstream: "mixer"},
	}
	n, err := NewFlowNetwork(&cfg, NewPartitionedRNG(NewSimulationKey(1)), testEpoch)
	require.NoError(t, err)
	assert.Equal(t, []string{"cyan", "mixer", "drum"}, n.Names())
}

func TestNewFlowNetwork_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		tanks []TankSpec
		want  string
	}{
		{
			name: "unknown downstream",
			tanks: []TankSpec{
				{Name: "cyan", Capacity: 100, Downstream: "basin"},
			},
			want: `downstream tank "basin" not found`,
		},
		{
			name: "duplicate name",
			tanks: []TankSpec{
				{Name: "cyan", Capacity: 100},
				{Name: "cyan", Capacity: 100},
			},
			want: `duplicate tank name "cyan"`,
		},
		{
			name: "cycle",
			tanks: []TankSpec{
				{Name: "a", Capacity: 100, Downstream: "b"},
				{Name: "b", Capacity: 100, Downstream: "a"},
			},
			want: "cycle",
		},
		{
			name:  "invalid capacity",
			tanks: []TankSpec{{Name: "cyan", Capacity: 0}},
			want:  "capacity must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := faultFreeConfig()
			cfg.Tanks = tt.tanks
			_, err := NewFlowNetwork(&cfg, NewPartitionedRNG(NewSimulationKey(1)), testEpoch)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFlowNetwork_Tank_UnknownName(t *testing.T) {
	cfg := faultFreeConfig()
	n, err := NewFlowNetwork(&cfg, NewPartitionedRNG(NewSimulationKey(1)), testEpoch)
	require.NoError(t, err)
	_, ok := n.Tank("purple")
	assert.False(t, ok)
}
