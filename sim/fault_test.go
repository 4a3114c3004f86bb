package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryWith(t *testing.T, p float64) *FaultRegistry {
	t.Helper()
	probs := make(map[FaultChannel]float64)
	for _, ch := range FaultChannels {
		probs[ch] = p
	}
	f, err := NewFaultRegistry(probs)
	require.NoError(t, err)
	return f
}

func TestFaultRegistry_CertainBreakage_BreaksEveryChannelOnce(t *testing.T) {
	// GIVEN every channel at probability 1
	f := registryWith(t, 1.0)
	rng := rand.New(rand.NewSource(1))

	// WHEN faults are injected twice
	first := f.Inject(rng)
	second := f.Inject(rng)

	// THEN the first call breaks every channel and the second breaks nothing new
	assert.Equal(t, FaultChannels, first)
	assert.Empty(t, second)
	assert.Equal(t, FaultChannels, f.BrokenChannels())
}

func TestFaultRegistry_ZeroProbability_NeverBreaks(t *testing.T) {
	f := registryWith(t, 0)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		f.Inject(rng)
	}
	assert.Empty(t, f.BrokenChannels())
}

func TestFaultRegistry_BrokenChannelsNeverHeal(t *testing.T) {
	f := registryWith(t, 0)
	f.Break(FaultColorSensor)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		f.Inject(rng)
		require.True(t, f.Broken(FaultColorSensor))
	}
	assert.Equal(t, []FaultChannel{FaultColorSensor}, f.BrokenChannels())
}

func TestFaultRegistry_MissingChannelNeverBreaks(t *testing.T) {
	f, err := NewFaultRegistry(map[FaultChannel]float64{FaultLevelSensor: 1})
	require.NoError(t, err)
	f.Inject(rand.New(rand.NewSource(3)))
	assert.Equal(t, []FaultChannel{FaultLevelSensor}, f.BrokenChannels())
}

func TestNewFaultRegistry_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		probs map[FaultChannel]float64
	}{
		{"unknown channel", map[FaultChannel]float64{"pump_motor": 0.1}},
		{"negative probability", map[FaultChannel]float64{FaultLevelSensor: -0.1}},
		{"probability above one", map[FaultChannel]float64{FaultLevelSensor: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFaultRegistry(tt.probs)
			assert.Error(t, err)
		})
	}
}
