package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const tol = 1e-9

var testEpoch = time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

// faultFreeConfig is the default plant with every break probability at zero.
func faultFreeConfig() PlantConfig {
	return DefaultPlantConfig().WithBreakProbability(0)
}

func newTestSimulator(t *testing.T, cfg PlantConfig) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg, testEpoch)
	require.NoError(t, err)
	return s
}

func mustTank(t *testing.T, s *Simulator, name string) *Tank {
	t.Helper()
	tank, ok := s.Tank(name)
	require.True(t, ok, "tank %q not found", name)
	return tank
}

func requireMixtureNear(t *testing.T, want, got PaintMixture) {
	t.Helper()
	w, g := want.Components(), got.Components()
	for i := range w {
		require.InDelta(t, w[i], g[i], tol, "%s component", Pigment(i))
	}
}
