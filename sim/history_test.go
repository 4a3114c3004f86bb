package sim

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistory_Fresh_RendersUnusedSlots(t *testing.T) {
	h := NewHistory(3)
	assert.Equal(t, "-/0|-/0|-/0", h.Render())
	assert.Equal(t, 0.0, h.Baseline())
}

func TestHistory_Seed_WritesNewestSlotWithoutEvicting(t *testing.T) {
	h := NewHistory(3)
	h.Seed(testEpoch, 0.75)

	samples := h.Samples()
	assert.False(t, samples[0].Used)
	assert.False(t, samples[1].Used)
	assert.True(t, samples[2].Used)
	assert.Equal(t, 0.75, samples[2].Value)

	// the oldest slot is still unwritten
	assert.Equal(t, 0.0, h.Baseline())
}

func TestHistory_Push_EvictsOldestFirst(t *testing.T) {
	// GIVEN a seeded history of length 3
	h := NewHistory(3)
	h.Seed(testEpoch, 1.0)

	// WHEN three values are pushed
	baselines := make([]float64, 0, 3)
	for i := 1; i <= 3; i++ {
		h.Push(testEpoch.Add(time.Duration(i)*time.Second), float64(i)/10)
		baselines = append(baselines, h.Baseline())
	}

	// THEN the baseline reads 0 until the seed becomes the oldest slot
	assert.Equal(t, []float64{0, 1.0, 0.1}, baselines)

	// AND the seed has been evicted and the samples are oldest first
	var values []float64
	for _, s := range h.Samples() {
		values = append(values, s.Value)
	}
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, values)
}

func TestHistory_Render_FormatsTimestampValuePairs(t *testing.T) {
	h := NewHistory(2)
	h.Push(testEpoch.Add(5*time.Second), 0.5)
	assert.Equal(t, "-/0|03:14:09:00:05/0.5", h.Render())
	assert.Len(t, strings.Split(h.Render(), "|"), h.Len())
}
