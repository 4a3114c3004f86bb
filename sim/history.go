package sim

import (
	"strconv"
	"strings"
	"time"
)

// DefaultHistoryLength is the number of samples kept per history, one per tick.
const DefaultHistoryLength = 120

// Sample is one timestamped reading. Unused samples have not been written yet.
type Sample struct {
	At    time.Time
	Value float64
	Used  bool
}

// History is a fixed-length ring buffer of samples, oldest evicted first.
// Not thread-safe; guarded by the owning Tank.
type History struct {
	samples []Sample
	head    int // index of the oldest sample
}

// NewHistory returns a history of n unused samples.
func NewHistory(n int) *History {
	return &History{samples: make([]Sample, n)}
}

// Len is the fixed capacity of the history.
func (h *History) Len() int {
	return len(h.samples)
}

// Push appends a sample, evicting the oldest.
func (h *History) Push(at time.Time, value float64) {
	h.samples[h.head] = Sample{At: at, Value: value, Used: true}
	h.head = (h.head + 1) % len(h.samples)
}

// Seed writes the newest slot in place without evicting anything.
func (h *History) Seed(at time.Time, value float64) {
	newest := (h.head + len(h.samples) - 1) % len(h.samples)
	h.samples[newest] = Sample{At: at, Value: value, Used: true}
}

// Samples returns a copy of the samples, oldest first.
func (h *History) Samples() []Sample {
	out := make([]Sample, 0, len(h.samples))
	for i := 0; i < len(h.samples); i++ {
		out = append(out, h.samples[(h.head+i)%len(h.samples)])
	}
	return out
}

// Baseline returns the value of the oldest slot. Until the history has
// filled, that slot is unwritten and reads as 0.
func (h *History) Baseline() float64 {
	return h.samples[h.head].Value
}

// Render formats the history as timestamp/value pairs joined by "|", oldest
// first. Unused samples render as "-/0".
func (h *History) Render() string {
	parts := make([]string, 0, len(h.samples))
	for _, s := range h.Samples() {
		if !s.Used {
			parts = append(parts, "-/0")
			continue
		}
		parts = append(parts, s.At.Format(AlarmTimeLayout)+"/"+strconv.FormatFloat(s.Value, 'f', -1, 64))
	}
	return strings.Join(parts, "|")
}
