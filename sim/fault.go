package sim

import (
	"fmt"
	"math/rand"
)

// FaultChannel identifies one independently failing sensor or actuator.
type FaultChannel string

const (
	FaultLevelSensor    FaultChannel = "level_sensor"
	FaultVeryLowSensor  FaultChannel = "vl_sensor"
	FaultLowSensor      FaultChannel = "l_sensor"
	FaultHighSensor     FaultChannel = "h_sensor"
	FaultVeryHighSensor FaultChannel = "vh_sensor"
	FaultOutflowSensor  FaultChannel = "outflow_sensor"
	FaultColorSensor    FaultChannel = "color_sensor"
	FaultValveActuator  FaultChannel = "valve_actuator"
	FaultFillActuator   FaultChannel = "fill_actuator"
	FaultFlushActuator  FaultChannel = "flush_actuator"
)

// FaultChannels lists every channel in the order samples are drawn.
var FaultChannels = []FaultChannel{
	FaultLevelSensor,
	FaultVeryLowSensor,
	FaultLowSensor,
	FaultHighSensor,
	FaultVeryHighSensor,
	FaultOutflowSensor,
	FaultColorSensor,
	FaultValveActuator,
	FaultFillActuator,
	FaultFlushActuator,
}

// DefaultBreakProbability is the per-tick breakage probability of a channel.
const DefaultBreakProbability = 1e-4

// IsValidFaultChannel reports whether name is a known channel.
func IsValidFaultChannel(name string) bool {
	for _, ch := range FaultChannels {
		if string(ch) == name {
			return true
		}
	}
	return false
}

// DefaultBreakProbabilities returns a fresh map with every channel at
// DefaultBreakProbability.
func DefaultBreakProbabilities() map[FaultChannel]float64 {
	probs := make(map[FaultChannel]float64, len(FaultChannels))
	for _, ch := range FaultChannels {
		probs[ch] = DefaultBreakProbability
	}
	return probs
}

// FaultRegistry tracks which channels of one tank are broken.
// Broken channels never heal. Not thread-safe; guarded by the owning Tank.
type FaultRegistry struct {
	probabilities map[FaultChannel]float64
	broken        map[FaultChannel]bool
}

// NewFaultRegistry copies probs; channels missing from probs never break.
func NewFaultRegistry(probs map[FaultChannel]float64) (*FaultRegistry, error) {
	p := make(map[FaultChannel]float64, len(probs))
	for ch, v := range probs {
		if !IsValidFaultChannel(string(ch)) {
			return nil, fmt.Errorf("unknown fault channel %q", ch)
		}
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("break probability for %s must be in [0,1], got %f", ch, v)
		}
		p[ch] = v
	}
	return &FaultRegistry{probabilities: p, broken: make(map[FaultChannel]bool)}, nil
}

// Inject draws one uniform sample per healthy channel and breaks those whose
// sample falls below their probability. Returns the channels broken this call.
func (f *FaultRegistry) Inject(rng *rand.Rand) []FaultChannel {
	var newlyBroken []FaultChannel
	for _, ch := range FaultChannels {
		if f.broken[ch] {
			continue
		}
		if rng.Float64() < f.probabilities[ch] {
			f.broken[ch] = true
			newlyBroken = append(newlyBroken, ch)
		}
	}
	return newlyBroken
}

// Break marks ch broken immediately.
func (f *FaultRegistry) Break(ch FaultChannel) {
	f.broken[ch] = true
}

// Broken reports whether ch has failed.
func (f *FaultRegistry) Broken(ch FaultChannel) bool {
	return f.broken[ch]
}

// BrokenChannels returns the failed channels in FaultChannels order.
func (f *FaultRegistry) BrokenChannels() []FaultChannel {
	out := make([]FaultChannel, 0, len(f.broken))
	for _, ch := range FaultChannels {
		if f.broken[ch] {
			out = append(out, ch)
		}
	}
	return out
}
