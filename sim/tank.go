package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Tank is a bounded reservoir of paint with a controllable outflow valve.
//
// Sensor reads go through the tank's fault channels and may return random
// values once a channel is broken; actuator writes through a broken channel
// are silently ignored. Neither case is reported to the caller.
//
// Thread-safety: every exported method holds the tank's mutex for the
// duration of the call. No method holds it across calls.
type Tank struct {
	mu sync.Mutex

	name        string
	capacity    float64
	outflowRate float64
	initial     PaintMixture
	thresholds  Thresholds
	alarmTexts  map[AlarmCode]string
	colors      *ColorModel
	rng         *rand.Rand

	// topology, fixed after NewFlowNetwork returns
	downstream *Tank
	upstream   []*Tank

	mixture      PaintMixture
	valve        float64 // true valve ratio, drives the physics
	outflow      float64 // liters moved in the most recent step
	faults       *FaultRegistry
	alarms       *AlarmSet
	levelHistory *History
	valveHistory *History
}

// StepResult reports what one tank did during one tick.
type StepResult struct {
	Out         PaintMixture // mixture removed through the valve
	Transitions []AlarmTransition
	NewlyBroken []FaultChannel
}

// TankSnapshot is every externally readable attribute of a tank, read under
// a single lock acquisition.
type TankSnapshot struct {
	Name         string  `json:"name"`
	Level        float64 `json:"level"`
	Flow         float64 `json:"flow"`
	Valve        float64 `json:"valve"`
	Color        string  `json:"color"`
	VeryLow      bool    `json:"very_low"`
	Low          bool    `json:"low"`
	High         bool    `json:"high"`
	VeryHigh     bool    `json:"very_high"`
	Alarms       string  `json:"alarms"`
	LevelHistory string  `json:"level_history"`
	ValveHistory string  `json:"valve_history"`
}

func newTank(spec TankSpec, cfg *PlantConfig, colors *ColorModel, rng *rand.Rand, now time.Time) (*Tank, error) {
	faults, err := NewFaultRegistry(cfg.BreakProbabilities)
	if err != nil {
		return nil, fmt.Errorf("tank %s: %w", spec.Name, err)
	}
	t := &Tank{
		name:         spec.Name,
		capacity:     spec.Capacity,
		outflowRate:  spec.OutflowRate,
		initial:      spec.Initial,
		thresholds:   cfg.Thresholds,
		alarmTexts:   cfg.AlarmTexts,
		colors:       colors,
		rng:          rng,
		mixture:      spec.Initial,
		faults:       faults,
		alarms:       NewAlarmSet(),
		levelHistory: NewHistory(cfg.HistoryLength),
		valveHistory: NewHistory(cfg.HistoryLength),
	}
	// Leak and stagnation compare against this seed once the history has filled.
	t.levelHistory.Seed(now, t.mixture.Volume()/t.capacity)
	return t, nil
}

// Name returns the tank's identity.
func (t *Tank) Name() string { return t.name }

// Capacity returns the tank volume in liters.
func (t *Tank) Capacity() float64 { return t.capacity }

// IsBasin reports whether other tanks drain into this one. Basins get the
// very-high and uncontrolled-inflow alarms instead of very-low and low.
func (t *Tank) IsBasin() bool { return len(t.upstream) > 0 }

// Downstream returns the tank this one drains into, or nil.
func (t *Tank) Downstream() *Tank { return t.downstream }

// Upstream returns the tanks draining into this one.
func (t *Tank) Upstream() []*Tank {
	out := make([]*Tank, len(t.upstream))
	copy(out, t.upstream)
	return out
}

// === Actuators ===

// Fill restores the initial mixture, scaled so the tank holds level times
// its capacity, and returns the level reading afterwards. A tank whose
// initial mixture is empty has nothing to fill with.
func (t *Tank) Fill(level float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	level = clamp01(level)
	if !t.faults.Broken(FaultFillActuator) && t.initial.Volume() > 0 {
		t.mixture = t.initial.Scale(level * t.capacity / t.initial.Volume())
	}
	return t.level()
}

// Flush empties the tank and returns the level reading afterwards.
func (t *Tank) Flush() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.faults.Broken(FaultFlushActuator) {
		t.mixture = PaintMixture{}
	}
	return t.level()
}

// SetValve sets the valve ratio, clamped to [0,1]. A stuck valve ignores it.
func (t *Tank) SetValve(ratio float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.faults.Broken(FaultValveActuator) {
		return
	}
	t.valve = clamp01(ratio)
}

// === Sensors ===

// Level returns the fill level, 0 (empty) to 1 (full).
func (t *Tank) Level() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level()
}

// Valve returns the valve ratio, 0 (closed) to 1 (open).
func (t *Tank) Valve() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.valveReading()
}

// Outflow returns the liters that left the tank during the last tick.
func (t *Tank) Outflow() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outflowReading()
}

// Color returns the mixture colour as #rrggbb.
func (t *Tank) Color() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.colorReading()
}

// VeryLow reads the binary very-low level sensor.
func (t *Tank) VeryLow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLevelSensors().VeryLow
}

// Low reads the binary low level sensor.
func (t *Tank) Low() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLevelSensors().Low
}

// High reads the binary high level sensor.
func (t *Tank) High() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLevelSensors().High
}

// VeryHigh reads the binary very-high level sensor.
func (t *Tank) VeryHigh() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLevelSensors().VeryHigh
}

// Alarms renders the active alarms; see AlarmSet.Render.
func (t *Tank) Alarms() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alarms.Render(t.name, t.alarmTexts)
}

// AlarmCodes returns the active alarm codes in ascending order.
func (t *Tank) AlarmCodes() []AlarmCode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alarms.Codes()
}

// HasAlarm reports whether code is active.
func (t *Tank) HasAlarm(code AlarmCode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alarms.Has(code)
}

// LevelHistory renders the level ring buffer, oldest first.
func (t *Tank) LevelHistory() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.levelHistory.Render()
}

// ValveHistory renders the valve ring buffer, oldest first.
func (t *Tank) ValveHistory() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.valveHistory.Render()
}

// Snapshot reads every attribute at once.
func (t *Tank) Snapshot() TankSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.readLevelSensors()
	return TankSnapshot{
		Name:         t.name,
		Level:        r.Level,
		Flow:         t.outflowReading(),
		Valve:        t.valveReading(),
		Color:        t.colorReading(),
		VeryLow:      r.VeryLow,
		Low:          r.Low,
		High:         r.High,
		VeryHigh:     r.VeryHigh,
		Alarms:       t.alarms.Render(t.name, t.alarmTexts),
		LevelHistory: t.levelHistory.Render(),
		ValveHistory: t.valveHistory.Render(),
	}
}

// === Ground truth (not visible to the control layer) ===

// Mixture returns the true contents, bypassing sensors.
func (t *Tank) Mixture() PaintMixture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mixture
}

// Broken returns the failed fault channels.
func (t *Tank) Broken() []FaultChannel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.faults.BrokenChannels()
}

// Break fails ch immediately, for fault drills.
func (t *Tank) Break(ch FaultChannel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faults.Break(ch)
}

// === Simulation ===

// add pours inflow into the tank. Overflow is capped on the tank's next step.
func (t *Tank) add(inflow PaintMixture) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mixture = t.mixture.Add(inflow)
}

// step advances the tank by interval seconds. The caller delivers
// StepResult.Out to the downstream tank.
func (t *Tank) step(interval float64, now time.Time, upstreamLeak bool) StepResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	res := StepResult{NewlyBroken: t.faults.Inject(t.rng)}
	res.Out = t.drain(interval)

	if v := t.mixture.Volume(); v > t.capacity {
		t.mixture = t.mixture.Scale(t.capacity / v)
	}

	readouts := t.readLevelSensors()
	t.alarms.Evaluate(AlarmInputs{
		Readouts:     readouts,
		Valve:        t.valveReading(),
		Baseline:     t.levelHistory.Baseline(),
		Thresholds:   t.thresholds,
		Basin:        t.IsBasin(),
		UpstreamLeak: upstreamLeak,
		Now:          now,
	})
	res.Transitions = t.alarms.drainTransitions()

	t.levelHistory.Push(now, t.level())
	t.valveHistory.Push(now, t.valveReading())
	return res
}

// drain removes up to valve*outflowRate*interval liters, volume-proportionally
// across pigments, and records the amount as the tank's outflow.
func (t *Tank) drain(interval float64) PaintMixture {
	outgoing := t.valve * t.outflowRate * interval
	volume := t.mixture.Volume()
	var out PaintMixture
	if outgoing >= volume {
		out = t.mixture
		t.mixture = PaintMixture{}
	} else {
		out = t.mixture.Scale(outgoing / volume)
		t.mixture = t.mixture.Sub(out)
	}
	t.outflow = out.Volume()
	return out
}

// === Unlocked readings; callers hold t.mu ===

func (t *Tank) level() float64 {
	if t.faults.Broken(FaultLevelSensor) {
		return t.rng.Float64()
	}
	return t.mixture.Volume() / t.capacity
}

func (t *Tank) valveReading() float64 {
	if t.faults.Broken(FaultValveActuator) {
		return t.rng.Float64()
	}
	return t.valve
}

func (t *Tank) outflowReading() float64 {
	if t.faults.Broken(FaultOutflowSensor) {
		return t.outflowRate * t.rng.Float64()
	}
	return t.outflow
}

func (t *Tank) colorReading() string {
	volume := t.mixture.Volume()
	if volume == 0 {
		return NeutralColor
	}
	if !t.faults.Broken(FaultColorSensor) {
		return t.colors.ToColor(t.mixture)
	}
	var w [NumPigments]float64
	for i := range w {
		w[i] = t.capacity * t.rng.Float64() / volume
	}
	return t.colors.MixWeights(w).Hex()
}

func (t *Tank) readLevelSensors() LevelReadouts {
	return LevelReadouts{
		Level:    t.level(),
		VeryLow:  t.binarySensor(FaultVeryLowSensor, func(l float64) bool { return l <= t.thresholds.VeryLow }),
		Low:      t.binarySensor(FaultLowSensor, func(l float64) bool { return l <= t.thresholds.Low }),
		High:     t.binarySensor(FaultHighSensor, func(l float64) bool { return l > t.thresholds.High }),
		VeryHigh: t.binarySensor(FaultVeryHighSensor, func(l float64) bool { return l > t.thresholds.VeryHigh }),
	}
}

func (t *Tank) binarySensor(ch FaultChannel, trips func(level float64) bool) bool {
	if t.faults.Broken(ch) {
		return t.rng.Intn(2) == 1
	}
	return trips(t.level())
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
