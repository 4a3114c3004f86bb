package sim

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AlarmCode is an alarm priority; lower is more severe.
type AlarmCode int

const (
	AlarmLeak               AlarmCode = 1
	AlarmUncontrolledInflow AlarmCode = 2 // basins only
	AlarmStagnation         AlarmCode = 3
	AlarmConflictVeryHigh   AlarmCode = 4
	AlarmConflictHigh       AlarmCode = 5
	AlarmConflictLow        AlarmCode = 6
	AlarmConflictVeryLow    AlarmCode = 7
	AlarmEmpty              AlarmCode = 8
	AlarmVeryLow            AlarmCode = 9  // sources only
	AlarmLow                AlarmCode = 10 // sources only
	AlarmVeryHigh           AlarmCode = 11 // basins only
	AlarmEmptying           AlarmCode = 12
)

// DefaultAlarmTexts maps every alarm code to its operator-facing description.
var DefaultAlarmTexts = map[AlarmCode]string{
	AlarmLeak:               "The tank is leaking",
	AlarmUncontrolledInflow: "Uncontrolled inflow to tank",
	AlarmStagnation:         "Level stagnation",
	AlarmConflictVeryHigh:   "Level conflict: very high",
	AlarmConflictHigh:       "Level conflict: high",
	AlarmConflictLow:        "Level conflict: low",
	AlarmConflictVeryLow:    "Level conflict: very low",
	AlarmEmpty:              "The tank is empty",
	AlarmVeryLow:            "The tank level is very low",
	AlarmLow:                "The tank level is low",
	AlarmVeryHigh:           "The tank level is very high",
	AlarmEmptying:           "The tank is currently emptying",
}

// AlarmTimeLayout formats alarm and history timestamps as MM:DD:hh:mm:ss.
const AlarmTimeLayout = "01:02:15:04:05"

// AlarmTransition records one alarm being raised or cleared.
type AlarmTransition struct {
	Code   AlarmCode
	At     time.Time
	Raised bool
}

// LevelReadouts are the five level-related sensor readings of one tank.
type LevelReadouts struct {
	Level    float64 // continuous sensor, fraction of capacity
	VeryLow  bool
	Low      bool
	High     bool
	VeryHigh bool
}

// AlarmInputs is everything one alarm evaluation looks at.
type AlarmInputs struct {
	Readouts     LevelReadouts
	Valve        float64
	Baseline     float64 // level reading from the start of the history window
	Thresholds   Thresholds
	Basin        bool
	UpstreamLeak bool // basins only: some upstream tank carries AlarmLeak
	Now          time.Time
}

// AlarmSet maps active alarm codes to the time they were first observed.
// Not thread-safe; guarded by the owning Tank.
type AlarmSet struct {
	active      map[AlarmCode]time.Time
	transitions []AlarmTransition
}

// NewAlarmSet returns an empty set.
func NewAlarmSet() *AlarmSet {
	return &AlarmSet{active: make(map[AlarmCode]time.Time)}
}

// Has reports whether code is active.
func (a *AlarmSet) Has(code AlarmCode) bool {
	_, ok := a.active[code]
	return ok
}

// Since returns when code was first observed.
func (a *AlarmSet) Since(code AlarmCode) (time.Time, bool) {
	t, ok := a.active[code]
	return t, ok
}

// Codes returns the active codes in ascending order.
func (a *AlarmSet) Codes() []AlarmCode {
	codes := make([]AlarmCode, 0, len(a.active))
	for code := range a.active {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// raise adds code unless already active; an active alarm keeps its timestamp.
func (a *AlarmSet) raise(code AlarmCode, now time.Time) {
	if a.Has(code) {
		return
	}
	a.active[code] = now
	a.transitions = append(a.transitions, AlarmTransition{Code: code, At: now, Raised: true})
}

// clear removes code if active.
func (a *AlarmSet) clear(code AlarmCode, now time.Time) {
	if !a.Has(code) {
		return
	}
	delete(a.active, code)
	a.transitions = append(a.transitions, AlarmTransition{Code: code, At: now, Raised: false})
}

func (a *AlarmSet) update(code AlarmCode, holds bool, now time.Time) {
	if holds {
		a.raise(code, now)
	} else {
		a.clear(code, now)
	}
}

// drainTransitions returns and forgets the transitions since the last drain.
func (a *AlarmSet) drainTransitions() []AlarmTransition {
	out := a.transitions
	a.transitions = nil
	return out
}

// Evaluate runs one pass of the alarm state machine.
func (a *AlarmSet) Evaluate(in AlarmInputs) {
	level := in.Readouts.Level

	a.evaluateLevelReferences(in)

	a.update(AlarmLeak, level < in.Baseline && in.Valve == 0, in.Now)
	a.update(AlarmStagnation, in.Valve > 0 && level >= in.Baseline, in.Now)
	if in.Basin {
		a.update(AlarmUncontrolledInflow, in.UpstreamLeak, in.Now)
	}
	a.evaluateConflicts(in)
	a.update(AlarmEmptying, in.Valve > 0 && level > 0, in.Now)
}

// levelReferenceCodes are mutually exclusive: at most one is active.
var levelReferenceCodes = [...]AlarmCode{AlarmEmpty, AlarmVeryLow, AlarmLow, AlarmVeryHigh}

// raiseLevelReference raises code and clears the other level reference codes.
func (a *AlarmSet) raiseLevelReference(code AlarmCode, now time.Time) {
	for _, other := range levelReferenceCodes {
		if other != code {
			a.clear(other, now)
		}
	}
	a.raise(code, now)
}

// evaluateLevelReferences handles alarms 8-11. A lower level precludes the
// higher ones, so the first condition that holds ends the chain for this tick.
func (a *AlarmSet) evaluateLevelReferences(in AlarmInputs) {
	r := in.Readouts
	if in.Basin {
		if r.VeryHigh {
			a.raiseLevelReference(AlarmVeryHigh, in.Now)
			return
		}
		a.clear(AlarmVeryHigh, in.Now)
	}
	if r.Level == 0 {
		a.raiseLevelReference(AlarmEmpty, in.Now)
		return
	}
	a.clear(AlarmEmpty, in.Now)
	if in.Basin {
		return
	}
	if r.VeryLow {
		a.raiseLevelReference(AlarmVeryLow, in.Now)
		return
	}
	a.clear(AlarmVeryLow, in.Now)
	if r.Low {
		a.raiseLevelReference(AlarmLow, in.Now)
		return
	}
	a.clear(AlarmLow, in.Now)
}

// evaluateConflicts handles alarms 4-7 as a single else-if chain: a present
// code is only cleared when its branch is reached, so a higher conflict that
// holds keeps lower stale codes active.
func (a *AlarmSet) evaluateConflicts(in AlarmInputs) {
	r, th, now := in.Readouts, in.Thresholds, in.Now
	switch {
	case r.Level > th.VeryHigh && !r.VeryHigh:
		a.raise(AlarmConflictVeryHigh, now)
	case a.Has(AlarmConflictVeryHigh):
		a.clear(AlarmConflictVeryHigh, now)
	case r.Level > th.High && !r.High:
		a.raise(AlarmConflictHigh, now)
	case a.Has(AlarmConflictHigh):
		a.clear(AlarmConflictHigh, now)
	case r.Level < th.Low && !r.Low:
		a.raise(AlarmConflictLow, now)
	case a.Has(AlarmConflictLow):
		a.clear(AlarmConflictLow, now)
	case r.Level < th.VeryLow && !r.VeryLow:
		a.raise(AlarmConflictVeryLow, now)
	case a.Has(AlarmConflictVeryLow):
		a.clear(AlarmConflictVeryLow, now)
	}
}

// Render formats the active alarms as timestamp:tank:text records joined by
// "|", in ascending code order. Codes missing from texts render as "alarm N".
func (a *AlarmSet) Render(tank string, texts map[AlarmCode]string) string {
	codes := a.Codes()
	records := make([]string, 0, len(codes))
	for _, code := range codes {
		text, ok := texts[code]
		if !ok {
			text = fmt.Sprintf("alarm %d", code)
		}
		records = append(records, fmt.Sprintf("%s:%s:%s", a.active[code].Format(AlarmTimeLayout), tank, text))
	}
	return strings.Join(records, "|")
}
