package trace

// TraceLevel controls the verbosity of transition tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelAlarms captures alarm raise/clear transitions.
	TraceLevelAlarms TraceLevel = "alarms"
	// TraceLevelAll captures alarm transitions and fault injections.
	TraceLevelAll TraceLevel = "all"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelAlarms: true,
	TraceLevelAll:    true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects transition records during a plant run.
// Not thread-safe: written by the tick loop, read once the loop has stopped.
type SimulationTrace struct {
	Config TraceConfig
	Alarms []AlarmRecord
	Faults []FaultRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Alarms: make([]AlarmRecord, 0),
		Faults: make([]FaultRecord, 0),
	}
}

// RecordAlarm appends an alarm transition if the level captures alarms.
func (st *SimulationTrace) RecordAlarm(record AlarmRecord) {
	if st.Config.Level != TraceLevelAlarms && st.Config.Level != TraceLevelAll {
		return
	}
	st.Alarms = append(st.Alarms, record)
}

// RecordFault appends a fault record if the level captures faults.
func (st *SimulationTrace) RecordFault(record FaultRecord) {
	if st.Config.Level != TraceLevelAll {
		return
	}
	st.Faults = append(st.Faults, record)
}
