package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTransitions int
	RaisedCount      int
	ClearedCount     int
	StillActive      int            // raised with no later clear
	RaisedByCode     map[int]int    // alarm code → number of raises
	RaisedByTank     map[string]int // tank name → number of raises
	FaultsByTank     map[string]int // tank name → number of broken channels
}

type alarmKey struct {
	tank string
	code int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		RaisedByCode: make(map[int]int),
		RaisedByTank: make(map[string]int),
		FaultsByTank: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalTransitions = len(st.Alarms)
	active := make(map[alarmKey]bool)
	for _, a := range st.Alarms {
		k := alarmKey{tank: a.Tank, code: a.Code}
		if a.Raised {
			summary.RaisedCount++
			summary.RaisedByCode[a.Code]++
			summary.RaisedByTank[a.Tank]++
			active[k] = true
		} else {
			summary.ClearedCount++
			delete(active, k)
		}
	}
	summary.StillActive = len(active)

	for _, f := range st.Faults {
		summary.FaultsByTank[f.Tank]++
	}
	return summary
}
