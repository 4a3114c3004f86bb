// Package trace provides alarm and fault transition recording for plant runs.
// This package has no dependencies on sim/ — it stores pure data types.
package trace

// AlarmRecord captures a single alarm being raised or cleared on a tank.
type AlarmRecord struct {
	Tank   string
	Code   int
	Clock  float64 // simulated seconds since start
	Raised bool    // false = cleared
}

// FaultRecord captures a sensor or actuator breaking. Faults never heal, so
// there is no matching clear record.
type FaultRecord struct {
	Tank    string
	Channel string
	Clock   float64
}
