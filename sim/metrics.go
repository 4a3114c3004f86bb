// Tracks plant-wide counters such as ticks run, liters moved and faults.

package sim

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Metrics aggregates statistics about the plant run for final reporting.
type Metrics struct {
	Ticks             int                // number of ticks run
	SimulatedSeconds  float64            // sum of tick intervals
	TransferredByTank map[string]float64 // tank name -> liters drained through its valve
	FaultsByTank      map[string]int     // tank name -> number of broken channels
	AlarmRaises       int                // alarm raise transitions, all tanks
	AlarmClears       int                // alarm clear transitions, all tanks
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TransferredByTank: make(map[string]float64),
		FaultsByTank:      make(map[string]int),
	}
}

func (m *Metrics) record(interval float64, steps []TankStep) {
	m.Ticks++
	m.SimulatedSeconds += interval
	for _, s := range steps {
		name := s.Tank.Name()
		m.TransferredByTank[name] += s.Out.Volume()
		m.FaultsByTank[name] += len(s.NewlyBroken)
		for _, tr := range s.Transitions {
			if tr.Raised {
				m.AlarmRaises++
			} else {
				m.AlarmClears++
			}
		}
	}
}

func (m *Metrics) clone() Metrics {
	c := *m
	c.TransferredByTank = make(map[string]float64, len(m.TransferredByTank))
	for k, v := range m.TransferredByTank {
		c.TransferredByTank[k] = v
	}
	c.FaultsByTank = make(map[string]int, len(m.FaultsByTank))
	for k, v := range m.FaultsByTank {
		c.FaultsByTank[k] = v
	}
	return c
}

// Print writes the run counters to w, listing tanks in the given order.
func (m *Metrics) Print(w io.Writer, order []string) {
	fmt.Fprintln(w, "=== Plant Metrics ===")
	fmt.Fprintf(w, "Ticks                : %s\n", humanize.Comma(int64(m.Ticks)))
	fmt.Fprintf(w, "Simulated Time       : %s s\n", humanize.CommafWithDigits(m.SimulatedSeconds, 1))
	fmt.Fprintf(w, "Alarm Raises         : %d\n", m.AlarmRaises)
	fmt.Fprintf(w, "Alarm Clears         : %d\n", m.AlarmClears)
	for _, name := range order {
		fmt.Fprintf(w, "  %-10s transferred %s L, %d broken channel(s)\n",
			name, humanize.CommafWithDigits(m.TransferredByTank[name], 2), m.FaultsByTank[name])
	}
}
