// sim/simulator.go
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/WilhelmWidlund/CS487-Project/sim/trace"
)

// Simulator is the core object that holds the plant, the simulated clock and
// the periodic tick loop.
type Simulator struct {
	Config  PlantConfig
	Network *FlowNetwork
	RunID   uuid.UUID
	// Epoch is the wall time at construction; alarm and history timestamps
	// are Epoch plus simulated time.
	Epoch time.Time
	// Trace records alarm and fault transitions when non-nil.
	// Set it before the first tick.
	Trace *trace.SimulationTrace

	tickMu sync.Mutex // serialises Tick

	mu        sync.Mutex // guards clock, metrics, listeners
	clock     float64
	metrics   *Metrics
	listeners []func(clock float64)

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulator builds the plant described by cfg. Tank state starts at the
// configured initial mixtures with all valves closed.
func NewSimulator(cfg PlantConfig, epoch time.Time) (*Simulator, error) {
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	network, err := NewFlowNetwork(&cfg, rng, epoch)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		Config:  cfg,
		Network: network,
		RunID:   uuid.New(),
		Epoch:   epoch,
		metrics: NewMetrics(),
	}, nil
}

// Tank returns the named tank.
func (s *Simulator) Tank(name string) (*Tank, bool) {
	return s.Network.Tank(name)
}

// Clock returns the simulated seconds elapsed.
func (s *Simulator) Clock() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Metrics returns a copy of the run counters.
func (s *Simulator) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics.clone()
}

// OnTick registers fn to be called after every tick with the new clock.
// Listeners run on the ticking goroutine and must not block.
func (s *Simulator) OnTick(fn func(clock float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Simulator) timeAt(clock float64) time.Time {
	return s.Epoch.Add(time.Duration(clock * float64(time.Second)))
}

// Tick advances every tank by interval seconds, in topological order.
func (s *Simulator) Tick(interval float64) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	clock := s.Clock() + interval
	steps := s.Network.step(interval, s.timeAt(clock))

	for _, st := range steps {
		name := st.Tank.Name()
		for _, ch := range st.NewlyBroken {
			logrus.Warnf("[t=%07.1f] %s: %s broke", clock, name, ch)
			if s.Trace != nil {
				s.Trace.RecordFault(trace.FaultRecord{Tank: name, Channel: string(ch), Clock: clock})
			}
		}
		for _, tr := range st.Transitions {
			if tr.Raised {
				logrus.Infof("[t=%07.1f] %s: alarm %d raised (%s)", clock, name, tr.Code, s.Config.AlarmTexts[tr.Code])
			} else {
				logrus.Debugf("[t=%07.1f] %s: alarm %d cleared", clock, name, tr.Code)
			}
			if s.Trace != nil {
				s.Trace.RecordAlarm(trace.AlarmRecord{Tank: name, Code: int(tr.Code), Clock: clock, Raised: tr.Raised})
			}
		}
	}

	s.mu.Lock()
	s.clock = clock
	s.metrics.record(interval, steps)
	listeners := make([]func(float64), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	logrus.Tracef("[t=%07.1f] tick complete", clock)
	for _, fn := range listeners {
		fn(clock)
	}
}

// Run ticks once per Config.TickInterval of wall time until ctx is done.
// A tick in progress always completes.
func (s *Simulator) Run(ctx context.Context) error {
	interval := s.Config.TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.Infof("Starting plant %s (run %s), tick interval %s", s.Config.Station, s.RunID, interval)
	for {
		select {
		case <-ctx.Done():
			logrus.Infof("[t=%07.1f] Simulation stopped", s.Clock())
			return nil
		case <-ticker.C:
			s.Tick(interval.Seconds())
		}
	}
}

// Start runs the tick loop in the background. Calling Start on a running
// simulator is a no-op.
func (s *Simulator) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
}

// Stop prevents the next tick and waits for the loop to exit.
func (s *Simulator) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}
