package sim

import (
	"fmt"
	"time"
)

// FlowNetwork is the fixed plant topology: a directed acyclic graph in which
// every tank drains into at most one downstream tank.
type FlowNetwork struct {
	tanks  []*Tank // topological order: every tank before its downstream
	byName map[string]*Tank
}

// TankStep pairs a tank with what it did in one tick.
type TankStep struct {
	Tank *Tank
	StepResult
}

// NewFlowNetwork builds every tank in cfg and connects them. An unknown
// downstream name, a duplicate tank name or a cycle is a configuration error.
func NewFlowNetwork(cfg *PlantConfig, rng *PartitionedRNG, now time.Time) (*FlowNetwork, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plant config: %w", err)
	}
	colors := NewColorModel()
	n := &FlowNetwork{byName: make(map[string]*Tank, len(cfg.Tanks))}
	built := make([]*Tank, 0, len(cfg.Tanks))
	for _, spec := range cfg.Tanks {
		if _, dup := n.byName[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate tank name %q", spec.Name)
		}
		t, err := newTank(spec, cfg, colors, rng.ForSubsystem(SubsystemTank(spec.Name)), now)
		if err != nil {
			return nil, err
		}
		n.byName[spec.Name] = t
		built = append(built, t)
	}
	for i, spec := range cfg.Tanks {
		if spec.Downstream == "" {
			continue
		}
		down, ok := n.byName[spec.Downstream]
		if !ok {
			return nil, fmt.Errorf("tank %q: downstream tank %q not found", spec.Name, spec.Downstream)
		}
		built[i].downstream = down
		down.upstream = append(down.upstream, built[i])
	}
	order, err := topologicalOrder(built)
	if err != nil {
		return nil, err
	}
	n.tanks = order
	return n, nil
}

// topologicalOrder sorts tanks so every tank precedes its downstream tank.
// Ties keep configuration order.
func topologicalOrder(tanks []*Tank) ([]*Tank, error) {
	pending := make(map[*Tank]int, len(tanks))
	for _, t := range tanks {
		pending[t] = len(t.upstream)
	}
	order := make([]*Tank, 0, len(tanks))
	done := make(map[*Tank]bool, len(tanks))
	for len(order) < len(tanks) {
		progressed := false
		for _, t := range tanks {
			if done[t] || pending[t] > 0 {
				continue
			}
			done[t] = true
			order = append(order, t)
			if t.downstream != nil {
				pending[t.downstream]--
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("tank topology contains a cycle")
		}
	}
	return order, nil
}

// Tank returns the named tank.
func (n *FlowNetwork) Tank(name string) (*Tank, bool) {
	t, ok := n.byName[name]
	return t, ok
}

// Tanks returns every tank in processing order.
func (n *FlowNetwork) Tanks() []*Tank {
	out := make([]*Tank, len(n.tanks))
	copy(out, n.tanks)
	return out
}

// Names returns the tank names in processing order.
func (n *FlowNetwork) Names() []string {
	names := make([]string, len(n.tanks))
	for i, t := range n.tanks {
		names[i] = t.name
	}
	return names
}

// step advances every tank once, in topological order. A basin's upstream
// leak state is read after all of its sources have stepped this tick.
func (n *FlowNetwork) step(interval float64, now time.Time) []TankStep {
	steps := make([]TankStep, 0, len(n.tanks))
	for _, t := range n.tanks {
		upstreamLeak := false
		for _, u := range t.upstream {
			if u.HasAlarm(AlarmLeak) {
				upstreamLeak = true
				break
			}
		}
		res := t.step(interval, now, upstreamLeak)
		if t.downstream != nil {
			t.downstream.add(res.Out)
		}
		steps = append(steps, TankStep{Tank: t, StepResult: res})
	}
	return steps
}
