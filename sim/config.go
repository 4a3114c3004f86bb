package sim

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default plant dimensions.
const (
	DefaultSourceCapacity    = 100.0 // liters
	DefaultSourceOutflowRate = 2.0   // liters/second
	DefaultBasinCapacity     = 500.0 // liters
	DefaultBasinOutflowRate  = 5.0   // liters/second
	DefaultBasinName         = "mixer"
	DefaultStation           = "station1"
)

// Thresholds are the binary level sensor reference points, as fractions of
// tank capacity.
type Thresholds struct {
	VeryLow  float64 `yaml:"very_low"`
	Low      float64 `yaml:"low"`
	High     float64 `yaml:"high"`
	VeryHigh float64 `yaml:"very_high"`
}

// DefaultThresholds returns 0.1 / 0.2 / 0.8 / 0.9.
func DefaultThresholds() Thresholds {
	return Thresholds{VeryLow: 0.1, Low: 0.2, High: 0.8, VeryHigh: 0.9}
}

// TankSpec describes one tank and its single optional outgoing connection.
type TankSpec struct {
	Name        string       `yaml:"name"`
	Capacity    float64      `yaml:"capacity"`     // liters
	OutflowRate float64      `yaml:"outflow_rate"` // liters/second at a fully open valve
	Initial     PaintMixture `yaml:"initial"`      // contents at start and target of Fill
	Downstream  string       `yaml:"downstream,omitempty"`
}

// PlantConfig is the immutable configuration handed to NewFlowNetwork and
// NewSimulator. Loadable from a YAML file via LoadPlantConfig.
type PlantConfig struct {
	Station            string                   `yaml:"station"`
	Seed               int64                    `yaml:"seed"`
	TickInterval       time.Duration            `yaml:"tick_interval"`
	HistoryLength      int                      `yaml:"history_length"`
	Thresholds         Thresholds               `yaml:"thresholds"`
	BreakProbabilities map[FaultChannel]float64 `yaml:"break_probabilities"`
	AlarmTexts         map[AlarmCode]string     `yaml:"alarm_texts"`
	Tanks              []TankSpec               `yaml:"tanks"`
}

// DefaultPlantConfig returns the standard station: five full pigment tanks
// draining into an empty mixing basin.
func DefaultPlantConfig() PlantConfig {
	texts := make(map[AlarmCode]string, len(DefaultAlarmTexts))
	for code, text := range DefaultAlarmTexts {
		texts[code] = text
	}
	tanks := make([]TankSpec, 0, NumPigments+1)
	for p := Pigment(0); int(p) < NumPigments; p++ {
		tanks = append(tanks, TankSpec{
			Name:        p.String(),
			Capacity:    DefaultSourceCapacity,
			OutflowRate: DefaultSourceOutflowRate,
			Initial:     Pure(p, DefaultSourceCapacity),
			Downstream:  DefaultBasinName,
		})
	}
	tanks = append(tanks, TankSpec{
		Name:        DefaultBasinName,
		Capacity:    DefaultBasinCapacity,
		OutflowRate: DefaultBasinOutflowRate,
	})
	return PlantConfig{
		Station:            DefaultStation,
		Seed:               42,
		TickInterval:       time.Second,
		HistoryLength:      DefaultHistoryLength,
		Thresholds:         DefaultThresholds(),
		BreakProbabilities: DefaultBreakProbabilities(),
		AlarmTexts:         texts,
		Tanks:              tanks,
	}
}

// WithBreakProbability returns a copy of c with every channel set to p.
func (c PlantConfig) WithBreakProbability(p float64) PlantConfig {
	probs := make(map[FaultChannel]float64, len(FaultChannels))
	for _, ch := range FaultChannels {
		probs[ch] = p
	}
	c.BreakProbabilities = probs
	return c
}

// LoadPlantConfig reads a YAML plant configuration overlaid on
// DefaultPlantConfig. Uses strict parsing: unrecognized keys are rejected.
// A tanks list in the file replaces the default topology entirely.
func LoadPlantConfig(path string) (*PlantConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plant config: %w", err)
	}
	cfg := DefaultPlantConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing plant config: %w", err)
	}
	return &cfg, nil
}

// Validate checks parameter ranges. Topology (downstream names, cycles) is
// checked by NewFlowNetwork.
func (c *PlantConfig) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.HistoryLength < 1 {
		return fmt.Errorf("history_length must be at least 1, got %d", c.HistoryLength)
	}
	th := c.Thresholds
	if th.VeryLow < 0 || th.VeryLow > th.Low || th.Low > th.High || th.High > th.VeryHigh || th.VeryHigh > 1 {
		return fmt.Errorf("thresholds must satisfy 0 <= very_low <= low <= high <= very_high <= 1, got %+v", th)
	}
	for ch, p := range c.BreakProbabilities {
		if !IsValidFaultChannel(string(ch)) {
			return fmt.Errorf("unknown fault channel %q in break_probabilities", ch)
		}
		if p < 0 || p > 1 {
			return fmt.Errorf("break probability for %s must be in [0,1], got %f", ch, p)
		}
	}
	if len(c.Tanks) == 0 {
		return fmt.Errorf("at least one tank required")
	}
	for i, t := range c.Tanks {
		if err := validateTank(&t, i); err != nil {
			return err
		}
	}
	return nil
}

func validateTank(t *TankSpec, idx int) error {
	prefix := fmt.Sprintf("tanks[%d]", idx)
	if t.Name == "" {
		return fmt.Errorf("%s: name required", prefix)
	}
	if t.Capacity <= 0 {
		return fmt.Errorf("%s (%s): capacity must be positive, got %f", prefix, t.Name, t.Capacity)
	}
	if t.OutflowRate < 0 {
		return fmt.Errorf("%s (%s): outflow_rate must be non-negative, got %f", prefix, t.Name, t.OutflowRate)
	}
	for i, v := range t.Initial.Components() {
		if v < 0 {
			return fmt.Errorf("%s (%s): initial %s must be non-negative, got %f", prefix, t.Name, Pigment(i), v)
		}
	}
	if t.Initial.Volume() > t.Capacity {
		return fmt.Errorf("%s (%s): initial volume %f exceeds capacity %f", prefix, t.Name, t.Initial.Volume(), t.Capacity)
	}
	return nil
}
