package sim

import "fmt"

// Pigment identifies one of the five base paints.
type Pigment int

const (
	Cyan Pigment = iota
	Magenta
	Yellow
	Black
	White
)

// NumPigments is the number of base paints in every mixture.
const NumPigments = 5

var pigmentNames = [NumPigments]string{"cyan", "magenta", "yellow", "black", "white"}

// String returns the lower-case pigment name, which is also the name of the
// source tank holding that pigment in the default plant.
func (p Pigment) String() string {
	if p < 0 || int(p) >= NumPigments {
		return fmt.Sprintf("pigment(%d)", int(p))
	}
	return pigmentNames[p]
}

// PaintMixture is a blend of the five base paints, in liters.
// All arithmetic is by value; callers are responsible for keeping
// components non-negative.
type PaintMixture struct {
	Cyan    float64 `yaml:"cyan" json:"cyan"`
	Magenta float64 `yaml:"magenta" json:"magenta"`
	Yellow  float64 `yaml:"yellow" json:"yellow"`
	Black   float64 `yaml:"black" json:"black"`
	White   float64 `yaml:"white" json:"white"`
}

// Pure returns a mixture holding liters of a single pigment.
func Pure(p Pigment, liters float64) PaintMixture {
	var c [NumPigments]float64
	c[p] = liters
	return fromComponents(c)
}

// Volume is the total volume of the mixture.
func (m PaintMixture) Volume() float64 {
	return m.Cyan + m.Magenta + m.Yellow + m.Black + m.White
}

// Add returns m + b, componentwise.
func (m PaintMixture) Add(b PaintMixture) PaintMixture {
	return PaintMixture{
		Cyan:    m.Cyan + b.Cyan,
		Magenta: m.Magenta + b.Magenta,
		Yellow:  m.Yellow + b.Yellow,
		Black:   m.Black + b.Black,
		White:   m.White + b.White,
	}
}

// Sub returns m - b, componentwise.
func (m PaintMixture) Sub(b PaintMixture) PaintMixture {
	return PaintMixture{
		Cyan:    m.Cyan - b.Cyan,
		Magenta: m.Magenta - b.Magenta,
		Yellow:  m.Yellow - b.Yellow,
		Black:   m.Black - b.Black,
		White:   m.White - b.White,
	}
}

// Scale returns m with every component multiplied by f.
func (m PaintMixture) Scale(f float64) PaintMixture {
	return PaintMixture{
		Cyan:    m.Cyan * f,
		Magenta: m.Magenta * f,
		Yellow:  m.Yellow * f,
		Black:   m.Black * f,
		White:   m.White * f,
	}
}

// Components returns the volumes in Pigment order.
func (m PaintMixture) Components() [NumPigments]float64 {
	return [NumPigments]float64{m.Cyan, m.Magenta, m.Yellow, m.Black, m.White}
}

func (m PaintMixture) String() string {
	return fmt.Sprintf("C=%.2f M=%.2f Y=%.2f K=%.2f W=%.2f", m.Cyan, m.Magenta, m.Yellow, m.Black, m.White)
}

func fromComponents(c [NumPigments]float64) PaintMixture {
	return PaintMixture{Cyan: c[Cyan], Magenta: c[Magenta], Yellow: c[Yellow], Black: c[Black], White: c[White]}
}
