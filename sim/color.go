package sim

import (
	"fmt"
	"math"
)

// LatentSize is the length of a pigment latent vector: three Kubelka-Munk
// absorption/scattering ratios followed by three sRGB residuals.
const LatentSize = 6

// minReflectance bounds K/S for fully absorbing channels (pure black, the
// red channel of cyan, ...). Lower values make dark pigments more dominant.
const minReflectance = 0.02

// NeutralColor is reported for an empty tank.
const NeutralColor = "#000000"

// RGB is an 8-bit-per-channel sRGB colour.
type RGB struct {
	R, G, B uint8
}

// Hex formats the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CMYKToRGB converts normalised CMYK components to sRGB.
func CMYKToRGB(c, m, y, k float64) RGB {
	return RGB{
		R: toByte(1 - c - k + c*k),
		G: toByte(1 - m - k + m*k),
		B: toByte(1 - y - k + y*k),
	}
}

// PrimaryRGB holds the reference colour of every base paint.
var PrimaryRGB = [NumPigments]RGB{
	Cyan:    CMYKToRGB(1, 0, 0, 0),
	Magenta: CMYKToRGB(0, 1, 0, 0),
	Yellow:  CMYKToRGB(0, 0, 1, 0),
	Black:   {0, 0, 0},
	White:   {255, 255, 255},
}

// Latent is a colour embedded in the pigment-mixing space. Linear
// combinations of latents behave like mixing paint rather than light.
type Latent [LatentSize]float64

// ColorModel converts paint mixtures to displayable colours.
// It is immutable after construction and safe for concurrent use.
type ColorModel struct {
	primaries [NumPigments]Latent
}

// NewColorModel embeds the five base paints once.
func NewColorModel() *ColorModel {
	cm := &ColorModel{}
	for p, rgb := range PrimaryRGB {
		cm.primaries[p] = RGBToLatent(rgb)
	}
	return cm
}

// ToColor returns the #rrggbb colour of m, or NeutralColor when m is empty.
func (cm *ColorModel) ToColor(m PaintMixture) string {
	volume := m.Volume()
	if volume == 0 {
		return NeutralColor
	}
	c := m.Components()
	var w [NumPigments]float64
	for i := range c {
		w[i] = c[i] / volume
	}
	return cm.MixWeights(w).Hex()
}

// MixWeights decodes the weighted sum of the primary latents. Weights need
// not sum to one.
func (cm *ColorModel) MixWeights(w [NumPigments]float64) RGB {
	var z Latent
	for p := range cm.primaries {
		for i := range z {
			z[i] += w[p] * cm.primaries[p][i]
		}
	}
	return LatentToRGB(z)
}

// RGBToLatent embeds an sRGB colour.
func RGBToLatent(c RGB) Latent {
	var z Latent
	channels := [3]uint8{c.R, c.G, c.B}
	for i, ch := range channels {
		s := float64(ch) / 255
		ks := reflectanceToKS(math.Max(srgbToLinear(s), minReflectance))
		z[i] = ks
		z[3+i] = s - linearToSRGB(ksToReflectance(ks))
	}
	return z
}

// LatentToRGB decodes a latent back to sRGB, clamping out-of-gamut values.
func LatentToRGB(z Latent) RGB {
	var out [3]uint8
	for i := 0; i < 3; i++ {
		s := linearToSRGB(ksToReflectance(math.Max(z[i], 0))) + z[3+i]
		out[i] = toByte(s)
	}
	return RGB{R: out[0], G: out[1], B: out[2]}
}

// Kubelka-Munk single-constant relation between reflectance and K/S.
func reflectanceToKS(r float64) float64 {
	return (1 - r) * (1 - r) / (2 * r)
}

func ksToReflectance(ks float64) float64 {
	return 1 + ks - math.Sqrt(ks*ks+2*ks)
}

func srgbToLinear(s float64) float64 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

func linearToSRGB(l float64) float64 {
	if l <= 0.0031308 {
		return 12.92 * l
	}
	return 1.055*math.Pow(l, 1/2.4) - 0.055
}

func toByte(s float64) uint8 {
	return uint8(math.Round(math.Min(1, math.Max(0, s)) * 255))
}
