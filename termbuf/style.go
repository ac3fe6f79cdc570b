package termbuf

import "github.com/lucasb-eyer/go-colorful"

// Color is an 8-bit-per-channel RGBA color for line style attributes.
type Color struct {
	R, G, B, A uint8
}

// RGB builds an opaque Color.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 255} }

// Style describes the rendering attributes of one span of a line.
// The zero value renders with the default foreground on a transparent
// background.
type Style struct {
	Foreground Color
	Background Color
	Bold       bool
	Dim        bool
	Underline  bool
	Inverse    bool
}

// Span applies a Style to the half-open cell range [Start, End) of a line.
type Span struct {
	Start int
	End   int
	Style Style
}

// Effective returns the foreground color after applying the Bold and Dim
// attributes. Bold brightens and Dim darkens in a perceptual color space so
// hue does not drift the way naive RGB scaling makes it drift.
func (s Style) Effective() Color {
	c := s.Foreground
	switch {
	case s.Bold && !s.Dim:
		return blendLuv(c, Color{255, 255, 255, c.A}, 0.3)
	case s.Dim && !s.Bold:
		return blendLuv(c, Color{0, 0, 0, c.A}, 0.4)
	default:
		return c
	}
}

// blendLuv interpolates between two colors in CIE-Luv space.
func blendLuv(a, b Color, t float64) Color {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	m := ca.BlendLuv(cb, t).Clamped()
	return Color{
		R: uint8(m.R*255 + 0.5),
		G: uint8(m.G*255 + 0.5),
		B: uint8(m.B*255 + 0.5),
		A: a.A,
	}
}
