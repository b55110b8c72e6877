package starprobe

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/hupe1980/starprobe/model"
)

// Range is a closed coordinate interval on one axis. Min may exceed Max, in
// which case remapping mirrors the axis.
type Range struct {
	Min, Max float64
}

// Span returns Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Validate returns ErrDegenerateRange if the range has zero width or a NaN bound.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min == r.Max {
		return fmt.Errorf("%w: [%g, %g]", ErrDegenerateRange, r.Min, r.Max)
	}
	return nil
}

// Box holds one Range per axis.
type Box struct {
	X, Y, Z Range
}

// DefaultDisplayBox is the unit cube centred on the origin.
func DefaultDisplayBox() Box {
	r := Range{Min: -0.5, Max: 0.5}
	return Box{X: r, Y: r, Z: r}
}

// BoundsBox returns the axis-aligned bounds of ps. Zero-width axes are padded
// by 0.5 on each side. An empty set yields DefaultDisplayBox.
func BoundsBox(ps model.PointSet) Box {
	lo, hi, ok := ps.Bounds()
	if !ok {
		return DefaultDisplayBox()
	}
	pad := func(lo, hi float32) Range {
		r := Range{Min: float64(lo), Max: float64(hi)}
		if r.Min == r.Max {
			r.Min -= 0.5
			r.Max += 0.5
		}
		return r
	}
	return Box{
		X: pad(lo.X, hi.X),
		Y: pad(lo.Y, hi.Y),
		Z: pad(lo.Z, hi.Z),
	}
}

// Axis returns the range of the given axis (0=x, 1=y, 2=z).
func (b Box) Axis(axis int) Range {
	switch axis {
	case model.AxisX:
		return b.X
	case model.AxisY:
		return b.Y
	case model.AxisZ:
		return b.Z
	default:
		panic(fmt.Sprintf("starprobe: axis %d out of range", axis))
	}
}

// Validate validates every axis.
func (b Box) Validate() error {
	for axis, name := range []string{"x", "y", "z"} {
		if err := b.Axis(axis).Validate(); err != nil {
			return fmt.Errorf("%s axis: %w", name, err)
		}
	}
	return nil
}

// Lerp interpolates between a and b; t=0 yields a and t=1 yields b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// InverseLerp returns t such that Lerp(a, b, t) == v. a must differ from b.
func InverseLerp(a, b, v float64) float64 {
	return (v - a) / (b - a)
}

// Remap maps v from one range onto another. It panics if from is degenerate.
func Remap(v float64, from, to Range) float64 {
	mustValidate(from)
	return Lerp(to.Min, to.Max, InverseLerp(from.Min, from.Max, v))
}

// RemapDisplayToNative maps a display-space position into native index
// coordinates. It panics on a degenerate display range.
func RemapDisplayToNative(p r3.Vector, display, native Box) r3.Vector {
	return r3.Vector{
		X: Remap(p.X, display.X, native.X),
		Y: Remap(p.Y, display.Y, native.Y),
		Z: Remap(p.Z, display.Z, native.Z),
	}
}

// RemapNativeToDisplay is the inverse of RemapDisplayToNative. It panics on a
// degenerate native range.
func RemapNativeToDisplay(p r3.Vector, display, native Box) r3.Vector {
	return r3.Vector{
		X: Remap(p.X, native.X, display.X),
		Y: Remap(p.Y, native.Y, display.Y),
		Z: Remap(p.Z, native.Z, display.Z),
	}
}

func mustValidate(r Range) {
	if err := r.Validate(); err != nil {
		panic("starprobe: " + err.Error())
	}
}

// Mapping is a validated pair of display and native boxes.
type Mapping struct {
	display Box
	native  Box
}

// NewMapping validates both boxes so that neither direction can panic.
func NewMapping(display, native Box) (Mapping, error) {
	if err := display.Validate(); err != nil {
		return Mapping{}, fmt.Errorf("display box: %w", err)
	}
	if err := native.Validate(); err != nil {
		return Mapping{}, fmt.Errorf("native box: %w", err)
	}
	return Mapping{display: display, native: native}, nil
}

// Display returns the display box.
func (m Mapping) Display() Box { return m.display }

// Native returns the native box.
func (m Mapping) Native() Box { return m.native }

// ToNative maps a display-space position into native coordinates.
func (m Mapping) ToNative(p r3.Vector) model.Vec3 {
	return model.FromVector(RemapDisplayToNative(p, m.display, m.native))
}

// ToDisplay maps a native position into display space.
func (m Mapping) ToDisplay(p model.Vec3) r3.Vector {
	return RemapNativeToDisplay(p.Vector(), m.display, m.native)
}
