package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// ErrAxisLengthMismatch is returned when the three axis arrays of a point set differ in length.
var ErrAxisLengthMismatch = errors.New("axis arrays differ in length")

// Axis identifiers.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// Vec3 is a point in native index coordinates.
type Vec3 struct {
	X, Y, Z float32
}

// Axis returns the component for the given axis (0=x, 1=y, 2=z).
func (v Vec3) Axis(axis int) float32 {
	switch axis {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// DistanceSquared returns the squared Euclidean distance between v and o.
func (v Vec3) DistanceSquared(o Vec3) float32 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// Vector converts v to a display-space vector.
func (v Vec3) Vector() r3.Vector {
	return r3.Vector{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// String returns a string representation of the point.
func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// FromVector narrows a display-space vector to native precision.
func FromVector(v r3.Vector) Vec3 {
	return Vec3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

// PointSet is an immutable set of 3D points stored as three parallel axis arrays.
//
// The arrays are referenced, not copied. Callers must not modify them once the
// set has been handed to an index.
type PointSet struct {
	axes [3][]float32
}

// NewPointSet creates a point set from per-axis coordinate arrays.
func NewPointSet(xs, ys, zs []float32) (PointSet, error) {
	if len(xs) != len(ys) || len(xs) != len(zs) {
		return PointSet{}, fmt.Errorf("%w: x=%d y=%d z=%d", ErrAxisLengthMismatch, len(xs), len(ys), len(zs))
	}
	return PointSet{axes: [3][]float32{xs, ys, zs}}, nil
}

// PointSetFromVecs builds a point set from a slice of points.
func PointSetFromVecs(points []Vec3) PointSet {
	xs := make([]float32, len(points))
	ys := make([]float32, len(points))
	zs := make([]float32, len(points))
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	return PointSet{axes: [3][]float32{xs, ys, zs}}
}

// Len returns the number of points.
func (ps PointSet) Len() int { return len(ps.axes[AxisX]) }

// At returns the point with the given index.
func (ps PointSet) At(i int) Vec3 {
	return Vec3{X: ps.axes[AxisX][i], Y: ps.axes[AxisY][i], Z: ps.axes[AxisZ][i]}
}

// Coord returns a single coordinate of point i.
func (ps PointSet) Coord(i, axis int) float32 {
	return ps.axes[axis][i]
}

// Axis returns the backing array of one axis. It must not be modified.
func (ps PointSet) Axis(axis int) []float32 {
	return ps.axes[axis]
}

// Bounds returns the axis-aligned bounding box of the set.
// ok is false for an empty set.
func (ps PointSet) Bounds() (lo, hi Vec3, ok bool) {
	n := ps.Len()
	if n == 0 {
		return Vec3{}, Vec3{}, false
	}
	lo, hi = ps.At(0), ps.At(0)
	for i := 1; i < n; i++ {
		p := ps.At(i)
		lo.X, hi.X = min(lo.X, p.X), max(hi.X, p.X)
		lo.Y, hi.Y = min(lo.Y, p.Y), max(hi.Y, p.Y)
		lo.Z, hi.Z = min(lo.Z, p.Z), max(hi.Z, p.Z)
	}
	return lo, hi, true
}

// Centroid returns the arithmetic mean of all points (the origin for an empty set).
// Accumulation is done in float64.
func (ps PointSet) Centroid() Vec3 {
	n := ps.Len()
	if n == 0 {
		return Vec3{}
	}
	var sx, sy, sz float64
	for i := range n {
		sx += float64(ps.axes[AxisX][i])
		sy += float64(ps.axes[AxisY][i])
		sz += float64(ps.axes[AxisZ][i])
	}
	inv := 1 / float64(n)
	return Vec3{X: float32(sx * inv), Y: float32(sy * inv), Z: float32(sz * inv)}
}

// SearchResult is the answer to a nearest-point query.
type SearchResult struct {
	// PointIndex is the index of the matched point, or -1 if none was found.
	PointIndex int64
	// DistanceSquared is the squared Euclidean distance to the query (+Inf if none).
	DistanceSquared float32
}

// NoResult returns the "no result" sentinel.
func NoResult() SearchResult {
	return SearchResult{PointIndex: -1, DistanceSquared: float32(math.Inf(1))}
}

// Found reports whether r refers to an actual point.
func (r SearchResult) Found() bool { return r.PointIndex >= 0 }

// String returns a string representation of the result.
func (r SearchResult) String() string {
	if !r.Found() {
		return "NoResult"
	}
	return fmt.Sprintf("Point(%d, d²=%g)", r.PointIndex, r.DistanceSquared)
}
