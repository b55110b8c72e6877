package model

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPointSet(t *testing.T) {
	ps, err := NewPointSet([]float32{1, 2}, []float32{3, 4}, []float32{5, 6})
	require.NoError(t, err)
	assert.Equal(t, 2, ps.Len())
	assert.Equal(t, Vec3{X: 2, Y: 4, Z: 6}, ps.At(1))
	assert.Equal(t, float32(3), ps.Coord(0, AxisY))

	_, err = NewPointSet([]float32{1, 2}, []float32{3}, []float32{5, 6})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAxisLengthMismatch))
}

func TestPointSetBoundsAndCentroid(t *testing.T) {
	ps := PointSetFromVecs([]Vec3{{X: -1, Y: 0, Z: 2}, {X: 3, Y: -4, Z: 2}, {X: 1, Y: 1, Z: 8}})

	lo, hi, ok := ps.Bounds()
	require.True(t, ok)
	assert.Equal(t, Vec3{X: -1, Y: -4, Z: 2}, lo)
	assert.Equal(t, Vec3{X: 3, Y: 1, Z: 8}, hi)
	assert.Equal(t, Vec3{X: 1, Y: -1, Z: 4}, ps.Centroid())

	_, _, ok = PointSet{}.Bounds()
	assert.False(t, ok)
	assert.Equal(t, Vec3{}, PointSet{}.Centroid())
}

func TestVec3(t *testing.T) {
	v := Vec3{X: 1, Y: 2, Z: 3}
	assert.Equal(t, float32(1), v.Axis(AxisX))
	assert.Equal(t, float32(2), v.Axis(AxisY))
	assert.Equal(t, float32(3), v.Axis(AxisZ))
	assert.Equal(t, float32(27), v.DistanceSquared(Vec3{X: 4, Y: 5, Z: 6}))
	assert.Equal(t, v, FromVector(r3.Vector{X: 1, Y: 2, Z: 3}))
	assert.Equal(t, r3.Vector{X: 1, Y: 2, Z: 3}, v.Vector())
}

func TestNoResult(t *testing.T) {
	r := NoResult()
	assert.False(t, r.Found())
	assert.Equal(t, int64(-1), r.PointIndex)
	assert.True(t, math.IsInf(float64(r.DistanceSquared), 1))
	assert.Equal(t, "NoResult", r.String())

	hit := SearchResult{PointIndex: 0, DistanceSquared: 0}
	assert.True(t, hit.Found())
}
