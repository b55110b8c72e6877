package kdtree

import (
	"testing"

	"github.com/hupe1980/starprobe/model"
	"github.com/hupe1980/starprobe/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allMembers(n int) []uint32 {
	m := make([]uint32, n)
	for i := range m {
		m[i] = uint32(i)
	}
	return m
}

func TestTreeEmpty(t *testing.T) {
	tree := Build(model.PointSet{}, nil)
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 0, tree.Height())
	assert.False(t, tree.FindNearest(model.Vec3{}).Found())
	assert.Empty(t, tree.FindKNearest(model.Vec3{}, 3))
}

func TestTreeSinglePoint(t *testing.T) {
	ps := model.PointSetFromVecs([]model.Vec3{{X: 1, Y: 2, Z: 3}})
	tree := Build(ps, allMembers(1))

	r := tree.FindNearest(model.Vec3{X: 1, Y: 2, Z: 4})
	assert.Equal(t, int64(0), r.PointIndex)
	assert.Equal(t, float32(1), r.DistanceSquared)
}

func TestTreeBalanced(t *testing.T) {
	rng := testutil.NewRNG(1)
	ps := rng.UniformPoints(1023, -100, 100)
	tree := Build(ps, allMembers(ps.Len()))

	assert.Equal(t, 1023, tree.Len())
	assert.Equal(t, 10, tree.Height())
}

func TestTreeSubsetMembers(t *testing.T) {
	ps := model.PointSetFromVecs([]model.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 1},
		{X: 5, Y: 5, Z: 5},
	})
	tree := Build(ps, []uint32{0, 2})

	r := tree.FindNearest(model.Vec3{X: 1, Y: 1, Z: 1})
	assert.Equal(t, int64(0), r.PointIndex, "point 1 is not a member")
}

func TestTreeFindNearestMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(42)
	// Confined to one octant around the origin.
	ps := rng.UniformPoints(2000, 0, 50)
	tree := Build(ps, allMembers(ps.Len()))

	for i := 0; i < 300; i++ {
		q := rng.Point(-10, 60)
		got := tree.FindNearest(q)
		want := testutil.BruteForceNearest(ps, q)
		require.Equal(t, want.PointIndex, got.PointIndex, "query %v", q)
		require.Equal(t, want.DistanceSquared, got.DistanceSquared)
	}
}

func TestTreeFindKNearestMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(99)
	ps := rng.ClusteredPoints(1500, 6, 20, 4)
	tree := Build(ps, allMembers(ps.Len()))

	for _, k := range []int{1, 5, 32} {
		for i := 0; i < 50; i++ {
			q := rng.Point(-25, 25)
			got := tree.FindKNearest(q, k)
			want := testutil.BruteForceKNearest(ps, q, k)
			require.Equal(t, want, got, "k=%d query %v", k, q)
		}
	}
}

func TestTreeFindKNearestMoreThanMembers(t *testing.T) {
	rng := testutil.NewRNG(3)
	ps := rng.UniformPoints(4, 0, 1)
	tree := Build(ps, allMembers(ps.Len()))

	got := tree.FindKNearest(model.Vec3{}, 10)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].DistanceSquared, got[i].DistanceSquared)
	}
}

func TestTreeFindKNearestInvalidK(t *testing.T) {
	tree := Build(model.PointSet{}, nil)
	assert.Panics(t, func() { tree.FindKNearest(model.Vec3{}, 0) })
}

func TestTreeDuplicateCoordinates(t *testing.T) {
	pts := make([]model.Vec3, 64)
	for i := range pts {
		pts[i] = model.Vec3{X: 1, Y: float32(i % 2), Z: 1}
	}
	ps := model.PointSetFromVecs(pts)
	tree := Build(ps, allMembers(ps.Len()))

	r := tree.FindNearest(model.Vec3{X: 1, Y: 0.9, Z: 1})
	require.True(t, r.Found())
	assert.InDelta(t, 0.01, r.DistanceSquared, 1e-6)
	assert.Equal(t, int64(1), r.PointIndex)

	q := model.Vec3{X: 1, Y: 1, Z: 1}
	got := tree.FindKNearest(q, 32)
	require.Len(t, got, 32)
	for i, res := range got {
		assert.Equal(t, float32(0), res.DistanceSquared)
		assert.Equal(t, int64(2*i+1), res.PointIndex)
	}
	assert.Equal(t, testutil.BruteForceKNearest(ps, q, 32), got)
}

func TestTreeEquidistantMatchesBruteForce(t *testing.T) {
	// Integer lattice with repeated points: many exact distance ties.
	rng := testutil.NewRNG(23)
	pts := make([]model.Vec3, 300)
	for i := range pts {
		pts[i] = model.Vec3{
			X: float32(rng.Intn(3) - 1),
			Y: float32(rng.Intn(3) - 1),
			Z: float32(rng.Intn(3) - 1),
		}
	}
	ps := model.PointSetFromVecs(pts)
	tree := Build(ps, allMembers(ps.Len()))

	for _, q := range []model.Vec3{
		{},
		{X: 1, Y: 1, Z: 1},
		{X: 0.5, Y: 0.5, Z: 0.5},
		{X: -0.5, Y: 0, Z: 0.5},
		{X: 2, Y: -2, Z: 0},
	} {
		assert.Equal(t, testutil.BruteForceNearest(ps, q), tree.FindNearest(q), "nearest %v", q)
		for _, k := range []int{1, 5, 17, 64} {
			assert.Equal(t, testutil.BruteForceKNearest(ps, q, k), tree.FindKNearest(q, k), "k=%d %v", k, q)
		}
	}
}
