package octant

import (
	"context"
	"errors"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/starprobe/model"
	"github.com/hupe1980/starprobe/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, ps model.PointSet, pivot model.Vec3, optFns ...func(o *Options)) *Index {
	t.Helper()
	ix, err := Build(context.Background(), ps, pivot, optFns...)
	require.NoError(t, err)
	return ix
}

func TestOf(t *testing.T) {
	pivot := model.Vec3{}
	assert.Equal(t, ID(0), Of(model.Vec3{X: 1, Y: 1, Z: 1}, pivot))
	assert.Equal(t, ID(7), Of(model.Vec3{X: -1, Y: -1, Z: -1}, pivot))
	assert.Equal(t, ID(5), Of(model.Vec3{X: -1, Y: 1, Z: -1}, pivot))
	// Ties go to the greater-or-equal side.
	assert.Equal(t, ID(0), Of(model.Vec3{}, pivot))
	assert.Equal(t, "-x+y-z", ID(5).String())
}

func TestLowerBound(t *testing.T) {
	pivot := model.Vec3{}
	q := model.Vec3{X: 0.1, Y: 0.2, Z: -0.3}
	own := Of(q, pivot)

	assert.Equal(t, float32(0), LowerBound(q, pivot, own))
	assert.InDelta(t, 0.01, LowerBound(q, pivot, own^1), 1e-7)
	assert.InDelta(t, 0.04+0.09, LowerBound(q, pivot, own^6), 1e-7)
	assert.InDelta(t, 0.01+0.04+0.09, LowerBound(q, pivot, own^7), 1e-7)
}

func TestPartitionCompleteness(t *testing.T) {
	rng := testutil.NewRNG(11)
	for _, pivot := range []model.Vec3{{}, {X: 3, Y: -2, Z: 0.5}, {X: 100, Y: 100, Z: 100}} {
		ps := rng.UniformPoints(5000, -10, 10)
		buckets := Partition(ps, pivot)

		seen := make([]int, ps.Len())
		for o, bucket := range buckets {
			for _, i := range bucket {
				seen[i]++
				assert.Equal(t, ID(o), Of(ps.At(int(i)), pivot))
			}
		}
		for i, n := range seen {
			require.Equal(t, 1, n, "point %d assigned %d times", i, n)
		}
	}
}

func TestMembershipPartitionsIndex(t *testing.T) {
	rng := testutil.NewRNG(12)
	ps := rng.GaussianPoints(3000, 5)
	ix := buildIndex(t, ps, ps.Centroid())

	union := roaring.New()
	var total uint64
	for o := range ID(Count) {
		bm := ix.Membership(o)
		assert.Equal(t, uint64(ix.Stats().BucketSizes[o]), bm.GetCardinality())
		assert.False(t, union.Intersects(bm), "octant %v overlaps another", o)
		union.Or(bm)
		total += bm.GetCardinality()
	}

	assert.Equal(t, uint64(ps.Len()), total)
	assert.Equal(t, uint64(ps.Len()), union.GetCardinality())
	assert.Equal(t, uint32(ps.Len()-1), union.Maximum())
}

func TestBucketMatchesOf(t *testing.T) {
	rng := testutil.NewRNG(13)
	ps := rng.UniformPoints(500, -1, 1)
	pivot := model.Vec3{X: 0.1, Y: -0.2, Z: 0}
	ix := buildIndex(t, ps, pivot)

	for o := range ID(Count) {
		bucket := ix.Bucket(o)
		require.Len(t, bucket, ix.Stats().BucketSizes[o])
		for _, i := range bucket {
			assert.Equal(t, o, Of(ps.At(int(i)), pivot))
		}
		if len(bucket) > 0 {
			// Copies, not views.
			bucket[0] = 1 << 30
			assert.NotEqual(t, uint32(1<<30), ix.Bucket(o)[0])
		}
	}
	assert.Nil(t, ix.Bucket(Count))
}

func TestConcreteScenario(t *testing.T) {
	ps := model.PointSetFromVecs([]model.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 10, Z: 10},
		{X: -10, Y: -10, Z: -10},
		{X: 5, Y: 5, Z: 5},
	})
	q := model.Vec3{X: 4, Y: 4, Z: 4}

	for _, s := range []Strategy{StrategyOwnOctant, StrategyExact} {
		ix := buildIndex(t, ps, model.Vec3{}, func(o *Options) { o.Strategy = s })
		r := ix.FindNearest(q)
		assert.Equal(t, int64(3), r.PointIndex, s.String())
		assert.Equal(t, float32(3), r.DistanceSquared, s.String())
	}
	assert.Equal(t, testutil.BruteForceNearest(ps, q), buildIndex(t, ps, model.Vec3{}).FindNearest(q))
}

func TestBoundaryMismatchScenario(t *testing.T) {
	ps := model.PointSetFromVecs([]model.Vec3{
		{X: -0.1, Y: -0.1, Z: -0.1},
		{X: 5, Y: 5, Z: 5},
	})
	q := model.Vec3{X: 0.1, Y: 0.1, Z: 0.1}

	truth := testutil.BruteForceNearest(ps, q)
	require.Equal(t, int64(0), truth.PointIndex)
	assert.InDelta(t, 0.12, truth.DistanceSquared, 1e-6)

	// Own-octant dispatch only sees point #1 and misses the true nearest.
	ix := buildIndex(t, ps, model.Vec3{})
	approx := ix.FindNearest(q)
	assert.Equal(t, int64(1), approx.PointIndex)
	assert.NotEqual(t, truth.PointIndex, approx.PointIndex)

	exact := ix.FindNearestExact(q)
	assert.Equal(t, truth, exact)
}

func TestFindNearestInOctantMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(5)
	// All points and queries inside the +x+y+z octant.
	ps := rng.UniformPoints(4000, 1, 100)
	ix := buildIndex(t, ps, model.Vec3{})

	for i := 0; i < 200; i++ {
		q := rng.Point(0, 100)
		got := ix.FindNearestInOctant(q)
		want := testutil.BruteForceNearest(ps, q)
		require.Equal(t, want.PointIndex, got.PointIndex, "query %v", q)
	}
}

func TestFindNearestExactMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(6)
	ps := rng.ClusteredPoints(5000, 10, 30, 3)
	ix := buildIndex(t, ps, ps.Centroid(), func(o *Options) { o.Strategy = StrategyExact })

	for i := 0; i < 300; i++ {
		q := rng.Point(-35, 35)
		got := ix.FindNearest(q)
		want := testutil.BruteForceNearest(ps, q)
		require.Equal(t, want.DistanceSquared, got.DistanceSquared, "query %v", q)
		require.Equal(t, want.PointIndex, got.PointIndex, "query %v", q)
	}
}

func TestOwnOctantRecall(t *testing.T) {
	rng := testutil.NewRNG(8)
	ps := rng.UniformPoints(5000, -1, 1)
	ix := buildIndex(t, ps, model.Vec3{})

	hits := 0
	const queries = 500
	for i := 0; i < queries; i++ {
		q := rng.Point(-1, 1)
		if ix.FindNearestInOctant(q).PointIndex == testutil.BruteForceNearest(ps, q).PointIndex {
			hits++
		}
	}
	// Misses only happen near the pivot planes.
	assert.Greater(t, float64(hits)/queries, 0.8)
}

func TestFindKNearestMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(9)
	ps := rng.GaussianPoints(3000, 10)
	ix := buildIndex(t, ps, model.Vec3{X: 1, Y: -1, Z: 0.5})

	for _, k := range []int{1, 7, 50} {
		for i := 0; i < 40; i++ {
			q := rng.Point(-20, 20)
			got, err := ix.FindKNearest(q, k)
			require.NoError(t, err)
			want := testutil.BruteForceKNearest(ps, q, k)
			require.Equal(t, want, got, "k=%d query %v", k, q)
		}
	}
}

func TestFindKNearestAllPoints(t *testing.T) {
	ps := model.PointSetFromVecs([]model.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 10, Z: 10},
		{X: -10, Y: -10, Z: -10},
		{X: 5, Y: 5, Z: 5},
	})
	ix := buildIndex(t, ps, model.Vec3{})

	got, err := ix.FindKNearest(model.Vec3{X: 4, Y: 4, Z: 4}, 10)
	require.NoError(t, err)
	require.Len(t, got, 4)

	order := make([]int64, len(got))
	for i, r := range got {
		order[i] = r.PointIndex
	}
	assert.Equal(t, []int64{3, 0, 1, 2}, order)
}

func TestFindKNearestInvalidK(t *testing.T) {
	ix := buildIndex(t, model.PointSet{}, model.Vec3{})
	_, err := ix.FindKNearest(model.Vec3{}, 0)
	assert.True(t, errors.Is(err, ErrInvalidK))
}

func TestEmptyIndex(t *testing.T) {
	ix := buildIndex(t, model.PointSet{}, model.Vec3{})
	assert.False(t, ix.FindNearest(model.Vec3{}).Found())
	assert.False(t, ix.FindNearestExact(model.Vec3{}).Found())

	got, err := ix.FindKNearest(model.Vec3{}, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmptyOwnOctant(t *testing.T) {
	ps := model.PointSetFromVecs([]model.Vec3{{X: 1, Y: 1, Z: 1}})
	ix := buildIndex(t, ps, model.Vec3{})

	q := model.Vec3{X: -1, Y: -1, Z: -1}
	assert.False(t, ix.FindNearestInOctant(q).Found())
	assert.Equal(t, int64(0), ix.FindNearestExact(q).PointIndex)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rng := testutil.NewRNG(1)
	_, err := Build(ctx, rng.UniformPoints(100, 0, 1), model.Vec3{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildLimitedConcurrency(t *testing.T) {
	rng := testutil.NewRNG(2)
	ps := rng.UniformPoints(1000, -1, 1)
	ix := buildIndex(t, ps, model.Vec3{}, func(o *Options) { o.Concurrency = 1 })

	s := ix.Stats()
	assert.Equal(t, 1000, s.Points)
	sum := 0
	for o := range s.BucketSizes {
		sum += s.BucketSizes[o]
		if s.BucketSizes[o] > 0 {
			assert.Positive(t, s.TreeHeights[o])
		}
	}
	assert.Equal(t, 1000, sum)
	assert.Positive(t, s.MemoryBytes)
	assert.Greater(t, s.LargestShare, 0.0)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("exact")
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, s)

	s, err = ParseStrategy("own")
	require.NoError(t, err)
	assert.Equal(t, StrategyOwnOctant, s)

	_, err = ParseStrategy("nearest-ish")
	assert.Error(t, err)
}

// cubeWithCopies returns the 8 corners of [-1, 1]^3, index 0 at (1,1,1),
// followed by copies of (1,1,1).
func cubeWithCopies(copies int) model.PointSet {
	pts := make([]model.Vec3, 0, 8+copies)
	for i := range 8 {
		c := model.Vec3{X: 1, Y: 1, Z: 1}
		if i&1 != 0 {
			c.X = -1
		}
		if i&2 != 0 {
			c.Y = -1
		}
		if i&4 != 0 {
			c.Z = -1
		}
		pts = append(pts, c)
	}
	for range copies {
		pts = append(pts, model.Vec3{X: 1, Y: 1, Z: 1})
	}
	return model.PointSetFromVecs(pts)
}

func TestEquidistantTiesByIndex(t *testing.T) {
	ps := cubeWithCopies(6)
	pivot := model.Vec3{X: 0.001, Y: 0.001, Z: 0.001}
	ix := buildIndex(t, ps, pivot, func(o *Options) { o.Strategy = StrategyExact })
	origin := model.Vec3{}

	got, err := ix.FindKNearest(origin, 5)
	require.NoError(t, err)
	assert.Equal(t, testutil.BruteForceKNearest(ps, origin, 5), got)
	for i, r := range got {
		assert.Equal(t, int64(i), r.PointIndex)
		assert.Equal(t, float32(3), r.DistanceSquared)
	}

	assert.Equal(t, testutil.BruteForceNearest(ps, origin), ix.FindNearestExact(origin))
	assert.Equal(t, int64(0), ix.FindNearestExact(origin).PointIndex)

	corner := model.Vec3{X: 1, Y: 1, Z: 1}
	r := ix.FindNearestInOctant(corner)
	assert.Equal(t, int64(0), r.PointIndex)
	assert.Equal(t, float32(0), r.DistanceSquared)

	all, err := ix.FindKNearest(corner, 7)
	require.NoError(t, err)
	assert.Equal(t, testutil.BruteForceKNearest(ps, corner, 7), all)
}

func TestLatticeMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(31)
	pts := make([]model.Vec3, 500)
	for i := range pts {
		pts[i] = model.Vec3{
			X: float32(rng.Intn(5) - 2),
			Y: float32(rng.Intn(5) - 2),
			Z: float32(rng.Intn(5) - 2),
		}
	}
	ps := model.PointSetFromVecs(pts)

	// Pivot on a lattice point puts many points on the partition planes.
	for _, pivot := range []model.Vec3{{}, {X: 0.5, Y: -0.5, Z: 0}} {
		ix := buildIndex(t, ps, pivot)
		for range 50 {
			q := model.Vec3{
				X: float32(rng.Intn(9)-4) / 2,
				Y: float32(rng.Intn(9)-4) / 2,
				Z: float32(rng.Intn(9)-4) / 2,
			}
			assert.Equal(t, testutil.BruteForceNearest(ps, q), ix.FindNearestExact(q), "exact %v", q)

			got, err := ix.FindKNearest(q, 9)
			require.NoError(t, err)
			assert.Equal(t, testutil.BruteForceKNearest(ps, q, 9), got, "knn %v", q)
		}
	}
}
