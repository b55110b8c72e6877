package testutil

import (
	"cmp"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/starprobe/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Point returns a random point with every coordinate in [lo, hi).
func (r *RNG) Point(lo, hi float32) model.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pointLocked(lo, hi)
}

func (r *RNG) pointLocked(lo, hi float32) model.Vec3 {
	span := hi - lo
	return model.Vec3{
		X: lo + r.rand.Float32()*span,
		Y: lo + r.rand.Float32()*span,
		Z: lo + r.rand.Float32()*span,
	}
}

// UniformPoints generates num points uniformly distributed in the cube [lo, hi)^3.
func (r *RNG) UniformPoints(num int, lo, hi float32) model.PointSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	pts := make([]model.Vec3, num)
	for i := range pts {
		pts[i] = r.pointLocked(lo, hi)
	}
	return model.PointSetFromVecs(pts)
}

// GaussianPoints generates num points from an isotropic normal distribution
// centred on the origin with the given standard deviation.
func (r *RNG) GaussianPoints(num int, sigma float32) model.PointSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	pts := make([]model.Vec3, num)
	for i := range pts {
		pts[i] = model.Vec3{
			X: float32(r.rand.NormFloat64()) * sigma,
			Y: float32(r.rand.NormFloat64()) * sigma,
			Z: float32(r.rand.NormFloat64()) * sigma,
		}
	}
	return model.PointSetFromVecs(pts)
}

// ClusteredPoints generates num points grouped around random cluster centres.
// Centres are uniform in [-extent, extent)^3; members get Gaussian noise of
// the given spread. Resembles a catalog of star clusters.
func (r *RNG) ClusteredPoints(num, clusters int, extent, spread float32) model.PointSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	clusters = max(clusters, 1)
	centres := make([]model.Vec3, clusters)
	for i := range centres {
		centres[i] = r.pointLocked(-extent, extent)
	}

	pts := make([]model.Vec3, num)
	for i := range pts {
		c := centres[i%clusters]
		pts[i] = model.Vec3{
			X: c.X + float32(r.rand.NormFloat64())*spread,
			Y: c.Y + float32(r.rand.NormFloat64())*spread,
			Z: c.Z + float32(r.rand.NormFloat64())*spread,
		}
	}
	return model.PointSetFromVecs(pts)
}

// BruteForceNearest performs an exact linear scan for the closest point.
// Ties resolve to the lowest index.
func BruteForceNearest(points model.PointSet, query model.Vec3) model.SearchResult {
	best := model.NoResult()
	for i := range points.Len() {
		if d := query.DistanceSquared(points.At(i)); d < best.DistanceSquared {
			best = model.SearchResult{PointIndex: int64(i), DistanceSquared: d}
		}
	}
	return best
}

// BruteForceKNearest performs exact search for ground truth.
// Results are ordered by distance, then point index.
func BruteForceKNearest(points model.PointSet, query model.Vec3, k int) []model.SearchResult {
	results := make([]model.SearchResult, points.Len())
	for i := range results {
		results[i] = model.SearchResult{PointIndex: int64(i), DistanceSquared: query.DistanceSquared(points.At(i))}
	}

	slices.SortFunc(results, func(a, b model.SearchResult) int {
		if c := cmp.Compare(a.DistanceSquared, b.DistanceSquared); c != 0 {
			return c
		}
		return cmp.Compare(a.PointIndex, b.PointIndex)
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// ComputeRecall computes recall@k by comparing approximate results against ground truth.
func ComputeRecall(groundTruth, approximate []model.SearchResult) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[int64]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].PointIndex] = struct{}{}
	}

	hits := 0
	for _, r := range approximate {
		if _, ok := truthSet[r.PointIndex]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
