package octant

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/starprobe/internal/kdtree"
	"github.com/hupe1980/starprobe/internal/queue"
	"github.com/hupe1980/starprobe/model"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("k must be positive")

// Strategy selects how single-nearest queries treat octant boundaries.
type Strategy int

const (
	// StrategyOwnOctant searches only the query's own octant (approximate).
	StrategyOwnOctant Strategy = iota
	// StrategyExact also searches neighbouring octants that may hold a closer point.
	StrategyExact
)

func (s Strategy) String() string {
	switch s {
	case StrategyOwnOctant:
		return "own-octant"
	case StrategyExact:
		return "exact"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ParseStrategy parses the names accepted on the command line ("own", "exact").
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "own", "own-octant", "":
		return StrategyOwnOctant, nil
	case "exact":
		return StrategyExact, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
}

// Options configures index construction and querying.
type Options struct {
	// Strategy for FindNearest. Defaults to StrategyOwnOctant.
	Strategy Strategy

	// Concurrency limits the number of trees built at once.
	// If <= 0, all 8 octants build in parallel.
	Concurrency int
}

// DefaultOptions returns the default index options.
func DefaultOptions() Options {
	return Options{
		Strategy:    StrategyOwnOctant,
		Concurrency: 0,
	}
}

// Index is an octant-partitioned set of k-d trees over one point set.
// It is read-only after Build and safe for concurrent queries.
type Index struct {
	opts    Options
	pivot   model.Vec3
	points  model.PointSet
	buckets [Count][]uint32
	trees   [Count]*kdtree.Tree
}

// Build partitions points around pivot and builds the 8 octant trees concurrently.
// It returns once every tree is complete.
func Build(ctx context.Context, points model.PointSet, pivot model.Vec3, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	ix := &Index{
		opts:   opts,
		pivot:  pivot,
		points: points,
	}

	buckets := Partition(points, pivot)
	ix.buckets = buckets

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for o := range buckets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Each worker writes only its own slot.
			ix.trees[o] = kdtree.Build(points, buckets[o])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build octant trees: %w", err)
	}
	return ix, nil
}

// Pivot returns the pivot used to compute octant ids.
func (ix *Index) Pivot() model.Vec3 { return ix.pivot }

// Points returns the indexed point set.
func (ix *Index) Points() model.PointSet { return ix.points }

// Len returns the number of indexed points.
func (ix *Index) Len() int { return ix.points.Len() }

// Strategy returns the configured single-nearest strategy.
func (ix *Index) Strategy() Strategy { return ix.opts.Strategy }

// FindNearest returns the nearest point to q according to the configured Strategy.
func (ix *Index) FindNearest(q model.Vec3) model.SearchResult {
	if ix.opts.Strategy == StrategyExact {
		return ix.FindNearestExact(q)
	}
	return ix.FindNearestInOctant(q)
}

// FindNearestInOctant searches only the octant q falls in. Points in other
// octants are never considered, even when closer.
func (ix *Index) FindNearestInOctant(q model.Vec3) model.SearchResult {
	return ix.trees[Of(q, ix.pivot)].FindNearest(q)
}

// FindNearestExact returns the true nearest point. Other octants are searched
// only when their half-space lower bound beats the current best.
func (ix *Index) FindNearestExact(q model.Vec3) model.SearchResult {
	own := Of(q, ix.pivot)
	best := ix.trees[own].FindNearest(q)

	for o := range ID(Count) {
		if o == own || ix.trees[o].Len() == 0 {
			continue
		}
		if best.Found() && LowerBound(q, ix.pivot, o) > best.DistanceSquared {
			continue
		}
		if r := ix.trees[o].FindNearest(q); !best.Found() || kdtree.CompareResults(r, best) < 0 {
			best = r
		}
	}
	return best
}

// FindKNearest returns the k points nearest to q across all octants,
// nearest first. Fewer are returned when the index holds fewer than k points.
func (ix *Index) FindKNearest(q model.Vec3, k int) ([]model.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, k)
	}

	merged := queue.NewMax[uint32](k + 1)
	for _, tree := range ix.trees {
		if tree.Len() == 0 {
			continue
		}
		for _, r := range tree.FindKNearest(q, k) {
			merged.Offer(uint32(r.PointIndex), r.DistanceSquared, k)
		}
	}
	return kdtree.SortedResults(merged), nil
}

// Membership returns the point indices of octant id as a bitmap.
func (ix *Index) Membership(id ID) *roaring.Bitmap {
	if int(id) >= Count {
		return roaring.New()
	}
	return roaring.BitmapOf(ix.buckets[id]...)
}

// Bucket returns a copy of the point indices assigned to octant id, ascending.
func (ix *Index) Bucket(id ID) []uint32 {
	if int(id) >= Count {
		return nil
	}
	// Tree construction reorders buckets in place.
	b := slices.Clone(ix.buckets[id])
	slices.Sort(b)
	return b
}

// MemoryBytes returns the total size of the tree arenas.
func (ix *Index) MemoryBytes() int64 {
	var total int64
	for _, tree := range ix.trees {
		total += tree.MemoryBytes()
	}
	return total
}

// Stats describes the shape of an index.
type Stats struct {
	Points       int
	Pivot        model.Vec3
	BucketSizes  [Count]int
	TreeHeights  [Count]int
	MemoryBytes  int64
	LargestShare float64 // LargestShare is the fraction of points in the fullest octant.
}

// Stats returns per-octant bucket sizes and tree heights.
func (ix *Index) Stats() Stats {
	s := Stats{
		Points:      ix.points.Len(),
		Pivot:       ix.pivot,
		MemoryBytes: ix.MemoryBytes(),
	}
	largest := 0
	for o, tree := range ix.trees {
		s.BucketSizes[o] = tree.Len()
		s.TreeHeights[o] = tree.Height()
		largest = max(largest, tree.Len())
	}
	if s.Points > 0 {
		s.LargestShare = float64(largest) / float64(s.Points)
	}
	return s
}
