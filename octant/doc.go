// Package octant implements the octant-partitioned spatial index.
//
// The point set is split into 8 buckets by comparing every point against a
// pivot on each axis. One k-d tree is built per bucket, concurrently, and
// queries fan out across the trees.
//
// # Octant ids
//
// An octant id is a 3-bit value: bit0 is set when x < pivot.x, bit1 when
// y < pivot.y and bit2 when z < pivot.z. A coordinate equal to the pivot lands
// on the greater-or-equal side.
//
// # Single-nearest strategies
//
//   - StrategyOwnOctant searches only the query's own octant. Fast, but a
//     closer point just across a pivot plane is missed.
//   - StrategyExact searches the own octant first, then every other octant
//     whose half-space lower bound is below the best distance found so far.
//
// K-nearest queries always consider all 8 octants.
//
// # Usage
//
//	ix, err := octant.Build(ctx, points, points.Centroid(), func(o *octant.Options) {
//	    o.Strategy = octant.StrategyExact
//	})
//	nearest := ix.FindNearest(query)
//	knn, err := ix.FindKNearest(query, 10)
package octant
