// Package testutil provides testing utilities for starprobe.
//
// This package is intended for use in tests, benchmarks and the demo CLI.
// It provides seeded generators for synthetic point catalogs and exact
// brute-force answers to check index results against.
//
// # Random Point Generation
//
//	rng := testutil.NewRNG(seed)
//	ps := rng.UniformPoints(10_000, -1, 1)      // uniform cube
//	ps = rng.ClusteredPoints(10_000, 12, 50, 2) // star clusters
//
// # Exact Search (Ground Truth)
//
//	want := testutil.BruteForceKNearest(ps, query, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(want, got)
package testutil
