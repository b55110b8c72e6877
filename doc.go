// Package starprobe answers "which catalog point is closest to this probe
// position" for large 3D point clouds, fast enough to run once per display
// frame.
//
// Points are partitioned into the 8 octants around a pivot and each octant
// gets its own k-d tree. The trees are built in parallel on a background
// worker pool; a Controller owns the installed index and dispatches probe
// queries without ever blocking the caller.
//
// # Quick Start
//
//	c := starprobe.New()
//	defer c.Close()
//
//	ps, _ := model.NewPointSet(xs, ys, zs)
//	_ = c.Initialize(ps, ps.Centroid())  // returns immediately
//
//	// Once per frame:
//	if ch, ok := c.Probe(ctx, cursor); ok {
//	    go func() { highlight(<-ch) }()
//	}
//
// # Probes
//
// At most one probe is in flight per Controller. A probe issued while the
// previous one is still running is dropped, not queued, so the caller never
// accumulates stale work. Probe returns false in that case and when no index
// is installed yet. Nearest returns the latest completed result.
//
// # Display Coordinates
//
// ProbeDisplay accepts positions in display units. Each axis is remapped
// linearly from the display box (WithDisplayBox, default [-0.5, 0.5]) into
// the bounds of the point set before querying, and matched points are mapped
// back in ProbeResult.Display.
//
// # Strategies
//
// By default a single-nearest query searches only the probe's own octant.
// This is approximate near the pivot planes. octant.StrategyExact also visits
// neighbouring octants whose half-space bound can still beat the best match:
//
//	c := starprobe.New(starprobe.WithStrategy(octant.StrategyExact))
//
// FindKNearest always merges all 8 octants and is exact.
//
// # Rebuilds
//
// Initialize may be called again at any time. The old index is dropped
// immediately; a build that has been superseded is discarded when it
// finishes. WaitReady waits for the most recent build.
package starprobe
