// Package resource implements the per-controller resource governance of the
// spatial index.
//
// The Controller manages four resources:
//
//   - Memory: track and optionally limit the bytes held by built indexes (fail-fast)
//   - Builds: limit concurrent index builds (weighted semaphore)
//   - Queries: a single query slot; TryAcquireQuery never blocks, so a probe
//     arriving while another is in flight is dropped
//   - Probe rate: optional token bucket on probe dispatch
//
// # Single-flight queries
//
//	if !rc.TryAcquireQuery() {
//	    return // dropped, previous probe still running
//	}
//	go func() {
//	    defer rc.ReleaseQuery()
//	    // query
//	}()
//
// # Memory Management
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30,
//	})
//
//	if err := rc.AcquireMemory(ix.MemoryBytes()); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops that
// always grant the request.
package resource
