// Package fs provides the filesystem seam used by catalog files, with fault
// injection for tests.
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test wrapper that fails opens, writes, syncs, closes or renames
//
// [WriteAtomic] writes through a temporary file and renames it into place, so
// a failed write never leaves a truncated catalog behind.
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp", fs.Fault{FailAfterBytes: 1024})
//	// inject ffs into component under test
package fs
