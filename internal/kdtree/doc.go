// Package kdtree implements a static 3-dimensional k-d tree over a subset of a
// point set.
//
// The tree is built once by recursive median splits with the split axis cycling
// x, y, z with depth. Nodes are stored in a flat arena and reference points by
// index; coordinates are copied into the node for locality during search.
//
// A built Tree is immutable and safe for concurrent queries.
package kdtree
