// Package model defines core types used throughout starprobe.
//
// # Coordinates
//
//   - Vec3: a point in the index's native coordinate space (float32 per axis)
//   - r3.Vector: display/world coordinates, converted with FromVector / Vec3.Vector
//
// # Data Types
//
//   - PointSet: an immutable, axis-major collection of points; the point index
//     0..Len()-1 is the stable identity of every point
//   - SearchResult: point index plus squared distance, with the NoResult sentinel
//
// # Building a point set
//
//	ps, err := model.NewPointSet(xs, ys, zs)
//	if err != nil {
//	    // mismatched axis lengths
//	}
//	center := ps.Centroid()
package model
