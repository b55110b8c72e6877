package octant

import (
	"fmt"

	"github.com/hupe1980/starprobe/model"
)

// Count is the number of octants around a pivot.
const Count = 8

// ID identifies one of the 8 octants around a pivot.
type ID uint8

// Of returns the octant id of p relative to pivot.
func Of(p, pivot model.Vec3) ID {
	var id ID
	if p.X < pivot.X {
		id |= 1
	}
	if p.Y < pivot.Y {
		id |= 2
	}
	if p.Z < pivot.Z {
		id |= 4
	}
	return id
}

// String returns the octant's sign pattern, e.g. "+x-y+z".
func (id ID) String() string {
	sign := func(bit ID) byte {
		if id&bit != 0 {
			return '-'
		}
		return '+'
	}
	return fmt.Sprintf("%cx%cy%cz", sign(1), sign(2), sign(4))
}

// LowerBound returns the smallest squared distance from q to any point of
// octant id. It is zero for q's own octant.
func LowerBound(q, pivot model.Vec3, id ID) float32 {
	var d float32
	for axis := range 3 {
		below := id&(1<<axis) != 0
		diff := q.Axis(axis) - pivot.Axis(axis)
		// q lies on the opposite side of the plane from the octant.
		if below != (diff < 0) {
			d += diff * diff
		}
	}
	return d
}

// Partition assigns every point index to its octant bucket in a single pass.
// The buckets partition 0..N-1 exactly.
func Partition(points model.PointSet, pivot model.Vec3) [Count][]uint32 {
	var counts [Count]int
	ids := make([]ID, points.Len())
	for i := range ids {
		ids[i] = Of(points.At(i), pivot)
		counts[ids[i]]++
	}

	var buckets [Count][]uint32
	for o := range buckets {
		buckets[o] = make([]uint32, 0, counts[o])
	}
	for i, id := range ids {
		buckets[id] = append(buckets[id], uint32(i))
	}
	return buckets
}
