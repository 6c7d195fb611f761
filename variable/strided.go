package variable

import (
	"github.com/dimarray/dimarray/types/dims"
)

// stridedIndex walks the flat indices of a buffer laid out as `parent`
// dimensions, in the lexicographic order of `target` dimensions
// (outermost axis varies slowest). It realizes four transforms at
// once:
//
//   - projection: target has fewer axes than parent (the missing axes
//     stay fixed at the base offset),
//   - broadcast: target has axes absent from parent (stride 0),
//   - sub-block: target extent smaller than the parent extent,
//   - reorder: target lists axes in a different order.
type stridedIndex struct {
	flat    int
	extents []int
	strides []int
	cursor  []int
	length  int
	base    int
}

// newStridedIndex builds the iterator for a buffer laid out as parent,
// traversed as target, starting at flat element offset base.
//
// Construction fails when target has a non-broadcast axis whose extent
// exceeds the parent extent of that axis.
func newStridedIndex(parent, target dims.Dimensions, base int) (*stridedIndex, error) {
	rank := target.Rank()
	it := &stridedIndex{
		flat:    base,
		base:    base,
		extents: make([]int, rank),
		strides: make([]int, rank),
		cursor:  make([]int, rank),
		length:  1,
	}
	for i, label := range target.Labels() {
		extent := target.Extents()[i]
		it.extents[i] = extent
		if parent.Contains(label) {
			if extent > parent.Extent(label) {
				return nil, &DimensionError{
					Expected: parent,
					Actual:   target,
					Msg: "expected view dimensions " + target.String() +
						" to fit into " + parent.String(),
				}
			}
			it.strides[i] = parent.Stride(label)
		}
		// Absent axes broadcast with stride 0.
		it.length *= extent
	}
	return it, nil
}

// Length returns the number of elements yielded, target.Volume().
func (it *stridedIndex) Length() int { return it.length }

// Next returns the current flat index and advances the cursor,
// carrying from the innermost axis outwards when an axis wraps.
func (it *stridedIndex) Next() int {
	flat := it.flat
	for axis := len(it.cursor) - 1; axis >= 0; axis-- {
		it.cursor[axis]++
		it.flat += it.strides[axis]
		if it.cursor[axis] < it.extents[axis] {
			return flat
		}
		it.cursor[axis] = 0
		it.flat -= it.strides[axis] * it.extents[axis]
	}
	return flat
}

// Reset rewinds the iterator to the base offset.
func (it *stridedIndex) Reset() {
	it.flat = it.base
	for i := range it.cursor {
		it.cursor[i] = 0
	}
}
