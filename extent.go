package windowed

import (
	"fmt"
	"math/bits"
	"slices"
)

// ExtentIndex is an incremental prefix-sum structure over per-item extents.
// It answers "offset of item i" and "item at offset o" in O(log n) and
// supports single-item extent updates without rebuilding. Structural changes
// (insert/remove) rebuild the cumulative tree in O(n).
type ExtentIndex struct {
	extents []float64
	tree    []float64 // Fenwick tree, 1-based
}

// NewExtentIndex builds an index over the given extents. The slice is copied.
func NewExtentIndex(extents []float64) *ExtentIndex {
	idx := &ExtentIndex{
		extents: slices.Clone(extents),
	}
	idx.rebuild()
	return idx
}

// Len returns the number of items.
func (x *ExtentIndex) Len() int {
	return len(x.extents)
}

// Extent returns the stored extent of one item.
func (x *ExtentIndex) Extent(index int) (float64, error) {
	if index < 0 || index >= len(x.extents) {
		return 0, fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfRange, index, len(x.extents))
	}
	return x.extents[index], nil
}

// Update replaces the extent of one item in O(log n), leaving all prefix
// sums consistent on return.
func (x *ExtentIndex) Update(index int, extent float64) error {
	if index < 0 || index >= len(x.extents) {
		return fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfRange, index, len(x.extents))
	}
	if extent < 0 {
		extent = 0
	}
	delta := extent - x.extents[index]
	if delta == 0 {
		return nil
	}
	x.extents[index] = extent
	for i := index + 1; i <= len(x.extents); i += i & -i {
		x.tree[i] += delta
	}
	return nil
}

// PrefixSum returns the sum of extents of items strictly before index, so
// PrefixSum(0) == 0 and PrefixSum(Len()) == Total().
func (x *ExtentIndex) PrefixSum(index int) float64 {
	if index < 0 {
		return 0
	}
	if index > len(x.extents) {
		index = len(x.extents)
	}
	var sum float64
	for i := index; i > 0; i -= i & -i {
		sum += x.tree[i]
	}
	return sum
}

// Total returns the sum of all extents.
func (x *ExtentIndex) Total() float64 {
	return x.PrefixSum(len(x.extents))
}

// Locate returns the index i such that PrefixSum(i) <= offset < PrefixSum(i+1).
// Zero-extent items collapse to a point in offset space and are skipped, so
// the result is always the lowest index whose half-open range contains the
// offset. Offsets at or past the total extent clamp to the last index, since
// a scroll position may transiently exceed total content size. Returns -1 for
// an empty index.
func (x *ExtentIndex) Locate(offset float64) int {
	n := len(x.extents)
	if n == 0 {
		return -1
	}
	if offset <= 0 {
		// Skip leading zero-extent items.
		for i, e := range x.extents {
			if e > 0 {
				return i
			}
		}
		return 0
	}
	// Descend over the cumulative tree: find the largest pos with
	// PrefixSum(pos) <= offset.
	pos := 0
	rem := offset
	for pw := 1 << (bits.Len(uint(n))); pw > 0; pw >>= 1 {
		next := pos + pw
		if next <= n && x.tree[next] <= rem {
			rem -= x.tree[next]
			pos = next
		}
	}
	return min(pos, n-1)
}

// Insert adds an item at index, shifting the rest up. Offsets of items below
// the insertion point are preserved. Valid insertion points are [0, Len()].
func (x *ExtentIndex) Insert(index int, extent float64) error {
	if index < 0 || index > len(x.extents) {
		return fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfRange, index, len(x.extents))
	}
	if extent < 0 {
		extent = 0
	}
	x.extents = slices.Insert(x.extents, index, extent)
	x.rebuild()
	return nil
}

// Remove deletes the item at index, shifting the rest down.
func (x *ExtentIndex) Remove(index int) error {
	if index < 0 || index >= len(x.extents) {
		return fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfRange, index, len(x.extents))
	}
	x.extents = slices.Delete(x.extents, index, index+1)
	x.rebuild()
	return nil
}

func (x *ExtentIndex) rebuild() {
	n := len(x.extents)
	x.tree = make([]float64, n+1)
	for i := 1; i <= n; i++ {
		x.tree[i] += x.extents[i-1]
		if j := i + (i & -i); j <= n {
			x.tree[j] += x.tree[i]
		}
	}
}
