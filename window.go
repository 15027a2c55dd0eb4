package windowed

// Window is the contiguous index range that must be materialized to cover
// the viewport plus the overscan margin. Start and End are inclusive and
// include overscan; OverscanStart and OverscanEnd are the number of overscan
// items applied at each edge, so the strictly visible range is
// [Start+OverscanStart, End-OverscanEnd].
type Window struct {
	Start         int
	End           int
	OverscanStart int
	OverscanEnd   int

	// Offsets maps each index in [Start, End] to its absolute start
	// position along the scrolling axis.
	Offsets map[int]float64
}

// Empty reports whether the window contains no items.
func (w Window) Empty() bool {
	return len(w.Offsets) == 0
}

// Contains reports whether index lies inside the materialized range.
func (w Window) Contains(index int) bool {
	return !w.Empty() && index >= w.Start && index <= w.End
}

// Equal reports whether two windows cover the same range with the same
// offsets.
func (w Window) Equal(other Window) bool {
	if w.Empty() && other.Empty() {
		return true
	}
	if w.Start != other.Start || w.End != other.End ||
		w.OverscanStart != other.OverscanStart || w.OverscanEnd != other.OverscanEnd ||
		len(w.Offsets) != len(other.Offsets) {
		return false
	}
	for i, off := range w.Offsets {
		if o, ok := other.Offsets[i]; !ok || o != off {
			return false
		}
	}
	return true
}

// computeWindow determines the target index range for the given scroll
// position. The first visible item is located at the scroll offset; the last
// visible item is the highest index that ends at or before the far viewport
// edge, found by a second Locate rather than a linear scan. Items that only
// partially enter at the far edge are covered by overscan.
func computeWindow(idx *ExtentIndex, scrollOffset, viewportSize float64, overscan int) Window {
	n := idx.Len()
	if n == 0 {
		return Window{}
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}
	if viewportSize < 0 {
		viewportSize = 0
	}
	// Malformed overscan degrades to no margin rather than failing; it only
	// affects the prefetch margin, not correctness.
	if overscan < 0 {
		overscan = 0
	}

	firstVisible := idx.Locate(scrollOffset)
	edge := scrollOffset + viewportSize

	var lastVisible int
	if edge >= idx.Total() {
		lastVisible = n - 1
	} else {
		// Locate gives the item containing the edge; that item starts before
		// the edge but does not end within it.
		lastVisible = max(firstVisible, idx.Locate(edge)-1)
	}

	start := max(0, firstVisible-overscan)
	end := min(n-1, lastVisible+overscan)

	offsets := make(map[int]float64, end-start+1)
	off := idx.PrefixSum(start)
	for i := start; i <= end; i++ {
		offsets[i] = off
		ext, _ := idx.Extent(i)
		off += ext
	}

	return Window{
		Start:         start,
		End:           end,
		OverscanStart: firstVisible - start,
		OverscanEnd:   end - lastVisible,
		Offsets:       offsets,
	}
}
