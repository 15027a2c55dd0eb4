package windowed

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer records mount/unmount calls and can inject mount failures.
type fakeRenderer struct {
	mu       sync.Mutex
	mounts   []int
	unmounts []RendererHandle
	failures map[int]int // index -> remaining failures
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{failures: make(map[int]int)}
}

func (r *fakeRenderer) Mount(index int) (RendererHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures[index] > 0 {
		r.failures[index]--
		return nil, errors.New("renderer out of surfaces")
	}
	r.mounts = append(r.mounts, index)
	return fmt.Sprintf("handle-%d-%d", index, len(r.mounts)), nil
}

func (r *fakeRenderer) Unmount(handle RendererHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unmounts = append(r.unmounts, handle)
	return nil
}

func (r *fakeRenderer) mountCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mounts)
}

func windowOver(idx *ExtentIndex, scroll, viewport float64, overscan int) Window {
	return computeWindow(idx, scroll, viewport, overscan)
}

func TestReconcileMountsInitialWindow(t *testing.T) {
	t.Parallel()

	idx := NewExtentIndex(uniformExtents(10, 50))
	r := newFakeRenderer()
	p := newSlotPool(r, nil)

	rec := p.reconcile(windowOver(idx, 0, 120, 1))
	assert.Equal(t, []int{0, 1, 2}, rec.ToMount)
	assert.Empty(t, rec.ToUnmount)
	assert.Len(t, p.Slots(), 3)
}

func TestReconcileMinimality(t *testing.T) {
	t.Parallel()

	idx := NewExtentIndex(uniformExtents(100, 50))
	r := newFakeRenderer()
	p := newSlotPool(r, nil)

	p.reconcile(windowOver(idx, 0, 500, 2))

	// Shift the window by k items: at most k mounts and k unmounts,
	// retained items dominate regardless of window size.
	const k = 3
	rec := p.reconcile(windowOver(idx, k*50, 500, 2))

	assert.LessOrEqual(t, len(rec.ToMount)+len(rec.ToUnmount), 2*k)
	assert.Equal(t, []int{12, 13, 14}, rec.ToMount)
	assert.Equal(t, []int{0}, rec.ToUnmount)
}

func TestReconcileRetainsAndRepositions(t *testing.T) {
	t.Parallel()

	idx := NewExtentIndex(uniformExtents(10, 50))
	r := newFakeRenderer()
	p := newSlotPool(r, nil)

	p.reconcile(windowOver(idx, 0, 120, 1))
	mountsBefore := r.mountCount()

	// Grow an upstream item; retained items shift but stay mounted. The
	// growth pushes the last overscan item out of range.
	require.NoError(t, idx.Update(0, 90))
	rec := p.reconcile(windowOver(idx, 0, 120, 1))

	assert.Equal(t, mountsBefore, r.mountCount(), "retained items must not be remounted")
	assert.Empty(t, rec.ToMount)
	assert.Equal(t, []int{2}, rec.ToUnmount)
	require.Len(t, rec.ToReposition, 1)
	assert.Equal(t, Reposition{Index: 1, Offset: 90}, rec.ToReposition[0])
}

func TestReconcileKeyedReindex(t *testing.T) {
	t.Parallel()

	// Upstream data whose order can change while keys stay stable.
	keys := []string{"a", "b", "c", "d", "e", "f"}
	keyFn := func(index int) string { return keys[index] }

	idx := NewExtentIndex(uniformExtents(6, 50))
	r := newFakeRenderer()
	p := newSlotPool(r, keyFn)

	p.reconcile(windowOver(idx, 0, 150, 0))
	var idBefore string
	for _, s := range p.Slots() {
		if s.Key == "b" {
			idBefore = s.ID
		}
	}
	require.NotEmpty(t, idBefore)
	mountsBefore := r.mountCount()

	// Upstream reorder: "b" moves from index 1 to index 2.
	keys[1], keys[2] = keys[2], keys[1]
	rec := p.reconcile(windowOver(idx, 0, 150, 0))

	// Identity wins over position: the handle for "b" is retained and
	// reindexed, not unmounted and remounted.
	assert.Empty(t, rec.ToMount)
	assert.Empty(t, rec.ToUnmount)
	assert.Equal(t, mountsBefore, r.mountCount())
	for _, s := range p.Slots() {
		if s.Key == "b" {
			assert.Equal(t, idBefore, s.ID)
			assert.Equal(t, 2, s.Index)
		}
	}
}

func TestReconcileMountFailureRetries(t *testing.T) {
	t.Parallel()

	idx := NewExtentIndex(uniformExtents(10, 50))
	r := newFakeRenderer()
	r.failures[2] = 1
	p := newSlotPool(r, nil)

	p.reconcile(windowOver(idx, 0, 120, 1))

	// The failed slot stays in the bookkeeping as present-but-unmounted.
	require.Len(t, p.Slots(), 3)
	var failed MaterializedSlot
	for _, s := range p.Slots() {
		if s.Index == 2 {
			failed = s
		}
	}
	assert.False(t, failed.Mounted)
	assert.True(t, p.hasPendingMounts())

	// The next pass retries the mount without issuing a duplicate.
	rec := p.reconcile(windowOver(idx, 0, 120, 1))
	assert.Equal(t, []int{2}, rec.ToMount)
	assert.False(t, p.hasPendingMounts())

	mounted := 0
	for _, i := range r.mounts {
		if i == 2 {
			mounted++
		}
	}
	assert.Equal(t, 1, mounted)
}

func TestReconcileUnmountsOnShrink(t *testing.T) {
	t.Parallel()

	idx := NewExtentIndex(uniformExtents(20, 50))
	r := newFakeRenderer()
	p := newSlotPool(r, nil)

	p.reconcile(windowOver(idx, 0, 500, 0))
	require.Len(t, p.Slots(), 10)

	rec := p.reconcile(windowOver(idx, 0, 100, 0))
	assert.Len(t, rec.ToUnmount, 8)
	assert.Len(t, p.Slots(), 2)
	assert.Len(t, r.unmounts, 8)
}

func TestPoolRemoveIndex(t *testing.T) {
	t.Parallel()

	idx := NewExtentIndex(uniformExtents(10, 50))
	r := newFakeRenderer()
	p := newSlotPool(r, nil)

	p.reconcile(windowOver(idx, 0, 250, 0))
	require.Len(t, p.Slots(), 5)

	p.removeIndex(2)

	slots := p.Slots()
	require.Len(t, slots, 4)
	assert.Len(t, r.unmounts, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, []int{slots[0].Index, slots[1].Index, slots[2].Index, slots[3].Index})
}

func TestPoolInsertIndex(t *testing.T) {
	t.Parallel()

	idx := NewExtentIndex(uniformExtents(10, 50))
	p := newSlotPool(newFakeRenderer(), nil)

	p.reconcile(windowOver(idx, 0, 250, 0))
	p.insertIndex(1)

	slots := p.Slots()
	require.Len(t, slots, 5)
	indices := make([]int, len(slots))
	for i, s := range slots {
		indices[i] = s.Index
	}
	assert.Equal(t, []int{0, 2, 3, 4, 5}, indices)
}

func TestPoolClear(t *testing.T) {
	t.Parallel()

	idx := NewExtentIndex(uniformExtents(10, 50))
	r := newFakeRenderer()
	p := newSlotPool(r, nil)

	p.reconcile(windowOver(idx, 0, 250, 0))
	p.clear()

	assert.Empty(t, p.Slots())
	assert.Len(t, r.unmounts, 5)
}
