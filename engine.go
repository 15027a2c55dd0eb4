// Package windowed implements a viewport windowing engine: given an ordered
// collection of items of estimated or measured extent, a viewport size, and a
// scroll offset, it determines which contiguous index range must be
// materialized, where each materialized item sits, and how to reconcile that
// range against the previously materialized one with minimal churn.
package windowed

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Engine ties the extent index, window calculator, scroll scheduler, slot
// pool, and measurement feedback loop together. All methods are safe for
// concurrent use; window computation always observes a consistent snapshot
// of the extent index.
type Engine struct {
	*confOptions

	// passMu serializes recompute passes against structural mutations, so a
	// tick can never reconcile a window computed from a mutated index against
	// a pool whose slot indices have not been shifted yet. Renderer callbacks
	// re-entering the engine take mu only, never passMu.
	passMu sync.Mutex

	mu        sync.Mutex
	index     *ExtentIndex
	measured  []bool
	window    Window
	hasWindow bool
	scroll    float64
	closed    bool

	pool  *slotPool
	sched *scheduler
}

// New creates an engine over count items. Extents start estimated, using the
// configured estimator, and transition to measured through ReportMeasured.
func New(count int, opts ...Option) *Engine {
	o := &confOptions{
		overscan:  defaultOverscan,
		epsilon:   defaultEpsilon,
		frameRate: defaultFrameRate,
		estimate:  func(int) float64 { return defaultEstimateExtent },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.estimate == nil {
		o.estimate = func(int) float64 { return defaultEstimateExtent }
	}
	if o.overscan < 0 {
		o.overscan = 0
	}
	if count < 0 {
		count = 0
	}

	extents := make([]float64, count)
	for i := range extents {
		extents[i] = o.estimate(i)
	}

	e := &Engine{
		confOptions: o,
		index:       NewExtentIndex(extents),
		measured:    make([]bool, count),
		pool:        newSlotPool(o.renderer, o.keyFn),
	}
	e.sched = newScheduler(o.ticks, e.recomputeAt)
	return e
}

// Start begins processing scroll updates, one recompute per display refresh
// tick, and schedules an initial window at the current offset.
func (e *Engine) Start() {
	if e.sched.src == nil {
		e.sched.src = NewFrameTicker(e.frameRate)
	}
	e.sched.start()
	e.sched.schedule()
}

// Stop cancels any pending recompute tick and halts scroll processing. A
// stopped engine can be started again with Start.
func (e *Engine) Stop() {
	e.sched.stop()
}

// Close tears the engine down: the pending tick is cancelled so it cannot
// fire into a destroyed pool, and every materialized slot is unmounted.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.sched.shutdown()
	e.pool.clear()
}

// NotifyScroll records a new scroll offset. Bursts of calls are coalesced:
// only the most recent offset before the next tick is ever computed.
func (e *Engine) NotifyScroll(offset float64) {
	if offset < 0 {
		offset = 0
	}
	e.sched.notify(offset)
}

// Axis returns the configured scrolling axis. The engine's arithmetic is
// axis-agnostic; the axis tells the caller whether extents are heights or
// widths.
func (e *Engine) Axis() Axis {
	return e.axis
}

// Count returns the number of items.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Len()
}

// TotalExtent returns the total content size along the scrolling axis, for
// scrollbar and track sizing.
func (e *Engine) TotalExtent() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Total()
}

// ScrollOffset returns the offset the current window was computed at.
func (e *Engine) ScrollOffset() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scroll
}

// Window returns a copy of the most recently computed window.
func (e *Engine) Window() Window {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.window
	w.Offsets = maps.Clone(w.Offsets)
	return w
}

// Slots returns a snapshot of the currently materialized slots.
func (e *Engine) Slots() []MaterializedSlot {
	return e.pool.Slots()
}

// SetViewportSize updates the visible viewport size and schedules a
// recompute.
func (e *Engine) SetViewportSize(size float64) {
	e.mu.Lock()
	e.viewport = size
	e.mu.Unlock()
	e.sched.schedule()
}

// ScrollToIndex returns the scroll offset that places the item at index
// according to align. The offset is derived from the item's absolute
// position; it is not applied — feed it to NotifyScroll or the caller's own
// scroll mechanism.
func (e *Engine) ScrollToIndex(index int, align Align) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrEngineClosed
	}
	if index < 0 || index >= e.index.Len() {
		return 0, fmt.Errorf("%w: scroll to index %d, len %d", ErrIndexOutOfRange, index, e.index.Len())
	}
	start := e.index.PrefixSum(index)
	ext, _ := e.index.Extent(index)

	var target float64
	switch align {
	case AlignCenter:
		target = start - (e.viewport-ext)/2
	case AlignEnd:
		target = start - e.viewport + ext
	default:
		target = start
	}
	return max(0, target), nil
}

// ReportMeasured feeds an externally measured extent back into the index.
// Changes within epsilon only flip the item to measured; larger changes are
// written through and, when the item sits at or before the end of the
// current window, a recompute is scheduled since a correction upstream of
// the viewport shifts everything below it.
func (e *Engine) ReportMeasured(index int, actual float64) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	stored, err := e.index.Extent(index)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.measured[index] = true

	diff := actual - stored
	if diff < 0 {
		diff = -diff
	}
	if diff <= e.epsilon {
		e.mu.Unlock()
		return nil
	}
	if err := e.index.Update(index, actual); err != nil {
		e.mu.Unlock()
		return err
	}
	rewindow := e.hasWindow && index <= e.window.End
	e.mu.Unlock()

	slog.Debug("Measured extent recorded", "index", index, "extent", actual, "rewindow", rewindow)
	if rewindow {
		e.sched.schedule()
	}
	return nil
}

// IsMeasured reports whether the item's extent has been measured.
func (e *Engine) IsMeasured(index int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.measured) {
		return false, fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfRange, index, len(e.measured))
	}
	return e.measured[index], nil
}

// ResetEstimate reverts an item to its estimated extent, for callers whose
// item content changed and should be re-measured.
func (e *Engine) ResetEstimate(index int) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if index < 0 || index >= e.index.Len() {
		e.mu.Unlock()
		return fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfRange, index, e.index.Len())
	}
	if err := e.index.Update(index, e.estimate(index)); err != nil {
		e.mu.Unlock()
		return err
	}
	e.measured[index] = false
	rewindow := e.hasWindow && index <= e.window.End
	e.mu.Unlock()
	if rewindow {
		e.sched.schedule()
	}
	return nil
}

// InsertItem adds an item at index with an estimated extent, shifting items
// at and above index up by one. Offsets of items below the insertion point
// are preserved. The recompute is deferred to the next tick, after the
// mutation has completed.
func (e *Engine) InsertItem(index int) error {
	e.passMu.Lock()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.passMu.Unlock()
		return ErrEngineClosed
	}
	if err := e.index.Insert(index, e.estimate(index)); err != nil {
		e.mu.Unlock()
		e.passMu.Unlock()
		return err
	}
	e.measured = slices.Insert(e.measured, index, false)
	e.mu.Unlock()

	e.pool.insertIndex(index)
	e.passMu.Unlock()
	e.sched.schedule()
	return nil
}

// RemoveItem deletes the item at index, shifting items above it down by one
// and reducing the total extent by the removed item's extent. Any
// materialized slot for the removed index is unmounted.
func (e *Engine) RemoveItem(index int) error {
	e.passMu.Lock()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.passMu.Unlock()
		return ErrEngineClosed
	}
	if err := e.index.Remove(index); err != nil {
		e.mu.Unlock()
		e.passMu.Unlock()
		return err
	}
	e.measured = slices.Delete(e.measured, index, index+1)
	e.mu.Unlock()

	e.pool.removeIndex(index)
	e.passMu.Unlock()
	e.sched.schedule()
	return nil
}

// SetCount resizes the collection wholesale. Existing extents and measured
// states survive for indices below the new count; new items start estimated.
func (e *Engine) SetCount(count int) error {
	if count < 0 {
		count = 0
	}
	e.passMu.Lock()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.passMu.Unlock()
		return ErrEngineClosed
	}
	old := e.index.Len()
	extents := make([]float64, count)
	measured := make([]bool, count)
	for i := range extents {
		if i < old {
			extents[i], _ = e.index.Extent(i)
			measured[i] = e.measured[i]
		} else {
			extents[i] = e.estimate(i)
		}
	}
	e.index = NewExtentIndex(extents)
	e.measured = measured
	e.mu.Unlock()

	e.pool.truncate(count)
	e.passMu.Unlock()
	e.sched.schedule()
	return nil
}

// recomputeAt runs one window calculator pass at the given scroll offset.
// Invoked by the scheduler, at most once per tick.
func (e *Engine) recomputeAt(offset float64) {
	e.passMu.Lock()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.passMu.Unlock()
		return
	}
	e.scroll = offset
	w := computeWindow(e.index, offset, e.viewport, e.overscan)
	changed := !e.hasWindow || !w.Equal(e.window)
	e.window = w
	e.hasWindow = true
	e.mu.Unlock()

	if !changed && !e.pool.hasPendingMounts() {
		e.passMu.Unlock()
		return
	}

	rec := e.pool.reconcile(w)
	e.passMu.Unlock()
	slog.Debug("Window recomputed",
		"offset", offset,
		"start", w.Start, "end", w.End,
		"mount", len(rec.ToMount), "unmount", len(rec.ToUnmount), "reposition", len(rec.ToReposition))

	if changed && e.onWindow != nil {
		wc := w
		wc.Offsets = maps.Clone(w.Offsets)
		e.onWindow(wc)
	}
}
