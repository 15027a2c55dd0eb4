package windowed

import (
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/charmbracelet/windowed/internal/csync"
	"github.com/google/uuid"
)

// RendererHandle is an opaque reference to a mounted item, owned by the
// external renderer. The pool only holds the reference, never the rendered
// object itself.
type RendererHandle any

// Renderer mounts and unmounts the visual representation of items. The
// renderer is expected to measure mounted items after layout and report the
// result through Engine.ReportMeasured.
type Renderer interface {
	Mount(index int) (RendererHandle, error)
	Unmount(handle RendererHandle) error
}

// Reposition records a retained item whose absolute offset changed.
type Reposition struct {
	Index  int
	Offset float64
}

// Reconciliation is the minimal sequence of operations that brings the set
// of materialized slots in line with a newly computed window. Items present
// in both the previous and new range are retained and at most repositioned.
type Reconciliation struct {
	ToMount      []int
	ToUnmount    []int
	ToReposition []Reposition
}

// MaterializedSlot describes one materialized item for inspection.
type MaterializedSlot struct {
	ID      string
	Index   int
	Key     string
	Handle  RendererHandle
	Mounted bool
}

type slot struct {
	id      string
	key     string
	index   int
	offset  float64
	handle  RendererHandle
	mounted bool
}

// slotPool diffs each newly computed window against the previously
// materialized range, keyed by stable item identity so that scrolling does
// not destroy and recreate items that remain visible or near-visible.
type slotPool struct {
	mu       sync.Mutex
	renderer Renderer
	keyFn    func(int) string
	slots    *csync.Map[string, *slot]
}

func newSlotPool(renderer Renderer, keyFn func(int) string) *slotPool {
	if keyFn == nil {
		keyFn = func(index int) string { return strconv.Itoa(index) }
	}
	return &slotPool{
		renderer: renderer,
		keyFn:    keyFn,
		slots:    csync.NewMap[string, *slot](),
	}
}

// reconcile brings the pool in line with the new window. Identity (key)
// takes precedence over position: when the same key maps to a different
// index than before, the slot is retained and reindexed rather than
// unmounted and remounted.
func (p *slotPool) reconcile(w Window) Reconciliation {
	p.mu.Lock()
	defer p.mu.Unlock()

	var rec Reconciliation

	desired := make(map[string]int)
	if !w.Empty() {
		for i := w.Start; i <= w.End; i++ {
			desired[p.keyFn(i)] = i
		}
	}

	for key, s := range p.slots.Seq2() {
		newIndex, keep := desired[key]
		if !keep {
			rec.ToUnmount = append(rec.ToUnmount, s.index)
			p.unmount(s)
			continue
		}
		delete(desired, key)
		s.index = newIndex
		if off := w.Offsets[newIndex]; off != s.offset {
			s.offset = off
			rec.ToReposition = append(rec.ToReposition, Reposition{Index: newIndex, Offset: off})
		}
		if !s.mounted {
			// A failed mount from an earlier pass; the slot stayed in the
			// bookkeeping so this is a retry, never a duplicate mount.
			rec.ToMount = append(rec.ToMount, newIndex)
			p.mount(s)
		}
	}

	for key, index := range desired {
		s := &slot{
			id:     uuid.NewString(),
			key:    key,
			index:  index,
			offset: w.Offsets[index],
		}
		p.slots.Set(key, s)
		rec.ToMount = append(rec.ToMount, index)
		p.mount(s)
	}

	slices.Sort(rec.ToMount)
	slices.Sort(rec.ToUnmount)
	slices.SortFunc(rec.ToReposition, func(a, b Reposition) int { return a.Index - b.Index })
	return rec
}

func (p *slotPool) mount(s *slot) {
	if p.renderer == nil {
		s.mounted = true
		return
	}
	handle, err := p.renderer.Mount(s.index)
	if err != nil {
		slog.Warn("Mount failed, will retry next pass", "index", s.index, "key", s.key, "error", err)
		s.mounted = false
		s.handle = nil
		return
	}
	s.handle = handle
	s.mounted = true
}

func (p *slotPool) unmount(s *slot) {
	p.slots.Del(s.key)
	if p.renderer == nil || !s.mounted {
		return
	}
	if err := p.renderer.Unmount(s.handle); err != nil {
		slog.Warn("Unmount failed", "index", s.index, "key", s.key, "error", err)
	}
	s.mounted = false
	s.handle = nil
}

// removeIndex drops the slot materialized at index, if any, and shifts the
// bookkeeping of slots above it down by one. Called on structural removal.
func (p *slotPool) removeIndex(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var shifted []*slot
	for _, s := range p.slots.Seq2() {
		switch {
		case s.index == index:
			p.unmount(s)
		case s.index > index:
			shifted = append(shifted, s)
		}
	}
	// Shift lowest-first so a slot never takes a key another slot still holds.
	slices.SortFunc(shifted, func(a, b *slot) int { return a.index - b.index })
	for _, s := range shifted {
		p.reindex(s, s.index-1)
	}
}

// insertIndex shifts the bookkeeping of slots at or above index up by one.
// Called on structural insertion; the new item itself is materialized by the
// next reconcile pass.
func (p *slotPool) insertIndex(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var shifted []*slot
	for _, s := range p.slots.Seq2() {
		if s.index >= index {
			shifted = append(shifted, s)
		}
	}
	// Shift highest-first, mirroring removeIndex.
	slices.SortFunc(shifted, func(a, b *slot) int { return b.index - a.index })
	for _, s := range shifted {
		p.reindex(s, s.index+1)
	}
}

func (p *slotPool) reindex(s *slot, newIndex int) {
	p.slots.Del(s.key)
	s.index = newIndex
	s.key = p.keyFn(newIndex)
	p.slots.Set(s.key, s)
}

// truncate unmounts every slot at or above count. Called when the
// collection shrinks wholesale.
func (p *slotPool) truncate(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots.Seq2() {
		if s.index >= count {
			p.unmount(s)
		}
	}
}

// hasPendingMounts reports whether any slot is waiting on a mount retry.
func (p *slotPool) hasPendingMounts() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots.Seq2() {
		if !s.mounted {
			return true
		}
	}
	return false
}

// clear unmounts everything. Called on engine teardown.
func (p *slotPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots.Seq2() {
		p.unmount(s)
	}
}

// Slots returns a snapshot of the materialized slots, ordered by index.
func (p *slotPool) Slots() []MaterializedSlot {
	out := make([]MaterializedSlot, 0, p.slots.Len())
	for _, s := range p.slots.Seq2() {
		out = append(out, MaterializedSlot{
			ID:      s.id,
			Index:   s.index,
			Key:     s.key,
			Handle:  s.handle,
			Mounted: s.mounted,
		})
	}
	slices.SortFunc(out, func(a, b MaterializedSlot) int { return a.Index - b.Index })
	return out
}
