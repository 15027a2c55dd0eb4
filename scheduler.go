package windowed

import (
	"sync"
	"time"
)

// TickSource delivers display refresh ticks to the scroll scheduler.
type TickSource interface {
	Ticks() <-chan time.Time
	Stop()
}

// NewFrameTicker returns a TickSource firing at the given frames per second.
func NewFrameTicker(fps int) TickSource {
	if fps <= 0 {
		fps = defaultFrameRate
	}
	return &frameTicker{
		ticker: time.NewTicker(time.Second / time.Duration(fps)),
	}
}

type frameTicker struct {
	ticker *time.Ticker
}

func (f *frameTicker) Ticks() <-chan time.Time { return f.ticker.C }
func (f *frameTicker) Stop()                   { f.ticker.Stop() }

// scheduler coalesces a burst of scroll-position updates into at most one
// recompute per display refresh tick. It is a two-state machine: idle, and
// recompute-scheduled. A scroll update while scheduled overwrites the pending
// target offset; only the most recent offset before the tick fires is used.
type scheduler struct {
	mu      sync.Mutex
	pending bool
	offset  float64

	src  TickSource
	run  func(offset float64)
	quit chan struct{}
	done chan struct{}
}

func newScheduler(src TickSource, run func(float64)) *scheduler {
	return &scheduler{
		src: src,
		run: run,
	}
}

// start spins up the tick loop. Starting an already running scheduler is a
// no-op, and a stopped scheduler can be started again.
func (s *scheduler) start() {
	s.mu.Lock()
	if s.quit != nil {
		s.mu.Unlock()
		return
	}
	quit := make(chan struct{})
	done := make(chan struct{})
	s.quit = quit
	s.done = done
	s.mu.Unlock()
	go s.loop(quit, done)
}

func (s *scheduler) loop(quit chan struct{}, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		case <-s.src.Ticks():
			s.flush()
		}
	}
}

// notify records a new target offset and transitions to recompute-scheduled.
func (s *scheduler) notify(offset float64) {
	s.mu.Lock()
	s.offset = offset
	s.pending = true
	s.mu.Unlock()
}

// schedule requests a recompute at the last known offset, without changing it.
func (s *scheduler) schedule() {
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
}

// flush runs one recompute pass if one is pending and transitions back to
// idle. The run callback executes outside the scheduler lock so it may
// schedule again.
func (s *scheduler) flush() {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	offset := s.offset
	s.mu.Unlock()
	s.run(offset)
}

// stop cancels the pending tick so it cannot fire into a torn-down engine.
// It blocks until the scheduler goroutine has exited. The tick source stays
// alive, so start may be called again.
func (s *scheduler) stop() {
	s.mu.Lock()
	quit, done := s.quit, s.done
	s.quit, s.done = nil, nil
	s.pending = false
	s.mu.Unlock()
	if quit != nil {
		close(quit)
		<-done
	}
}

// shutdown stops the scheduler and releases the tick source for good.
func (s *scheduler) shutdown() {
	s.stop()
	if s.src != nil {
		s.src.Stop()
	}
}
