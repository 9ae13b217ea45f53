package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pressline/writeflow-sdk/pkg/notify"
)

const (
	// DefaultLimit is the default number of admissions per window
	DefaultLimit = 1

	// DefaultWindow is the default rolling admission window
	DefaultWindow = time.Second
)

// Operation is a unit of work submitted to the scheduler.
type Operation func(ctx context.Context) (interface{}, error)

type outcome struct {
	value interface{}
	err   error
}

type task struct {
	ctx  context.Context
	op   Operation
	done chan outcome
}

// Scheduler serializes outbound calls and admits at most limit of them per
// rolling window. All callers share the same queue, so a burst from one
// caller delays every other caller equally. Admission order is FIFO: a
// single drain loop owns the queue head, gated by the next eligible
// admission time.
type Scheduler struct {
	clock  Clock
	limit  int
	window time.Duration

	mu         sync.Mutex
	admissions []time.Time
	queue      []*task

	wake   chan struct{}
	closed chan struct{}
	once   sync.Once
}

// New creates a scheduler with the default 1-admission-per-second window.
func New() *Scheduler {
	return NewWithOptions(DefaultLimit, DefaultWindow, SystemClock())
}

// NewWithOptions creates a scheduler with an explicit admission limit,
// window and clock.
func NewWithOptions(limit int, window time.Duration, clock Clock) *Scheduler {
	if limit < 1 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = SystemClock()
	}

	s := &Scheduler{
		clock:  clock,
		limit:  limit,
		window: window,
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}

	go s.drain()

	return s
}

// Schedule enqueues op and blocks until it has been admitted and settled.
// The operation's error is propagated to the caller unchanged; a failing
// operation still counts against the admission window and does not block
// subsequent admissions. Queued operations are never dropped.
func (s *Scheduler) Schedule(ctx context.Context, op Operation) (interface{}, error) {
	t := &task{
		ctx:  ctx,
		op:   op,
		done: make(chan outcome, 1),
	}

	s.mu.Lock()
	s.queue = append(s.queue, t)
	waiting := len(s.queue) > 1 || !s.hasCapacityLocked(s.clock.Now())
	s.mu.Unlock()

	if waiting {
		notify.Infof("request queued, waiting for rate limit")
	}

	// Signal the drain loop. The channel is buffered so a signal sent
	// while the loop is mid-pass is not lost.
	select {
	case s.wake <- struct{}{}:
	default:
	}

	out := <-t.done
	return out.value, out.err
}

// WindowCount returns the number of admissions in the trailing window,
// recomputed on demand.
func (s *Scheduler) WindowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.clock.Now())
	return len(s.admissions)
}

// QueueDepth returns the number of operations awaiting admission.
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close stops the drain loop. Operations still queued are never admitted
// after Close; it is intended for test teardown.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		close(s.closed)
	})
}

// drain is the single consumer of the queue. It admits the head task
// whenever the window has capacity and otherwise sleeps until the oldest
// admission ages out of the window.
func (s *Scheduler) drain() {
	for {
		select {
		case <-s.closed:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}

			now := s.clock.Now()
			s.evictLocked(now)

			if len(s.admissions) < s.limit {
				t := s.queue[0]
				s.queue = s.queue[1:]
				s.admissions = append(s.admissions, now)
				s.mu.Unlock()

				// Run the operation off the drain loop so a slow call
				// cannot stall the next admission past its window slot.
				go s.run(t)
				continue
			}

			// Next admission becomes eligible when the oldest timestamp
			// leaves the window.
			wait := s.admissions[0].Add(s.window).Sub(now)
			s.mu.Unlock()

			select {
			case <-s.closed:
				return
			case <-s.clock.After(wait):
			}
		}
	}
}

func (s *Scheduler) run(t *task) {
	value, err := t.op(t.ctx)
	t.done <- outcome{value: value, err: err}
}

func (s *Scheduler) hasCapacityLocked(now time.Time) bool {
	s.evictLocked(now)
	return len(s.admissions) < s.limit
}

// evictLocked drops admission timestamps older than the window. Caller
// must hold s.mu.
func (s *Scheduler) evictLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.admissions) && !s.admissions[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.admissions = append(s.admissions[:0], s.admissions[i:]...)
	}
}
