package workflow

import (
	"sync"
	"time"

	"github.com/pressline/writeflow-sdk/pkg/gate"
)

// Stats tracks usage metrics for one step, populated incrementally: input
// length at submission, output length and duration at completion.
type Stats struct {
	InputLen  int
	OutputLen int
	Duration  time.Duration
}

// Step wraps one workflow stage with its approval gate, usage stats and
// completion flag. Steps do not know their position; the machine owns
// indices.
type Step struct {
	Key   string
	Title string
	Stage Stage
	Gate  *gate.Gate

	mu        sync.Mutex
	stats     Stats
	completed bool
	callStart time.Time
}

// NewStep creates a step around a stage.
func NewStep(stage Stage) *Step {
	return &Step{
		Key:   stage.Key(),
		Title: stage.Title(),
		Stage: stage,
		Gate:  gate.New(),
	}
}

// Stats returns a snapshot of the step's usage metrics.
func (s *Step) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Completed reports the completion flag.
func (s *Step) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *Step) beginCall(inputLen int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{InputLen: inputLen}
	s.callStart = now
}

func (s *Step) finishCall(outputLen int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.OutputLen = outputLen
	if !s.callStart.IsZero() {
		s.stats.Duration = now.Sub(s.callStart)
	}
}

func (s *Step) setCompleted(completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = completed
}

// Machine sequences the ordered steps. Completion of step i reveals step
// i+1; retry on step i resets steps i..n-1. The machine imposes ordering
// only through visibility; data dependencies are each stage's own
// concern.
type Machine struct {
	mu    sync.Mutex
	steps []*Step
}

// NewMachine creates a machine over the given steps, in order.
func NewMachine(steps ...*Step) *Machine {
	return &Machine{steps: steps}
}

// Len returns the number of steps.
func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

// Step returns the step at i, or nil when out of range.
func (m *Machine) Step(i int) *Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.steps) {
		return nil
	}
	return m.steps[i]
}

// Visible reports whether step i is rendered: i == 0 or all prior steps
// complete. Hidden steps run no stage logic.
func (m *Machine) Visible(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visibleLocked(i)
}

func (m *Machine) visibleLocked(i int) bool {
	if i < 0 || i >= len(m.steps) {
		return false
	}
	for j := 0; j < i; j++ {
		if !m.steps[j].Completed() {
			return false
		}
	}
	return true
}

// VisibleSteps returns the currently rendered prefix of steps.
func (m *Machine) VisibleSteps() []*Step {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Step, 0, len(m.steps))
	for i := range m.steps {
		if !m.visibleLocked(i) {
			break
		}
		out = append(out, m.steps[i])
	}
	return out
}

// Frontier returns the index of the first incomplete step, or Len() when
// every step is complete.
func (m *Machine) Frontier() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.steps {
		if !s.Completed() {
			return i
		}
	}
	return len(m.steps)
}

// Complete sets step i's completion flag, revealing step i+1. Idempotent
// when already complete. Completion is only ever invoked by stage logic;
// the machine never infers it from data.
func (m *Machine) Complete(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.steps) {
		return
	}
	m.steps[i].setCompleted(true)
}

// Retry clears completion for steps i..n-1, deliberately discarding
// downstream completion state even when artifacts are still cached in the
// workflow context: whatever re-runs must re-request approval. Each reset
// step's gate is also reset so an in-flight settlement for a superseded
// attempt is discarded.
func (m *Machine) Retry(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 {
		i = 0
	}
	for j := i; j < len(m.steps); j++ {
		m.steps[j].setCompleted(false)
		m.steps[j].Gate.Reset()
	}
}
