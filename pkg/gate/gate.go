// Package gate implements the approval handshake that sits in front of
// every AI call: a proposed prompt is surfaced for user edit/approval
// before the underlying call executes.
package gate

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// State represents the state of the gate's live request
type State string

const (
	// StateIdle indicates no active request
	StateIdle State = "idle"

	// StateProposed indicates a prompt has been suggested and is editable
	StateProposed State = "proposed"

	// StateProcessing indicates the prompt was approved and the call is
	// in flight
	StateProcessing State = "processing"

	// StateResolved indicates the call has settled, with final text or
	// an error-prefixed message
	StateResolved State = "resolved"
)

// AwaitingResponse is the placeholder response shown while a call is in
// flight.
const AwaitingResponse = "awaiting response"

// ErrNotApprovable is returned when Approve is called without a live
// proposed request (already approved, already resolved, or never
// proposed).
var ErrNotApprovable = errors.New("gate: no proposed request to approve")

// ErrPromptFrozen is returned when editing a prompt after approval.
var ErrPromptFrozen = errors.New("gate: prompt is frozen after approval")

// Request is the live approval request. Exactly one exists per gate at a
// time; proposing a new one overwrites the prior.
type Request struct {
	ID        string
	Prompt    string
	Processed bool
	Response  string

	// Failed reports whether the resolved call settled with an error
	Failed bool
}

// CallFunc is the underlying generation call dispatched on approval. It
// receives the frozen prompt.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// DoneFunc observes the settlement of an approved call. It is not invoked
// for settlements that arrive after the gate was reset.
type DoneFunc func(response string, err error)

// Gate is the per-step approval state machine. Every dispatched call is
// tagged with the gate's attempt counter; Reset advances the counter so a
// stale settlement cannot overwrite reset state.
type Gate struct {
	mu      sync.Mutex
	state   State
	current *Request
	attempt int
}

// New creates an idle gate.
func New() *Gate {
	return &Gate{state: StateIdle}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Current returns a snapshot of the live request, or nil when idle.
func (g *Gate) Current() *Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return nil
	}
	snapshot := *g.current
	return &snapshot
}

// Propose surfaces a prompt for edit/approval, overwriting any prior
// request.
func (g *Gate) Propose(prompt string) *Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.attempt++
	g.current = &Request{
		ID:     uuid.NewString(),
		Prompt: prompt,
	}
	g.state = StateProposed

	snapshot := *g.current
	return &snapshot
}

// EditPrompt updates the proposed prompt. Edits are free before approval
// and rejected afterwards.
func (g *Gate) EditPrompt(prompt string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateProposed || g.current == nil {
		return ErrPromptFrozen
	}
	g.current.Prompt = prompt
	return nil
}

// Approve freezes the prompt (replaced by edited when non-empty), moves
// the request to Processing synchronously, then dispatches call
// asynchronously. On settlement the request resolves with the final text,
// or with an error-prefixed message on failure; done observes the
// settlement unless the gate was reset in the meantime.
func (g *Gate) Approve(ctx context.Context, edited string, call CallFunc, done DoneFunc) error {
	g.mu.Lock()
	if g.state != StateProposed || g.current == nil {
		g.mu.Unlock()
		return ErrNotApprovable
	}

	if edited != "" {
		g.current.Prompt = edited
	}
	g.current.Processed = true
	g.current.Response = AwaitingResponse
	g.state = StateProcessing

	attempt := g.attempt
	prompt := g.current.Prompt
	g.mu.Unlock()

	go func() {
		text, err := call(ctx, prompt)
		if g.resolve(attempt, text, err) && done != nil {
			done(text, err)
		}
	}()

	return nil
}

// ApprovedPrompt returns the frozen prompt of the in-flight or resolved
// request, or "" when none was approved yet.
func (g *Gate) ApprovedPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil || !g.current.Processed {
		return ""
	}
	return g.current.Prompt
}

// Reset discards the live request and advances the attempt counter, so a
// call still in flight settles into the void.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.attempt++
	g.current = nil
	g.state = StateIdle
}

// resolve records the settlement if the attempt is still current. It
// reports whether the settlement was applied.
func (g *Gate) resolve(attempt int, text string, err error) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if attempt != g.attempt || g.current == nil {
		// Superseded by a reset or a newer proposal.
		return false
	}

	if err != nil {
		g.current.Response = "Error: " + err.Error()
		g.current.Failed = true
	} else {
		g.current.Response = text
	}
	g.state = StateResolved
	return true
}
