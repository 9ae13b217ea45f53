package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pressline/writeflow-sdk/pkg/gate"
	"github.com/pressline/writeflow-sdk/pkg/generation"
	"github.com/pressline/writeflow-sdk/pkg/model"
	"github.com/pressline/writeflow-sdk/pkg/notify"
)

// Step indices of the standard flow.
const (
	StepCredentials = iota
	StepTopic
	StepQuestions
	StepAnswers
	StepLayout
	StepVisuals
	StepArticle
)

// ErrorImageRef is substituted when an image call fails outright.
const ErrorImageRef = "https://placehold.co/600x400?text=Image+Error"

// Flow wires the step machine, the shared workflow context and the
// generation client into the guided article pipeline. It is the
// composition root's handle on the whole workflow.
type Flow struct {
	machine *Machine
	wctx    *Context
	client  *generation.Client
	now     func() time.Time

	// Each section has its own gate so interleaved section work cannot
	// discard another section's in-flight settlement. Rebuilt whenever
	// the sections themselves are.
	sectionMu    sync.Mutex
	sectionGates []*gate.Gate

	credentials *CredentialStage
	topic       *TopicStage
	questions   *QuestionStage
	answers     *AnswerStage
	layout      *LayoutStage
	visuals     *VisualStage
	article     *ArticleStage
}

// NewFlow builds the standard seven-step flow.
func NewFlow(wctx *Context, client *generation.Client) *Flow {
	f := &Flow{
		wctx:        wctx,
		client:      client,
		now:         time.Now,
		credentials: &CredentialStage{},
		topic:       &TopicStage{},
		questions:   &QuestionStage{},
		answers:     &AnswerStage{},
		layout:      &LayoutStage{},
		visuals:     &VisualStage{},
		article:     &ArticleStage{},
	}

	f.machine = NewMachine(
		NewStep(f.credentials),
		NewStep(f.topic),
		NewStep(f.questions),
		NewStep(f.answers),
		NewStep(f.layout),
		NewStep(f.visuals),
		NewStep(f.article),
	)

	return f
}

// Machine returns the step machine.
func (f *Flow) Machine() *Machine {
	return f.machine
}

// Context returns the shared workflow context.
func (f *Flow) Context() *Context {
	return f.wctx
}

// Layout returns the layout stage for post-hoc editing.
func (f *Flow) Layout() *LayoutStage {
	return f.layout
}

// SubmitCredentials stores the credential and model selections and
// completes the credential step. No AI call is involved.
func (f *Flow) SubmitCredentials(credential, textModel, imageModel string) error {
	if err := f.credentials.Submit(f.wctx, credential, textModel, imageModel); err != nil {
		return err
	}
	f.machine.Complete(StepCredentials)
	notify.Success("API access configured")
	return nil
}

// ListModels fetches the text-capable model catalog for the selection UI.
func (f *Flow) ListModels(ctx context.Context, credential string) ([]model.ModelInfo, error) {
	return f.client.ListModels(ctx, credential)
}

// SetTopic records the user's raw topic on the topic stage.
func (f *Flow) SetTopic(topic string) {
	f.topic.SetTopic(topic)
}

// Propose composes step i's prompt and surfaces it for edit/approval. It
// fails when the step is hidden, local-only, or its stage preconditions
// are not satisfied yet.
func (f *Flow) Propose(i int) (*gate.Request, error) {
	step, stage, err := f.promptStep(i)
	if err != nil {
		return nil, err
	}

	prompt, err := stage.ComposePrompt(f.wctx)
	if err != nil {
		return nil, err
	}

	return step.Gate.Propose(prompt), nil
}

// Approve approves step i's proposed prompt (optionally edited) and
// dispatches the text call. On success the stage stores its artifact and
// completes the step; a ParseError is reported but still completes.
func (f *Flow) Approve(ctx context.Context, i int, edited string) error {
	step, stage, err := f.promptStep(i)
	if err != nil {
		return err
	}

	call := func(cctx context.Context, prompt string) (string, error) {
		step.beginCall(len(prompt), f.now())
		return f.client.GenerateText(cctx, f.wctx.Credential(), f.wctx.TextModel(), prompt)
	}

	done := func(text string, callErr error) {
		step.finishCall(len(text), f.now())
		if callErr != nil {
			notify.Errorf("%s failed: %v", step.Title, callErr)
			return
		}
		if applyErr := stage.ApplyResult(f.wctx, text); applyErr != nil {
			if !model.IsParse(applyErr) {
				notify.Errorf("%s failed: %v", step.Title, applyErr)
				return
			}
			// Parse failures are reported but never block manual
			// continuation.
			notify.Errorf("%s: %v", step.Title, applyErr)
		}
		f.machine.Complete(i)
		notify.Success(step.Title + " complete")
	}

	return step.Gate.Approve(ctx, edited, call, done)
}

// SubmitAnswers stores the per-question answers and completes the answer
// step. No AI call is involved.
func (f *Flow) SubmitAnswers(answers []string) error {
	if !f.machine.Visible(StepAnswers) {
		return fmt.Errorf("step %d is not visible yet", StepAnswers)
	}
	if err := f.answers.Submit(f.wctx, answers); err != nil {
		return err
	}
	f.machine.Complete(StepAnswers)
	notify.Success("Answers recorded")
	return nil
}

// AcceptLayoutEdit accepts the post-hoc layout edit. Downstream sections
// are discarded so the visuals stage re-splits the new layout.
func (f *Flow) AcceptLayoutEdit() error {
	if err := f.layout.AcceptEdit(f.wctx); err != nil {
		return err
	}
	f.wctx.SetSections(nil)
	f.resetSectionGates(true)
	notify.Success("Layout updated")
	return nil
}

// Sections splits the layout if needed and returns the sections.
func (f *Flow) Sections() ([]Section, error) {
	if !f.machine.Visible(StepVisuals) {
		return nil, fmt.Errorf("step %d is not visible yet", StepVisuals)
	}
	sections, err := f.visuals.EnsureSections(f.wctx)
	if err != nil {
		return nil, err
	}
	f.ensureSectionGates(len(sections))
	return sections, nil
}

func (f *Flow) ensureSectionGates(n int) {
	f.sectionMu.Lock()
	defer f.sectionMu.Unlock()
	if len(f.sectionGates) == n {
		return
	}
	gates := make([]*gate.Gate, n)
	for i := range gates {
		gates[i] = gate.New()
	}
	f.sectionGates = gates
}

// SectionGate returns one section's approval gate.
func (f *Flow) SectionGate(sec int) (*gate.Gate, error) {
	f.sectionMu.Lock()
	defer f.sectionMu.Unlock()
	if sec < 0 || sec >= len(f.sectionGates) {
		return nil, fmt.Errorf("no section %d", sec)
	}
	return f.sectionGates[sec], nil
}

// SectionSettled reports whether a section's approved work has fully
// landed: its gate resolved and, on success, its image reference stored.
// Callers waiting out a section poll this rather than gate state alone.
func (f *Flow) SectionSettled(sec int) bool {
	g, err := f.SectionGate(sec)
	if err != nil || g.State() != gate.StateResolved {
		return false
	}
	request := g.Current()
	if request == nil {
		return false
	}
	if request.Failed {
		return true
	}
	sections := f.wctx.Sections()
	return sec < len(sections) && sections[sec].ImageRef != ""
}

// resetSectionGates discards every section's live request, so in-flight
// settlements for superseded attempts are dropped.
func (f *Flow) resetSectionGates(clear bool) {
	f.sectionMu.Lock()
	defer f.sectionMu.Unlock()
	for _, g := range f.sectionGates {
		g.Reset()
	}
	if clear {
		f.sectionGates = nil
	}
}

// ProposeSectionVisual surfaces the visual suggestion prompt for one
// section on that section's own gate.
func (f *Flow) ProposeSectionVisual(sec int) (*gate.Request, error) {
	sections, err := f.Sections()
	if err != nil {
		return nil, err
	}
	if sec < 0 || sec >= len(sections) {
		return nil, fmt.Errorf("no section %d", sec)
	}

	g, err := f.SectionGate(sec)
	if err != nil {
		return nil, err
	}
	return g.Propose(f.visuals.ComposeSectionPrompt(sections[sec])), nil
}

// ApproveSectionVisual approves the suggestion prompt for one section,
// then runs the dependent image call. An image failure substitutes a
// placeholder error image; a missing image modality is reported
// distinctly. The visuals step completes once every section has an
// image.
func (f *Flow) ApproveSectionVisual(ctx context.Context, sec int, edited, style string) error {
	sections, err := f.Sections()
	if err != nil {
		return err
	}
	if sec < 0 || sec >= len(sections) {
		return fmt.Errorf("no section %d", sec)
	}

	g, err := f.SectionGate(sec)
	if err != nil {
		return err
	}

	step := f.machine.Step(StepVisuals)

	// The dependent image call runs inside the dispatched call: the
	// request stays Processing until the section's image has been
	// produced too, not just its suggestion text.
	var imageRef string
	call := func(cctx context.Context, prompt string) (string, error) {
		step.beginCall(len(prompt), f.now())
		text, callErr := f.client.GenerateText(cctx, f.wctx.Credential(), f.wctx.TextModel(), prompt)
		if callErr != nil {
			return "", callErr
		}
		imageRef = f.generateSectionImage(cctx, text, style)
		return text, nil
	}

	done := func(text string, callErr error) {
		step.finishCall(len(text), f.now())
		if callErr != nil {
			notify.Errorf("Visual suggestion failed: %v", callErr)
			return
		}

		section := sections[sec]
		section.VisualPrompt = text
		section.ImageRef = imageRef
		f.wctx.UpdateSection(sec, section)

		if f.allSectionsDone() {
			f.machine.Complete(StepVisuals)
			notify.Success("Section visuals complete")
		}
	}

	return g.Approve(ctx, edited, call, done)
}

// generateSectionImage runs the dependent image call and maps failures to
// placeholder references.
func (f *Flow) generateSectionImage(ctx context.Context, prompt, style string) string {
	ref, err := f.client.GenerateImage(ctx, f.wctx.Credential(), f.wctx.ImageModel(), prompt, style)
	if err == nil {
		return ref
	}
	if model.IsModalityUnsupported(err) {
		notify.Warning("Selected model does not support image generation; placeholder used")
	} else {
		notify.Errorf("Image generation failed: %v", err)
	}
	return ErrorImageRef
}

// RetrySection discards one section's visual artifacts. Completion
// cascades from the visuals step so downstream steps re-request
// approval.
func (f *Flow) RetrySection(sec int) error {
	sections := f.wctx.Sections()
	if sec < 0 || sec >= len(sections) {
		return fmt.Errorf("no section %d", sec)
	}

	if g, err := f.SectionGate(sec); err == nil {
		g.Reset()
	}

	section := sections[sec]
	section.VisualPrompt = ""
	section.ImageRef = ""
	f.wctx.UpdateSection(sec, section)

	f.machine.Retry(StepVisuals)
	notify.Info(fmt.Sprintf("Section %d reset", sec))
	return nil
}

// RetryStep clears completion for steps i..n-1. Artifacts cached in the
// context survive; whatever re-runs must re-request approval.
func (f *Flow) RetryStep(i int) {
	f.machine.Retry(i)
	if i <= StepVisuals {
		f.resetSectionGates(false)
	}
	notify.Info("Steps reset for retry")
}

func (f *Flow) allSectionsDone() bool {
	sections := f.wctx.Sections()
	if len(sections) == 0 {
		return false
	}
	for _, s := range sections {
		if s.ImageRef == "" {
			return false
		}
	}
	return true
}

// promptStep resolves step i when it is visible and approval-gated.
func (f *Flow) promptStep(i int) (*Step, PromptStage, error) {
	if !f.machine.Visible(i) {
		return nil, nil, fmt.Errorf("step %d is not visible yet", i)
	}
	step := f.machine.Step(i)
	stage, ok := step.Stage.(PromptStage)
	if !ok {
		return nil, nil, fmt.Errorf("step %q has no approval-gated call", step.Key)
	}
	return step, stage, nil
}
