package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressline/writeflow-sdk/pkg/gate"
	"github.com/pressline/writeflow-sdk/pkg/generation"
	"github.com/pressline/writeflow-sdk/pkg/model"
	"github.com/pressline/writeflow-sdk/pkg/scheduler"
)

// fakeModel routes prompts to canned responses and records every request.
type fakeModel struct {
	mu       sync.Mutex
	requests []model.Request
	generate func(req *model.Request) (*model.Response, error)
}

func (m *fakeModel) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, *req)
	m.mu.Unlock()
	return m.generate(req)
}

func (m *fakeModel) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type fakeProvider struct {
	m model.Model
}

func (p *fakeProvider) GetModel(name string) (model.Model, error) {
	return p.m, nil
}

func (p *fakeProvider) ListModels(ctx context.Context, apiKey string) ([]model.ModelInfo, error) {
	return []model.ModelInfo{
		{ID: "text-pro", DisplayName: "Text Pro", Capabilities: []string{model.CapabilityTextGeneration}},
		{ID: "embed-mini", DisplayName: "Embed Mini", Capabilities: []string{"embedContent"}},
	}, nil
}

// scriptedGenerate plays the happy path: each stage's prompt shape maps to
// a plausible response.
func scriptedGenerate(req *model.Request) (*model.Response, error) {
	if req.WantImage {
		return &model.Response{ImageRef: "https://img.example/generated.png"}, nil
	}
	p := req.Prompt
	switch {
	case strings.Contains(p, "Refine the following article topic"):
		return &model.Response{Text: "Home Solar in 2026: What the Payback Math Really Says"}, nil
	case strings.Contains(p, "JSON array"):
		return &model.Response{Text: `Sure, here you go: ["How large is the roof?", "What is the budget?"]`}, nil
	case strings.Contains(p, "markdown layout"):
		return &model.Response{Text: "# The Setup\n- context\n# The Evidence\n- numbers"}, nil
	case strings.Contains(p, "illustrative image"):
		return &model.Response{Text: "A rooftop solar array at dawn, photorealistic"}, nil
	case strings.Contains(p, "full article"):
		return &model.Response{Text: "# Home Solar in 2026\n\nFull prose goes here."}, nil
	default:
		return &model.Response{Text: "unexpected prompt"}, nil
	}
}

func newTestFlow(t *testing.T, generate func(req *model.Request) (*model.Response, error)) (*Flow, *fakeModel) {
	t.Helper()
	fm := &fakeModel{generate: generate}
	sched := scheduler.NewWithOptions(100, time.Millisecond, scheduler.SystemClock())
	t.Cleanup(sched.Close)
	client := generation.NewClient(&fakeProvider{m: fm}, sched)
	return NewFlow(NewContext(), client), fm
}

func approveAndWait(t *testing.T, f *Flow, i int) {
	t.Helper()
	_, err := f.Propose(i)
	require.NoError(t, err)
	require.NoError(t, f.Approve(context.Background(), i, ""))
	require.Eventually(t, func() bool {
		return f.Machine().Step(i).Completed()
	}, time.Second, time.Millisecond)
}

func TestFlowEndToEnd(t *testing.T) {
	f, _ := newTestFlow(t, scriptedGenerate)
	ctx := context.Background()

	models, err := f.ListModels(ctx, "test-key")
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "text-pro", models[0].ID)

	require.NoError(t, f.SubmitCredentials("test-key", "text-pro", "image-pro"))
	require.True(t, f.Machine().Step(StepCredentials).Completed())

	f.SetTopic("home solar panels")
	approveAndWait(t, f, StepTopic)
	assert.Contains(t, f.Context().RefinedTopic(), "Home Solar")

	approveAndWait(t, f, StepQuestions)
	assert.Equal(t, []string{"How large is the roof?", "What is the budget?"}, f.Context().Questions())

	require.NoError(t, f.SubmitAnswers([]string{"40 square meters", "about 12k"}))
	answers := f.Context().Answers()
	require.Len(t, answers, 2)
	assert.Equal(t, "40 square meters", answers[0].Answer)

	approveAndWait(t, f, StepLayout)
	assert.Contains(t, f.Context().Layout(), "# The Setup")

	sections, err := f.Sections()
	require.NoError(t, err)
	require.Len(t, sections, 2)

	for sec := range sections {
		_, err := f.ProposeSectionVisual(sec)
		require.NoError(t, err)
		require.NoError(t, f.ApproveSectionVisual(ctx, sec, "", "watercolor"))
		idx := sec
		require.Eventually(t, func() bool {
			return f.SectionSettled(idx)
		}, time.Second, time.Millisecond)
	}
	require.True(t, f.Machine().Step(StepVisuals).Completed())
	assert.Equal(t, "https://img.example/generated.png", f.Context().Sections()[0].ImageRef)
	assert.NotEmpty(t, f.Context().Sections()[0].VisualPrompt)

	approveAndWait(t, f, StepArticle)
	assert.Contains(t, f.Context().Article(), "Full prose")
	assert.Equal(t, f.Machine().Len(), f.Machine().Frontier())
}

func TestProposeHiddenStepRejected(t *testing.T) {
	f, fm := newTestFlow(t, scriptedGenerate)

	_, err := f.Propose(StepTopic)
	require.Error(t, err)
	assert.Zero(t, fm.requestCount())
}

func TestProposeLocalStepRejected(t *testing.T) {
	f, _ := newTestFlow(t, scriptedGenerate)
	require.NoError(t, f.SubmitCredentials("key", "text-pro", ""))
	f.Machine().Complete(StepTopic)
	f.Machine().Complete(StepQuestions)

	_, err := f.Propose(StepAnswers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no approval-gated call")
}

func TestProposeTopicRequiresRawTopic(t *testing.T) {
	f, _ := newTestFlow(t, scriptedGenerate)
	require.NoError(t, f.SubmitCredentials("key", "text-pro", ""))

	_, err := f.Propose(StepTopic)
	require.Error(t, err)
}

func TestSubmitCredentialsValidation(t *testing.T) {
	f, _ := newTestFlow(t, scriptedGenerate)

	err := f.SubmitCredentials("", "text-pro", "")
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))

	err = f.SubmitCredentials("key", "", "")
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))

	assert.False(t, f.Machine().Step(StepCredentials).Completed())
}

func TestParseFailureStillCompletesQuestions(t *testing.T) {
	f, _ := newTestFlow(t, func(req *model.Request) (*model.Response, error) {
		if strings.Contains(req.Prompt, "JSON array") {
			return &model.Response{Text: "I would ask about the roof and the budget."}, nil
		}
		return scriptedGenerate(req)
	})
	require.NoError(t, f.SubmitCredentials("key", "text-pro", ""))
	f.SetTopic("solar")
	approveAndWait(t, f, StepTopic)

	approveAndWait(t, f, StepQuestions)
	assert.Empty(t, f.Context().Questions())
	assert.True(t, f.Machine().Visible(StepAnswers))
}

func TestUpstreamFailureDoesNotComplete(t *testing.T) {
	f, _ := newTestFlow(t, func(req *model.Request) (*model.Response, error) {
		return nil, errors.New("rate limited upstream")
	})
	require.NoError(t, f.SubmitCredentials("key", "text-pro", ""))
	f.SetTopic("solar")

	_, err := f.Propose(StepTopic)
	require.NoError(t, err)
	require.NoError(t, f.Approve(context.Background(), StepTopic, ""))

	step := f.Machine().Step(StepTopic)
	require.Eventually(t, func() bool {
		current := step.Gate.Current()
		return current != nil && strings.HasPrefix(current.Response, "Error: ")
	}, time.Second, time.Millisecond)
	assert.Contains(t, step.Gate.Current().Response, "rate limited upstream")
	assert.False(t, step.Completed())
	assert.False(t, f.Machine().Visible(StepQuestions))
}

func TestEditedPromptReachesModel(t *testing.T) {
	f, fm := newTestFlow(t, scriptedGenerate)
	require.NoError(t, f.SubmitCredentials("key", "text-pro", ""))
	f.SetTopic("solar")

	_, err := f.Propose(StepTopic)
	require.NoError(t, err)
	edited := "Refine the following article topic, but keep it under six words.\n\nTopic: solar"
	require.NoError(t, f.Approve(context.Background(), StepTopic, edited))
	require.Eventually(t, func() bool {
		return f.Machine().Step(StepTopic).Completed()
	}, time.Second, time.Millisecond)

	fm.mu.Lock()
	defer fm.mu.Unlock()
	require.Len(t, fm.requests, 1)
	assert.Equal(t, edited, fm.requests[0].Prompt)
}

func TestImageFailureSubstitutesErrorPlaceholder(t *testing.T) {
	f, _ := newTestFlow(t, func(req *model.Request) (*model.Response, error) {
		if req.WantImage {
			return nil, &model.UpstreamError{StatusCode: 400, Body: "image generation not supported for this model"}
		}
		return scriptedGenerate(req)
	})
	runToVisuals(t, f)

	_, err := f.ProposeSectionVisual(0)
	require.NoError(t, err)
	require.NoError(t, f.ApproveSectionVisual(context.Background(), 0, "", ""))

	require.Eventually(t, func() bool {
		return f.SectionSettled(0)
	}, time.Second, time.Millisecond)
	assert.Equal(t, ErrorImageRef, f.Context().Sections()[0].ImageRef)
	// The visual prompt itself still resolved.
	assert.NotEmpty(t, f.Context().Sections()[0].VisualPrompt)
}

func TestRetrySectionCascadesDownstream(t *testing.T) {
	f, _ := newTestFlow(t, scriptedGenerate)
	runToVisuals(t, f)

	sections, err := f.Sections()
	require.NoError(t, err)
	for sec := range sections {
		_, err := f.ProposeSectionVisual(sec)
		require.NoError(t, err)
		require.NoError(t, f.ApproveSectionVisual(context.Background(), sec, "", ""))
		idx := sec
		require.Eventually(t, func() bool {
			return f.SectionSettled(idx)
		}, time.Second, time.Millisecond)
	}
	approveAndWait(t, f, StepArticle)

	require.NoError(t, f.RetrySection(1))

	section := f.Context().Sections()[1]
	assert.Empty(t, section.ImageRef)
	assert.Empty(t, section.VisualPrompt)
	assert.False(t, f.SectionSettled(1))
	g1, err := f.SectionGate(1)
	require.NoError(t, err)
	assert.Equal(t, gate.StateIdle, g1.State())
	// Untouched sections keep their artifacts.
	assert.NotEmpty(t, f.Context().Sections()[0].ImageRef)

	assert.False(t, f.Machine().Step(StepVisuals).Completed())
	assert.False(t, f.Machine().Step(StepArticle).Completed())
	assert.False(t, f.Machine().Visible(StepArticle))
	// The article text itself survives in the context.
	assert.NotEmpty(t, f.Context().Article())
}

func TestAcceptLayoutEditDiscardsSections(t *testing.T) {
	f, _ := newTestFlow(t, scriptedGenerate)
	runToVisuals(t, f)

	_, err := f.Sections()
	require.NoError(t, err)
	require.NotEmpty(t, f.Context().Sections())

	layout := f.Layout()
	layout.StartEdit(f.Context())
	require.True(t, layout.Editing())
	layout.SetDraft("# Only Section\n- everything")
	require.NoError(t, f.AcceptLayoutEdit())

	assert.Equal(t, "# Only Section\n- everything", f.Context().Layout())
	assert.Empty(t, f.Context().Sections())

	sections, err := f.Sections()
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Only Section", sections[0].Heading)
}

func TestSectionStaysProcessingUntilImageLands(t *testing.T) {
	imageStarted := make(chan struct{})
	imageRelease := make(chan struct{})
	var once sync.Once
	f, _ := newTestFlow(t, func(req *model.Request) (*model.Response, error) {
		if req.WantImage {
			once.Do(func() { close(imageStarted) })
			<-imageRelease
			return &model.Response{ImageRef: "https://img.example/slow.png"}, nil
		}
		return scriptedGenerate(req)
	})
	runToVisuals(t, f)

	_, err := f.ProposeSectionVisual(0)
	require.NoError(t, err)
	require.NoError(t, f.ApproveSectionVisual(context.Background(), 0, "", ""))

	select {
	case <-imageStarted:
	case <-time.After(time.Second):
		t.Fatal("image call never started")
	}

	// The suggestion text resolved upstream, but the section's request
	// must stay in flight until the image call has settled too.
	g, err := f.SectionGate(0)
	require.NoError(t, err)
	assert.Equal(t, gate.StateProcessing, g.State())
	assert.False(t, f.SectionSettled(0))
	assert.Empty(t, f.Context().Sections()[0].ImageRef)

	close(imageRelease)
	require.Eventually(t, func() bool {
		return f.SectionSettled(0)
	}, time.Second, time.Millisecond)
	assert.Equal(t, gate.StateResolved, g.State())
	assert.Equal(t, "https://img.example/slow.png", f.Context().Sections()[0].ImageRef)
}

func TestInterleavedSectionWorkKeepsBothSettlements(t *testing.T) {
	releaseSetup := make(chan struct{})
	f, _ := newTestFlow(t, func(req *model.Request) (*model.Response, error) {
		if req.WantImage {
			return &model.Response{ImageRef: "https://img.example/generated.png"}, nil
		}
		if strings.Contains(req.Prompt, "illustrative image") {
			if strings.Contains(req.Prompt, "The Setup") {
				<-releaseSetup
				return &model.Response{Text: "setup scene"}, nil
			}
			return &model.Response{Text: "evidence scene"}, nil
		}
		return scriptedGenerate(req)
	})
	runToVisuals(t, f)

	// Section 0's approved call hangs; section 1 is proposed and
	// approved while it is in flight.
	_, err := f.ProposeSectionVisual(0)
	require.NoError(t, err)
	require.NoError(t, f.ApproveSectionVisual(context.Background(), 0, "", ""))

	_, err = f.ProposeSectionVisual(1)
	require.NoError(t, err)
	require.NoError(t, f.ApproveSectionVisual(context.Background(), 1, "", ""))
	require.Eventually(t, func() bool {
		return f.SectionSettled(1)
	}, time.Second, time.Millisecond)
	assert.Equal(t, "evidence scene", f.Context().Sections()[1].VisualPrompt)

	// Section 0 is still pending, untouched by section 1's work.
	g0, err := f.SectionGate(0)
	require.NoError(t, err)
	assert.Equal(t, gate.StateProcessing, g0.State())
	assert.False(t, f.Machine().Step(StepVisuals).Completed())

	close(releaseSetup)
	require.Eventually(t, func() bool {
		return f.SectionSettled(0)
	}, time.Second, time.Millisecond)
	assert.Equal(t, "setup scene", f.Context().Sections()[0].VisualPrompt)
	assert.Equal(t, "https://img.example/generated.png", f.Context().Sections()[0].ImageRef)

	require.Eventually(t, func() bool {
		return f.Machine().Step(StepVisuals).Completed()
	}, time.Second, time.Millisecond)
}

func TestVisualStatsCoverImageCall(t *testing.T) {
	f, _ := newTestFlow(t, func(req *model.Request) (*model.Response, error) {
		if req.WantImage {
			time.Sleep(60 * time.Millisecond)
			return &model.Response{ImageRef: "ref"}, nil
		}
		return scriptedGenerate(req)
	})
	runToVisuals(t, f)

	_, err := f.ProposeSectionVisual(0)
	require.NoError(t, err)
	require.NoError(t, f.ApproveSectionVisual(context.Background(), 0, "", ""))
	require.Eventually(t, func() bool {
		return f.SectionSettled(0)
	}, time.Second, time.Millisecond)

	stats := f.Machine().Step(StepVisuals).Stats()
	assert.GreaterOrEqual(t, stats.Duration, 60*time.Millisecond)
}

// runToVisuals walks the flow through the layout step.
func runToVisuals(t *testing.T, f *Flow) {
	t.Helper()
	require.NoError(t, f.SubmitCredentials("key", "text-pro", "image-pro"))
	f.SetTopic("solar")
	approveAndWait(t, f, StepTopic)
	approveAndWait(t, f, StepQuestions)
	require.NoError(t, f.SubmitAnswers([]string{"40 square meters", "about 12k"}))
	approveAndWait(t, f, StepLayout)
}
