package workflow

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pressline/writeflow-sdk/pkg/model"
)

// Stage is one step's domain-specific logic.
type Stage interface {
	// Key returns the stage's stable identity
	Key() string

	// Title returns the stage's display title
	Title() string
}

// PromptStage is a stage whose work is one approval-gated text call. The
// stage decides when its upstream context fields are present before
// proposing a prompt; the machine imposes ordering only through
// visibility.
type PromptStage interface {
	Stage

	// ComposePrompt builds the prompt to propose, or fails when the
	// stage's preconditions are not satisfied yet
	ComposePrompt(view View) (string, error)

	// ApplyResult stores the approved call's result into the context
	ApplyResult(wctx *Context, text string) error
}

// CredentialStage captures the API credential and model selections. No AI
// call; it completes on local submission. Its in-progress form state is
// caller-local and re-initialized from context on every render.
type CredentialStage struct{}

func (CredentialStage) Key() string   { return "credentials" }
func (CredentialStage) Title() string { return "API Access" }

// Submit validates and stores the credential and model selections.
func (CredentialStage) Submit(wctx *Context, credential, textModel, imageModel string) error {
	if credential == "" {
		return &model.ConfigurationError{Field: "api key"}
	}
	if textModel == "" {
		return &model.ConfigurationError{Field: "text model"}
	}
	wctx.SetCredentials(credential, textModel, imageModel)
	return nil
}

// TopicStage refines the user's raw topic into a focused article topic.
// The raw topic is step-local state, not part of the shared context.
type TopicStage struct {
	mu    sync.Mutex
	topic string
}

func (*TopicStage) Key() string   { return "topic" }
func (*TopicStage) Title() string { return "Refine Topic" }

// SetTopic records the user's raw topic.
func (s *TopicStage) SetTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topic = topic
}

// Topic returns the user's raw topic.
func (s *TopicStage) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

func (s *TopicStage) ComposePrompt(view View) (string, error) {
	topic := s.Topic()
	if topic == "" {
		return "", fmt.Errorf("enter a topic before proposing")
	}

	var sb strings.Builder
	sb.WriteString("You are an experienced editor. Refine the following article topic into a single, focused working title and one-sentence angle.\n")
	sb.WriteString("Respond with the refined topic only, no extra commentary.\n\n")
	sb.WriteString("Topic: ")
	sb.WriteString(topic)
	return sb.String(), nil
}

func (s *TopicStage) ApplyResult(wctx *Context, text string) error {
	refined := strings.TrimSpace(text)
	if refined == "" {
		refined = s.Topic()
	}
	wctx.SetRefinedTopic(refined)
	return nil
}

// QuestionStage elicits domain questions as a JSON array, parsed
// permissively. A parse failure is reported but the stage stays usable
// with an empty question list.
type QuestionStage struct{}

func (QuestionStage) Key() string   { return "questions" }
func (QuestionStage) Title() string { return "Domain Questions" }

func (QuestionStage) ComposePrompt(view View) (string, error) {
	topic := view.RefinedTopic()
	if topic == "" {
		return "", fmt.Errorf("refined topic is not available yet")
	}

	var sb strings.Builder
	sb.WriteString("List 3 to 5 questions whose answers you would need from a domain expert to write a well-grounded article on the topic below.\n")
	sb.WriteString("Respond with a JSON array of strings and nothing else.\n\n")
	sb.WriteString("Topic: ")
	sb.WriteString(topic)
	return sb.String(), nil
}

func (QuestionStage) ApplyResult(wctx *Context, text string) error {
	questions, err := ExtractStringArray(text)
	// Store whatever was parsed, including nothing: the user can still
	// continue manually.
	wctx.SetQuestions(questions)
	return err
}

// AnswerStage collects the user's answer per question. No AI call; it
// completes on local submission.
type AnswerStage struct{}

func (AnswerStage) Key() string   { return "answers" }
func (AnswerStage) Title() string { return "Your Answers" }

// Submit pairs the answers with the elicited questions and stores them.
func (AnswerStage) Submit(wctx *Context, answers []string) error {
	questions := wctx.Questions()
	qa := make([]QA, 0, len(questions))
	for i, q := range questions {
		answer := ""
		if i < len(answers) {
			answer = strings.TrimSpace(answers[i])
		}
		qa = append(qa, QA{Question: q, Answer: answer})
	}
	wctx.SetAnswers(qa)
	return nil
}

// LayoutStage drafts the article layout as markdown. After the call
// resolves the user may edit the accepted layout post hoc, with a
// preview/cancel toggle before acceptance.
type LayoutStage struct {
	mu         sync.Mutex
	editing    bool
	draft      string
	previewing bool
}

func (*LayoutStage) Key() string   { return "layout" }
func (*LayoutStage) Title() string { return "Article Layout" }

func (s *LayoutStage) ComposePrompt(view View) (string, error) {
	topic := view.RefinedTopic()
	if topic == "" {
		return "", fmt.Errorf("refined topic is not available yet")
	}

	var sb strings.Builder
	sb.WriteString("Draft a markdown layout for an article on the topic below: section headings with one or two bullet points each describing the section's content.\n")
	sb.WriteString("Use '#' headings. Respond with markdown only.\n\n")
	sb.WriteString("Topic: ")
	sb.WriteString(topic)
	sb.WriteString("\n")
	for _, qa := range view.Answers() {
		if qa.Answer == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("\nQ: %s\nA: %s\n", qa.Question, qa.Answer))
	}
	return sb.String(), nil
}

func (s *LayoutStage) ApplyResult(wctx *Context, text string) error {
	layout := strings.TrimSpace(text)
	if layout == "" {
		return fmt.Errorf("model returned an empty layout")
	}
	wctx.SetLayout(layout)
	return nil
}

// StartEdit opens the post-hoc edit buffer, seeded from the context.
func (s *LayoutStage) StartEdit(view View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = true
	s.previewing = false
	s.draft = view.Layout()
}

// Editing reports whether the edit buffer is open.
func (s *LayoutStage) Editing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// SetDraft replaces the edit buffer content.
func (s *LayoutStage) SetDraft(draft string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing {
		s.draft = draft
	}
}

// Draft returns the edit buffer content.
func (s *LayoutStage) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// TogglePreview flips the preview flag and reports the new value.
func (s *LayoutStage) TogglePreview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewing = !s.previewing
	return s.previewing
}

// Previewing reports the preview flag.
func (s *LayoutStage) Previewing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewing
}

// AcceptEdit writes the edit buffer back to the context and closes it.
func (s *LayoutStage) AcceptEdit(wctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editing {
		return fmt.Errorf("no layout edit in progress")
	}
	draft := strings.TrimSpace(s.draft)
	if draft == "" {
		return fmt.Errorf("layout cannot be empty")
	}
	wctx.SetLayout(draft)
	s.editing = false
	s.previewing = false
	s.draft = ""
	return nil
}

// CancelEdit discards the edit buffer.
func (s *LayoutStage) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = false
	s.previewing = false
	s.draft = ""
}

// VisualStage suggests a visual per layout section and synthesizes an
// image from each suggestion. Sections are derived by splitting the
// layout at heading boundaries; each section is independently retryable.
type VisualStage struct{}

func (VisualStage) Key() string   { return "visuals" }
func (VisualStage) Title() string { return "Section Visuals" }

// EnsureSections splits the layout into sections if that has not
// happened yet, and returns them.
func (VisualStage) EnsureSections(wctx *Context) ([]Section, error) {
	if sections := wctx.Sections(); len(sections) > 0 {
		return sections, nil
	}
	layout := wctx.Layout()
	if layout == "" {
		return nil, fmt.Errorf("layout is not available yet")
	}
	sections := SplitSections(layout)
	wctx.SetSections(sections)
	return sections, nil
}

// ComposeSectionPrompt builds the visual suggestion prompt for one
// section.
func (VisualStage) ComposeSectionPrompt(section Section) string {
	var sb strings.Builder
	sb.WriteString("Suggest a single illustrative image for the article section below: describe the scene in one or two sentences, concrete enough for an image model.\n")
	sb.WriteString("Respond with the description only.\n\n")
	sb.WriteString(section.Content)
	return sb.String()
}

// ArticleStage synthesizes the full article from everything upstream.
type ArticleStage struct{}

func (ArticleStage) Key() string   { return "article" }
func (ArticleStage) Title() string { return "Full Article" }

func (ArticleStage) ComposePrompt(view View) (string, error) {
	topic := view.RefinedTopic()
	layout := view.Layout()
	if topic == "" || layout == "" {
		return "", fmt.Errorf("refined topic and layout are not available yet")
	}

	var sb strings.Builder
	sb.WriteString("Write the full article in markdown for the topic and layout below. Follow the layout's section order; expand every section into prose.\n\n")
	sb.WriteString("Topic: ")
	sb.WriteString(topic)
	sb.WriteString("\n\nLayout:\n")
	sb.WriteString(layout)
	sb.WriteString("\n")
	for _, qa := range view.Answers() {
		if qa.Answer == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("\nQ: %s\nA: %s\n", qa.Question, qa.Answer))
	}
	return sb.String(), nil
}

func (ArticleStage) ApplyResult(wctx *Context, text string) error {
	article := strings.TrimSpace(text)
	if article == "" {
		return fmt.Errorf("model returned an empty article")
	}
	wctx.SetArticle(article)
	return nil
}
