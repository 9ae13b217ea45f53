package workflow

import "sync"

// QA pairs one elicited domain question with the user's answer.
type QA struct {
	Question string
	Answer   string
}

// Section is one heading-delimited slice of the drafted layout, plus the
// visual artifacts produced for it.
type Section struct {
	// Heading is the extracted heading title, "" for preamble or a
	// layout without headings
	Heading string

	// Content is the full section text including its heading line
	Content string

	// VisualPrompt is the approved visual suggestion for the section
	VisualPrompt string

	// ImageRef is the generated image reference, a placeholder on
	// failure, or "" while pending
	ImageRef string
}

// Context is the shared workflow state. Each field is written by exactly
// one stage (the owner noted on its setter) and read by all downstream
// stages through the View interface. The version counter bumps on every
// write.
type Context struct {
	mu      sync.RWMutex
	version int

	credential string
	textModel  string
	imageModel string

	refinedTopic string
	questions    []string
	answers      []QA
	layout       string
	sections     []Section
	article      string
}

// View is the read-only access downstream stages receive.
type View interface {
	Version() int
	Credential() string
	TextModel() string
	ImageModel() string
	RefinedTopic() string
	Questions() []string
	Answers() []QA
	Layout() string
	Sections() []Section
	Article() string
}

// NewContext creates an empty workflow context.
func NewContext() *Context {
	return &Context{}
}

// Version returns the write counter.
func (c *Context) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Credential returns the API credential.
func (c *Context) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credential
}

// TextModel returns the selected text model ID.
func (c *Context) TextModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.textModel
}

// ImageModel returns the selected image model ID, falling back to the
// text model when none was selected.
func (c *Context) ImageModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.imageModel == "" {
		return c.textModel
	}
	return c.imageModel
}

// RefinedTopic returns the refined topic.
func (c *Context) RefinedTopic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refinedTopic
}

// Questions returns the elicited domain questions.
func (c *Context) Questions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.questions))
	copy(out, c.questions)
	return out
}

// Answers returns the collected question/answer pairs.
func (c *Context) Answers() []QA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]QA, len(c.answers))
	copy(out, c.answers)
	return out
}

// Layout returns the accepted article layout markdown.
func (c *Context) Layout() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.layout
}

// Sections returns the layout sections with their visual artifacts.
func (c *Context) Sections() []Section {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Section, len(c.sections))
	copy(out, c.sections)
	return out
}

// Article returns the synthesized article markdown.
func (c *Context) Article() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.article
}

// SetCredentials stores the credential and model selections.
// Owner: credential capture stage.
func (c *Context) SetCredentials(credential, textModel, imageModel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = credential
	c.textModel = textModel
	c.imageModel = imageModel
	c.version++
}

// SetRefinedTopic stores the refined topic. Owner: topic refinement stage.
func (c *Context) SetRefinedTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refinedTopic = topic
	c.version++
}

// SetQuestions stores the elicited questions. Owner: question stage.
func (c *Context) SetQuestions(questions []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions = append([]string(nil), questions...)
	c.version++
}

// SetAnswers stores the question/answer pairs. Owner: answer stage.
func (c *Context) SetAnswers(answers []QA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers = append([]QA(nil), answers...)
	c.version++
}

// SetLayout stores the accepted layout. Owner: layout stage.
func (c *Context) SetLayout(layout string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layout = layout
	c.version++
}

// SetSections stores the layout sections. Owner: visuals stage.
func (c *Context) SetSections(sections []Section) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sections = append([]Section(nil), sections...)
	c.version++
}

// UpdateSection replaces one section in place. Owner: visuals stage.
func (c *Context) UpdateSection(i int, section Section) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.sections) {
		return
	}
	c.sections[i] = section
	c.version++
}

// SetArticle stores the synthesized article. Owner: article stage.
func (c *Context) SetArticle(article string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.article = article
	c.version++
}
