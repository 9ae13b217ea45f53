package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pressline/writeflow-sdk/pkg/gate"
	"github.com/pressline/writeflow-sdk/pkg/generation"
	"github.com/pressline/writeflow-sdk/pkg/model"
	"github.com/pressline/writeflow-sdk/pkg/model/providers/gemini"
	"github.com/pressline/writeflow-sdk/pkg/notify"
	"github.com/pressline/writeflow-sdk/pkg/scheduler"
	"github.com/pressline/writeflow-sdk/pkg/workflow"
)

// Interactive demo: walks the guided article workflow on the terminal,
// gating every AI call behind a prompt approval. Credentials are entered
// interactively and held only in memory.
func main() {
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recorder := notify.NewMemoryRecorder()
	notify.SetGlobalRecorder(recorder)

	sched := scheduler.New()
	defer sched.Close()

	provider := gemini.NewProvider()
	client := generation.NewClient(provider, sched)

	wctx := workflow.NewContext()
	flow := workflow.NewFlow(wctx, client)

	ctx := context.Background()

	// Step 1: API access.
	credential := ask(in, "API key: ")
	models, err := flow.ListModels(ctx, credential)
	if err != nil {
		log.Fatalf("Error listing models: %v", err)
	}
	fmt.Println("\nText-capable models:")
	for _, m := range models {
		fmt.Printf("  %s (%s)\n", m.ID, m.DisplayName)
	}
	imageCapable := model.ImageCapable(models)
	if len(imageCapable) > 0 {
		fmt.Println("\nImage-capable models:")
		for _, m := range imageCapable {
			fmt.Printf("  %s (%s)\n", m.ID, m.DisplayName)
		}
	}

	textModel := ask(in, "\nText model: ")
	imageModel := ask(in, "Image model (empty to reuse text model): ")
	if err := flow.SubmitCredentials(credential, textModel, imageModel); err != nil {
		log.Fatalf("Error submitting credentials: %v", err)
	}

	// Step 2: topic refinement.
	flow.SetTopic(ask(in, "\nArticle topic: "))
	runStep(ctx, in, flow, workflow.StepTopic)
	fmt.Println("\nRefined topic:")
	fmt.Println(wctx.RefinedTopic())

	// Step 3: domain questions.
	runStep(ctx, in, flow, workflow.StepQuestions)

	// Step 4: answers.
	var answers []string
	for i, q := range wctx.Questions() {
		answers = append(answers, ask(in, fmt.Sprintf("\nQ%d: %s\n> ", i+1, q)))
	}
	if err := flow.SubmitAnswers(answers); err != nil {
		log.Fatalf("Error submitting answers: %v", err)
	}

	// Step 5: layout.
	runStep(ctx, in, flow, workflow.StepLayout)
	fmt.Println("\nDrafted layout:")
	fmt.Println(wctx.Layout())

	// Step 6: section visuals.
	sections, err := flow.Sections()
	if err != nil {
		log.Fatalf("Error splitting layout: %v", err)
	}
	for i := range sections {
		runSectionVisual(ctx, in, flow, i)
	}

	// Step 7: full article.
	runStep(ctx, in, flow, workflow.StepArticle)

	fmt.Println("\n--- Article ---")
	fmt.Println(wctx.Article())

	fmt.Println("\n--- Notifications ---")
	for _, n := range recorder.All() {
		fmt.Printf("[%s] %s\n", n.Severity, n.Message)
	}
}

// runStep proposes, lets the user edit, approves, and waits for the
// step's gate to resolve.
func runStep(ctx context.Context, in *bufio.Scanner, flow *workflow.Flow, i int) {
	request, err := flow.Propose(i)
	if err != nil {
		log.Fatalf("Error proposing step %d: %v", i, err)
	}

	fmt.Println("\nProposed prompt:")
	fmt.Println(request.Prompt)
	edited := ask(in, "Edit prompt (empty to approve as is): ")

	if err := flow.Approve(ctx, i, edited); err != nil {
		log.Fatalf("Error approving step %d: %v", i, err)
	}
	awaitResolution(flow, i)
}

func runSectionVisual(ctx context.Context, in *bufio.Scanner, flow *workflow.Flow, sec int) {
	request, err := flow.ProposeSectionVisual(sec)
	if err != nil {
		log.Fatalf("Error proposing section %d visual: %v", sec, err)
	}

	fmt.Printf("\nSection %d visual prompt:\n%s\n", sec+1, request.Prompt)
	edited := ask(in, "Edit prompt (empty to approve as is): ")

	if err := flow.ApproveSectionVisual(ctx, sec, edited, ""); err != nil {
		log.Fatalf("Error approving section %d visual: %v", sec, err)
	}
	awaitSection(flow, sec)
}

// awaitSection waits until a section's approved work has fully landed,
// image included, not just until its gate leaves Processing.
func awaitSection(flow *workflow.Flow, sec int) {
	for !flow.SectionSettled(sec) {
		time.Sleep(100 * time.Millisecond)
	}

	g, err := flow.SectionGate(sec)
	if err != nil {
		log.Fatalf("Error reading section %d gate: %v", sec, err)
	}
	request := g.Current()
	if request == nil {
		return
	}
	fmt.Println("\nSuggested visual:")
	fmt.Println(request.Response)
	if request.Failed {
		return
	}

	sections := flow.Context().Sections()
	fmt.Printf("Image: %s\n", sections[sec].ImageRef)

	stats := flow.Machine().Step(workflow.StepVisuals).Stats()
	fmt.Printf("(in %d chars, out %d chars, %.1fs)\n",
		stats.InputLen, stats.OutputLen, stats.Duration.Seconds())
}

func awaitResolution(flow *workflow.Flow, i int) {
	step := flow.Machine().Step(i)
	for step.Gate.State() == gate.StateProcessing {
		time.Sleep(100 * time.Millisecond)
	}
	if request := step.Gate.Current(); request != nil {
		fmt.Println("\nResponse:")
		fmt.Println(request.Response)
	}
	stats := step.Stats()
	fmt.Printf("(in %d chars, out %d chars, %.1fs)\n",
		stats.InputLen, stats.OutputLen, stats.Duration.Seconds())
}

func ask(in *bufio.Scanner, prompt string) string {
	fmt.Print(prompt)
	if !in.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(in.Text())
}
