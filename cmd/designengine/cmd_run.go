package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"designengine/internal/config"
	"designengine/internal/engine"
	"designengine/internal/llmclient"
	"designengine/internal/registry"
	"designengine/internal/render"
	"designengine/internal/schema"
	"designengine/internal/session"
)

func init() {
	runCmd.Flags().StringVar(&runUser, "user", "", "user the session belongs to (defaults to the OS user)")
	rootCmd.AddCommand(runCmd)
}

var runUser string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive design workflow in the terminal",
	RunE:  runInteractive,
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	owner := strings.TrimSpace(runUser)
	if owner == "" {
		if u, err := user.Current(); err == nil {
			owner = u.Username
		} else {
			owner = "local"
		}
	}

	ctx := context.Background()
	if cfg.Gemini.APIKey != "" {
		_ = os.Setenv("GEMINI_API_KEY", cfg.Gemini.APIKey)
	}
	llm, err := llmclient.NewGeminiClient(ctx, cfg.Gemini.Model)
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	defer llm.Close()

	eng, err := engine.New(engine.Config{
		LLM:          llm,
		Store:        session.NewStoreFromEnv(),
		Registry:     registry.New(),
		Renderer:     render.NewDocxRenderer(),
		Retry:        engine.DefaultRetryPolicy(),
		DocumentsDir: cfg.DocumentsDir,
	})
	if err != nil {
		return err
	}

	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "== Phase 1: project definition ==")
	inputs := schema.Phase1Inputs{
		ProjectName:       p.askText("Project name"),
		ProjectType:       p.askSingleChoice("Project type:", schema.ProjectTypes),
		Platform:          p.askSingleChoice("Target platform:", schema.Platforms),
		Description:       p.askText("Short description"),
		CoreFeatures:      p.askCommaList("Core features"),
		ExpectedUserScale: p.askSingleChoice("Expected user scale:", schema.UserScales),
		Constraints:       p.askOptionalMultiChoice("Key constraints:", schema.ConstraintOptions),
	}

	ref, err := eng.StartSession(ctx, cfg.Scope, owner, inputs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSession %s created.\n", ref.ID)

	fmt.Fprintln(out, "\n== Phase 2: clarification questions ==")
	fmt.Fprintln(out, "Generating questions...")
	qs, err := eng.GenerateQuestions(ctx, ref)
	if err != nil {
		return fmt.Errorf("question generation: %w", err)
	}

	answers := make(schema.AnswerSet, qs.Len())
	for _, text := range qs.Texts() {
		q, _ := qs.Get(text)
		answers[text] = p.askMultiChoice("\n"+text, q.Options)
	}
	if err := eng.SubmitAnswers(ctx, ref, answers); err != nil {
		return fmt.Errorf("submit answers: %w", err)
	}

	fmt.Fprintln(out, "\n== Phase 3: system design ==")
	fmt.Fprintln(out, "Generating design document (this can take a while)...")
	if _, err := eng.GenerateDesign(ctx, ref); err != nil {
		return fmt.Errorf("design generation: %w", err)
	}
	printDocuments(out, eng, owner)

	for {
		fmt.Fprint(out, "\nFeedback on the design (empty to finish): ")
		feedback := p.readLine()
		if feedback == "" {
			break
		}
		fmt.Fprintln(out, "Refining design...")
		if _, err := eng.RefineDesign(ctx, ref, feedback); err != nil {
			fmt.Fprintf(out, "Refinement failed, previous design kept: %v\n", err)
			continue
		}
		printDocuments(out, eng, owner)
	}
	fmt.Fprintln(out, "Done.")
	return nil
}

func printDocuments(out io.Writer, eng *engine.Engine, owner string) {
	entries := eng.Documents(owner)
	if len(entries) == 0 {
		return
	}
	last := entries[len(entries)-1]
	fmt.Fprintf(out, "Document written: %s\n", last.Location)
}
