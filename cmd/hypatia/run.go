package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hypatia-ai/hypatia/checkpoint"
	"github.com/hypatia-ai/hypatia/pipeline"
)

var (
	runObjective  string
	runConceptA   string
	runConceptB   string
	runGraphPath  string
	runStrategy   string
	runIterations int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a hypothesis-generation run",
	Long: `Starts a pipeline run and waits for it to finish. When checkpoint
gating is enabled, pending checkpoints are presented on stdin for
approval, rejection, or deferral to the resolve command.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runObjective, "objective", "o", "", "Research objective (required)")
	runCmd.Flags().StringVar(&runConceptA, "concept-a", "", "Source concept id (required)")
	runCmd.Flags().StringVar(&runConceptB, "concept-b", "", "Target concept id (required)")
	runCmd.Flags().StringVarP(&runGraphPath, "graph", "g", "", "Knowledge graph path (overrides config)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "Path strategy for this run (overrides config)")
	runCmd.Flags().IntVar(&runIterations, "max-iterations", 0, "Revise-loop cap for this run (overrides config)")

	runCmd.MarkFlagRequired("objective")
	runCmd.MarkFlagRequired("concept-a")
	runCmd.MarkFlagRequired("concept-b")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.store.Close()

	graphPath := runGraphPath
	if graphPath == "" {
		graphPath = app.cfg.Graph.Path
	}

	id, err := app.runner.Start(ctx, pipeline.RunRequest{
		GraphPath:     graphPath,
		Objective:     runObjective,
		ConceptA:      runConceptA,
		ConceptB:      runConceptB,
		Strategy:      runStrategy,
		MaxIterations: runIterations,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Run started: %s\n", id)

	// Surface pending checkpoints while the run executes.
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if app.checkpoints != nil && app.checkpoints.Mode() != checkpoint.ModeDisabled {
		go watchCheckpoints(watchCtx, app.checkpoints, id)
	}

	run, err := app.runner.Result(ctx, id)
	if err != nil {
		// Ctrl-C cancels the run but still reports its final record.
		if ctx.Err() != nil {
			app.runner.Cancel(id)
			app.runner.Wait()
			if final, serr := app.runner.Status(context.Background(), id); serr == nil {
				run = final
			}
		}
		if run == nil {
			return err
		}
	}
	stopWatch()

	printRun(run)
	return nil
}

// watchCheckpoints polls for pending checkpoints on the run and prompts the
// operator on stdin.
func watchCheckpoints(ctx context.Context, mgr *checkpoint.Manager, runID string) {
	reader := bufio.NewReader(os.Stdin)
	seen := make(map[string]bool)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, rec := range mgr.Pending() {
			if rec.RunID != runID || seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			promptCheckpoint(mgr, reader, rec)
		}
	}
}

// promptCheckpoint asks the operator to approve or reject one checkpoint.
// Anything other than approve/reject leaves it pending for the resolve
// command or the configured timeout.
func promptCheckpoint(mgr *checkpoint.Manager, reader *bufio.Reader, rec *checkpoint.Record) {
	fmt.Printf("\nCheckpoint: stage %s (confidence %.2f)\n", rec.Stage, rec.Confidence)
	fmt.Print("Action [approve/reject/skip] (optional notes after action): ")

	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	action, err := checkpoint.ParseAction(fields[0])
	if err != nil || action == checkpoint.ActionModify {
		fmt.Println("Leaving checkpoint pending; use 'hypatia resolve' to settle it.")
		return
	}
	res := checkpoint.Resolution{
		Action: action,
		Notes:  strings.Join(fields[1:], " "),
	}
	if err := mgr.Resolve(rec.RunID, rec.Stage, res); err != nil {
		fmt.Printf("Resolve failed: %v\n", err)
	}
}

// printRun renders a finished run for the terminal.
func printRun(run *pipeline.Run) {
	fmt.Printf("\nRun %s: %s\n", run.ID, run.Status)
	if run.AbortReason != "" {
		fmt.Printf("Reason: %s\n", run.AbortReason)
	}
	fmt.Printf("Iterations: %d", run.Iterations)
	if run.MaxIterationsReached {
		fmt.Print(" (iteration cap reached)")
	}
	fmt.Println()

	if len(run.ConfidenceTrace) > 0 {
		fmt.Println("Confidence trace:")
		for _, sample := range run.ConfidenceTrace {
			fmt.Printf("  %-12s iter %d  %.2f\n", sample.Stage, sample.Iteration, sample.Confidence)
		}
	}
	if len(run.TokenUsage) > 0 {
		var total int
		for _, usage := range run.TokenUsage {
			total += usage.TotalTokens
		}
		fmt.Printf("Tokens used: %d\n", total)
	}

	if run.Hypothesis == nil {
		return
	}
	h := run.Hypothesis
	fmt.Println("\nHypothesis:")
	fmt.Printf("  %s\n", h.Hypothesis)
	fmt.Printf("\nBackground:\n  %s\n", h.Background)
	if len(h.Mechanisms) > 0 {
		fmt.Println("\nMechanisms:")
		for _, m := range h.Mechanisms {
			fmt.Printf("  - %s\n", m)
		}
	}
	if len(h.ExpectedOutcomes) > 0 {
		fmt.Println("\nExpected outcomes:")
		for _, o := range h.ExpectedOutcomes {
			fmt.Printf("  - %s\n", o)
		}
	}
	if h.Validation != "" {
		fmt.Printf("\nValidation:\n  %s\n", h.Validation)
	}
	if h.Novelty != "" {
		fmt.Printf("\nNovelty:\n  %s\n", h.Novelty)
	}
	if len(h.Citations) > 0 {
		fmt.Println("\nCitations:")
		for _, c := range h.Citations {
			fmt.Printf("  - %s\n", c)
		}
	}
}
