package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hypatia-ai/hypatia/checkpoint"
)

var (
	resolveAction string
	resolveNotes  string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <run-id> <stage>",
	Short: "Resolve a pending checkpoint",
	Long: `Settles a pending checkpoint with an approve or reject verdict.
Modification verdicts carry a replacement stage output and are only
available through the checkpoint API.`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveAction, "action", "a", "", "Verdict: approve or reject (required)")
	resolveCmd.Flags().StringVarP(&resolveNotes, "notes", "n", "", "Reviewer notes")

	resolveCmd.MarkFlagRequired("action")
}

func runResolve(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.store.Close()

	action, err := checkpoint.ParseAction(resolveAction)
	if err != nil {
		return err
	}
	if action == checkpoint.ActionModify {
		return fmt.Errorf("modify verdicts require a replacement output; use the checkpoint API")
	}

	runID, stage := args[0], args[1]
	if err := app.checkpoints.Resolve(runID, stage, checkpoint.Resolution{
		Action: action,
		Notes:  resolveNotes,
	}); err != nil {
		return err
	}
	fmt.Printf("Checkpoint %s/%s resolved: %s\n", runID, stage, action)
	return nil
}
