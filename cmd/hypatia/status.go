package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show run status",
	Long:  `With a run id, prints that run's record. Without one, lists all runs.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.store.Close()

	if len(args) == 1 {
		run, err := app.runner.Status(ctx, args[0])
		if err != nil {
			return err
		}
		printRun(run)
		return nil
	}

	runs, err := app.runner.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs.")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %-10s  %-10s  %s -> %s\n",
			run.ID, run.Status, run.Phase, run.Request.ConceptA, run.Request.ConceptB)
	}
	return nil
}
