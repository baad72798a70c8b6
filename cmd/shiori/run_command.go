package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shiori/internal/catalog"
	"shiori/internal/pipeline"
)

const timeRounding = time.Millisecond

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one collection and notification cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			orchestrator := pipeline.New(cfg, store, logger)
			report, err := orchestrator.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			printCycleReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printCycleReport(out io.Writer, report *pipeline.CycleReport) {
	rows := make([][]string, 0, len(report.Sources))
	for _, source := range report.Sources {
		status := "ok"
		if source.Err != "" {
			status = source.Err
		}
		rows = append(rows, []string{
			source.Name,
			strconv.Itoa(source.Fetched),
			strconv.Itoa(source.Created),
			strconv.Itoa(source.Duplicate),
			strconv.Itoa(len(source.Dropped)),
			status,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Source", "Fetched", "Created", "Duplicate", "Dropped", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	summary := fmt.Sprintf("Cycle %s: %d works created, %d releases created, %d notified, %d failed (%s)",
		report.CycleID, report.WorksCreated, report.ReleasesCreated,
		report.Dispatch.Notified, report.Dispatch.Failed, report.Duration.Round(timeRounding))
	fmt.Fprintln(out, emphasize(out, summary))

	for _, denied := range report.Dispatch.Denied {
		fmt.Fprintf(out, "withheld: %s (%s)\n", denied.Title, denied.Reason)
	}
}
