package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shiori/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the release catalog",
	}

	catalogCmd.AddCommand(newCatalogWorksCommand(ctx))
	catalogCmd.AddCommand(newCatalogPendingCommand(ctx))
	catalogCmd.AddCommand(newCatalogStatsCommand(ctx))

	return catalogCmd
}

func (c *commandContext) withStore(fn func(*catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newCatalogWorksCommand(ctx *commandContext) *cobra.Command {
	var workType string

	cmd := &cobra.Command{
		Use:   "works",
		Short: "List tracked works",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				kind := catalog.WorkType(workType)
				if !catalog.ValidWorkType(kind) {
					return fmt.Errorf("unknown work type %q (anime or manga)", workType)
				}
				works, err := store.WorksByType(cmd.Context(), kind)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(works))
				for _, work := range works {
					rows = append(rows, []string{
						strconv.FormatInt(work.ID, 10),
						work.Title,
						work.TitleEn,
						strconv.Itoa(work.ReleaseCount),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "English Title", "Releases"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&workType, "type", "t", "anime", "Work type to list (anime or manga)")
	return cmd
}

func newCatalogPendingCommand(ctx *commandContext) *cobra.Command {
	var asOfFlag string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List due releases awaiting notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now().UTC()
			if asOfFlag != "" {
				parsed, err := time.Parse("2006-01-02", asOfFlag)
				if err != nil {
					return fmt.Errorf("parse --as-of: %w", err)
				}
				asOf = parsed
			}

			return ctx.withStore(func(store *catalog.Store) error {
				due, err := store.SelectUnnotifiedDue(cmd.Context(), asOf)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(due))
				for _, release := range due {
					rows = append(rows, []string{
						strconv.FormatInt(release.ID, 10),
						release.Work.Title,
						release.Label(),
						release.Platform,
						release.ReleaseDate.Format("2006-01-02"),
						release.Source,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Installment", "Platform", "Date", "Source"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "Due date cutoff (YYYY-MM-DD, default today)")
	return cmd
}

func newCatalogStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Works:      %d\n", stats.Works)
				fmt.Fprintf(out, "Releases:   %d\n", stats.Releases)
				fmt.Fprintf(out, "Unnotified: %d\n", stats.UnnotifiedReleases)
				fmt.Fprintf(out, "Database:   %s\n", store.Path())
				return nil
			})
		},
	}
}
