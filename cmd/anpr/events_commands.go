package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Harky911/ReolinkANPR/internal/store"
)

var titleCaser = cases.Title(language.English)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and manage recorded plate sightings",
	}

	eventsCmd.AddCommand(newEventsListCommand(ctx))
	eventsCmd.AddCommand(newEventsRemoveCommand(ctx))
	eventsCmd.AddCommand(newEventsClearCommand(ctx))

	return eventsCmd
}

func newEventsListCommand(ctx *commandContext) *cobra.Command {
	var search string
	var period string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sightings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			period = strings.ToLower(strings.TrimSpace(period))
			switch period {
			case "", "today", "week", "month":
			default:
				return fmt.Errorf("invalid period %q (expected today, week, or month)", period)
			}

			return ctx.withStore(func(st *store.Store) error {
				events, total, err := st.List(cmd.Context(), store.ListFilter{
					Search: search,
					Period: period,
					Limit:  limit,
					Offset: offset,
				})
				if err != nil {
					return fmt.Errorf("list events: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(events) == 0 {
					fmt.Fprintln(out, "No sightings recorded")
					return nil
				}

				rows := make([][]string, 0, len(events))
				for _, event := range events {
					rows = append(rows, []string{
						strconv.FormatInt(event.ID, 10),
						event.Timestamp.Local().Format("2006-01-02 15:04:05"),
						event.PlateNumber,
						fmt.Sprintf("%.0f%%", event.Confidence*100),
						strconv.Itoa(event.FrameCount),
						event.ImagePath,
					})
				}

				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Time", "Plate", "Confidence", "Frames", "Image"},
					rows, 1, 4, 5))

				summary := fmt.Sprintf("Showing %d of %d sightings", len(events), total)
				if period != "" {
					summary += fmt.Sprintf(" (%s)", titleCaser.String(period))
				}
				fmt.Fprintln(out, summary)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by plate substring (case-insensitive)")
	cmd.Flags().StringVarP(&period, "period", "p", "", "Restrict to a period: today, week, or month")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of rows to skip")
	return cmd
}

func newEventsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one sighting by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			return ctx.withStore(func(st *store.Store) error {
				if err := st.Remove(cmd.Context(), id); err != nil {
					return fmt.Errorf("remove event: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed sighting %d\n", id)
				return nil
			})
		},
	}
}

func newEventsClearCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded sightings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				total, err := st.Count(cmd.Context())
				if err != nil {
					return fmt.Errorf("count events: %w", err)
				}
				if total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sightings recorded")
					return nil
				}

				if !assumeYes {
					fmt.Fprintf(cmd.OutOrStdout(), "Delete all %d sightings? [y/N] ", total)
					reader := bufio.NewReader(cmd.InOrStdin())
					answer, _ := reader.ReadString('\n')
					answer = strings.ToLower(strings.TrimSpace(answer))
					if answer != "y" && answer != "yes" {
						fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
						return nil
					}
				}

				if err := st.Clear(cmd.Context()); err != nil {
					return fmt.Errorf("clear events: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d sightings\n", total)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
