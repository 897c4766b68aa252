package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/timeutil"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "list [tasks|schedule|snapshots]",
		Short:     "List stored tasks, the current schedule, or saved snapshots",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"tasks", "schedule", "snapshots"},
		RunE: func(cmd *cobra.Command, args []string) error {
			what := "tasks"
			if len(args) == 1 {
				what = args[0]
			}

			repo, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			switch what {
			case "tasks":
				all, err := repo.LoadTasks(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load tasks: %w", err)
				}
				return printTasks(out, all)
			default:
				state, err := repo.LoadSchedule(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load schedule: %w", err)
				}
				if what == "schedule" {
					return printBlocks(out, state.Date, state.Blocks)
				}
				return printSnapshots(out, state.Snapshots)
			}
		},
	}
	return cmd
}

func printTasks(out io.Writer, all []models.Task) error {
	if len(all) == 0 {
		_, err := fmt.Fprintln(out, "No tasks")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tPRIORITY\tMINUTES\tDATE\tTITLE")
	for _, t := range all {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", t.Status, t.Priority, t.EstimatedMinutes, t.Date, t.Title)
	}
	return tw.Flush()
}

func printBlocks(out io.Writer, date string, blocks []models.ScheduleBlock) error {
	if len(blocks) == 0 {
		_, err := fmt.Fprintln(out, "No schedule")
		return err
	}
	total := 0
	for _, b := range blocks {
		if d, err := timeutil.Span(b.StartTime, b.EndTime); err == nil {
			total += d
		}
	}
	fmt.Fprintf(out, "Schedule for %s (%d blocks, %s)\n", date, len(blocks), timeutil.FormatDuration(total))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, b := range blocks {
		fmt.Fprintf(tw, "%s-%s\t%s\n", b.StartTime, b.EndTime, b.TaskTitle)
	}
	return tw.Flush()
}

func printSnapshots(out io.Writer, snaps []models.Snapshot) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(out, "No saved schedules")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSAVED\tDATE\tTASKS\tLABEL")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.SavedAt.Format("2006-01-02 15:04"), s.Date, s.TaskCount, s.Label)
	}
	return tw.Flush()
}
