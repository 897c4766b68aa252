package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/whatodo/internal/prompt"
	"github.com/spf13/cobra"
)

// NewPromptCmd prints the generation prompt for today's active tasks
func NewPromptCmd(open Opener, now func() time.Time) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the schedule generation prompt for today's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			all, err := repo.LoadTasks(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load tasks: %w", err)
			}
			at := now()
			active := prompt.ActiveTasks(all, at.Format("2006-01-02"))
			if len(active) == 0 {
				return errors.New("no active tasks for today")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt.Generation(active, at))
			return err
		},
	}
}
