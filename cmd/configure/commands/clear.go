package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewClearCmd deletes every stored task, schedule, snapshot and setting
func NewClearCmd(open Opener) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			repo, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := repo.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear data: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ All data cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
