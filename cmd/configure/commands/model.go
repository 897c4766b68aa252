package commands

import (
	"fmt"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/settings"
	"github.com/spf13/cobra"
)

// NewModelCmd shows or sets the AI model used for generation and chat
func NewModelCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "model [name]",
		Short: "Show or set the AI model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			current, err := repo.LoadSettings(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintf(out, "Current model: %s\n", current.AIModel)
				fmt.Fprintln(out, "Available models:")
				for _, m := range models.AIModels {
					fmt.Fprintf(out, "  - %s\n", m)
				}
				return nil
			}

			var saveErr error
			store := settings.NewStore(func(s models.Settings) {
				saveErr = repo.SaveSettings(cmd.Context(), s)
			})
			store.Replace(current)
			if err := store.SetModel(models.AIModel(args[0])); err != nil {
				return err
			}
			if saveErr != nil {
				return fmt.Errorf("failed to save settings: %w", saveErr)
			}
			fmt.Fprintf(out, "✓ Model set to %s\n", args[0])
			return nil
		},
	}
}
