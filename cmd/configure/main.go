package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benvon/whatodo/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "whatodo-configure",
		Short: "Administration tool for whatodo",
		Long:  "CLI tool for inspecting stored data, choosing the AI model and authorizing calendar export",
	}

	open := commands.OpenConfigured
	rootCmd.AddCommand(commands.NewListCmd(open))
	rootCmd.AddCommand(commands.NewModelCmd(open))
	rootCmd.AddCommand(commands.NewClearCmd(open))
	rootCmd.AddCommand(commands.NewPromptCmd(open, time.Now))
	rootCmd.AddCommand(commands.NewTestCmd())
	rootCmd.AddCommand(commands.NewCalendarAuthCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
