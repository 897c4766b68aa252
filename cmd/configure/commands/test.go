package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/whatodo/internal/config"
	"github.com/benvon/whatodo/internal/prompt"
	"github.com/benvon/whatodo/internal/services/ai"
	"github.com/spf13/cobra"
)

// NewTestCmd sends a ping prompt through the configured AI provider
func NewTestCmd() *cobra.Command {
	var (
		model   string
		baseURL string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the AI provider configuration",
		Long:  "Send a short prompt through the configured provider and report the reply and latency",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if baseURL == "" {
				baseURL = cfg.AIBaseURL
			}

			registry := ai.NewProviderRegistry()
			ai.RegisterOpenAI(registry, nil, false)
			provider, err := registry.GetProvider(cfg.AIProvider, map[string]string{
				"api_key":  cfg.OpenAIKey,
				"base_url": baseURL,
				"model":    cfg.AIModel,
			}, nil)
			if err != nil {
				return fmt.Errorf("failed to create provider: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Testing provider: %s\n", cfg.AIProvider)
			if model != "" {
				fmt.Fprintf(out, "Model: %s\n", model)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			start := time.Now()
			reply, err := provider.Complete(ctx, prompt.Ping(), model)
			if err != nil {
				return fmt.Errorf("%s", ai.UserMessage(err))
			}
			fmt.Fprintf(out, "Reply: %s\n", strings.TrimSpace(reply))
			fmt.Fprintf(out, "Latency: %s\n", time.Since(start).Round(time.Millisecond))
			fmt.Fprintln(out, "\n✓ AI provider test passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model to test (defaults to AI_MODEL)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Override the provider base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	return cmd
}
