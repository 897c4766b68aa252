package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/whatodo/internal/calendar"
	"github.com/benvon/whatodo/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

// NewCalendarAuthCmd runs the installed-app OAuth flow and stores the token
// the worker uses for calendar export
func NewCalendarAuthCmd() *cobra.Command {
	var credentials, token string

	cmd := &cobra.Command{
		Use:   "calendar-auth",
		Short: "Authorize calendar export",
		RunE: func(cmd *cobra.Command, args []string) error {
			if credentials == "" || token == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				if credentials == "" {
					credentials = cfg.GoogleCredentialsFile
				}
				if token == "" {
					token = cfg.GoogleTokenFile
				}
			}
			if credentials == "" || token == "" {
				return errors.New("--credentials and --token (or GOOGLE_CREDENTIALS_FILE and GOOGLE_TOKEN_FILE) are required")
			}

			oauthCfg, err := calendar.OAuthConfig(credentials)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Fprintf(out, "Open this link in your browser, then paste the authorization code:\n%s\n\nCode: ", authURL)

			code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(code) == "" {
				return fmt.Errorf("unable to read authorization code: %w", err)
			}
			tok, err := oauthCfg.Exchange(cmd.Context(), strings.TrimSpace(code))
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}
			if err := calendar.SaveToken(token, tok); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n✓ Token saved to %s\n", token)
			return nil
		},
	}

	cmd.Flags().StringVar(&credentials, "credentials", "", "OAuth client secrets file")
	cmd.Flags().StringVar(&token, "token", "", "Where to write the token")
	return cmd
}
