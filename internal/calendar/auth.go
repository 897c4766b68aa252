package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ErrNoToken is returned when the token file has not been created yet
var ErrNoToken = errors.New("no calendar token; run `configure calendar-auth` first")

// Scopes requested from Google
var Scopes = []string{gcal.CalendarEventsScope, gcal.CalendarReadonlyScope}

// OAuthConfig reads an installed-app client secrets file
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", credentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return cfg, nil
}

// LoadToken reads an oauth2.Token from a JSON file
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes tok to path with owner-only permissions
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(tok)
}

// ServiceOptions locates credentials and the target calendar
type ServiceOptions struct {
	CredentialsFile string
	TokenFile       string
	// CalendarName is matched against calendar summaries; empty selects the primary calendar
	CalendarName string
}

// NewService builds an authenticated calendar service from stored credentials and
// resolves the target calendar id. Token refreshes happen inside the oauth2 client.
func NewService(ctx context.Context, opts ServiceOptions) (*gcal.Service, string, error) {
	cfg, err := OAuthConfig(opts.CredentialsFile)
	if err != nil {
		return nil, "", err
	}
	tok, err := LoadToken(opts.TokenFile)
	if err != nil {
		return nil, "", err
	}
	return newService(ctx, cfg.Client(ctx, tok), opts.CalendarName)
}

func newService(ctx context.Context, client *http.Client, calendarName string, extra ...option.ClientOption) (*gcal.Service, string, error) {
	srv, err := gcal.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(client)}, extra...)...)
	if err != nil {
		return nil, "", fmt.Errorf("unable to create calendar client: %w", err)
	}
	id, err := ResolveCalendarID(ctx, srv, calendarName)
	if err != nil {
		return nil, "", err
	}
	return srv, id, nil
}

// ResolveCalendarID finds the calendar whose summary equals name
func ResolveCalendarID(ctx context.Context, srv *gcal.Service, name string) (string, error) {
	if name == "" || name == "primary" {
		return "primary", nil
	}
	list, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	for _, item := range list.Items {
		if item.Summary == name {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar %q not found", name)
}
