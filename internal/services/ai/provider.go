package ai

import (
	"context"
)

// Completer is the text-completion call the scheduling engine depends on
type Completer interface {
	// Complete sends prompt to model and returns the raw reply text
	Complete(ctx context.Context, prompt string, model string) (string, error)
}

// CredentialSource supplies the API key for each outgoing request
type CredentialSource interface {
	Credential() (string, error)
}

// StaticCredential is a fixed API key
type StaticCredential string

// Credential returns the key, or an error when it is empty
func (c StaticCredential) Credential() (string, error) {
	if c == "" {
		return "", errMissingAPIKey
	}
	return string(c), nil
}

// ProviderFactory creates an AI provider from string settings
type ProviderFactory func(config map[string]string, creds CredentialSource) (Completer, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string, creds CredentialSource) (Completer, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config, creds)
}

// Names lists registered providers
func (r *ProviderRegistry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
