package ai

import (
	"context"

	logpkg "github.com/benvon/whatodo/internal/logger"
)

type requestIDKey struct{}

// Preview limits for prompt and reply text in provider logs
const (
	MaxPreviewLength      = 200
	MaxDebugPreviewLength = 10000
	RedactedValue         = "[REDACTED]"
)

// WithRequestID tags ctx with the HTTP request id so provider logs can be correlated
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// ExtractRequestID returns the id set by WithRequestID, or ""
func ExtractRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// SanitizeAPIKey keeps the first and last four characters of a key
func SanitizeAPIKey(apiKey string) string {
	switch {
	case apiKey == "":
		return ""
	case len(apiKey) <= 8:
		return RedactedValue
	default:
		return apiKey[:4] + RedactedValue + apiKey[len(apiKey)-4:]
	}
}

// SanitizePrompt previews a prompt; fullLog raises the length limit
func SanitizePrompt(prompt string, fullLog bool) string {
	return logpkg.Clean(prompt, previewLimit(fullLog))
}

// SanitizeResponse previews a reply or provider error text
func SanitizeResponse(response string, fullLog bool) string {
	return logpkg.Clean(response, previewLimit(fullLog))
}

func previewLimit(fullLog bool) int {
	if fullLog {
		return MaxDebugPreviewLength
	}
	return MaxPreviewLength
}
