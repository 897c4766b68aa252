package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is used when the caller passes no model
	DefaultOpenAIModel = "gpt-4.1-nano"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds the HTTP round trip
	DefaultTimeout = 60 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"

	tracerName = "github.com/benvon/whatodo/internal/services/ai"
)

var errMissingAPIKey = errors.New("openai api_key is required")

// OpenAIProvider sends prompts through an OpenAI-compatible chat completions endpoint.
// The API key is resolved per request so signing in or out takes effect at once.
type OpenAIProvider struct {
	client    openai.Client
	creds     CredentialSource
	model     string
	logger    *zap.Logger
	debugMode bool
}

// OpenAIOptions configures NewOpenAIProvider
type OpenAIOptions struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	DebugMode  bool
}

// NewOpenAIProvider creates a provider that reads its key from creds on every call
func NewOpenAIProvider(creds CredentialSource, opts OpenAIOptions) *OpenAIProvider {
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOpenAIBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(
		option.WithBaseURL(opts.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(1),
	)

	return &OpenAIProvider{
		client:    client,
		creds:     creds,
		model:     opts.Model,
		logger:    logger,
		debugMode: opts.DebugMode,
	}
}

// Complete sends prompt as a single user message and returns the first choice's text
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, model string) (string, error) {
	if model == "" {
		model = p.model
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ai.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.model", model),
		attribute.Int("ai.prompt_length", len(prompt)),
	)

	apiKey, err := p.creds.Credential()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing credential")
		return "", fmt.Errorf("AI request failed: %w", err)
	}

	requestID := ExtractRequestID(ctx)
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	if p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("model", model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("api_key", SanitizeAPIKey(apiKey)),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req, option.WithAPIKey(apiKey))
	latency := time.Since(start)
	span.SetAttributes(attribute.Int64("ai.latency_ms", latency.Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		p.logger.Warn("llm_api_error",
			zap.String("model", model),
			zap.String("error", SanitizeResponse(err.Error(), false)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("AI request failed: %w", apiErr)
		}
		return "", fmt.Errorf("AI request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, ErrNoChoicesInResponse)
		return "", fmt.Errorf("AI request failed: %s", ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("model", model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	return content, nil
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry, logger *zap.Logger, debugMode bool) {
	registry.Register("openai", func(config map[string]string, creds CredentialSource) (Completer, error) {
		if creds == nil {
			apiKey, ok := config["api_key"]
			if !ok || apiKey == "" {
				return nil, errMissingAPIKey
			}
			creds = StaticCredential(apiKey)
		}

		var timeout time.Duration
		if raw := config["timeout"]; raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid openai timeout %q: %w", raw, err)
			}
			timeout = d
		}

		return NewOpenAIProvider(creds, OpenAIOptions{
			BaseURL:   config["base_url"],
			Model:     config["model"],
			Timeout:   timeout,
			Logger:    logger,
			DebugMode: debugMode,
		}), nil
	})
}
