package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIError is a classified provider failure
type APIError struct {
	Message    string
	Type       string
	Code       string
	StatusCode int
	RetryAfter time.Duration
	// IsPermanent is true for exhausted quota, false for transient rate limits.
	IsPermanent bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError reports a transient 429
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 && !apiErr.IsPermanent
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsQuotaError reports an exhausted account quota
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "insufficient_quota") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "billing")
}

// ExtractAPIError classifies a 429 from the SDK error text. Other errors yield nil.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "429") {
		return nil
	}

	apiErr := &APIError{
		StatusCode: 429,
		Message:    errStr,
		Type:       "rate_limit_error",
		RetryAfter: time.Minute,
	}

	// The SDK embeds the JSON error body in its message
	start := strings.Index(errStr, "{")
	end := strings.LastIndex(errStr, "}")
	if start != -1 && end > start {
		type detail struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		}
		var body struct {
			detail
			Error *detail `json:"error"`
		}
		if json.Unmarshal([]byte(errStr[start:end+1]), &body) == nil {
			if body.Error != nil {
				body.detail = *body.Error
			}
			apiErr.Message = body.Message
			apiErr.Type = body.Type
			apiErr.Code = body.Code
			if body.Code == "insufficient_quota" {
				apiErr.IsPermanent = true
				apiErr.RetryAfter = time.Hour
			}
		}
	}
	return apiErr
}

// RetryAfter suggests how long a client should wait before trying again;
// zero means the failure is not throttling related.
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	if IsRateLimitError(err) {
		return time.Minute
	}
	return 0
}

// UserMessage turns a provider failure into text suitable for the chat log
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsQuotaError(err):
		return "The AI provider quota is exhausted. Check your plan or switch models."
	case IsRateLimitError(err):
		return "The AI provider is rate limiting requests. Try again in a minute."
	default:
		return err.Error()
	}
}
