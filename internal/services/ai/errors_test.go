package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExtractAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantNil   bool
		permanent bool
		retry     time.Duration
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "not throttling", err: errors.New("500 internal"), wantNil: true},
		{
			name:  "rate limit",
			err:   errors.New(`POST "/chat/completions": 429 Too Many Requests {"message":"slow down","type":"requests","code":"rate_limit_exceeded"}`),
			retry: time.Minute,
		},
		{
			name:      "quota",
			err:       errors.New(`429 {"message":"quota","type":"insufficient_quota","code":"insufficient_quota"}`),
			permanent: true,
			retry:     time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractAPIError(tt.err)
			if tt.wantNil {
				if got != nil {
					t.Errorf("ExtractAPIError() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("ExtractAPIError() = nil")
			}
			if got.IsPermanent != tt.permanent {
				t.Errorf("IsPermanent = %v, want %v", got.IsPermanent, tt.permanent)
			}
			if got.RetryAfter != tt.retry {
				t.Errorf("RetryAfter = %v, want %v", got.RetryAfter, tt.retry)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	if UserMessage(nil) != "" {
		t.Error("nil error should give empty message")
	}
	rate := &APIError{StatusCode: 429, Type: "rate_limit_error"}
	if !strings.Contains(UserMessage(rate), "rate limiting") {
		t.Errorf("UserMessage(rate) = %q", UserMessage(rate))
	}
	if got := UserMessage(errors.New("AI request failed: boom")); got != "AI request failed: boom" {
		t.Errorf("UserMessage() = %q", got)
	}
	if RetryAfter(errors.New("boom")) != 0 {
		t.Error("unrelated errors should not suggest a retry delay")
	}
}

func TestSanitizers(t *testing.T) {
	t.Parallel()

	if got := SanitizeAPIKey("sk-1234567890abcd"); got != "sk-1"+RedactedValue+"abcd" {
		t.Errorf("SanitizeAPIKey() = %q", got)
	}
	if got := SanitizeAPIKey("short"); got != RedactedValue {
		t.Errorf("SanitizeAPIKey(short) = %q", got)
	}
	long := strings.Repeat("a", MaxPreviewLength+50)
	if got := SanitizePrompt(long, false); len(got) != MaxPreviewLength+3 {
		t.Errorf("preview length = %d", len(got))
	}
	if got := SanitizeResponse("ok\x00\x1b[31m", false); got != "ok[31m" {
		t.Errorf("SanitizeResponse() = %q", got)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	if ExtractRequestID(ctx) != "req-1" {
		t.Error("request id not round-tripped through context")
	}
}
