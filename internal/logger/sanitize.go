package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Limits applied to user or model controlled strings before they reach a log line
const (
	MaxPathLength  = 500
	MaxTitleLength = 200
	MaxReplyLength = 2000
)

// Clean drops non-printable runes, repairs UTF-8 and cuts s to at most max
// bytes on a rune boundary, marking the cut with "...".
func Clean(s string, max int) string {
	if s == "" {
		return ""
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' {
			return r
		}
		return -1
	}, strings.ToValidUTF8(s, ""))
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// SanitizePath cleans a request path for logging
func SanitizePath(path string) string {
	return Clean(path, MaxPathLength)
}

// Title is the log field for a task or block title
func Title(title string) zap.Field {
	return zap.String("title", Clean(title, MaxTitleLength))
}

// ReplyPreview is the log field for a model reply that could not be used
func ReplyPreview(reply string) zap.Field {
	return zap.String("reply_preview", Clean(reply, MaxReplyLength))
}
