// Package request holds small helpers for reading incoming HTTP requests.
package request

import (
	"net"
	"net/http"
	"strings"
)

// IDHeader carries the request id in and out
const IDHeader = "X-Request-ID"

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For
// and X-Real-IP. The port is dropped from RemoteAddr so one client maps to one key.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// IncomingID returns a caller supplied request id if it looks sane
func IncomingID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(IDHeader))
	if id == "" || len(id) > 128 {
		return ""
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return id
}
