package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"escrowd/pkg/requestcontext"
)

// ClientMetadata extracts the client IP, raw User-Agent, and a parsed device
// description from the request and adds them to the context. Withdrawal and
// recovery events carry these for the audit trail. Apply early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawUA := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(
			r.Context(),
			ClientIPFromRequest(r),
			rawUA,
			describeDevice(rawUA),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// describeDevice condenses a User-Agent into a short human-readable device
// string. Non-browser clients (escrowctl, curl) pass through as-is.
func describeDevice(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return rawUA
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s on %s", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}

// ClientIPFromRequest extracts the real client IP from the request, handling
// proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...);
	// the first is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// X-Real-IP is set by nginx and similar proxies.
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" ("[::1]:port" for IPv6); strip the port.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
