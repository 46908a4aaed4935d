package middleware

import (
	"net/http"
	"strings"

	"github.com/quartermaster/backend/internal/util"
)

const maxLoggedValueLen = 200

// credentialHeaders are the headers that carry secrets on this API: the admin
// JWT travels in Authorization or the auth cookie, and service-to-service
// calls use key headers. Matched case-insensitively.
var credentialHeaders = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"set-cookie":    {},
	"x-api-key":     {},
	"x-service-key": {},
	"x-auth-token":  {},
}

// SanitizeHeaders prepares request headers for logging: credential headers
// are redacted, all other values are flattened and truncated.
func SanitizeHeaders(h http.Header) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for key, values := range h {
		if _, secret := credentialHeaders[strings.ToLower(key)]; secret {
			out[key] = []string{"<redacted>"}
			continue
		}
		clean := make([]string, 0, len(values))
		for _, v := range values {
			clean = append(clean, truncateForLog(util.SanitizeForLog(v)))
		}
		out[key] = clean
	}
	return out
}

// SanitizePath prepares a request path for logging. The query string is
// dropped entirely rather than sanitized.
func SanitizePath(p string) string {
	if i := strings.Index(p, "?"); i != -1 {
		p = p[:i]
	}
	return truncateForLog(util.SanitizeForLog(p))
}

func truncateForLog(s string) string {
	if len(s) > maxLoggedValueLen {
		return s[:maxLoggedValueLen]
	}
	return s
}
