// Package csrf verifies the per-session CSRF token on mutating requests.
package csrf

import (
	"crypto/subtle"

	"github.com/terralink/portal/internal/auth/domain"
)

// HeaderName is the request header carrying the CSRF token.
const HeaderName = "X-CSRF-Token"

// Check compares the presented token against the session's stored token
// in constant time. An absent token passes unless strict mode is on;
// a present token must always match.
func Check(stored, presented string, strict bool) error {
	if presented == "" {
		if strict {
			return domain.ErrCSRFMismatch
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return domain.ErrCSRFMismatch
	}
	return nil
}
