package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Headers adds the baseline hardening headers to every response.
type Headers struct {
	Enable                bool
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Enable {
			next.ServeHTTP(w, r)
			return
		}
		hdr := w.Header()
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("X-Frame-Options", "DENY")
		hdr.Set("Referrer-Policy", "no-referrer")
		hdr.Set("Permissions-Policy", "geolocation=(), microphone=()")
		// HSTS only over TLS, a plaintext response must not pin the host
		if h.EnableHSTS && r.TLS != nil {
			hdr.Set("Strict-Transport-Security", h.hstsValue())
		}
		next.ServeHTTP(w, r)
	})
}

func (h Headers) hstsValue() string {
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 31536000
	}
	v := "max-age=" + strconv.Itoa(maxAge)
	if h.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	return v
}

// AllowCORS builds middleware that admits only the origins in the CSV
// allowlist. "*" allows any origin but then credentials are never exposed.
func AllowCORS(originsCSV string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	wildcard := false
	for _, origin := range strings.Split(originsCSV, ",") {
		switch origin = strings.TrimSpace(origin); origin {
		case "":
		case "*":
			wildcard = true
		default:
			allowed[origin] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			granted := false
			switch {
			case origin == "":
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Del("Access-Control-Allow-Credentials")
				granted = true
			default:
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					granted = true
				}
			}
			if granted {
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept, X-CSRF-Token, X-Request-ID, X-Idempotency-Key")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Expose-Headers", "Link, X-Request-ID")
			}

			if r.Method == http.MethodOptions {
				if granted || (origin == "" && wildcard) {
					w.WriteHeader(http.StatusNoContent)
				} else {
					http.Error(w, "cors origin not allowed", http.StatusForbidden)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
