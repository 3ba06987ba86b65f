package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists allowed origins; empty or a single "*" allows all.
	AllowOrigins []string
	// AllowHeaders lists request headers clients may use. When empty, the
	// preflight echoes Access-Control-Request-Headers back.
	AllowHeaders []string
	// AllowCredentials enables the credentials flag. Credentials plus
	// wildcard origin is forbidden, so the specific origin is echoed instead.
	AllowCredentials bool
	// MaxAge is the preflight cache duration in seconds; zero omits it.
	MaxAge int
}

// CORS returns a middleware handling Cross-Origin Resource Sharing with
// case-insensitive origin matching and Vary headers set so shared caches do
// not serve a response for the wrong origin.
func CORS(cfg CORSConfig) Middleware {
	allowAll := len(cfg.AllowOrigins) == 0
	allowed := make(map[string]string, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowAll = true
			break
		}
		allowed[strings.ToLower(o)] = o
	}
	if cfg.AllowCredentials && allowAll {
		allowAll = false
	}

	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowOrigin := ""
			if allowAll {
				allowOrigin = "*"
			} else if orig, ok := allowed[strings.ToLower(origin)]; ok {
				allowOrigin = orig
			}

			// Preflight request.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Origin")
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")

				if allowOrigin != "" {
					w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					if allowHeaders != "" {
						w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
					} else if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
						w.Header().Set("Access-Control-Allow-Headers", rh)
					}
					if cfg.AllowCredentials {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
					if cfg.MaxAge > 0 {
						w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if !allowAll {
				w.Header().Add("Vary", "Origin")
			}
			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
