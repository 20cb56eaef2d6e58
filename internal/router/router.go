package router

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/record"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware validates the bearer token on every protected request and
// stashes the claim set in the request context. Classified failures (expired,
// bad signature, wrong issuer/audience, malformed) are logged but the caller
// always receives the same generic 401.
func AuthMiddleware(validator *auth.Validator, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
				return
			}
			token := strings.TrimSpace(header[len("bearer "):])
			claims, err := validator.Validate(token)
			if err != nil {
				logger.Debugw("token rejected", "path", r.URL.Path, "reason", err)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRoles allows the request through only when the authenticated claims
// hold at least one of the given roles.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFrom(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
				return
			}
			if !auth.Authorize(claims, roles) {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts HTTP handlers using the standard library's
// http.ServeMux. Register and login are public; everything else sits behind
// the auth middleware, and record writes additionally require a role.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, issuer *auth.Issuer, validator *auth.Validator) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /auth-api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authed := AuthMiddleware(validator, logger)
	editors := RequireRoles("editor", "admin")

	// account routes
	accountHandler := account.NewHandler(db, logger, issuer)
	mux.HandleFunc("POST /auth-api/register", accountHandler.Register)
	mux.HandleFunc("POST /auth-api/login", accountHandler.Login)
	mux.Handle("GET /auth-api/profile", authed(http.HandlerFunc(accountHandler.Profile)))
	mux.Handle("POST /auth-api/change-password", authed(http.HandlerFunc(accountHandler.ChangePassword)))
	mux.Handle("POST /auth-api/logout", authed(http.HandlerFunc(accountHandler.Logout)))

	// record routes
	recordHandler := record.NewHandler(db, logger)
	mux.Handle("GET /auth-api/records", authed(http.HandlerFunc(recordHandler.List)))
	mux.Handle("GET /auth-api/records/{id}", authed(http.HandlerFunc(recordHandler.Get)))
	mux.Handle("POST /auth-api/records", authed(editors(http.HandlerFunc(recordHandler.Create))))
	mux.Handle("PUT /auth-api/records/{id}", authed(editors(http.HandlerFunc(recordHandler.Update))))
	mux.Handle("DELETE /auth-api/records/{id}", authed(editors(http.HandlerFunc(recordHandler.Delete))))

	// wrap with security headers middleware then logging middleware
	handler := LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
	return handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
