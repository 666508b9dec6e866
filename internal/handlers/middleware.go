package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/app"
	"github.com/nikhileshnr/mess-rebate-system/internal/metrics"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

type ctxKey int

const sessionKey ctxKey = iota

// SessionFrom returns the manager session attached by RequireSession, if any.
func SessionFrom(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey).(*models.Session)
	return session
}

// Metrics records request durations labelled with the matched route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.APIRequestDuration.WithLabelValues(
				path,
				r.Method,
				strconv.Itoa(status),
			).Observe(time.Since(start).Seconds())
		}()
		next.ServeHTTP(ww, r)
	})
}

// RequireSession rejects requests without a valid manager session when auth
// is enabled.
func RequireSession(auth *app.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil || !auth.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			session, err := auth.Authenticate(r.Context(), r.Header.Get(auth.TokenHeader()))
			if errors.Is(err, app.ErrUnauthorized) {
				logger.Debug.Printf("Auth failed for %s %s: %v", r.Method, r.URL.Path, err)
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errorBody{
					Code:    codeUnauthorized,
					Message: "Unauthorized",
				}})
				return
			}
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
