package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/auth"
	"github.com/nandhanalahari/preva/internal/database"
	"github.com/nandhanalahari/preva/pkg/models"
)

type contextKey string

const actorKey contextKey = "actor"

// AuthMiddleware validates the bearer token and places the resolved Actor on
// the request context. Patient tokens are re-checked against the user record
// so a deleted credential stops working immediately.
func AuthMiddleware(secret string, db *database.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			userID, role, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			actor := auth.Actor{UserID: userID, Role: role}
			if role == models.RolePatient {
				user, err := db.GetUserByID(r.Context(), userID)
				if err != nil {
					respondError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				actor.PatientID = user.PatientID
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func actorFrom(r *http.Request) auth.Actor {
	actor, _ := r.Context().Value(actorKey).(auth.Actor)
	return actor
}

// RequestLogger emits one structured line per request
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
