package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/daguilastro/Los5deSergito/internal/session"
)

type ctxKey int

const (
	actorKey ctxKey = iota
	requestIDKey
)

// RequestIDMiddleware tags each request with a unique id, honoring one the
// caller already set.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware rejects requests until an operator has logged in, and
// injects the actor into the request context for the handlers.
func SessionMiddleware(actors *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actors.Current()
			if !ok {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "no autenticado")
				return
			}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getActorFromContext(ctx context.Context) (session.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(session.Actor)
	return actor, ok
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
