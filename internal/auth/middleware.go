package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type ctxKey struct{}

// ActorID returns the authenticated actor of the request, or "" when the
// request is anonymous.
func ActorID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// OwnerID is ActorID as the nullable owner column expects it.
func OwnerID(ctx context.Context) *string {
	id := ActorID(ctx)
	if id == "" {
		return nil
	}
	return &id
}

func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, actorID)
}

// Middleware attaches the actor named by a bearer token to the request
// context. A missing Authorization header is anonymous; a malformed or
// invalid one is rejected with 401. A nil authenticator treats every request
// as anonymous and rejects any token it is shown.
func Middleware(a *JWTAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || a == nil {
				logger.Warn("rejected authorization header", "path", r.URL.Path)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			actorID, err := a.ValidateToken(parts[1])
			if err != nil {
				logger.Warn("rejected token", "path", r.URL.Path, "error", err)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actorID)))
		})
	}
}
