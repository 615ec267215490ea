package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	h "eventease/internal/delivery/http/helpers"
	"eventease/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	requestIDKey
)

var (
	errNoCredentials = errors.New("missing authorization header")
	errNotBearer     = errors.New("authorization scheme must be Bearer")
	errEmptyToken    = errors.New("missing token")
)

// SetUserID stores the authenticated entrant or organizer ID on ctx.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the ID stored by SetUserID. An empty ID counts as absent.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(userIDKey).(string)
	return id, id != ""
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", errNotBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

// RequireAuth admits requests carrying a token accepted by verifier and puts the
// caller's ID on the request context. Everything else gets a 401 challenge.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	unauthorized := func(w http.ResponseWriter, msg string) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="eventease"`)
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, msg)
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
				unauthorized(w, "invalid or expired token")
				return
			}
			ctx := r.Context()
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", userID))
			next(w, r.WithContext(SetUserID(ctx, userID)))
		}
	}
}
