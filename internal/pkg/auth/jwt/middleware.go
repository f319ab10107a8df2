package jwt

import (
	"context"
	"net/http"
	"strings"

	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
)

type contextKey string

const (
	// ContextAuthPayloadKey is the key used to store the parsed jwt.Payload in the request Context.
	ContextAuthPayloadKey contextKey = "auth_payload"

	// QueryTokenKey is the query parameter browsers use to pass a token on WebSocket upgrades,
	// since they cannot set headers on that request.
	QueryTokenKey = "token"
)

// TokenFromRequest extracts a bearer token from the Authorization header,
// falling back to the token query parameter. It returns "" when neither is present.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	return strings.TrimSpace(r.URL.Query().Get(QueryTokenKey))
}

// IdentityExtractorMiddleware validates a bearer token when present and injects the Payload
// into the Context. Requests without a valid token continue anonymously.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := TokenFromRequest(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			payload, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Invalid or expired JWT provided, treating as anonymous", "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext extracts the authenticated Payload from the request Context.
// A nil return means the caller is anonymous.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)

	if !ok {
		return nil
	}

	return payload
}
