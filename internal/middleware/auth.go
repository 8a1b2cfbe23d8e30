// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// UserIDKey is the context key for the verified user ID.
	UserIDKey ContextKey = "user_id"
	// UserNameKey is the context key for the display name claim.
	UserNameKey ContextKey = "user_name"
	// UserAvatarKey is the context key for the avatar claim.
	UserAvatarKey ContextKey = "user_avatar"
	// AgentIDKey is the context key for an agent-token-authenticated caller.
	AgentIDKey ContextKey = "agent_id"
)

// Claims represents JWT claims. The auth collaborator issues these; the room
// trusts the subject completely and performs no authentication of its own.
type Claims struct {
	jwt.RegisteredClaims
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Auth creates JWT authentication middleware. Tokens are accepted from the
// Authorization header or, for websocket upgrades, a token query parameter.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserNameKey, claims.Name)
			ctx = context.WithValue(ctx, UserAvatarKey, claims.Avatar)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AgentToken creates middleware authenticating automated participants by a
// static shared token in the X-Agent-Token header.
func AgentToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, `{"error":"agent API disabled"}`, http.StatusForbidden)
				return
			}
			supplied := r.Header.Get("X-Agent-Token")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				http.Error(w, `{"error":"invalid agent token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthOrAgent authenticates either a JWT user or an agent-token caller, for
// surfaces both kinds of participant read from. The presence of the
// X-Agent-Token header selects the scheme.
func AuthOrAgent(jwtSecret, agentToken string) func(http.Handler) http.Handler {
	userAuth := Auth(jwtSecret)
	agentAuth := AgentToken(agentToken)
	return func(next http.Handler) http.Handler {
		asUser := userAuth(next)
		asAgent := agentAuth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Agent-Token") != "" {
				asAgent.ServeHTTP(w, r)
				return
			}
			asUser.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// GetUserID gets the verified user ID from context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserName gets the display name claim from context.
func GetUserName(ctx context.Context) string {
	if v := ctx.Value(UserNameKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserAvatar gets the avatar claim from context.
func GetUserAvatar(ctx context.Context) string {
	if v := ctx.Value(UserAvatarKey); v != nil {
		return v.(string)
	}
	return ""
}
