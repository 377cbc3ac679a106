package core

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const (
	userContextKey  = "user"
	requestIDHeader = "X-Request-ID"
)

type requestIDKey struct{}

// RequestIDMiddleware propagates a valid incoming X-Request-ID or mints a new one,
// and stores it on the request context for log lines.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := ulid.ParseStrict(id); err != nil {
			id = NewRequestID()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, id))
		c.Next()
	}
}

// RequestIDFromContext returns the id set by RequestIDMiddleware, or "-".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return "-"
}

// IdentityMiddleware resolves the session cookie into the current user.
// A cookie that no longer resolves is cleared and the request continues anonymously.
func IdentityMiddleware(cfg Config, auth *AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}
		user, err := auth.Resolve(c.Request.Context(), token)
		if err != nil {
			log.Printf("[auth] resolve session failed request_id=%s: %v", RequestIDFromContext(c.Request.Context()), err)
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "session error")
			c.Abort()
			return
		}
		if user == nil {
			ClearSessionCookie(c.Writer, cfg)
		} else {
			c.Set(userContextKey, user)
		}
		c.Next()
	}
}

// RequireUser sends anonymous callers to the login page.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			redirectTo(c, "/sessions/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	u, _ := v.(*User)
	return u
}
