package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	appchat "rentline/internal/app/services/chat"
	domainchat "rentline/internal/domain/chat"
)

const principalContextKey = "rentline.principal"

type principal struct {
	ID         string
	Privileged bool
	Token      string
}

// AuthMiddleware resolves the bearer token through the identity gate and
// stashes the principal. Requests without a resolvable identity pass
// through anonymously; handlers decide whether identity is required.
type AuthMiddleware struct {
	Gate   appchat.IdentityGate
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Gate == nil {
		c.Next()
		return
	}
	resolved, err := m.Gate.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainchat.ErrUnauthenticated) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{
		ID:         string(resolved.ID),
		Privileged: resolved.Privileged,
		Token:      token,
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requirePrincipal(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
