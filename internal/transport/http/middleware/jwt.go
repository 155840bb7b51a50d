package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"photoshare/internal/app"
	"photoshare/internal/pkg/token"
	"photoshare/internal/transport/http/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
	ContextClaimsKey = "claims"
)

// AuthJWT accepts only access-purpose tokens that pass signature and expiry
// checks and are not present in the revocation cache.
func AuthJWT(tokens *token.Service, revoked app.TokenRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := tokens.Verify(raw, token.PurposeAccess)
		if err != nil {
			response.Error(c, 401, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			response.Error(c, 500, response.CodeInternalServer, "token check failed")
			c.Abort()
			return
		}
		if isRevoked {
			response.Error(c, 401, response.CodeUnauthorized, "token revoked")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, claims.Role)
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

// ActorFromContext rebuilds the authenticated caller from what AuthJWT stored.
func ActorFromContext(c *gin.Context) (app.Actor, bool) {
	userIDAny, exists := c.Get(ContextUserIDKey)
	if !exists {
		return app.Actor{}, false
	}
	userID, ok := userIDAny.(uint)
	if !ok || userID == 0 {
		return app.Actor{}, false
	}
	role, _ := c.Get(ContextRoleKey)
	roleStr, _ := role.(string)
	return app.Actor{ID: userID, Role: roleStr}, true
}

// ClaimsFromContext returns the verified access claims stored by AuthJWT.
func ClaimsFromContext(c *gin.Context) (*token.Claims, bool) {
	claimsAny, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := claimsAny.(*token.Claims)
	return claims, ok
}
