package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ctxSessionClaims = "skillswap_session_claims"

// RequireUserToken returns a Gin middleware that enforces a valid session
// Bearer token. On success it injects the *SessionClaims into the context.
func RequireUserToken(tokens *SessionIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
				"code":  "unauthenticated",
			})
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid session token",
				"code":  "unauthenticated",
			})
			return
		}

		c.Set(ctxSessionClaims, claims)
		c.Next()
	}
}

// OptionalUserToken injects session claims when a valid Bearer token is
// present. It never aborts.
func OptionalUserToken(tokens *SessionIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearer(c); ok {
			if claims, err := tokens.Verify(tokenStr); err == nil {
				c.Set(ctxSessionClaims, claims)
			}
		}
		c.Next()
	}
}

// UserClaimsFromCtx retrieves the claims injected by RequireUserToken or
// OptionalUserToken. Returns nil if no session is present.
func UserClaimsFromCtx(c *gin.Context) *SessionClaims {
	v, _ := c.Get(ctxSessionClaims)
	claims, _ := v.(*SessionClaims)
	return claims
}

// UserIDFromCtx returns the authenticated user's ID, or uuid.Nil when the
// request carries no valid session.
func UserIDFromCtx(c *gin.Context) uuid.UUID {
	claims := UserClaimsFromCtx(c)
	if claims == nil {
		return uuid.Nil
	}
	id, err := claims.ID()
	if err != nil {
		return uuid.Nil
	}
	return id
}

func bearer(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}
