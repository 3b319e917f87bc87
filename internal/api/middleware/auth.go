package middleware

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/changheecho2/banju/internal/auth"
)

const (
	// ContextKeyClaims holds the verified *auth.Claims in the Gin context.
	ContextKeyClaims = "claims"
)

// IdentityMiddleware resolves an optional Bearer token into claims.
// Requests without a valid token continue as guests; handlers decide
// whether a method needs an identity.
func IdentityMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
			log.Printf("DEBUG: malformed Authorization header from %s", c.ClientIP())
			c.Next()
			return
		}

		claims, err := auth.ValidateJWT(tokenString, jwtSecret)
		if err != nil {
			log.Printf("DEBUG: ignoring invalid token from %s: %v", c.ClientIP(), err)
			c.Next()
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// ClaimsFrom returns the caller's claims, or nil for guests.
func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
