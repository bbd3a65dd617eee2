package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/apperr"
	"storefront_back_end/internal/auth"
)

const identityKey = "identity"

// AuthRequired resolves the bearer token and stores the caller in the
// context under "identity", plus "user_id", "email" and "role".
func AuthRequired(resolver auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		identity, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			log.Printf("❌ Token rejected: %s", apperr.Describe(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(identityKey, identity)
		c.Set("user_id", identity.UserID)
		c.Set("email", identity.Email)
		c.Set("role", identity.Role)
		c.Next()
	}
}

// IdentityFrom returns the caller stored by AuthRequired.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}

// RequireCapability lets the request through only if the caller holds cap.
// It must run after AuthRequired.
func RequireCapability(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if !identity.Can(capability) {
			log.Printf("🚫 %s denied to %s", capability, identity.UserID)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":               "insufficient permission",
				"required_permission": capability,
			})
			return
		}
		c.Next()
	}
}
