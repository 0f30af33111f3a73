package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// FailureHook is invoked when a request fails authentication. The audit
// recorder uses it to capture authentication failures without this package
// depending on audit internals.
type FailureHook func(c *gin.Context, reason string)

// RequireAccessToken verifies an access token and injects the actor into the
// request context. It does not make authorization decisions; those belong to
// internal/authz.
func RequireAccessToken(m *Manager, onFailure FailureHook) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			if onFailure != nil {
				onFailure(c, "missing bearer token")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Authentication required"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			if onFailure != nil {
				onFailure(c, "invalid token")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Authentication required"})
			return
		}

		actor := Actor{
			UserID:          claims.UserID,
			Email:           claims.Email,
			OrganizationID:  claims.OrganizationID,
			PrimaryRegionID: claims.PrimaryRegionID,
			RegionIDs:       claims.RegionIDs,
			Roles:           claims.Roles,
		}
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))

		// Also store on gin context for handler convenience.
		c.Set("user_id", actor.UserID)
		c.Set("organization_id", actor.OrganizationID)

		c.Next()
	}
}
