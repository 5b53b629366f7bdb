package httpapi

import (
	"context"
	"net/http"
	"strings"

	"photodrop/internal/server/access"
	"photodrop/internal/server/models"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// Authenticator resolves a bearer access token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header;
// "" when the header is missing or malformed.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return header[len(prefix):]
}

// requireAuth rejects requests without a valid bearer token with 401 and
// stores the resolved user in the context.
func requireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Detail: "not authenticated"})
			return
		}
		user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Detail: "not authenticated"})
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// optionalAuth resolves a bearer token when present but lets the request
// through as anonymous when it is missing or invalid.
func optionalAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := a.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(currentUserKey, user)
			}
		}
		c.Next()
	}
}

// currentUser returns the authenticated user set by requireAuth.
func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// viewerFrom builds the access viewer for the request: the authenticated
// user when one is set, anonymous otherwise.
func viewerFrom(c *gin.Context) access.Viewer {
	if u := currentUser(c); u != nil {
		return access.User(u.ID)
	}
	return access.Anonymous()
}
