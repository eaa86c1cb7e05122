package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/chantierhq/chantier/internal/apiserver/acl"
	"github.com/chantierhq/chantier/internal/apiserver/database"
)

const (
	userKey      = "user"
	accessKey    = "access"
	projectIDKey = "projectID"
)

// UserFromContext returns the authenticated user set by JWTAuthMiddleware.
func UserFromContext(c *gin.Context) *database.User {
	user, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	return user.(*database.User)
}

// AccessFromContext returns the access descriptor set by ProjectAccess.
func AccessFromContext(c *gin.Context) *acl.Access {
	access, ok := c.Get(accessKey)
	if !ok {
		return nil
	}
	return access.(*acl.Access)
}

// ProjectIDFromContext returns the project ID resolved by ProjectAccess.
func ProjectIDFromContext(c *gin.Context) uint {
	id, ok := c.Get(projectIDKey)
	if !ok {
		return 0
	}
	return id.(uint)
}
