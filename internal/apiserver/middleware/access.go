package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chantierhq/chantier/internal/apiserver/acl"
	"github.com/chantierhq/chantier/internal/apiserver/database"
)

var errInvalidID = errors.New("invalid id")

// ProjectResolver extracts the project ID a request targets.
type ProjectResolver func(c *gin.Context) (uint, error)

// FromParam reads the project ID directly from a path parameter.
func FromParam(name string) ProjectResolver {
	return func(c *gin.Context) (uint, error) {
		return parseIDParam(c, name)
	}
}

// FromTaskParam reads a task ID from a path parameter and resolves the
// project the task belongs to.
func FromTaskParam(db database.Database, name string) ProjectResolver {
	return func(c *gin.Context) (uint, error) {
		taskID, err := parseIDParam(c, name)
		if err != nil {
			return 0, err
		}
		task, err := db.GetTask(c.Request.Context(), taskID)
		if err != nil {
			return 0, err
		}
		return task.ProjectID, nil
	}
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// ProjectAccess resolves the caller's access to the targeted project and
// aborts with the matching status when access is missing. Handlers behind it
// read the descriptor with AccessFromContext and never re-check membership.
// It must run after JWTAuthMiddleware.
func ProjectAccess(evaluator *acl.Evaluator, resolve ProjectResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := UserFromContext(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		projectID, err := resolve(c)
		if err != nil {
			switch {
			case errors.Is(err, errInvalidID):
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			case errors.Is(err, database.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "task not found"})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
			return
		}

		access, err := evaluator.Evaluate(c.Request.Context(), user, projectID)
		if err != nil {
			switch {
			case errors.Is(err, acl.ErrProjectNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "project not found"})
			case errors.Is(err, acl.ErrAccessDenied):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
			return
		}

		c.Set(projectIDKey, projectID)
		c.Set(accessKey, access)
		c.Next()
	}
}
