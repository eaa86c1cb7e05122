package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/middleware"
	"github.com/chantierhq/chantier/internal/common/dto"
)

// Me returns the calling account.
func (h *Handler) Me(c *gin.Context) {
	user := middleware.UserFromContext(c)
	c.JSON(http.StatusOK, userInfo(user))
}

// UpdateMe edits the calling account.
func (h *Handler) UpdateMe(c *gin.Context) {
	user := middleware.UserFromContext(c)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.internalError(c, "failed to hash password", err)
			return
		}
		user.Password = string(hashed)
	}

	if err := h.db.UpdateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already taken"})
			return
		}
		h.internalError(c, "failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, userInfo(user))
}

// MyTasks returns the caller's open assigned tasks ordered by due date.
func (h *Handler) MyTasks(c *gin.Context) {
	user := middleware.UserFromContext(c)

	tasks, err := h.db.ListOpenTasksByAssignee(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, "failed to list tasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// SearchUsers finds accounts by username prefix, for the member picker.
func (h *Handler) SearchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len(query) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must be at least 2 characters"})
		return
	}

	users, err := h.db.SearchUsers(c.Request.Context(), query, 10)
	if err != nil {
		h.internalError(c, "failed to search users", err)
		return
	}

	infos := make([]*dto.UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, userInfo(u))
	}
	c.JSON(http.StatusOK, infos)
}
