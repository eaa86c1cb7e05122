package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/middleware"
	"github.com/chantierhq/chantier/internal/common/dto"
)

// AdminListUsers returns every account.
func (h *Handler) AdminListUsers(c *gin.Context) {
	users, err := h.db.ListUsers(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to list users", err)
		return
	}

	infos := make([]*dto.UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, userInfo(u))
	}
	c.JSON(http.StatusOK, infos)
}

// AdminCreateUser creates an account with an explicit role. The default role
// for admin-created accounts is technician.
func (h *Handler) AdminCreateUser(c *gin.Context) {
	admin := middleware.UserFromContext(c)

	var req dto.AdminCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}

	role := database.RoleTechnician
	if req.Role != "" {
		parsed, err := database.ParseRole(req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		role = parsed
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalError(c, "failed to hash password", err)
		return
	}

	user := &database.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashed),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		CreatedBy: admin.ID,
	}
	if err := h.db.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username or email already taken"})
			return
		}
		h.internalError(c, "failed to create user", err)
		return
	}
	c.JSON(http.StatusCreated, userInfo(user))
}

// AdminUpdateUser edits any account, including its role.
func (h *Handler) AdminUpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.db.GetUserByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.internalError(c, "failed to get user", err)
		return
	}

	if req.Role != nil {
		parsed, err := database.ParseRole(*req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		user.Role = parsed
	}
	if req.Username != nil {
		user.Username = *req.Username
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
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.internalError(c, "failed to hash password", err)
			return
		}
		user.Password = string(hashed)
	}

	if err := h.db.UpdateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username or email already taken"})
			return
		}
		h.internalError(c, "failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, userInfo(user))
}

// AdminDeleteUser removes an account and its project memberships. Admins
// cannot delete their own account.
func (h *Handler) AdminDeleteUser(c *gin.Context) {
	admin := middleware.UserFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if id == admin.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}

	if err := h.db.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.internalError(c, "failed to delete user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
