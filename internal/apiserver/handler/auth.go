package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/common/dto"
)

func userInfo(u *database.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
	}
}

// Register handles account self-registration. New accounts always get the
// plain member role; elevated roles are granted through the admin routes.
func (h *Handler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
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
		Role:      database.RoleMember,
	}
	if err := h.db.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username or email already taken"})
			return
		}
		h.internalError(c, "failed to create user", err)
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		h.internalError(c, "failed to generate token", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  userInfo(user),
	})
}

// Login handles user login. The username field accepts an email as well.
func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := h.db.GetUserByLogin(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		h.internalError(c, "failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userInfo(user),
	})
}
