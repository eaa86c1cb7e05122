package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/middleware"
	"github.com/chantierhq/chantier/internal/common/dto"
)

// ListClients returns every client record.
func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.db.ListClients(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to list clients", err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// GetClient returns one client record.
func (h *Handler) GetClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	client, err := h.db.GetClient(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.internalError(c, "failed to get client", err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// ListClientProjects returns the projects attached to a client.
func (h *Handler) ListClientProjects(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	projects, err := h.db.ListProjectsByClient(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "failed to list client projects", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// CreateClient creates a client record.
func (h *Handler) CreateClient(c *gin.Context) {
	user := middleware.UserFromContext(c)

	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	client := &database.Client{
		Name:           req.Name,
		Address:        req.Address,
		SiteManager:    req.SiteManager,
		ProjectManager: req.ProjectManager,
		Email:          req.Email,
		Phone:          req.Phone,
		CreatedBy:      user.ID,
	}
	if err := h.db.CreateClient(c.Request.Context(), client); err != nil {
		h.internalError(c, "failed to create client", err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

// UpdateClient applies a partial update to a client record.
func (h *Handler) UpdateClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	client, err := h.db.GetClient(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.internalError(c, "failed to get client", err)
		return
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Address != nil {
		client.Address = *req.Address
	}
	if req.SiteManager != nil {
		client.SiteManager = *req.SiteManager
	}
	if req.ProjectManager != nil {
		client.ProjectManager = *req.ProjectManager
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}

	if err := h.db.UpdateClient(c.Request.Context(), client); err != nil {
		h.internalError(c, "failed to update client", err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient removes a client record. Deletion is blocked while projects
// still reference it.
func (h *Handler) DeleteClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	count, err := h.db.CountProjectsByClient(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "failed to count client projects", err)
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client has projects and cannot be deleted"})
		return
	}

	if err := h.db.DeleteClient(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		h.internalError(c, "failed to delete client", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "client deleted"})
}
