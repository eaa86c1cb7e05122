package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/middleware"
	"github.com/chantierhq/chantier/internal/common/dto"
)

// ListProjects returns the projects visible to the caller. Plain members see
// what they created or joined; every other role sees all projects.
func (h *Handler) ListProjects(c *gin.Context) {
	user := middleware.UserFromContext(c)

	var (
		projects []*database.ProjectInfo
		err      error
	)
	if user.Role == database.RoleMember {
		projects, err = h.db.ListProjectsForUser(c.Request.Context(), user.ID)
	} else {
		projects, err = h.db.ListProjects(c.Request.Context())
	}
	if err != nil {
		h.internalError(c, "failed to list projects", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// CreateProject creates a project owned by the caller.
func (h *Handler) CreateProject(c *gin.Context) {
	user := middleware.UserFromContext(c)

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	status := req.Status
	if status == "" {
		status = "active"
	}
	project := &database.Project{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      status,
		Budget:      req.Budget,
		ClientID:    req.ClientID,
		CreatedBy:   user.ID,
	}
	if err := h.db.CreateProject(c.Request.Context(), project); err != nil {
		h.internalError(c, "failed to create project", err)
		return
	}

	h.logActivity(c.Request.Context(), project.ID, user.ID, "created", "project", project.ID, nil)
	c.JSON(http.StatusCreated, project)
}

// GetProject returns one project with its member list.
func (h *Handler) GetProject(c *gin.Context) {
	projectID := middleware.ProjectIDFromContext(c)

	project, err := h.db.GetProject(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.internalError(c, "failed to get project", err)
		return
	}

	members, err := h.db.ListProjectMembers(c.Request.Context(), projectID)
	if err != nil {
		h.internalError(c, "failed to list project members", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project": project,
		"members": members,
	})
}

// UpdateProject applies a partial update and broadcasts the result.
func (h *Handler) UpdateProject(c *gin.Context) {
	user := middleware.UserFromContext(c)
	access := middleware.AccessFromContext(c)
	projectID := middleware.ProjectIDFromContext(c)

	if !access.CanWrite() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	project, err := h.db.GetProject(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.internalError(c, "failed to get project", err)
		return
	}

	changes := map[string]any{}
	if req.Title != nil && *req.Title != project.Title {
		project.Title = *req.Title
		changes["title"] = *req.Title
	}
	if req.Description != nil && *req.Description != project.Description {
		project.Description = *req.Description
		changes["description"] = *req.Description
	}
	if req.StartDate != nil && *req.StartDate != project.StartDate {
		project.StartDate = *req.StartDate
		changes["startDate"] = *req.StartDate
	}
	if req.EndDate != nil && *req.EndDate != project.EndDate {
		project.EndDate = *req.EndDate
		changes["endDate"] = *req.EndDate
	}
	if req.Status != nil && *req.Status != project.Status {
		project.Status = *req.Status
		changes["status"] = *req.Status
	}
	if req.Budget != nil && *req.Budget != project.Budget {
		project.Budget = *req.Budget
		changes["budget"] = *req.Budget
	}
	if req.ClientID != nil {
		project.ClientID = req.ClientID
		changes["clientId"] = *req.ClientID
	}

	if len(changes) > 0 {
		if err := h.db.UpdateProject(c.Request.Context(), project); err != nil {
			h.internalError(c, "failed to update project", err)
			return
		}
		h.logActivity(c.Request.Context(), projectID, user.ID, "updated", "project", projectID, changes)
		h.hub.Publish(projectID, "project-updated", map[string]any{
			"projectId": projectID,
			"project":   project,
		})
	}

	c.JSON(http.StatusOK, project)
}

// DeleteProject removes a project and everything under it. Only the creator
// or an admin may delete.
func (h *Handler) DeleteProject(c *gin.Context) {
	user := middleware.UserFromContext(c)
	access := middleware.AccessFromContext(c)
	projectID := middleware.ProjectIDFromContext(c)

	project, err := h.db.GetProject(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.internalError(c, "failed to get project", err)
		return
	}

	if !access.IsOwner && project.CreatedBy != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if err := h.db.DeleteProject(c.Request.Context(), projectID); err != nil {
		h.internalError(c, "failed to delete project", err)
		return
	}

	h.hub.Publish(projectID, "project-deleted", map[string]any{"projectId": projectID})
	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

// AddProjectMember adds a user to the project by username.
func (h *Handler) AddProjectMember(c *gin.Context) {
	user := middleware.UserFromContext(c)
	access := middleware.AccessFromContext(c)
	projectID := middleware.ProjectIDFromContext(c)

	if !access.IsOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	target, err := h.db.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.internalError(c, "failed to look up user", err)
		return
	}

	role := req.Role
	if role == "" {
		role = "member"
	}
	perms := database.Permissions{Read: true}
	if req.Permissions != nil {
		perms = *req.Permissions
	}
	member := &database.ProjectMember{
		ProjectID:   projectID,
		UserID:      target.ID,
		Role:        role,
		Permissions: perms,
	}
	if err := h.db.AddProjectMember(c.Request.Context(), member); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user is already a member"})
			return
		}
		h.internalError(c, "failed to add project member", err)
		return
	}

	h.logActivity(c.Request.Context(), projectID, user.ID, "added_member", "member", target.ID,
		map[string]any{"username": target.Username})
	c.JSON(http.StatusCreated, member)
}

// ListProjectActivity returns the latest audit entries for the project.
func (h *Handler) ListProjectActivity(c *gin.Context) {
	projectID := middleware.ProjectIDFromContext(c)

	entries, err := h.db.ListActivity(c.Request.Context(), projectID, 100)
	if err != nil {
		h.internalError(c, "failed to list activity", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
