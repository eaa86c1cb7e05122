package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chantierhq/chantier/internal/apiserver/acl"
	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/middleware"
	"github.com/chantierhq/chantier/internal/common/dto"
)

// ListTaskNotes returns the notes attached to a task.
func (h *Handler) ListTaskNotes(c *gin.Context) {
	taskID, ok := parseID(c, "taskId")
	if !ok {
		return
	}

	notes, err := h.db.ListNotesByTask(c.Request.Context(), taskID)
	if err != nil {
		h.internalError(c, "failed to list notes", err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

// CreateNote attaches a note to a task. Technicians may only annotate tasks
// assigned to them; support accounts are read-only; everyone else needs
// write access to the task's project.
func (h *Handler) CreateNote(c *gin.Context) {
	user := middleware.UserFromContext(c)

	var req dto.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId and content are required"})
		return
	}

	task, err := h.db.GetTask(c.Request.Context(), req.TaskID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.internalError(c, "failed to get task", err)
		return
	}

	switch user.Role {
	case database.RoleSupport:
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	case database.RoleTechnician:
		if task.AssignedTo == nil || *task.AssignedTo != user.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "task is not assigned to you"})
			return
		}
	default:
		access, err := h.acl.Evaluate(c.Request.Context(), user, task.ProjectID)
		if err != nil {
			if errors.Is(err, acl.ErrAccessDenied) || errors.Is(err, acl.ErrProjectNotFound) {
				c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
				return
			}
			h.internalError(c, "failed to evaluate access", err)
			return
		}
		if !access.CanWrite() {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
	}

	note := &database.TaskNote{
		TaskID:    req.TaskID,
		UserID:    user.ID,
		Content:   req.Content,
		TimeSpent: req.TimeSpent,
	}
	if err := h.db.CreateNote(c.Request.Context(), note); err != nil {
		h.internalError(c, "failed to create note", err)
		return
	}

	h.logActivity(c.Request.Context(), task.ProjectID, user.ID, "created", "note", note.ID, nil)
	c.JSON(http.StatusCreated, note)
}

// UpdateNote edits a note. Allowed for the author and for admins.
func (h *Handler) UpdateNote(c *gin.Context) {
	user := middleware.UserFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	note, err := h.db.GetNote(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
			return
		}
		h.internalError(c, "failed to get note", err)
		return
	}

	if note.UserID != user.ID && user.Role != database.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if req.Content != nil {
		note.Content = *req.Content
	}
	if req.TimeSpent != nil {
		note.TimeSpent = *req.TimeSpent
	}

	if err := h.db.UpdateNote(c.Request.Context(), note); err != nil {
		h.internalError(c, "failed to update note", err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// DeleteNote removes a note. Allowed for the author and for admins.
func (h *Handler) DeleteNote(c *gin.Context) {
	user := middleware.UserFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	note, err := h.db.GetNote(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
			return
		}
		h.internalError(c, "failed to get note", err)
		return
	}

	if note.UserID != user.ID && user.Role != database.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if err := h.db.DeleteNote(c.Request.Context(), id); err != nil {
		h.internalError(c, "failed to delete note", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "note deleted"})
}
