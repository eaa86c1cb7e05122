package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/middleware"
	"github.com/chantierhq/chantier/internal/common/dto"
)

// ListReports returns every intervention report, for supervising roles.
func (h *Handler) ListReports(c *gin.Context) {
	reports, err := h.db.ListReports(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListMyReports returns the calling technician's reports.
func (h *Handler) ListMyReports(c *gin.Context) {
	user := middleware.UserFromContext(c)

	reports, err := h.db.ListReportsByTechnician(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, "failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ListTaskReports returns the reports filed against a task. Technicians only
// see their own.
func (h *Handler) ListTaskReports(c *gin.Context) {
	user := middleware.UserFromContext(c)

	taskID, ok := parseID(c, "taskId")
	if !ok {
		return
	}

	var technicianID uint
	if user.Role == database.RoleTechnician {
		technicianID = user.ID
	}
	reports, err := h.db.ListReportsByTask(c.Request.Context(), taskID, technicianID)
	if err != nil {
		h.internalError(c, "failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// CreateReport files a report against a task assigned to the caller.
func (h *Handler) CreateReport(c *gin.Context) {
	user := middleware.UserFromContext(c)

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskId, title and timeSpent are required"})
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
	if task.AssignedTo == nil || *task.AssignedTo != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "task is not assigned to you"})
		return
	}

	report := &database.InterventionReport{
		TaskID:          req.TaskID,
		TechnicianID:    user.ID,
		Title:           req.Title,
		Description:     req.Description,
		WorkDone:        req.WorkDone,
		TimeSpent:       req.TimeSpent,
		Issues:          req.Issues,
		Recommendations: req.Recommendations,
		Status:          database.ReportStatusDraft,
	}
	if err := h.db.CreateReport(c.Request.Context(), report); err != nil {
		h.internalError(c, "failed to create report", err)
		return
	}

	h.logActivity(c.Request.Context(), task.ProjectID, user.ID, "created", "report", report.ID, nil)
	c.JSON(http.StatusCreated, report)
}

// UpdateReport edits a report. Allowed for the author and for supervising
// roles; status changes are validated against the report lifecycle.
func (h *Handler) UpdateReport(c *gin.Context) {
	user := middleware.UserFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	report, err := h.db.GetReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		h.internalError(c, "failed to get report", err)
		return
	}

	privileged := user.Role == database.RoleAdmin || user.Role == database.RoleProjectLead
	if report.TechnicianID != user.ID && !privileged {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if req.Status != nil {
		if !database.ValidReportStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report status"})
			return
		}
		report.Status = *req.Status
	}
	if req.Title != nil {
		report.Title = *req.Title
	}
	if req.TimeSpent != nil {
		report.TimeSpent = *req.TimeSpent
	}
	if req.Description != nil {
		report.Description = *req.Description
	}
	if req.WorkDone != nil {
		report.WorkDone = *req.WorkDone
	}
	if req.Issues != nil {
		report.Issues = *req.Issues
	}
	if req.Recommendations != nil {
		report.Recommendations = *req.Recommendations
	}

	if err := h.db.UpdateReport(c.Request.Context(), report); err != nil {
		h.internalError(c, "failed to update report", err)
		return
	}

	if task, err := h.db.GetTask(c.Request.Context(), report.TaskID); err == nil {
		h.logActivity(c.Request.Context(), task.ProjectID, user.ID, "updated", "report", report.ID, nil)
	}
	c.JSON(http.StatusOK, report)
}

// DeleteReport removes a report. Allowed for the author and for admins.
func (h *Handler) DeleteReport(c *gin.Context) {
	user := middleware.UserFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	report, err := h.db.GetReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		h.internalError(c, "failed to get report", err)
		return
	}

	if report.TechnicianID != user.ID && user.Role != database.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	if err := h.db.DeleteReport(c.Request.Context(), id); err != nil {
		h.internalError(c, "failed to delete report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "report deleted"})
}
