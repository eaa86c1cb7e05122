package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/middleware"
	"github.com/chantierhq/chantier/internal/common/dto"
)

// ListProjectTasks returns every task of the project with its dependencies.
func (h *Handler) ListProjectTasks(c *gin.Context) {
	projectID := middleware.ProjectIDFromContext(c)

	tasks, err := h.db.ListTasksByProject(c.Request.Context(), projectID)
	if err != nil {
		h.internalError(c, "failed to list tasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTask returns one task with display names and dependencies.
func (h *Handler) GetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := h.db.GetTaskInfo(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.internalError(c, "failed to get task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTask creates a task in the project.
func (h *Handler) CreateTask(c *gin.Context) {
	user := middleware.UserFromContext(c)
	access := middleware.AccessFromContext(c)
	projectID := middleware.ProjectIDFromContext(c)

	if !access.CanWrite() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	task := &database.Task{
		ProjectID:    projectID,
		Title:        req.Title,
		Description:  req.Description,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Duration:     req.Duration,
		Progress:     req.Progress,
		Priority:     req.Priority,
		Status:       req.Status,
		AssignedTo:   req.AssignedTo,
		ParentTaskID: req.ParentTaskID,
		Budget:       req.Budget,
		CreatedBy:    user.ID,
	}
	if task.Duration <= 0 {
		task.Duration = 1
	}
	if task.Priority == "" {
		task.Priority = "medium"
	}
	if task.Status == "" {
		task.Status = "not_started"
	}
	if err := h.db.CreateTask(c.Request.Context(), task); err != nil {
		h.internalError(c, "failed to create task", err)
		return
	}

	h.logActivity(c.Request.Context(), projectID, user.ID, "created", "task", task.ID, nil)
	h.hub.Publish(projectID, "task-updated", map[string]any{
		"projectId": projectID,
		"taskId":    task.ID,
		"task":      task,
	})
	c.JSON(http.StatusCreated, task)
}

// UpdateTask applies a partial update and broadcasts the result.
func (h *Handler) UpdateTask(c *gin.Context) {
	user := middleware.UserFromContext(c)
	access := middleware.AccessFromContext(c)
	projectID := middleware.ProjectIDFromContext(c)

	if !access.CanWrite() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	task, err := h.db.GetTask(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.internalError(c, "failed to get task", err)
		return
	}

	changes := map[string]any{}
	if req.Title != nil && *req.Title != task.Title {
		task.Title = *req.Title
		changes["title"] = *req.Title
	}
	if req.Description != nil && *req.Description != task.Description {
		task.Description = *req.Description
		changes["description"] = *req.Description
	}
	if req.StartDate != nil && *req.StartDate != task.StartDate {
		task.StartDate = *req.StartDate
		changes["startDate"] = *req.StartDate
	}
	if req.EndDate != nil && *req.EndDate != task.EndDate {
		task.EndDate = *req.EndDate
		changes["endDate"] = *req.EndDate
	}
	if req.Duration != nil && *req.Duration != task.Duration {
		task.Duration = *req.Duration
		changes["duration"] = *req.Duration
	}
	if req.Progress != nil && *req.Progress != task.Progress {
		task.Progress = *req.Progress
		changes["progress"] = *req.Progress
	}
	if req.Priority != nil && *req.Priority != task.Priority {
		task.Priority = *req.Priority
		changes["priority"] = *req.Priority
	}
	if req.Status != nil && *req.Status != task.Status {
		task.Status = *req.Status
		changes["status"] = *req.Status
	}
	if req.AssignedTo != nil {
		task.AssignedTo = req.AssignedTo
		changes["assignedTo"] = *req.AssignedTo
	}
	if req.ParentTaskID != nil {
		task.ParentTaskID = req.ParentTaskID
		changes["parentTaskId"] = *req.ParentTaskID
	}
	if req.Budget != nil && *req.Budget != task.Budget {
		task.Budget = *req.Budget
		changes["budget"] = *req.Budget
	}

	if len(changes) > 0 {
		if err := h.db.UpdateTask(c.Request.Context(), task); err != nil {
			h.internalError(c, "failed to update task", err)
			return
		}
		h.logActivity(c.Request.Context(), projectID, user.ID, "updated", "task", task.ID, changes)
		h.hub.Publish(projectID, "task-updated", map[string]any{
			"projectId": projectID,
			"taskId":    task.ID,
			"task":      task,
		})
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task, its dependency edges and broadcasts the removal.
func (h *Handler) DeleteTask(c *gin.Context) {
	user := middleware.UserFromContext(c)
	access := middleware.AccessFromContext(c)
	projectID := middleware.ProjectIDFromContext(c)

	if !access.CanWrite() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.db.DeleteTask(c.Request.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.internalError(c, "failed to delete task", err)
		return
	}

	h.logActivity(c.Request.Context(), projectID, user.ID, "deleted", "task", id, nil)
	h.hub.Publish(projectID, "task-updated", map[string]any{
		"projectId": projectID,
		"taskId":    id,
		"deleted":   true,
	})
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

// AddTaskDependency links the task to an upstream task in the same project.
func (h *Handler) AddTaskDependency(c *gin.Context) {
	user := middleware.UserFromContext(c)
	access := middleware.AccessFromContext(c)
	projectID := middleware.ProjectIDFromContext(c)

	if !access.CanWrite() {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.AddDependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dependsOnTaskId is required"})
		return
	}
	if req.DependsOnTaskID == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a task cannot depend on itself"})
		return
	}

	dependsOn, err := h.db.GetTask(c.Request.Context(), req.DependsOnTaskID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.internalError(c, "failed to get task", err)
		return
	}
	if dependsOn.ProjectID != projectID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tasks must belong to the same project"})
		return
	}

	depType := req.Type
	if depType == "" {
		depType = "finish_to_start"
	}
	dep := &database.TaskDependency{
		TaskID:          id,
		DependsOnTaskID: req.DependsOnTaskID,
		Type:            depType,
		Lag:             req.Lag,
	}
	if err := h.db.CreateTaskDependency(c.Request.Context(), dep); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dependency already exists"})
			return
		}
		h.internalError(c, "failed to create dependency", err)
		return
	}

	h.logActivity(c.Request.Context(), projectID, user.ID, "added_dependency", "task", id,
		map[string]any{"dependsOnTaskId": req.DependsOnTaskID})
	c.JSON(http.StatusCreated, dep)
}
