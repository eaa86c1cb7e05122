package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chantierhq/chantier/internal/apiserver/acl"
	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/middleware"
	"github.com/chantierhq/chantier/internal/apiserver/realtime"
	"github.com/chantierhq/chantier/internal/auth/jwt"
)

// Handler carries the dependencies shared by all route handlers.
type Handler struct {
	db         database.Database
	jwtService *jwt.Service
	acl        *acl.Evaluator
	hub        *realtime.Hub
	logger     *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(db database.Database, jwtService *jwt.Service, evaluator *acl.Evaluator, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		db:         db,
		jwtService: jwtService,
		acl:        evaluator,
		hub:        hub,
		logger:     logger.Named("handler"),
	}
}

// RegisterRoutes wires every route group onto the engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	auth := api.Group("", middleware.JWTAuthMiddleware(h.jwtService, h.db))

	projects := auth.Group("/projects")
	projects.GET("", h.ListProjects)
	projects.POST("", h.CreateProject)
	project := projects.Group("/:id", middleware.ProjectAccess(h.acl, middleware.FromParam("id")))
	project.GET("", h.GetProject)
	project.PUT("", h.UpdateProject)
	project.DELETE("", h.DeleteProject)
	project.POST("/members", h.AddProjectMember)
	project.GET("/activity", h.ListProjectActivity)

	tasks := auth.Group("/tasks")
	byProject := middleware.ProjectAccess(h.acl, middleware.FromParam("projectId"))
	tasks.GET("/project/:projectId", byProject, h.ListProjectTasks)
	tasks.POST("/project/:projectId", byProject, h.CreateTask)
	task := tasks.Group("/:id", middleware.ProjectAccess(h.acl, middleware.FromTaskParam(h.db, "id")))
	task.GET("", h.GetTask)
	task.PUT("", h.UpdateTask)
	task.DELETE("", h.DeleteTask)
	task.POST("/dependencies", h.AddTaskDependency)

	clients := auth.Group("/clients")
	clients.GET("", h.ListClients)
	clients.GET("/:id", h.GetClient)
	clients.GET("/:id/projects", h.ListClientProjects)
	clients.POST("", middleware.RequireRole(database.RoleAdmin, database.RoleProjectLead), h.CreateClient)
	clients.PUT("/:id", middleware.RequireRole(database.RoleAdmin, database.RoleProjectLead), h.UpdateClient)
	clients.DELETE("/:id", middleware.RequireRole(database.RoleAdmin), h.DeleteClient)

	reports := auth.Group("/reports")
	reports.GET("", middleware.RequireRole(database.RoleAdmin, database.RoleProjectLead, database.RoleSupport), h.ListReports)
	reports.GET("/mine", middleware.RequireRole(database.RoleTechnician), h.ListMyReports)
	reports.GET("/task/:taskId", middleware.ProjectAccess(h.acl, middleware.FromTaskParam(h.db, "taskId")), h.ListTaskReports)
	reports.POST("", middleware.RequireRole(database.RoleTechnician), h.CreateReport)
	reports.PUT("/:id", h.UpdateReport)
	reports.DELETE("/:id", h.DeleteReport)

	notes := auth.Group("/notes")
	notes.GET("/task/:taskId", middleware.ProjectAccess(h.acl, middleware.FromTaskParam(h.db, "taskId")), h.ListTaskNotes)
	notes.POST("", h.CreateNote)
	notes.PUT("/:id", h.UpdateNote)
	notes.DELETE("/:id", h.DeleteNote)

	users := auth.Group("/users")
	users.GET("/me", h.Me)
	users.PUT("/me", h.UpdateMe)
	users.GET("/me/tasks", h.MyTasks)
	users.GET("/search", h.SearchUsers)

	admin := auth.Group("/admin", middleware.RequireRole(database.RoleAdmin))
	admin.GET("/users", h.AdminListUsers)
	admin.POST("/users", h.AdminCreateUser)
	admin.PUT("/users/:id", h.AdminUpdateUser)
	admin.DELETE("/users/:id", h.AdminDeleteUser)

	r.GET("/ws", h.HandleWebSocket)
}

// parseID reads a numeric path parameter; on failure it writes 400 and
// reports false.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// logActivity appends an audit row. Failures are logged and swallowed.
func (h *Handler) logActivity(ctx context.Context, projectID, userID uint, action, entityType string, entityID uint, changes any) {
	entry := &database.ActivityLog{
		ProjectID:  projectID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if changes != nil {
		if b, err := json.Marshal(changes); err == nil {
			entry.Changes = string(b)
		}
	}
	if err := h.db.AppendActivity(ctx, entry); err != nil {
		h.logger.Warn("failed to append activity log",
			zap.Uint("projectId", projectID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// internalError logs err and writes a generic 500 body.
func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
