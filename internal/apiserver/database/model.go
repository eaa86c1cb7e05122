package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Role is the closed set of account roles. Anything outside this set is
// rejected at parse time rather than falling through a string switch.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleProjectLead Role = "chef_projet"
	RoleTechnician  Role = "technicien"
	RoleSupport     Role = "support"
	RoleMember      Role = "user"
)

// ParseRole validates a raw role string against the closed role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleProjectLead, RoleTechnician, RoleSupport, RoleMember:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid role: %q", s)
	}
}

// Permissions is a per-membership permission set, stored as JSON text.
type Permissions struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Delete bool `json:"delete"`
}

// Value implements driver.Valuer.
func (p Permissions) Value() (driver.Value, error) {
	out, err := json.Marshal(p)
	return string(out), err
}

// Scan implements sql.Scanner.
func (p *Permissions) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*p = Permissions{}
		return nil
	case []byte:
		if len(v) == 0 {
			*p = Permissions{}
			return nil
		}
		return json.Unmarshal(v, p)
	case string:
		if v == "" {
			*p = Permissions{}
			return nil
		}
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported permissions column type %T", value)
	}
}

// User is an account row. Password is the bcrypt hash and never serialized.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"`
	FirstName string    `json:"firstName" gorm:"type:varchar(50)"`
	LastName  string    `json:"lastName" gorm:"type:varchar(50)"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	CreatedBy uint      `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Client is a customer record referenced by projects.
type Client struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name           string    `json:"name" gorm:"type:varchar(255);not null"`
	Address        string    `json:"address" gorm:"type:text"`
	SiteManager    string    `json:"siteManager" gorm:"type:varchar(100)"`
	ProjectManager string    `json:"projectManager" gorm:"type:varchar(100)"`
	Email          string    `json:"email" gorm:"type:varchar(100)"`
	Phone          string    `json:"phone" gorm:"type:varchar(30)"`
	CreatedBy      uint      `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Project is the unit of collaboration; access control is keyed on it.
type Project struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	StartDate   string    `json:"startDate" gorm:"type:varchar(20)"`
	EndDate     string    `json:"endDate" gorm:"type:varchar(20)"`
	Status      string    `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	Budget      float64   `json:"budget"`
	ClientID    *uint     `json:"clientId" gorm:"index"`
	CreatedBy   uint      `json:"createdBy" gorm:"not null;index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProjectMember grants a non-privileged user explicit per-project permissions.
// Unique per (project, user) pair.
type ProjectMember struct {
	ID          uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID   uint        `json:"projectId" gorm:"not null;uniqueIndex:idx_project_user"`
	UserID      uint        `json:"userId" gorm:"not null;uniqueIndex:idx_project_user"`
	Role        string      `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	Permissions Permissions `json:"permissions" gorm:"type:text"`
	JoinedAt    time.Time   `json:"joinedAt" gorm:"autoCreateTime"`
}

// Task belongs to exactly one project. ParentTaskID forms a tree.
type Task struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID    uint      `json:"projectId" gorm:"not null;index"`
	Title        string    `json:"title" gorm:"type:varchar(255);not null"`
	Description  string    `json:"description" gorm:"type:text"`
	StartDate    string    `json:"startDate" gorm:"type:varchar(20)"`
	EndDate      string    `json:"endDate" gorm:"type:varchar(20)"`
	Duration     int       `json:"duration" gorm:"default:1"`
	Progress     int       `json:"progress" gorm:"default:0"`
	Priority     string    `json:"priority" gorm:"type:varchar(10);default:'medium'"`
	Status       string    `json:"status" gorm:"type:varchar(20);default:'not_started'"`
	AssignedTo   *uint     `json:"assignedTo" gorm:"index"`
	ParentTaskID *uint     `json:"parentTaskId"`
	Budget       float64   `json:"budget"`
	CreatedBy    uint      `json:"createdBy" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TaskDependency is a directed edge: TaskID depends on DependsOnTaskID.
// Both endpoints must belong to the same project; the store enforces
// uniqueness per ordered pair, the task service enforces the project check.
type TaskDependency struct {
	ID              uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID          uint   `json:"taskId" gorm:"not null;uniqueIndex:idx_task_depends"`
	DependsOnTaskID uint   `json:"dependsOnTaskId" gorm:"not null;uniqueIndex:idx_task_depends"`
	Type            string `json:"dependencyType" gorm:"column:dependency_type;type:varchar(20);default:'finish_to_start'"`
	Lag             int    `json:"lag" gorm:"default:0"`
}

// Report lifecycle states. Only allowed values are checked; there is no
// transition validation.
const (
	ReportStatusDraft     = "draft"
	ReportStatusSubmitted = "submitted"
	ReportStatusApproved  = "approved"
)

// ValidReportStatus reports whether s is an allowed report status.
func ValidReportStatus(s string) bool {
	return s == ReportStatusDraft || s == ReportStatusSubmitted || s == ReportStatusApproved
}

// InterventionReport is authored by a technician against an assigned task.
type InterventionReport struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID          uint      `json:"taskId" gorm:"not null;index"`
	TechnicianID    uint      `json:"technicianId" gorm:"not null;index"`
	Title           string    `json:"title" gorm:"type:varchar(255);not null"`
	Description     string    `json:"description" gorm:"type:text"`
	WorkDone        string    `json:"workDone" gorm:"type:text"`
	TimeSpent       float64   `json:"timeSpent" gorm:"not null"`
	Issues          string    `json:"issues" gorm:"type:text"`
	Recommendations string    `json:"recommendations" gorm:"type:text"`
	Status          string    `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TaskNote is a lightweight annotation on a task.
type TaskNote struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID    uint      `json:"taskId" gorm:"not null;index"`
	UserID    uint      `json:"userId" gorm:"not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	TimeSpent float64   `json:"timeSpent"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActivityLog is an append-only audit row. It is never consulted for
// authorization decisions.
type ActivityLog struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID  uint      `json:"projectId" gorm:"not null;index"`
	UserID     uint      `json:"userId" gorm:"not null"`
	Action     string    `json:"action" gorm:"type:varchar(50);not null"`
	EntityType string    `json:"entityType" gorm:"type:varchar(20);not null"`
	EntityID   uint      `json:"entityId"`
	Changes    string    `json:"changes" gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProjectInfo is a project row joined with reader-facing names.
type ProjectInfo struct {
	Project
	CreatedByName string `json:"createdByName" gorm:"column:created_by_name"`
	MemberRole    string `json:"memberRole,omitempty" gorm:"column:member_role"`
}

// MemberInfo is a project member joined with the user record.
type MemberInfo struct {
	UserID   uint   `json:"userId" gorm:"column:user_id"`
	Username string `json:"username" gorm:"column:username"`
	Role     string `json:"role" gorm:"column:role"`
}

// DependencyInfo is a dependency edge joined with the upstream task title.
type DependencyInfo struct {
	TaskDependency
	DependsOnTitle string `json:"dependsOnTitle" gorm:"column:depends_on_title"`
}

// TaskInfo is a task row joined with display names and its dependencies.
type TaskInfo struct {
	Task
	AssignedToName  string            `json:"assignedToName,omitempty" gorm:"column:assigned_to_name"`
	CreatedByName   string            `json:"createdByName,omitempty" gorm:"column:created_by_name"`
	ParentTaskTitle string            `json:"parentTaskTitle,omitempty" gorm:"column:parent_task_title"`
	ProjectTitle    string            `json:"projectTitle,omitempty" gorm:"column:project_title"`
	Dependencies    []*DependencyInfo `json:"dependencies" gorm:"-"`
}

// ReportInfo is a report row joined with technician and task context.
type ReportInfo struct {
	InterventionReport
	TechnicianName string `json:"technicianName" gorm:"column:technician_name"`
	FirstName      string `json:"firstName" gorm:"column:first_name"`
	LastName       string `json:"lastName" gorm:"column:last_name"`
	TaskTitle      string `json:"taskTitle" gorm:"column:task_title"`
	ProjectTitle   string `json:"projectTitle,omitempty" gorm:"column:project_title"`
}

// NoteInfo is a note row joined with its author.
type NoteInfo struct {
	TaskNote
	Username  string `json:"username" gorm:"column:username"`
	FirstName string `json:"firstName" gorm:"column:first_name"`
	LastName  string `json:"lastName" gorm:"column:last_name"`
}

// ActivityInfo is an audit row joined with the acting username.
type ActivityInfo struct {
	ActivityLog
	Username string `json:"username" gorm:"column:username"`
}
