package database

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// Database defines the persistence operations used by the apiserver.
type Database interface {
	// Close closes the database connection.
	Close() error

	// Transaction runs fn with a transaction bound to the context.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	// GetUserByLogin matches username or email, for login.
	GetUserByLogin(ctx context.Context, login string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id uint) error

	// Clients
	CreateClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, id uint) (*Client, error)
	ListClients(ctx context.Context) ([]*Client, error)
	UpdateClient(ctx context.Context, client *Client) error
	DeleteClient(ctx context.Context, id uint) error
	CountProjectsByClient(ctx context.Context, clientID uint) (int64, error)
	ListProjectsByClient(ctx context.Context, clientID uint) ([]*ProjectInfo, error)

	// Projects
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id uint) (*Project, error)
	// ListProjectsForUser returns projects the user created or is a member of.
	ListProjectsForUser(ctx context.Context, userID uint) ([]*ProjectInfo, error)
	// ListProjects returns every project, for roles with blanket access.
	ListProjects(ctx context.Context) ([]*ProjectInfo, error)
	UpdateProject(ctx context.Context, project *Project) error
	// DeleteProject removes the project and cascades to members, tasks,
	// dependencies and activity rows.
	DeleteProject(ctx context.Context, id uint) error

	// Project members
	AddProjectMember(ctx context.Context, member *ProjectMember) error
	GetProjectMember(ctx context.Context, projectID, userID uint) (*ProjectMember, error)
	ListProjectMembers(ctx context.Context, projectID uint) ([]*MemberInfo, error)
	RemoveProjectMember(ctx context.Context, projectID, userID uint) error

	// Tasks
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id uint) (*Task, error)
	GetTaskInfo(ctx context.Context, id uint) (*TaskInfo, error)
	ListTasksByProject(ctx context.Context, projectID uint) ([]*TaskInfo, error)
	// ListOpenTasksByAssignee returns the user's tasks that are not completed,
	// ordered by due date.
	ListOpenTasksByAssignee(ctx context.Context, userID uint) ([]*TaskInfo, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id uint) error

	// Task dependencies
	CreateTaskDependency(ctx context.Context, dep *TaskDependency) error
	ListTaskDependencies(ctx context.Context, taskIDs []uint) ([]*DependencyInfo, error)

	// Intervention reports
	CreateReport(ctx context.Context, report *InterventionReport) error
	GetReport(ctx context.Context, id uint) (*InterventionReport, error)
	ListReports(ctx context.Context) ([]*ReportInfo, error)
	// ListReportsByTask returns reports for a task; technicianID narrows to a
	// single author when non-zero.
	ListReportsByTask(ctx context.Context, taskID, technicianID uint) ([]*ReportInfo, error)
	ListReportsByTechnician(ctx context.Context, technicianID uint) ([]*ReportInfo, error)
	UpdateReport(ctx context.Context, report *InterventionReport) error
	DeleteReport(ctx context.Context, id uint) error

	// Task notes
	CreateNote(ctx context.Context, note *TaskNote) error
	GetNote(ctx context.Context, id uint) (*TaskNote, error)
	ListNotesByTask(ctx context.Context, taskID uint) ([]*NoteInfo, error)
	UpdateNote(ctx context.Context, note *TaskNote) error
	DeleteNote(ctx context.Context, id uint) error

	// Activity log
	AppendActivity(ctx context.Context, entry *ActivityLog) error
	ListActivity(ctx context.Context, projectID uint, limit int) ([]*ActivityInfo, error)
}
