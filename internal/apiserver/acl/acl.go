package acl

import (
	"context"
	"errors"

	"github.com/chantierhq/chantier/internal/apiserver/database"
)

var (
	// ErrProjectNotFound is returned when the project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrAccessDenied is returned when the user has no access to the project.
	ErrAccessDenied = errors.New("access denied")
)

// Access describes what a user may do within a project.
type Access struct {
	// IsOwner is true for the project creator and for admins.
	IsOwner     bool
	Role        string
	Permissions database.Permissions
}

// CanRead reports whether the access allows reading project resources.
func (a *Access) CanRead() bool {
	return a.IsOwner || a.Permissions.Read
}

// CanWrite reports whether the access allows mutating project resources.
func (a *Access) CanWrite() bool {
	return a.IsOwner || a.Permissions.Write
}

// CanDelete reports whether the access allows deleting project resources.
func (a *Access) CanDelete() bool {
	return a.IsOwner || a.Permissions.Delete
}

// Evaluator resolves a user's access to a project from their account role,
// project ownership and membership rows.
type Evaluator struct {
	db database.Database
}

func NewEvaluator(db database.Database) *Evaluator {
	return &Evaluator{db: db}
}

// Evaluate returns the access descriptor for user on projectID.
//
// Privileged roles short-circuit without touching the project table, so a
// missing project surfaces later as a natural not-found from the resource
// lookup. Plain members get ErrProjectNotFound for absent projects and
// ErrAccessDenied when no ownership or membership links them to it.
func (e *Evaluator) Evaluate(ctx context.Context, user *database.User, projectID uint) (*Access, error) {
	switch user.Role {
	case database.RoleAdmin:
		return &Access{
			IsOwner:     true,
			Role:        "admin",
			Permissions: database.Permissions{Read: true, Write: true, Delete: true},
		}, nil
	case database.RoleProjectLead:
		return &Access{
			Role:        "manager",
			Permissions: database.Permissions{Read: true, Write: true, Delete: true},
		}, nil
	case database.RoleSupport:
		return &Access{
			Role:        "support",
			Permissions: database.Permissions{Read: true},
		}, nil
	case database.RoleTechnician:
		// Technicians read everything; their writes are scoped to assigned
		// tasks and enforced by the report and note services.
		return &Access{
			Role:        "technicien",
			Permissions: database.Permissions{Read: true},
		}, nil
	}

	project, err := e.db.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	if project.CreatedBy == user.ID {
		return &Access{
			IsOwner:     true,
			Role:        "owner",
			Permissions: database.Permissions{Read: true, Write: true, Delete: true},
		}, nil
	}

	member, err := e.db.GetProjectMember(ctx, projectID, user.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}

	perms := member.Permissions
	if !perms.Read && !perms.Write && !perms.Delete {
		// Membership without an explicit permission set grants read access.
		perms.Read = true
	}
	return &Access{Role: member.Role, Permissions: perms}, nil
}
