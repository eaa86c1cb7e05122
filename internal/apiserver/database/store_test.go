package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chantierhq/chantier/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Type:   "sqlite",
		DBName: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db Database, username string, role Role) *User {
	t.Helper()
	u := &User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
		Role:     role,
	}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func seedProject(t *testing.T, db Database, title string, createdBy uint) *Project {
	t.Helper()
	p := &Project{Title: title, Status: "active", CreatedBy: createdBy}
	require.NoError(t, db.CreateProject(context.Background(), p))
	return p
}

func TestUserCRUDAndDuplicates(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, db, "alice", RoleMember)
	assert.NotZero(t, u.ID)

	dup := &User{Username: "alice", Email: "other@example.com", Password: "x"}
	assert.ErrorIs(t, db.CreateUser(ctx, dup), ErrDuplicate)

	got, err := db.GetUserByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = db.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = db.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := db.SearchUsers(ctx, "ali", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alice", found[0].Username)

	assert.ErrorIs(t, db.DeleteUser(ctx, 9999), ErrNotFound)
	assert.NoError(t, db.DeleteUser(ctx, u.ID))
}

func TestProjectListingForUser(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner", RoleMember)
	member := seedUser(t, db, "member", RoleMember)
	outsider := seedUser(t, db, "outsider", RoleMember)

	owned := seedProject(t, db, "owned", owner.ID)
	shared := seedProject(t, db, "shared", outsider.ID)
	seedProject(t, db, "unrelated", outsider.ID)

	require.NoError(t, db.AddProjectMember(ctx, &ProjectMember{
		ProjectID:   shared.ID,
		UserID:      member.ID,
		Role:        "member",
		Permissions: Permissions{Read: true},
	}))
	require.NoError(t, db.AddProjectMember(ctx, &ProjectMember{
		ProjectID:   shared.ID,
		UserID:      owner.ID,
		Role:        "member",
		Permissions: Permissions{Read: true, Write: true},
	}))

	ownerProjects, err := db.ListProjectsForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, ownerProjects, 2)

	memberProjects, err := db.ListProjectsForUser(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, memberProjects, 1)
	assert.Equal(t, shared.ID, memberProjects[0].ID)
	assert.Equal(t, "outsider", memberProjects[0].CreatedByName)
	assert.Equal(t, "member", memberProjects[0].MemberRole)

	all, err := db.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_ = owned
}

func TestProjectMemberUniqueness(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner", RoleMember)
	buddy := seedUser(t, db, "buddy", RoleMember)
	p := seedProject(t, db, "p", owner.ID)

	m := &ProjectMember{ProjectID: p.ID, UserID: buddy.ID, Permissions: Permissions{Read: true}}
	require.NoError(t, db.AddProjectMember(ctx, m))

	again := &ProjectMember{ProjectID: p.ID, UserID: buddy.ID}
	assert.ErrorIs(t, db.AddProjectMember(ctx, again), ErrDuplicate)

	stored, err := db.GetProjectMember(ctx, p.ID, buddy.ID)
	require.NoError(t, err)
	assert.True(t, stored.Permissions.Read)
	assert.False(t, stored.Permissions.Write)

	members, err := db.ListProjectMembers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "buddy", members[0].Username)
}

func TestDeleteProjectCascades(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner", RoleMember)
	tech := seedUser(t, db, "tech", RoleTechnician)
	p := seedProject(t, db, "doomed", owner.ID)

	task := &Task{ProjectID: p.ID, Title: "t1", CreatedBy: owner.ID, AssignedTo: &tech.ID}
	require.NoError(t, db.CreateTask(ctx, task))
	other := &Task{ProjectID: p.ID, Title: "t2", CreatedBy: owner.ID}
	require.NoError(t, db.CreateTask(ctx, other))

	require.NoError(t, db.CreateTaskDependency(ctx, &TaskDependency{TaskID: other.ID, DependsOnTaskID: task.ID}))
	require.NoError(t, db.AddProjectMember(ctx, &ProjectMember{ProjectID: p.ID, UserID: tech.ID}))
	require.NoError(t, db.CreateNote(ctx, &TaskNote{TaskID: task.ID, UserID: tech.ID, Content: "n"}))
	require.NoError(t, db.CreateReport(ctx, &InterventionReport{TaskID: task.ID, TechnicianID: tech.ID, Title: "r", TimeSpent: 1, Status: ReportStatusDraft}))
	require.NoError(t, db.AppendActivity(ctx, &ActivityLog{ProjectID: p.ID, UserID: owner.ID, Action: "created", EntityType: "project", EntityID: p.ID}))

	require.NoError(t, db.DeleteProject(ctx, p.ID))

	_, err := db.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetProjectMember(ctx, p.ID, tech.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	notes, err := db.ListNotesByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)

	assert.ErrorIs(t, db.DeleteProject(ctx, p.ID), ErrNotFound)
}

func TestTaskQueriesWithDependencies(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner", RoleMember)
	p := seedProject(t, db, "p", owner.ID)

	a := &Task{ProjectID: p.ID, Title: "dig", CreatedBy: owner.ID}
	require.NoError(t, db.CreateTask(ctx, a))
	b := &Task{ProjectID: p.ID, Title: "pour", CreatedBy: owner.ID, ParentTaskID: &a.ID}
	require.NoError(t, db.CreateTask(ctx, b))

	dep := &TaskDependency{TaskID: b.ID, DependsOnTaskID: a.ID, Type: "finish_to_start", Lag: 2}
	require.NoError(t, db.CreateTaskDependency(ctx, dep))
	assert.ErrorIs(t, db.CreateTaskDependency(ctx, &TaskDependency{TaskID: b.ID, DependsOnTaskID: a.ID}), ErrDuplicate)

	tasks, err := db.ListTasksByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "dig", tasks[0].Title)
	assert.Empty(t, tasks[0].Dependencies)
	require.Len(t, tasks[1].Dependencies, 1)
	assert.Equal(t, "dig", tasks[1].Dependencies[0].DependsOnTitle)
	assert.Equal(t, "dig", tasks[1].ParentTaskTitle)

	info, err := db.GetTaskInfo(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "p", info.ProjectTitle)
	assert.Equal(t, "owner", info.CreatedByName)
	require.Len(t, info.Dependencies, 1)

	_, err = db.GetTaskInfo(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenTasksByAssignee(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner", RoleMember)
	tech := seedUser(t, db, "tech", RoleTechnician)
	p := seedProject(t, db, "p", owner.ID)

	open := &Task{ProjectID: p.ID, Title: "open", CreatedBy: owner.ID, AssignedTo: &tech.ID, EndDate: "2026-09-01"}
	require.NoError(t, db.CreateTask(ctx, open))
	done := &Task{ProjectID: p.ID, Title: "done", CreatedBy: owner.ID, AssignedTo: &tech.ID, Status: "completed"}
	require.NoError(t, db.CreateTask(ctx, done))

	tasks, err := db.ListOpenTasksByAssignee(ctx, tech.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "open", tasks[0].Title)
	assert.Equal(t, "p", tasks[0].ProjectTitle)
}

func TestReportQueries(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner", RoleMember)
	tech := seedUser(t, db, "tech", RoleTechnician)
	other := seedUser(t, db, "tech2", RoleTechnician)
	p := seedProject(t, db, "p", owner.ID)
	task := &Task{ProjectID: p.ID, Title: "fix", CreatedBy: owner.ID, AssignedTo: &tech.ID}
	require.NoError(t, db.CreateTask(ctx, task))

	require.NoError(t, db.CreateReport(ctx, &InterventionReport{TaskID: task.ID, TechnicianID: tech.ID, Title: "mine", TimeSpent: 2, Status: ReportStatusDraft}))
	require.NoError(t, db.CreateReport(ctx, &InterventionReport{TaskID: task.ID, TechnicianID: other.ID, Title: "theirs", TimeSpent: 1, Status: ReportStatusDraft}))

	all, err := db.ListReportsByTask(ctx, task.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := db.ListReportsByTask(ctx, task.ID, tech.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Title)
	assert.Equal(t, "tech", mine[0].TechnicianName)
	assert.Equal(t, "fix", mine[0].TaskTitle)

	byTech, err := db.ListReportsByTechnician(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, byTech, 1)
	assert.Equal(t, "p", byTech[0].ProjectTitle)

	everything, err := db.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, everything, 2)
}

func TestClientProjectGuard(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner", RoleProjectLead)
	client := &Client{Name: "acme", CreatedBy: owner.ID}
	require.NoError(t, db.CreateClient(ctx, client))

	p := &Project{Title: "site", CreatedBy: owner.ID, ClientID: &client.ID}
	require.NoError(t, db.CreateProject(ctx, p))

	count, err := db.CountProjectsByClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	linked, err := db.ListProjectsByClient(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "owner", linked[0].CreatedByName)
}

func TestActivityLog(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, db, "owner", RoleMember)
	p := seedProject(t, db, "p", owner.ID)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.AppendActivity(ctx, &ActivityLog{
			ProjectID:  p.ID,
			UserID:     owner.ID,
			Action:     "updated",
			EntityType: "project",
			EntityID:   p.ID,
		}))
	}

	entries, err := db.ListActivity(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "owner", entries[0].Username)
}

func TestParseRole(t *testing.T) {
	for _, ok := range []string{"admin", "chef_projet", "technicien", "support", "user"} {
		r, err := ParseRole(ok)
		assert.NoError(t, err)
		assert.Equal(t, Role(ok), r)
	}
	_, err := ParseRole("superuser")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)
}
