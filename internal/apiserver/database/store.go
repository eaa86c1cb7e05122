package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Store implements Database on top of gorm. All drivers share this
// implementation; the factory only picks the dialector.
type Store struct {
	db *gorm.DB
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn with a transaction carried in the context, so nested
// store calls join the same transaction.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextWithTransaction(ctx, tx))
	})
}

// wrapErr maps driver errors onto the store's sentinel errors.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	// Driver-specific uniqueness violations (sqlite, postgres, mysql).
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "Duplicate entry") {
		return ErrDuplicate
	}
	return err
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, user *User) error {
	return wrapErr(s.conn(ctx).Create(user).Error)
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := s.conn(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (*User, error) {
	var user User
	err := s.conn(ctx).
		Where("username = ? OR email = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := s.conn(ctx).Order("created_at desc").Find(&users).Error
	return users, wrapErr(err)
}

func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]*User, error) {
	var users []*User
	pattern := "%" + query + "%"
	err := s.conn(ctx).
		Where("username LIKE ? OR email LIKE ? OR first_name LIKE ? OR last_name LIKE ?",
			pattern, pattern, pattern, pattern).
		Limit(limit).
		Find(&users).Error
	return users, wrapErr(err)
}

func (s *Store) UpdateUser(ctx context.Context, user *User) error {
	return wrapErr(s.conn(ctx).Save(user).Error)
}

// DeleteUser removes the account and its project memberships atomically.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		tx := s.conn(ctx)
		if err := tx.Where("user_id = ?", id).Delete(&ProjectMember{}).Error; err != nil {
			return wrapErr(err)
		}
		res := tx.Delete(&User{}, id)
		if res.Error != nil {
			return wrapErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Clients ---

func (s *Store) CreateClient(ctx context.Context, client *Client) error {
	return wrapErr(s.conn(ctx).Create(client).Error)
}

func (s *Store) GetClient(ctx context.Context, id uint) (*Client, error) {
	var client Client
	if err := s.conn(ctx).First(&client, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &client, nil
}

func (s *Store) ListClients(ctx context.Context) ([]*Client, error) {
	var clients []*Client
	err := s.conn(ctx).Order("name asc").Find(&clients).Error
	return clients, wrapErr(err)
}

func (s *Store) UpdateClient(ctx context.Context, client *Client) error {
	return wrapErr(s.conn(ctx).Save(client).Error)
}

func (s *Store) DeleteClient(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&Client{}, id)
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountProjectsByClient(ctx context.Context, clientID uint) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&Project{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, wrapErr(err)
}

func (s *Store) ListProjectsByClient(ctx context.Context, clientID uint) ([]*ProjectInfo, error) {
	var projects []*ProjectInfo
	err := s.conn(ctx).Table("projects").
		Select("projects.*, users.username AS created_by_name").
		Joins("LEFT JOIN users ON projects.created_by = users.id").
		Where("projects.client_id = ?", clientID).
		Order("projects.created_at desc").
		Scan(&projects).Error
	return projects, wrapErr(err)
}

// --- Projects ---

func (s *Store) CreateProject(ctx context.Context, project *Project) error {
	return wrapErr(s.conn(ctx).Create(project).Error)
}

func (s *Store) GetProject(ctx context.Context, id uint) (*Project, error) {
	var project Project
	if err := s.conn(ctx).First(&project, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &project, nil
}

func (s *Store) ListProjectsForUser(ctx context.Context, userID uint) ([]*ProjectInfo, error) {
	var projects []*ProjectInfo
	err := s.conn(ctx).Table("projects").
		Select("DISTINCT projects.*, users.username AS created_by_name, project_members.role AS member_role").
		Joins("LEFT JOIN users ON projects.created_by = users.id").
		Joins("LEFT JOIN project_members ON projects.id = project_members.project_id AND project_members.user_id = ?", userID).
		Where("projects.created_by = ? OR project_members.user_id = ?", userID, userID).
		Order("projects.updated_at desc").
		Scan(&projects).Error
	return projects, wrapErr(err)
}

func (s *Store) ListProjects(ctx context.Context) ([]*ProjectInfo, error) {
	var projects []*ProjectInfo
	err := s.conn(ctx).Table("projects").
		Select("projects.*, users.username AS created_by_name").
		Joins("LEFT JOIN users ON projects.created_by = users.id").
		Order("projects.updated_at desc").
		Scan(&projects).Error
	return projects, wrapErr(err)
}

func (s *Store) UpdateProject(ctx context.Context, project *Project) error {
	return wrapErr(s.conn(ctx).Save(project).Error)
}

func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		tx := s.conn(ctx)

		var taskIDs []uint
		if err := tx.Model(&Task{}).Where("project_id = ?", id).Pluck("id", &taskIDs).Error; err != nil {
			return wrapErr(err)
		}
		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ? OR depends_on_task_id IN ?", taskIDs, taskIDs).
				Delete(&TaskDependency{}).Error; err != nil {
				return wrapErr(err)
			}
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&InterventionReport{}).Error; err != nil {
				return wrapErr(err)
			}
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&TaskNote{}).Error; err != nil {
				return wrapErr(err)
			}
			if err := tx.Where("project_id = ?", id).Delete(&Task{}).Error; err != nil {
				return wrapErr(err)
			}
		}
		if err := tx.Where("project_id = ?", id).Delete(&ProjectMember{}).Error; err != nil {
			return wrapErr(err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&ActivityLog{}).Error; err != nil {
			return wrapErr(err)
		}

		res := tx.Delete(&Project{}, id)
		if res.Error != nil {
			return wrapErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Project members ---

func (s *Store) AddProjectMember(ctx context.Context, member *ProjectMember) error {
	return wrapErr(s.conn(ctx).Create(member).Error)
}

func (s *Store) GetProjectMember(ctx context.Context, projectID, userID uint) (*ProjectMember, error) {
	var member ProjectMember
	err := s.conn(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &member, nil
}

func (s *Store) ListProjectMembers(ctx context.Context, projectID uint) ([]*MemberInfo, error) {
	var members []*MemberInfo
	err := s.conn(ctx).Table("project_members").
		Select("project_members.user_id, users.username, project_members.role").
		Joins("JOIN users ON project_members.user_id = users.id").
		Where("project_members.project_id = ?", projectID).
		Order("project_members.joined_at asc").
		Scan(&members).Error
	return members, wrapErr(err)
}

func (s *Store) RemoveProjectMember(ctx context.Context, projectID, userID uint) error {
	res := s.conn(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&ProjectMember{})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Tasks ---

func (s *Store) CreateTask(ctx context.Context, task *Task) error {
	return wrapErr(s.conn(ctx).Create(task).Error)
}

func (s *Store) GetTask(ctx context.Context, id uint) (*Task, error) {
	var task Task
	if err := s.conn(ctx).First(&task, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &task, nil
}

func (s *Store) GetTaskInfo(ctx context.Context, id uint) (*TaskInfo, error) {
	var info TaskInfo
	err := s.conn(ctx).Table("tasks").
		Select("tasks.*, u1.username AS assigned_to_name, u2.username AS created_by_name, "+
			"pt.title AS parent_task_title, projects.title AS project_title").
		Joins("LEFT JOIN users u1 ON tasks.assigned_to = u1.id").
		Joins("LEFT JOIN users u2 ON tasks.created_by = u2.id").
		Joins("LEFT JOIN tasks pt ON tasks.parent_task_id = pt.id").
		Joins("LEFT JOIN projects ON tasks.project_id = projects.id").
		Where("tasks.id = ?", id).
		Scan(&info).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	if info.ID == 0 {
		return nil, ErrNotFound
	}
	deps, err := s.ListTaskDependencies(ctx, []uint{info.ID})
	if err != nil {
		return nil, err
	}
	info.Dependencies = deps
	return &info, nil
}

func (s *Store) ListTasksByProject(ctx context.Context, projectID uint) ([]*TaskInfo, error) {
	var tasks []*TaskInfo
	err := s.conn(ctx).Table("tasks").
		Select("tasks.*, u1.username AS assigned_to_name, u2.username AS created_by_name, "+
			"pt.title AS parent_task_title").
		Joins("LEFT JOIN users u1 ON tasks.assigned_to = u1.id").
		Joins("LEFT JOIN users u2 ON tasks.created_by = u2.id").
		Joins("LEFT JOIN tasks pt ON tasks.parent_task_id = pt.id").
		Where("tasks.project_id = ?", projectID).
		Order("tasks.created_at asc").
		Scan(&tasks).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]uint, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	deps, err := s.ListTaskDependencies(ctx, ids)
	if err != nil {
		return nil, err
	}
	byTask := make(map[uint][]*DependencyInfo, len(tasks))
	for _, dep := range deps {
		byTask[dep.TaskID] = append(byTask[dep.TaskID], dep)
	}
	for _, t := range tasks {
		if ds := byTask[t.ID]; ds != nil {
			t.Dependencies = ds
		} else {
			t.Dependencies = []*DependencyInfo{}
		}
	}
	return tasks, nil
}

func (s *Store) ListOpenTasksByAssignee(ctx context.Context, userID uint) ([]*TaskInfo, error) {
	var tasks []*TaskInfo
	err := s.conn(ctx).Table("tasks").
		Select("tasks.*, projects.title AS project_title").
		Joins("JOIN projects ON tasks.project_id = projects.id").
		Where("tasks.assigned_to = ? AND tasks.status <> ?", userID, "completed").
		Order("tasks.end_date asc").
		Scan(&tasks).Error
	return tasks, wrapErr(err)
}

func (s *Store) UpdateTask(ctx context.Context, task *Task) error {
	return wrapErr(s.conn(ctx).Save(task).Error)
}

func (s *Store) DeleteTask(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		tx := s.conn(ctx)
		if err := tx.Where("task_id = ? OR depends_on_task_id = ?", id, id).
			Delete(&TaskDependency{}).Error; err != nil {
			return wrapErr(err)
		}
		res := tx.Delete(&Task{}, id)
		if res.Error != nil {
			return wrapErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Task dependencies ---

func (s *Store) CreateTaskDependency(ctx context.Context, dep *TaskDependency) error {
	return wrapErr(s.conn(ctx).Create(dep).Error)
}

func (s *Store) ListTaskDependencies(ctx context.Context, taskIDs []uint) ([]*DependencyInfo, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	var deps []*DependencyInfo
	err := s.conn(ctx).Table("task_dependencies").
		Select("task_dependencies.*, tasks.title AS depends_on_title").
		Joins("JOIN tasks ON task_dependencies.depends_on_task_id = tasks.id").
		Where("task_dependencies.task_id IN ?", taskIDs).
		Scan(&deps).Error
	return deps, wrapErr(err)
}

// --- Intervention reports ---

func (s *Store) CreateReport(ctx context.Context, report *InterventionReport) error {
	return wrapErr(s.conn(ctx).Create(report).Error)
}

func (s *Store) GetReport(ctx context.Context, id uint) (*InterventionReport, error) {
	var report InterventionReport
	if err := s.conn(ctx).First(&report, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &report, nil
}

func (s *Store) ListReports(ctx context.Context) ([]*ReportInfo, error) {
	var reports []*ReportInfo
	err := s.conn(ctx).Table("intervention_reports").
		Select("intervention_reports.*, users.username AS technician_name, users.first_name, users.last_name, " +
			"tasks.title AS task_title, projects.title AS project_title").
		Joins("LEFT JOIN users ON intervention_reports.technician_id = users.id").
		Joins("LEFT JOIN tasks ON intervention_reports.task_id = tasks.id").
		Joins("LEFT JOIN projects ON tasks.project_id = projects.id").
		Order("intervention_reports.created_at desc").
		Scan(&reports).Error
	return reports, wrapErr(err)
}

func (s *Store) ListReportsByTask(ctx context.Context, taskID, technicianID uint) ([]*ReportInfo, error) {
	q := s.conn(ctx).Table("intervention_reports").
		Select("intervention_reports.*, users.username AS technician_name, users.first_name, users.last_name, "+
			"tasks.title AS task_title").
		Joins("LEFT JOIN users ON intervention_reports.technician_id = users.id").
		Joins("LEFT JOIN tasks ON intervention_reports.task_id = tasks.id").
		Where("intervention_reports.task_id = ?", taskID)
	if technicianID != 0 {
		q = q.Where("intervention_reports.technician_id = ?", technicianID)
	}
	var reports []*ReportInfo
	err := q.Order("intervention_reports.created_at desc").Scan(&reports).Error
	return reports, wrapErr(err)
}

func (s *Store) ListReportsByTechnician(ctx context.Context, technicianID uint) ([]*ReportInfo, error) {
	var reports []*ReportInfo
	err := s.conn(ctx).Table("intervention_reports").
		Select("intervention_reports.*, tasks.title AS task_title, projects.title AS project_title").
		Joins("LEFT JOIN tasks ON intervention_reports.task_id = tasks.id").
		Joins("LEFT JOIN projects ON tasks.project_id = projects.id").
		Where("intervention_reports.technician_id = ?", technicianID).
		Order("intervention_reports.created_at desc").
		Scan(&reports).Error
	return reports, wrapErr(err)
}

func (s *Store) UpdateReport(ctx context.Context, report *InterventionReport) error {
	return wrapErr(s.conn(ctx).Save(report).Error)
}

func (s *Store) DeleteReport(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&InterventionReport{}, id)
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Task notes ---

func (s *Store) CreateNote(ctx context.Context, note *TaskNote) error {
	return wrapErr(s.conn(ctx).Create(note).Error)
}

func (s *Store) GetNote(ctx context.Context, id uint) (*TaskNote, error) {
	var note TaskNote
	if err := s.conn(ctx).First(&note, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &note, nil
}

func (s *Store) ListNotesByTask(ctx context.Context, taskID uint) ([]*NoteInfo, error) {
	var notes []*NoteInfo
	err := s.conn(ctx).Table("task_notes").
		Select("task_notes.*, users.username, users.first_name, users.last_name").
		Joins("LEFT JOIN users ON task_notes.user_id = users.id").
		Where("task_notes.task_id = ?", taskID).
		Order("task_notes.created_at desc").
		Scan(&notes).Error
	return notes, wrapErr(err)
}

func (s *Store) UpdateNote(ctx context.Context, note *TaskNote) error {
	return wrapErr(s.conn(ctx).Save(note).Error)
}

func (s *Store) DeleteNote(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&TaskNote{}, id)
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Activity log ---

func (s *Store) AppendActivity(ctx context.Context, entry *ActivityLog) error {
	return wrapErr(s.conn(ctx).Create(entry).Error)
}

func (s *Store) ListActivity(ctx context.Context, projectID uint, limit int) ([]*ActivityInfo, error) {
	var entries []*ActivityInfo
	err := s.conn(ctx).Table("activity_logs").
		Select("activity_logs.*, users.username").
		Joins("JOIN users ON activity_logs.user_id = users.id").
		Where("activity_logs.project_id = ?", projectID).
		Order("activity_logs.created_at desc").
		Limit(limit).
		Scan(&entries).Error
	return entries, wrapErr(err)
}
