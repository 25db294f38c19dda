package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"twintrack/models"
	"twintrack/roster"
)

// NewProject is the input for CreateProject.
type NewProject struct {
	Name        string
	Code        string
	Description string
	Status      models.ProjectStatus
	// LeadID, when set, is placed on the roster as the project's Lead.
	LeadID uint
}

func (s *Store) CreateProject(ctx context.Context, in NewProject) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalid)
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: project name must be 100 characters or less", ErrInvalid)
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		code = "PRJ-" + strings.ToUpper(strings.ReplaceAll(name, " ", "-"))
		if len(code) > 40 {
			code = code[:40]
		}
	}
	status := in.Status
	if status == "" {
		status = models.ProjectPending
	}
	if _, err := models.ParseProjectStatus(string(status)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	project := &models.Project{
		Name:        name,
		Code:        code,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("name = ? OR code = ?", name, code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: project name or code already in use", ErrConflict)
		}
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		if in.LeadID == 0 {
			return nil
		}
		return tx.Create(&models.ProjectSupervisor{
			ProjectID: project.ID,
			UserID:    in.LeadID,
			Role:      roster.RoleLead,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Store) ProjectByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).Preload("Materials").First(&project, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&projects).Error
	return projects, err
}

// ProjectsForUser returns the projects a user supervises or works on.
func (s *Store) ProjectsForUser(ctx context.Context, userID uint) ([]models.Project, error) {
	db := s.db.WithContext(ctx)
	supervised := db.Model(&models.ProjectSupervisor{}).Select("project_id").Where("user_id = ?", userID)
	worked := db.Model(&models.ProjectWorker{}).Select("project_id").Where("user_id = ?", userID)

	var projects []models.Project
	err := db.Where("id IN (?) OR id IN (?)", supervised, worked).Order("created_at desc").Find(&projects).Error
	return projects, err
}

func (s *Store) UpdateProjectStatus(ctx context.Context, id uint, to models.ProjectStatus) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, id).Error; err != nil {
			return notFound(err)
		}
		if err := project.Status.CanTransitionTo(to); err != nil {
			return err
		}
		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", id, project.Status).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		project.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// lockProject touches the project row so concurrent roster changes on the
// same project serialize. It doubles as an existence check.
func lockProject(tx *gorm.DB, projectID uint) error {
	res := tx.Model(&models.Project{}).Where("id = ?", projectID).Update("updated_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: project %d", ErrNotFound, projectID)
	}
	return nil
}

// ProjectAssignments is the roster of a project.
type ProjectAssignments struct {
	Project     models.Project
	Supervisors []models.ProjectSupervisor
	Workers     []models.ProjectWorker
}

func (s *Store) Assignments(ctx context.Context, projectID uint) (*ProjectAssignments, error) {
	db := s.db.WithContext(ctx)
	out := &ProjectAssignments{}
	if err := db.First(&out.Project, projectID).Error; err != nil {
		return nil, notFound(err)
	}
	if err := db.Preload("User").Where("project_id = ?", projectID).Order("id asc").Find(&out.Supervisors).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("User").Where("project_id = ?", projectID).Order("id asc").Find(&out.Workers).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IsProjectSupervisor reports whether userID supervises projectID.
func (s *Store) IsProjectSupervisor(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ProjectSupervisor{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) IsProjectWorker(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ProjectWorker{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// AssignSupervisor adds a supervisor to a project. At most one Lead per
// project is enforced under the project lock.
func (s *Store) AssignSupervisor(ctx context.Context, projectID, supervisorID uint, role roster.Role) (*models.ProjectSupervisor, error) {
	var assignment models.ProjectSupervisor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}

		var supervisor models.User
		if err := tx.First(&supervisor, supervisorID).Error; err != nil {
			return notFound(err)
		}
		if !supervisor.IsSupervisor() {
			return fmt.Errorf("%w: user %d is not a supervisor", ErrWrongRole, supervisorID)
		}
		if supervisor.Suspended {
			return roster.ErrSupervisorSuspended
		}

		var existing []models.ProjectSupervisor
		if err := tx.Where("project_id = ?", projectID).Find(&existing).Error; err != nil {
			return err
		}
		if err := roster.CheckSupervisorAssignment(models.Members(existing), supervisorID, role); err != nil {
			return err
		}

		assignment = models.ProjectSupervisor{ProjectID: projectID, UserID: supervisorID, Role: role}
		return tx.Create(&assignment).Error
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// RemoveSupervisor takes a supervisor off a project. A supervisor holding
// Lead on any project is protected.
func (s *Store) RemoveSupervisor(ctx context.Context, projectID, supervisorID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}
		roles, err := rolesOf(tx, supervisorID)
		if err != nil {
			return err
		}
		if err := roster.CheckRemovable(roles); err != nil {
			return err
		}
		res := tx.Where("project_id = ? AND user_id = ?", projectID, supervisorID).Delete(&models.ProjectSupervisor{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: supervisor %d is not on project %d", ErrNotFound, supervisorID, projectID)
		}
		return nil
	})
}

// AssignWorker adds a worker to a project roster.
func (s *Store) AssignWorker(ctx context.Context, projectID, workerID uint) (*models.ProjectWorker, error) {
	var assignment models.ProjectWorker
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}
		var worker models.User
		if err := tx.First(&worker, workerID).Error; err != nil {
			return notFound(err)
		}
		if !worker.IsWorker() {
			return fmt.Errorf("%w: user %d is not a worker", ErrWrongRole, workerID)
		}
		if worker.Suspended {
			return roster.ErrWorkerSuspended
		}
		var count int64
		if err := tx.Model(&models.ProjectWorker{}).
			Where("project_id = ? AND user_id = ?", projectID, workerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: worker %d is already on project %d", ErrConflict, workerID, projectID)
		}
		assignment = models.ProjectWorker{ProjectID: projectID, UserID: workerID}
		return tx.Create(&assignment).Error
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}
