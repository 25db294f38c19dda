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

// NewTask is the input for CreateTask.
type NewTask struct {
	ProjectID   uint
	Name        string
	Description string
	DueDate     *time.Time
}

func (s *Store) CreateTask(ctx context.Context, in NewTask) (*models.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: task name is required", ErrInvalid)
	}
	task := &models.Task{
		ProjectID:   in.ProjectID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
		Status:      models.TaskNotStarted,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", in.ProjectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: project %d", ErrNotFound, in.ProjectID)
		}
		return tx.Create(task).Error
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func preloadTask(db *gorm.DB) *gorm.DB {
	return db.Preload("Workers.User").Preload("Materials.Material")
}

func (s *Store) TaskByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := preloadTask(s.db.WithContext(ctx)).First(&task, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (s *Store) ProjectTasks(ctx context.Context, projectID uint) ([]models.Task, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: project %d", ErrNotFound, projectID)
	}
	var tasks []models.Task
	err := preloadTask(s.db.WithContext(ctx)).Where("project_id = ?", projectID).Order("id asc").Find(&tasks).Error
	return tasks, err
}

// WorkerTasks returns every task a worker is assigned to.
func (s *Store) WorkerTasks(ctx context.Context, workerID uint) ([]models.Task, error) {
	db := s.db.WithContext(ctx)
	assigned := db.Model(&models.TaskWorker{}).Select("task_id").Where("user_id = ?", workerID)
	var tasks []models.Task
	err := preloadTask(db).Where("id IN (?)", assigned).Order("project_id asc, id asc").Find(&tasks).Error
	return tasks, err
}

// IsTaskWorker reports whether workerID is assigned to taskID.
func (s *Store) IsTaskWorker(ctx context.Context, taskID, workerID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TaskWorker{}).
		Where("task_id = ? AND user_id = ?", taskID, workerID).
		Count(&count).Error
	return count > 0, err
}

// UpdateTaskStatus moves a task forward. Completing stamps CompletedAt.
func (s *Store) UpdateTaskStatus(ctx context.Context, id uint, to models.TaskStatus) (*models.Task, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, id).Error; err != nil {
			return notFound(err)
		}
		if err := task.Status.CanTransitionTo(to); err != nil {
			return err
		}
		updates := map[string]any{"status": to}
		if to == models.TaskCompleted {
			updates["completed_at"] = time.Now().UTC()
		}
		res := tx.Model(&models.Task{}).Where("id = ? AND status = ?", id, task.Status).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.TaskByID(ctx, id)
}

// AssignWorkerToTask adds a project worker to a task. Duplicates are
// detected by worker id.
func (s *Store) AssignWorkerToTask(ctx context.Context, taskID, workerID uint) (*models.Task, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Preload("Workers").First(&task, taskID).Error; err != nil {
			return notFound(err)
		}
		if err := lockProject(tx, task.ProjectID); err != nil {
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

		var onProject int64
		if err := tx.Model(&models.ProjectWorker{}).
			Where("project_id = ? AND user_id = ?", task.ProjectID, workerID).
			Count(&onProject).Error; err != nil {
			return err
		}
		if onProject == 0 {
			return roster.ErrWorkerNotOnProject
		}

		if err := roster.CheckWorkerTaskAssignment(task.WorkerIDs(), workerID); err != nil {
			return err
		}
		return tx.Create(&models.TaskWorker{TaskID: taskID, UserID: workerID}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.TaskByID(ctx, taskID)
}

// TaskAssignment names one worker-task pair.
type TaskAssignment struct {
	WorkerID uint
	TaskID   uint
}

// RemoveWorkerFromTasks deletes all given pairs or none.
func (s *Store) RemoveWorkerFromTasks(ctx context.Context, pairs []TaskAssignment) error {
	if len(pairs) == 0 {
		return fmt.Errorf("%w: no assignments given", ErrInvalid)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range pairs {
			res := tx.Where("task_id = ? AND user_id = ?", p.TaskID, p.WorkerID).Delete(&models.TaskWorker{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: worker %d is not on task %d", ErrNotFound, p.WorkerID, p.TaskID)
			}
		}
		return nil
	})
}

// DailyCount is the number of tasks completed on one day.
type DailyCount struct {
	Date           string `json:"date"`
	TasksCompleted int    `json:"tasksCompleted"`
}

// CompletionsSince returns one entry per day from since up to now, oldest first.
func (s *Store) CompletionsSince(ctx context.Context, since, now time.Time) ([]DailyCount, error) {
	var stamps []time.Time
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("completed_at IS NOT NULL AND completed_at >= ?", since).
		Pluck("completed_at", &stamps).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(stamps))
	for _, ts := range stamps {
		counts[ts.UTC().Format("2006-01-02")]++
	}

	var out []DailyCount
	start := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)
	for day := start; !day.After(now.UTC()); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		out = append(out, DailyCount{Date: key, TasksCompleted: counts[key]})
	}
	return out, nil
}

// WorkerTask is one worker-task pair with the task's display fields.
type WorkerTask struct {
	WorkerID  uint              `json:"workerId"`
	TaskID    uint              `json:"taskId"`
	TaskName  string            `json:"taskName"`
	ProjectID uint              `json:"projectId"`
	Status    models.TaskStatus `json:"status"`
}

// WorkerTaskPairs lists every worker-task assignment.
func (s *Store) WorkerTaskPairs(ctx context.Context) ([]WorkerTask, error) {
	var rows []WorkerTask
	err := s.db.WithContext(ctx).Table("task_workers").
		Select("task_workers.user_id AS worker_id, tasks.id AS task_id, tasks.name AS task_name, tasks.project_id AS project_id, tasks.status AS status").
		Joins("JOIN tasks ON tasks.id = task_workers.task_id").
		Order("task_workers.user_id asc, tasks.id asc").
		Scan(&rows).Error
	return rows, err
}
