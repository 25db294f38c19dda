package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"twintrack/inventory"
	"twintrack/models"
)

func (s *Store) CreateMaterial(ctx context.Context, projectID uint, name, unit string, total int) (*models.Material, error) {
	stock, err := inventory.NewMaterial(name, total)
	if err != nil {
		return nil, err
	}
	material := &models.Material{
		ProjectID: projectID,
		Name:      stock.Name,
		Unit:      strings.TrimSpace(unit),
	}
	material.SetStock(stock)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Material{}).
			Where("project_id = ? AND name = ?", projectID, material.Name).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: material %q already exists on this project", ErrConflict, material.Name)
		}
		return tx.Create(material).Error
	})
	if err != nil {
		return nil, err
	}
	return material, nil
}

func (s *Store) MaterialByID(ctx context.Context, id uint) (*models.Material, error) {
	var m models.Material
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *Store) ProjectMaterials(ctx context.Context, projectID uint) ([]models.Material, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: project %d", ErrNotFound, projectID)
	}
	var materials []models.Material
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("name asc").Find(&materials).Error
	return materials, err
}

// saveStock writes a material's new quantities only if nobody changed them
// since they were read.
func saveStock(tx *gorm.DB, before, after *models.Material) error {
	res := tx.Model(&models.Material{}).
		Where("id = ? AND total_quantity = ? AND available_quantity = ?", before.ID, before.TotalQuantity, before.AvailableQuantity).
		Updates(map[string]any{
			"total_quantity":     after.TotalQuantity,
			"available_quantity": after.AvailableQuantity,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (s *Store) updateStock(ctx context.Context, id uint, apply func(*inventory.Material) error) (*models.Material, error) {
	var material models.Material
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&material, id).Error; err != nil {
			return notFound(err)
		}
		before := material
		stock := material.Stock()
		if err := apply(&stock); err != nil {
			return err
		}
		material.SetStock(stock)
		return saveStock(tx, &before, &material)
	})
	if err != nil {
		return nil, err
	}
	return &material, nil
}

// IncreaseMaterial records a delivery of by units.
func (s *Store) IncreaseMaterial(ctx context.Context, id uint, by int) (*models.Material, error) {
	return s.updateStock(ctx, id, func(m *inventory.Material) error {
		return inventory.IncreaseStock(m, by)
	})
}

// SetMaterialTotal changes the total while keeping task allocations intact.
func (s *Store) SetMaterialTotal(ctx context.Context, id uint, total int) (*models.Material, error) {
	return s.updateStock(ctx, id, func(m *inventory.Material) error {
		return inventory.SetTotal(m, total)
	})
}

// AllocationRequest asks for quantity units of a material.
type AllocationRequest struct {
	MaterialID uint
	Quantity   int
}

// AllocateMaterials binds the requested quantities to a task. The whole
// request succeeds or nothing changes. Each material row is decremented with
// a conditional update, so a concurrent allocation that drained the pool
// makes this one fail instead of overdrawing. Existing allocations grow by
// the requested amount relative to what is stored.
func (s *Store) AllocateMaterials(ctx context.Context, taskID uint, reqs []AllocationRequest) ([]models.TaskMaterial, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no materials selected", ErrInvalid)
	}

	var result []models.TaskMaterial
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Preload("Materials").First(&task, taskID).Error; err != nil {
			return notFound(err)
		}

		stocks := make(map[uint]*models.Material)
		order := make([]uint, 0, len(reqs))
		for _, req := range reqs {
			m, ok := stocks[req.MaterialID]
			if !ok {
				m = &models.Material{}
				if err := tx.First(m, req.MaterialID).Error; err != nil {
					return fmt.Errorf("material %d: %w", req.MaterialID, notFound(err))
				}
				if m.ProjectID != task.ProjectID {
					return fmt.Errorf("%w: material %d does not belong to the task's project", ErrInvalid, req.MaterialID)
				}
				stocks[req.MaterialID] = m
				order = append(order, req.MaterialID)
			}

			stock := m.Stock()
			alloc := task.Allocation(req.MaterialID)
			var holding *inventory.Allocation
			if alloc != nil {
				h := alloc.Holding()
				holding = &h
			}
			updated, err := inventory.Allocate(&stock, holding, req.Quantity)
			if err != nil {
				return err
			}
			m.SetStock(stock)
			if alloc == nil {
				task.Materials = append(task.Materials, models.TaskMaterial{TaskID: taskID, MaterialID: req.MaterialID})
				alloc = &task.Materials[len(task.Materials)-1]
			}
			alloc.SetHolding(*updated)
		}

		for _, id := range order {
			m := stocks[id]
			var requested int
			for _, req := range reqs {
				if req.MaterialID == id {
					requested += req.Quantity
				}
			}
			res := tx.Model(&models.Material{}).
				Where("id = ? AND available_quantity >= ?", id, requested).
				Update("available_quantity", gorm.Expr("available_quantity - ?", requested))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var current models.Material
				if err := tx.First(&current, id).Error; err != nil {
					return err
				}
				return &inventory.AllocationError{
					Material:  m.Name,
					Requested: requested,
					Available: current.AvailableQuantity,
					Err:       inventory.ErrInsufficientStock,
				}
			}

			alloc := task.Allocation(id)
			if alloc.ID == 0 {
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(alloc)
				if res.Error != nil {
					return res.Error
				}
				// another request created the row after we read the task
				if res.RowsAffected == 0 {
					return ErrConcurrentUpdate
				}
			} else {
				res := tx.Model(&models.TaskMaterial{}).
					Where("id = ?", alloc.ID).
					Updates(map[string]any{
						"quantity_assigned":  gorm.Expr("quantity_assigned + ?", requested),
						"quantity_remaining": gorm.Expr("quantity_remaining + ?", requested),
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return ErrConcurrentUpdate
				}
				if err := tx.First(alloc, alloc.ID).Error; err != nil {
					return err
				}
			}
			if err := tx.First(m, id).Error; err != nil {
				return err
			}
			alloc.Material = m
			result = append(result, *alloc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UsageReport is the outcome of a usage report or return.
type UsageReport struct {
	Allocation models.TaskMaterial
	Material   models.Material
	Returned   int
}

func (s *Store) reconcile(ctx context.Context, taskID, materialID uint, apply func(*inventory.Material, *inventory.Allocation) error) (*UsageReport, error) {
	var report UsageReport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var alloc models.TaskMaterial
		if err := tx.Where("task_id = ? AND material_id = ?", taskID, materialID).First(&alloc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: material %d is not allocated to task %d", ErrNotFound, materialID, taskID)
			}
			return err
		}
		var material models.Material
		if err := tx.First(&material, materialID).Error; err != nil {
			return notFound(err)
		}

		before := material
		stock := material.Stock()
		holding := alloc.Holding()
		if err := apply(&stock, &holding); err != nil {
			return err
		}
		returned := alloc.QuantityRemaining - holding.Remaining

		material.SetStock(stock)
		if err := saveStock(tx, &before, &material); err != nil {
			return err
		}
		res := tx.Model(&models.TaskMaterial{}).
			Where("id = ? AND quantity_remaining = ?", alloc.ID, alloc.QuantityRemaining).
			Update("quantity_remaining", holding.Remaining)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		alloc.SetHolding(holding)
		alloc.Material = &material

		report = UsageReport{Allocation: alloc, Material: material, Returned: returned}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ReportRemaining records that remaining units are still held by the task;
// the difference goes back to the project.
func (s *Store) ReportRemaining(ctx context.Context, taskID, materialID uint, remaining int) (*UsageReport, error) {
	return s.reconcile(ctx, taskID, materialID, func(m *inventory.Material, a *inventory.Allocation) error {
		_, err := inventory.ReportRemaining(m, a, remaining)
		return err
	})
}

// UseCompletely marks the whole allocation as consumed.
func (s *Store) UseCompletely(ctx context.Context, taskID, materialID uint) (*UsageReport, error) {
	return s.reconcile(ctx, taskID, materialID, func(m *inventory.Material, a *inventory.Allocation) error {
		_, err := inventory.UseCompletely(m, a)
		return err
	})
}

// ReturnMaterial hands quantity units held by the task back to the project.
func (s *Store) ReturnMaterial(ctx context.Context, taskID, materialID uint, quantity int) (*UsageReport, error) {
	return s.reconcile(ctx, taskID, materialID, func(m *inventory.Material, a *inventory.Allocation) error {
		return inventory.Return(m, a, quantity)
	})
}
