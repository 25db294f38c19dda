package database

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"twintrack/models"
	"twintrack/roster"
)

// CreateUser hashes password and stores a new account.
func (s *Store) CreateUser(ctx context.Context, username, fullName, password string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return nil, fmt.Errorf("%w: username must be at least 3 characters", ErrInvalid)
	}
	if len(password) < 5 {
		return nil, fmt.Errorf("%w: password must be at least 5 characters", ErrInvalid)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: username %q", ErrConflict, username)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: string(hashed),
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user when password matches.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UsersByRole pages through accounts of one role ordered by name.
func (s *Store) UsersByRole(ctx context.Context, role models.Role, page, pageSize int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	q := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Order("full_name asc, id asc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error
	return users, total, err
}

// SupervisorRoles maps supervisor id to the roles it holds across projects.
func (s *Store) SupervisorRoles(ctx context.Context) (map[uint][]roster.Role, error) {
	var rows []models.ProjectSupervisor
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	roles := make(map[uint][]roster.Role)
	for _, r := range rows {
		roles[r.UserID] = append(roles[r.UserID], r.Role)
	}
	return roles, nil
}

func rolesOf(tx *gorm.DB, supervisorID uint) ([]roster.Role, error) {
	var names []string
	if err := tx.Model(&models.ProjectSupervisor{}).Where("user_id = ?", supervisorID).Pluck("role", &names).Error; err != nil {
		return nil, err
	}
	roles := make([]roster.Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, roster.Role(n))
	}
	return roles, nil
}

// SetSuspended suspends or retains a user of the given role. Supervisors
// holding Lead anywhere cannot be suspended.
func (s *Store) SetSuspended(ctx context.Context, userID uint, role models.Role, suspended bool) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return notFound(err)
		}
		if user.Role != role {
			return fmt.Errorf("%w: user %d is %s, not %s", ErrWrongRole, userID, user.Role, role)
		}
		if suspended && user.IsSupervisor() {
			roles, err := rolesOf(tx, user.ID)
			if err != nil {
				return err
			}
			if err := roster.CheckSuspendable(roles); err != nil {
				return err
			}
		}
		user.Suspended = suspended
		return tx.Model(&user).Update("suspended", suspended).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
