package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "user-service/pkg/errors"

	"user-service/internal/domain/user"
)

// UserRepo implements the user repository interface using GORM.
// It is the only component that issues queries against the users table.
type UserRepo struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(db *gorm.DB, log *zap.Logger) *UserRepo {
	return &UserRepo{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`      // Unique identifier with auto-increment
	Name         string    `gorm:"not null"`                      // User's full name (required)
	Email        string    `gorm:"not null;uniqueIndex"`          // User's unique email address (required, unique)
	PasswordHash string    `gorm:"column:password_hash;not null"` // bcrypt digest, never leaves the persistence boundary unshaped
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func (m *UserSchema) toDomain() *user.User {
	return &user.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Create inserts a new user into the database and returns the stored row,
// including the assigned ID and timestamps. Uniqueness is not pre-checked
// here; a concurrent insert with the same email surfaces as
// gorm.ErrDuplicatedKey for the caller to translate.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string) (*user.User, error) {
	model := UserSchema{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate email hit unique constraint", zap.String("email", email))
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return model.toDomain(), nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.Int64("id", id))
			return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return model.toDomain(), nil
}

// GetByEmail retrieves a user from the database by their email address.
// Returns (nil, nil) when no user has that email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return model.toDomain(), nil
}

// List retrieves users from the database in storage order, bounded by
// offset and limit.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err), zap.Int("offset", offset), zap.Int("limit", limit))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = *model.toDomain()
	}

	return users, nil
}

// Update applies only the provided fields to the user row, lets GORM refresh
// updated_at, and returns the re-read row.
func (r *UserRepo) Update(ctx context.Context, id int64, fields map[string]interface{}) (*user.User, error) {
	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			r.log.Error("failed to update user in db", zap.Error(res.Error), zap.Int64("id", id))
			return nil, fmt.Errorf("failed to update user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			r.log.Debug("update matched no rows", zap.Int64("id", id))
			return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
		}
	}

	updated, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.log.Info("user updated in db", zap.Int64("id", id))
	return updated, nil
}

// Delete removes a user from the database by ID. Removal is permanent.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&UserSchema{}, id)
	if res.Error != nil {
		r.log.Error("failed to delete user in db", zap.Error(res.Error), zap.Int64("id", id))
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return nil
}
