package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "user-service/internal/domain/user"
	apperrors "user-service/pkg/errors"
	"user-service/pkg/security"
)

// DefaultListLimit bounds list responses when the caller does not supply one.
const DefaultListLimit = 100

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// to be used interchangeably.
type Repository interface {
	Create(ctx context.Context, name, email, passwordHash string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, offset, limit int) ([]domain.User, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// Service implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Service struct {
	repo     Repository          // Repository for data access
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

// New creates a new instance of Service with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log, validate: validator.New()}
}

// formatValidationError converts validator.ValidationErrors into a typed validation error.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "email":
				messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
			}
		}
		return apperrors.NewValidationError("", strings.Join(messages, ", "))
	}
	return err
}

// duplicateEmailError is the business outcome for an email that is already registered.
func duplicateEmailError() error {
	return apperrors.NewAlreadyExistsError("user", "email already registered")
}

// CreateUser creates a new user after validating the request and checking email
// uniqueness. The plaintext password is hashed before it reaches the repository.
// Two concurrent creations with the same email can both pass the pre-check; the
// loser hits the storage unique constraint, which is translated to the same
// duplicate-email outcome here.
func (s *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*domain.User, error) {
	s.log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		s.log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil {
		s.log.Warn("email already registered", zap.String("email", in.Email))
		return nil, duplicateEmailError()
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		s.log.Error("failed to hash password", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	created, err := s.repo.Create(ctx, in.Name, in.Email, passwordHash)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.log.Warn("lost create race on email uniqueness", zap.String("email", in.Email))
			return nil, duplicateEmailError()
		}
		s.log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	return created, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.log.Debug("failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return u, nil
}

// ListUsers retrieves a window of users. Negative or missing bounds fall back
// to skip 0 and the default limit.
func (s *Service) ListUsers(ctx context.Context, in ListUsersRequest) ([]domain.User, error) {
	if in.Skip < 0 {
		in.Skip = 0
	}
	if in.Limit <= 0 {
		in.Limit = DefaultListLimit
	}

	s.log.Debug("listing users", zap.Int("skip", in.Skip), zap.Int("limit", in.Limit))

	users, err := s.repo.List(ctx, in.Skip, in.Limit)
	if err != nil {
		s.log.Error("failed to list users", zap.Int("skip", in.Skip), zap.Int("limit", in.Limit), zap.Error(err))
		return nil, err
	}
	return users, nil
}

// UpdateUser applies a partial update to an existing user. The user must exist,
// and a changed email is re-checked for uniqueness before the write.
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserRequest) (*domain.User, error) {
	s.log.Info("updating user", zap.Int64("id", in.ID))

	if err := s.validate.Struct(in); err != nil {
		s.log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	current, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil && *in.Email != current.Email {
		existing, err := s.repo.GetByEmail(ctx, *in.Email)
		if err != nil {
			s.log.Error("failed to check existing email", zap.String("email", *in.Email), zap.Error(err))
			return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
		}
		if existing != nil && existing.ID != in.ID {
			s.log.Warn("email already registered", zap.String("email", *in.Email), zap.Int64("existing_id", existing.ID))
			return nil, duplicateEmailError()
		}
	}

	fields := make(map[string]interface{})
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}

	updated, err := s.repo.Update(ctx, in.ID, fields)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, duplicateEmailError()
		}
		s.log.Error("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return updated, nil
}

// DeleteUser removes a user permanently. A missing user surfaces as not found.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	s.log.Info("deleting user", zap.Int64("id", id))

	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Debug("failed to delete user", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}
