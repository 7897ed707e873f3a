package service

import (
	"context"
	"errors"

	userserrors "wanderly/internal/users/errors"
	"wanderly/internal/users/repository"
	"wanderly/internal/users/validator"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/model"
	"wanderly/pkg/sanitizer"
)

type UserService interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByUID(ctx context.Context, uid string) (*model.User, error)
	Update(ctx context.Context, uid string, updates *model.UserUpdate) (*model.User, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.UserValidator
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	validator *validator.UserValidator,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

// Create is get-or-create: replayed sign-in callbacks for a known UID return
// the stored account unchanged.
func (s *userService) Create(ctx context.Context, user *model.User) (*model.User, error) {
	s.sanitize(user)

	if err := s.validator.Validate(user); err != nil {
		s.cfg.Log.Warn("User validation failed",
			"uid", user.UID,
			"error", err,
		)
		return nil, apperrors.Validation("User validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicate) {
			existing, findErr := s.repo.FindByUID(ctx, user.UID)
			if findErr != nil {
				return nil, apperrors.Internal("Failed to load existing user", findErr)
			}
			s.cfg.Log.Debug("User already exists, returning stored account", "uid", user.UID)
			return existing, nil
		}
		s.cfg.Log.Error("Failed to create user",
			"uid", user.UID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User created successfully",
		"uid", user.UID,
		"email", user.Email,
	)

	return user, nil
}

func (s *userService) GetByUID(ctx context.Context, uid string) (*model.User, error) {
	if uid == "" {
		return nil, apperrors.InvalidInput("User UID cannot be empty")
	}

	user, err := s.repo.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", uid)
		}
		s.cfg.Log.Error("Failed to get user",
			"uid", uid,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}

	return user, nil
}

func (s *userService) Update(ctx context.Context, uid string, updates *model.UserUpdate) (*model.User, error) {
	if uid == "" {
		return nil, apperrors.InvalidInput("User UID cannot be empty")
	}

	existing, err := s.repo.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", uid)
		}
		return nil, apperrors.Internal("Failed to check user existence", err)
	}

	merged := s.merge(existing, updates)
	s.sanitize(merged)

	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("User validation failed",
			"uid", uid,
			"error", err,
		)
		return nil, apperrors.Validation("User validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Update(ctx, uid, merged); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", uid)
		}
		s.cfg.Log.Error("Failed to update user",
			"uid", uid,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update user", err)
	}

	s.cfg.Log.Info("User updated successfully", "uid", uid)

	return merged, nil
}

func (s *userService) sanitize(user *model.User) {
	user.UID = sanitizer.TrimAndNormalize(user.UID)
	user.Email = sanitizer.NormalizeEmail(user.Email)
	user.Name = sanitizer.NormalizeName(user.Name)
	user.Phone = sanitizer.TrimAndNormalize(user.Phone)
}

func (s *userService) merge(existing *model.User, updates *model.UserUpdate) *model.User {
	merged := *existing

	if updates.Email != "" {
		merged.Email = updates.Email
	}
	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Phone != "" {
		merged.Phone = updates.Phone
	}

	merged.ID = existing.ID
	merged.UID = existing.UID
	merged.CreatedAt = existing.CreatedAt

	return &merged
}
