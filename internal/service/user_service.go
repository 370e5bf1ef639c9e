package service

import (
	"context"
	"strings"

	"prokat/internal/domain"
	"prokat/internal/models"

	"github.com/rs/zerolog"
)

// UserService registers actors. Owners get a wallet at registration;
// renters get one lazily if a deposit refund ever needs a destination.
type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func validRole(role string) bool {
	switch role {
	case models.RoleRenter, models.RoleOwner, models.RoleStaff, models.RoleAdmin:
		return true
	}
	return false
}

func (s *UserService) Register(ctx context.Context, name, role, phone string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("user name is required")
	}
	if !validRole(role) {
		return nil, domain.Invalid("unknown role %q", role)
	}

	user := &models.User{Name: name, Role: role, Phone: phone}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, classify(err)
	}

	if role == models.RoleOwner {
		if _, err := s.repo.CreateWallet(ctx, user.ID); err != nil {
			s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("create owner wallet error")
		}
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}
