package service

import (
	"context"
	"fmt"

	"norel-backend/internal/auth"
	"norel-backend/internal/models"
	"norel-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Stats is the admin dashboard summary
type Stats struct {
	Users       int `json:"users"`
	BannedUsers int `json:"bannedUsers"`
	Profiles    int `json:"profiles"`
}

// AdminService backs the admin dashboard
type AdminService struct {
	store        repository.Store
	tokenService *auth.TokenService
	passwordHash []byte
	logger       *zap.Logger
}

// NewAdminService creates an admin service. An empty passwordHash disables
// admin login.
func NewAdminService(store repository.Store, tokenService *auth.TokenService, passwordHash string, logger *zap.Logger) *AdminService {
	return &AdminService{
		store:        store,
		tokenService: tokenService,
		passwordHash: []byte(passwordHash),
		logger:       logger,
	}
}

// Login checks the admin password and returns a session token
func (s *AdminService) Login(password string) (string, error) {
	if len(s.passwordHash) == 0 {
		return "", ErrDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.logger.Warn("Failed admin login")
		return "", ErrInvalidCredentials
	}
	return s.tokenService.NewAdminToken()
}

func (s *AdminService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.store.GetAllUsers(ctx)
}

func (s *AdminService) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	return s.store.ListProfiles(ctx)
}

// SetBanned bans or unbans a user. Banned users cannot log in and their
// existing tokens stop working.
func (s *AdminService) SetBanned(ctx context.Context, userID uuid.UUID, banned bool) error {
	if err := s.store.SetUserBanned(ctx, userID, banned); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	s.logger.Info("User ban state changed", zap.String("user_id", userID.String()), zap.Bool("banned", banned))
	return nil
}

// Stats counts users and profiles
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.store.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Users: len(users), Profiles: len(profiles)}
	for _, u := range users {
		if u.Banned {
			stats.BannedUsers++
		}
	}
	return stats, nil
}
