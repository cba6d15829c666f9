package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"norel-backend/internal/models"
	"norel-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileService manages identity profiles. Every operation is scoped to
// the calling user; profiles of other users look like missing ones.
type ProfileService struct {
	store  repository.ProfileStore
	logger *zap.Logger
}

func NewProfileService(store repository.ProfileStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{store: store, logger: logger}
}

// Create stores p as a new profile of userID
func (s *ProfileService) Create(ctx context.Context, userID uuid.UUID, p *models.Profile) (*models.Profile, error) {
	now := time.Now().UTC()
	profile := *p
	profile.ID = uuid.New()
	profile.UserID = userID
	profile.Email = NormalizeEmail(profile.Email)
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := s.store.CreateProfile(ctx, &profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return &profile, nil
}

// Get returns a profile owned by userID
func (s *ProfileService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.store.GetProfileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile.UserID != userID {
		s.logger.Warn("Profile access by non-owner",
			zap.String("profile_id", id.String()),
			zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("profile %s: %w", id, repository.ErrNotFound)
	}
	return profile, nil
}

// List returns the profiles of userID
func (s *ProfileService) List(ctx context.Context, userID uuid.UUID) ([]*models.Profile, error) {
	return s.store.ListProfilesByUser(ctx, userID)
}

// Update replaces the attributes of an owned profile
func (s *ProfileService) Update(ctx context.Context, userID, id uuid.UUID, p *models.Profile) (*models.Profile, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	profile := *p
	profile.ID = current.ID
	profile.UserID = current.UserID
	profile.Email = NormalizeEmail(profile.Email)
	profile.CreatedAt = current.CreatedAt
	profile.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateProfile(ctx, &profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &profile, nil
}

// Delete removes an owned profile
func (s *ProfileService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteProfile(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
