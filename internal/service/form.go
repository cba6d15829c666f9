package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"norel-backend/internal/ai"
	"norel-backend/internal/models"
	"norel-backend/internal/repository"
	"norel-backend/internal/share"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FormService stores user-built forms and runs the AI form flows
type FormService struct {
	store    repository.FormStore
	profiles *ProfileService
	ai       *ai.Orchestrator
	validate *validator.Validate
	logger   *zap.Logger
}

// NewFormService creates a form service. orchestrator may be nil, which
// disables generation and auto-fill.
func NewFormService(store repository.FormStore, profiles *ProfileService, orchestrator *ai.Orchestrator, logger *zap.Logger) *FormService {
	return &FormService{
		store:    store,
		profiles: profiles,
		ai:       orchestrator,
		validate: validator.New(),
		logger:   logger,
	}
}

// Generate drafts a form definition from a description without saving it
func (s *FormService) Generate(ctx context.Context, description string) (*models.GeneratedForm, error) {
	if s.ai == nil {
		return nil, ErrDisabled
	}
	return s.ai.GenerateForm(ctx, description)
}

// Create validates and saves a form definition
func (s *FormService) Create(ctx context.Context, userID uuid.UUID, def *models.GeneratedForm) (*models.Form, error) {
	if err := s.validate.Struct(def); err != nil {
		return nil, fmt.Errorf("invalid form definition: %w", err)
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize form: %w", err)
	}

	now := time.Now().UTC()
	form := &models.Form{
		ID:         uuid.New(),
		UserID:     userID,
		Title:      strings.TrimSpace(def.Title),
		Definition: raw,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateForm(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to save form: %w", err)
	}
	return form, nil
}

// Get returns an owned form
func (s *FormService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Form, error) {
	form, err := s.store.GetFormByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.UserID != userID {
		return nil, fmt.Errorf("form %s: %w", id, repository.ErrNotFound)
	}
	return form, nil
}

// List returns the forms of userID
func (s *FormService) List(ctx context.Context, userID uuid.UUID) ([]*models.Form, error) {
	return s.store.ListFormsByUser(ctx, userID)
}

// Delete removes an owned form
func (s *FormService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeleteForm(ctx, id)
}

// AutoFill fills a saved form from one of the user's profiles. Only the
// shareable attributes of the profile are sent to the model.
func (s *FormService) AutoFill(ctx context.Context, userID, formID, profileID uuid.UUID) (map[string]string, error) {
	if s.ai == nil {
		return nil, ErrDisabled
	}

	form, err := s.Get(ctx, userID, formID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Get(ctx, userID, profileID)
	if err != nil {
		return nil, err
	}

	var def models.GeneratedForm
	if err := json.Unmarshal(form.Definition, &def); err != nil {
		s.logger.Error("Stored form definition is unreadable", zap.String("form_id", formID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to read form definition: %w", err)
	}

	return s.ai.AutoFill(ctx, &def, share.Snapshot(profile))
}
