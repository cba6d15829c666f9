package repository

import (
	"context"
	"errors"
	"time"

	"norel-backend/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	// ErrConsumed is returned when a single-use share nonce was already redeemed
	ErrConsumed = errors.New("share code already used")
)

// UserStore defines user account operations
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	SetUserBanned(ctx context.Context, id uuid.UUID, banned bool) error
}

// ProfileStore defines identity profile operations. Email is unique across
// profiles; a duplicate is reported as ErrConflict.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
	ListProfilesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
	DeleteProfile(ctx context.Context, id uuid.UUID) error
}

// FormStore defines saved form definition operations
type FormStore interface {
	CreateForm(ctx context.Context, form *models.Form) error
	GetFormByID(ctx context.Context, id uuid.UUID) (*models.Form, error)
	ListFormsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Form, error)
	DeleteForm(ctx context.Context, id uuid.UUID) error
}

// ShareStore records share history
type ShareStore interface {
	CreateShareRecord(ctx context.Context, record *models.ShareRecord) error
	GetShareRecordsByProfile(ctx context.Context, profileID uuid.UUID) ([]*models.ShareRecord, error)
}

// Store aggregates every relational store operation.
// Makes dependency injection simpler.
type Store interface {
	UserStore
	ProfileStore
	FormStore
	ShareStore
	Close()
}

// NonceStore tracks redeemed single-use share nonces until the token they
// belong to expires.
type NonceStore interface {
	// Consume marks nonce as used for ttl. It returns ErrConsumed if the
	// nonce was already used.
	Consume(ctx context.Context, nonce string, ttl time.Duration) error
	Close() error
}
