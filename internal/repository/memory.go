package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"norel-backend/internal/models"

	"github.com/google/uuid"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is an in-memory implementation of Store. Records are copied
// on the way in and out so callers never share state with the store.
type InMemoryStore struct {
	mu              sync.RWMutex
	usersByID       map[uuid.UUID]*models.User
	usersByEmail    map[string]uuid.UUID
	profilesByID    map[uuid.UUID]*models.Profile
	profilesByEmail map[string]uuid.UUID
	formsByID       map[uuid.UUID]*models.Form
	sharesByProfile map[uuid.UUID][]*models.ShareRecord
}

// NewInMemoryStore creates an empty in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		usersByID:       make(map[uuid.UUID]*models.User),
		usersByEmail:    make(map[string]uuid.UUID),
		profilesByID:    make(map[uuid.UUID]*models.Profile),
		profilesByEmail: make(map[string]uuid.UUID),
		formsByID:       make(map[uuid.UUID]*models.Form),
		sharesByProfile: make(map[uuid.UUID][]*models.ShareRecord),
	}
}

func (s *InMemoryStore) Close() {}

// --- UserStore ---

func (s *InMemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[user.Email]; exists {
		return fmt.Errorf("user '%s': %w", user.Email, ErrConflict)
	}

	u := *user
	s.usersByID[user.ID] = &u
	s.usersByEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.usersByEmail[email]
	if !exists {
		return nil, fmt.Errorf("user '%s': %w", email, ErrNotFound)
	}
	u := *s.usersByID[id]
	return &u, nil
}

func (s *InMemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByID[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	u := *user
	return &u, nil
}

func (s *InMemoryStore) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.usersByID))
	for _, user := range s.usersByID {
		u := *user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (s *InMemoryStore) SetUserBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByID[id]
	if !exists {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	user.Banned = banned
	return nil
}

// --- ProfileStore ---

func (s *InMemoryStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profilesByEmail[profile.Email]; exists {
		return fmt.Errorf("profile with email '%s': %w", profile.Email, ErrConflict)
	}

	p := *profile
	s.profilesByID[profile.ID] = &p
	s.profilesByEmail[profile.Email] = profile.ID
	return nil
}

func (s *InMemoryStore) GetProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profilesByID[id]
	if !exists {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	p := *profile
	return &p, nil
}

func (s *InMemoryStore) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	return s.listProfiles(func(*models.Profile) bool { return true }), nil
}

func (s *InMemoryStore) ListProfilesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Profile, error) {
	return s.listProfiles(func(p *models.Profile) bool { return p.UserID == userID }), nil
}

func (s *InMemoryStore) listProfiles(keep func(*models.Profile) bool) []*models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := []*models.Profile{}
	for _, profile := range s.profilesByID {
		if keep(profile) {
			p := *profile
			profiles = append(profiles, &p)
		}
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].CreatedAt.Before(profiles[j].CreatedAt) })
	return profiles
}

func (s *InMemoryStore) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.profilesByID[profile.ID]
	if !exists {
		return fmt.Errorf("profile %s: %w", profile.ID, ErrNotFound)
	}
	if owner, taken := s.profilesByEmail[profile.Email]; taken && owner != profile.ID {
		return fmt.Errorf("profile with email '%s': %w", profile.Email, ErrConflict)
	}

	delete(s.profilesByEmail, current.Email)
	p := *profile
	s.profilesByID[profile.ID] = &p
	s.profilesByEmail[profile.Email] = profile.ID
	return nil
}

func (s *InMemoryStore) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profilesByID[id]
	if !exists {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	delete(s.profilesByEmail, profile.Email)
	delete(s.profilesByID, id)
	delete(s.sharesByProfile, id)
	return nil
}

// --- FormStore ---

func (s *InMemoryStore) CreateForm(ctx context.Context, form *models.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := *form
	s.formsByID[form.ID] = &f
	return nil
}

func (s *InMemoryStore) GetFormByID(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	form, exists := s.formsByID[id]
	if !exists {
		return nil, fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	f := *form
	return &f, nil
}

func (s *InMemoryStore) ListFormsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	forms := []*models.Form{}
	for _, form := range s.formsByID {
		if form.UserID == userID {
			f := *form
			forms = append(forms, &f)
		}
	}
	sort.Slice(forms, func(i, j int) bool { return forms[i].CreatedAt.After(forms[j].CreatedAt) })
	return forms, nil
}

func (s *InMemoryStore) DeleteForm(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.formsByID[id]; !exists {
		return fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	delete(s.formsByID, id)
	return nil
}

// --- ShareStore ---

func (s *InMemoryStore) CreateShareRecord(ctx context.Context, record *models.ShareRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *record
	s.sharesByProfile[record.ProfileID] = append(s.sharesByProfile[record.ProfileID], &r)
	return nil
}

func (s *InMemoryStore) GetShareRecordsByProfile(ctx context.Context, profileID uuid.UUID) ([]*models.ShareRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.sharesByProfile[profileID]
	// Newest first, matching the Postgres ordering
	records := make([]*models.ShareRecord, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		r := *stored[i]
		records = append(records, &r)
	}
	return records, nil
}
