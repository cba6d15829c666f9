package repository

import (
	"context"
	"testing"
	"time"

	"norel-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newProfile(userID uuid.UUID, email string) *models.Profile {
	now := time.Now()
	return &models.Profile{
		ID:        uuid.New(),
		UserID:    userID,
		FirstName: "Jane",
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	user := &models.User{ID: uuid.New(), Email: "jane@x.com", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, store.CreateUser(ctx, user))

	err := store.CreateUser(ctx, &models.User{ID: uuid.New(), Email: "jane@x.com"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := store.GetUserByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, store.SetUserBanned(ctx, user.ID, true))
	got, err = store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Banned)

	_, err = store.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.SetUserBanned(ctx, uuid.New(), true), ErrNotFound)

	users, err := store.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestInMemoryStoreProfileEmailUnique(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	owner := uuid.New()

	first := newProfile(owner, "jane@x.com")
	require.NoError(t, store.CreateProfile(ctx, first))
	assert.ErrorIs(t, store.CreateProfile(ctx, newProfile(owner, "jane@x.com")), ErrConflict)

	second := newProfile(owner, "john@x.com")
	require.NoError(t, store.CreateProfile(ctx, second))

	second.Email = "jane@x.com"
	assert.ErrorIs(t, store.UpdateProfile(ctx, second), ErrConflict)

	// Changing email frees the old one
	first.Email = "jane.doe@x.com"
	require.NoError(t, store.UpdateProfile(ctx, first))
	require.NoError(t, store.CreateProfile(ctx, newProfile(uuid.New(), "jane@x.com")))
}

func TestInMemoryStoreProfileCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	profile := newProfile(uuid.New(), "jane@x.com")
	require.NoError(t, store.CreateProfile(ctx, profile))

	profile.FirstName = "Mutated"
	got, err := store.GetProfileByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FirstName)

	got.FirstName = "Also mutated"
	again, err := store.GetProfileByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", again.FirstName)
}

func TestInMemoryStoreListAndDeleteProfiles(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	alice, bob := uuid.New(), uuid.New()

	p1 := newProfile(alice, "a1@x.com")
	p2 := newProfile(alice, "a2@x.com")
	p3 := newProfile(bob, "b1@x.com")
	for _, p := range []*models.Profile{p1, p2, p3} {
		require.NoError(t, store.CreateProfile(ctx, p))
	}

	all, err := store.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := store.ListProfilesByUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	require.NoError(t, store.DeleteProfile(ctx, p1.ID))
	assert.ErrorIs(t, store.DeleteProfile(ctx, p1.ID), ErrNotFound)
	_, err = store.GetProfileByID(ctx, p1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreForms(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	owner := uuid.New()

	form := &models.Form{ID: uuid.New(), UserID: owner, Title: "Visa", Definition: []byte(`{"title":"Visa"}`), CreatedAt: time.Now()}
	require.NoError(t, store.CreateForm(ctx, form))

	forms, err := store.ListFormsByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.JSONEq(t, `{"title":"Visa"}`, string(forms[0].Definition))

	others, err := store.ListFormsByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, store.DeleteForm(ctx, form.ID))
	_, err = store.GetFormByID(ctx, form.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreShareHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	profileID := uuid.New()
	t0 := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateShareRecord(ctx, &models.ShareRecord{
			ID:        uuid.New(),
			ProfileID: profileID,
			Channel:   "qr",
			IssuedAt:  t0.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.GetShareRecordsByProfile(ctx, profileID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].IssuedAt.After(records[2].IssuedAt))
}
