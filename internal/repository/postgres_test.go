package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"norel-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, databaseURL)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.RunMigrations(ctx, InitMigration))

	user := &models.User{ID: uuid.New(), Email: uuid.NewString() + "@x.com", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.CreateUser(ctx, user))
	assert.ErrorIs(t, store.CreateUser(ctx, &models.User{ID: uuid.New(), Email: user.Email, CreatedAt: time.Now()}), ErrConflict)

	profile := newProfile(user.ID, uuid.NewString()+"@x.com")
	profile.City = "Pune"
	require.NoError(t, store.CreateProfile(ctx, profile))
	assert.ErrorIs(t, store.CreateProfile(ctx, newProfile(user.ID, profile.Email)), ErrConflict)

	got, err := store.GetProfileByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pune", got.City)

	profile.City = "Mumbai"
	profile.UpdatedAt = time.Now()
	require.NoError(t, store.UpdateProfile(ctx, profile))
	got, err = store.GetProfileByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", got.City)

	require.NoError(t, store.CreateShareRecord(ctx, &models.ShareRecord{
		ID: uuid.New(), ProfileID: profile.ID, Channel: "qr", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(24 * time.Hour),
	}))
	records, err := store.GetShareRecordsByProfile(ctx, profile.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	form := &models.Form{ID: uuid.New(), UserID: user.ID, Title: "Visa", Definition: []byte(`{"title":"Visa"}`), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.CreateForm(ctx, form))
	gotForm, err := store.GetFormByID(ctx, form.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Visa"}`, string(gotForm.Definition))

	require.NoError(t, store.DeleteProfile(ctx, profile.ID))
	_, err = store.GetProfileByID(ctx, profile.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
