package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"norel-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/001_init.sql
var InitMigration string

var _ Store = (*PostgresStore)(nil)

// PostgresStore is the PostgreSQL implementation of Store
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates the connection pool and checks connectivity
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not ping database: %w", err)
	}

	return &PostgresStore{db: pool}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	s.db.Close()
}

// RunMigrations executes a migration script
func (s *PostgresStore) RunMigrations(ctx context.Context, migrationSQL string) error {
	if _, err := s.db.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("failed to run migration: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint conflict
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" // unique_violation
}

// --- UserStore ---

const userColumns = `id, email, password_hash, banned, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Banned, &user.CreatedAt)
	return user, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	sql := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, sql, user.ID, user.Email, user.PasswordHash, user.Banned, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user '%s': %w", user.Email, ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.db.QueryRow(ctx, sql, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user '%s': %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users ORDER BY email`

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	// Empty slice, not nil, for consistent JSON
	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) SetUserBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET banned = $2 WHERE id = $1`, id, banned)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- ProfileStore ---

const profileColumns = `id, user_id, category, language, first_name, middle_name, last_name,
	date_of_birth, gender, email, phone, address_line1, address_line2, city, state,
	postal_code, country, occupation, employer, emergency_contact_name,
	emergency_contact_phone, emergency_contact_relation, bank_name, bank_account_number,
	bank_routing_code, tax_id, annual_income, blood_group, allergies, medical_conditions,
	medications, national_id, passport_number, driver_license, created_at, updated_at`

// profileArgs returns the column values in profileColumns order
func profileArgs(p *models.Profile) []any {
	return []any{
		p.ID, p.UserID, p.Category, p.Language, p.FirstName, p.MiddleName, p.LastName,
		p.DateOfBirth, p.Gender, p.Email, p.Phone, p.AddressLine1, p.AddressLine2, p.City, p.State,
		p.PostalCode, p.Country, p.Occupation, p.Employer, p.EmergencyContactName,
		p.EmergencyContactPhone, p.EmergencyContactRelation, p.BankName, p.BankAccountNumber,
		p.BankRoutingCode, p.TaxID, p.AnnualIncome, p.BloodGroup, p.Allergies, p.MedicalConditions,
		p.Medications, p.NationalID, p.PassportNumber, p.DriverLicense, p.CreatedAt, p.UpdatedAt,
	}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.Category, &p.Language, &p.FirstName, &p.MiddleName, &p.LastName,
		&p.DateOfBirth, &p.Gender, &p.Email, &p.Phone, &p.AddressLine1, &p.AddressLine2, &p.City, &p.State,
		&p.PostalCode, &p.Country, &p.Occupation, &p.Employer, &p.EmergencyContactName,
		&p.EmergencyContactPhone, &p.EmergencyContactRelation, &p.BankName, &p.BankAccountNumber,
		&p.BankRoutingCode, &p.TaxID, &p.AnnualIncome, &p.BloodGroup, &p.Allergies, &p.MedicalConditions,
		&p.Medications, &p.NationalID, &p.PassportNumber, &p.DriverLicense, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (s *PostgresStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	sql := `INSERT INTO profiles (` + profileColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36)`

	if _, err := s.db.Exec(ctx, sql, profileArgs(profile)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile with email '%s': %w", profile.Email, ErrConflict)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	sql := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	return s.queryProfiles(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at`)
}

func (s *PostgresStore) ListProfilesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Profile, error) {
	return s.queryProfiles(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (s *PostgresStore) queryProfiles(ctx context.Context, sql string, args ...any) ([]*models.Profile, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*models.Profile{}
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	sql := `UPDATE profiles SET
		category = $3, language = $4, first_name = $5, middle_name = $6, last_name = $7,
		date_of_birth = $8, gender = $9, email = $10, phone = $11, address_line1 = $12,
		address_line2 = $13, city = $14, state = $15, postal_code = $16, country = $17,
		occupation = $18, employer = $19, emergency_contact_name = $20,
		emergency_contact_phone = $21, emergency_contact_relation = $22, bank_name = $23,
		bank_account_number = $24, bank_routing_code = $25, tax_id = $26, annual_income = $27,
		blood_group = $28, allergies = $29, medical_conditions = $30, medications = $31,
		national_id = $32, passport_number = $33, driver_license = $34, updated_at = $35
		WHERE id = $1 AND user_id = $2`

	// every column except created_at, then updated_at
	args := append(profileArgs(profile)[:34:34], profile.UpdatedAt)
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile with email '%s': %w", profile.Email, ErrConflict)
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", profile.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- FormStore ---

const formColumns = `id, user_id, title, definition, created_at, updated_at`

func scanForm(row pgx.Row) (*models.Form, error) {
	form := &models.Form{}
	var definition []byte
	err := row.Scan(&form.ID, &form.UserID, &form.Title, &definition, &form.CreatedAt, &form.UpdatedAt)
	form.Definition = definition
	return form, err
}

func (s *PostgresStore) CreateForm(ctx context.Context, form *models.Form) error {
	sql := `INSERT INTO forms (` + formColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.Exec(ctx, sql,
		form.ID,
		form.UserID,
		form.Title,
		[]byte(form.Definition),
		form.CreatedAt,
		form.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create form: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFormByID(ctx context.Context, id uuid.UUID) (*models.Form, error) {
	sql := `SELECT ` + formColumns + ` FROM forms WHERE id = $1`

	form, err := scanForm(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("form %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	return form, nil
}

func (s *PostgresStore) ListFormsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Form, error) {
	sql := `SELECT ` + formColumns + ` FROM forms WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	defer rows.Close()

	forms := []*models.Form{}
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan form row: %w", err)
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate forms: %w", err)
	}
	return forms, nil
}

func (s *PostgresStore) DeleteForm(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- ShareStore ---

func (s *PostgresStore) CreateShareRecord(ctx context.Context, record *models.ShareRecord) error {
	sql := `
        INSERT INTO share_history (id, profile_id, channel, issued_at, expires_at)
        VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, sql,
		record.ID,
		record.ProfileID,
		record.Channel,
		record.IssuedAt,
		record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record share: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetShareRecordsByProfile(ctx context.Context, profileID uuid.UUID) ([]*models.ShareRecord, error) {
	sql := `
        SELECT id, profile_id, channel, issued_at, expires_at
        FROM share_history
        WHERE profile_id = $1
        ORDER BY issued_at DESC`

	rows, err := s.db.Query(ctx, sql, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share history: %w", err)
	}
	defer rows.Close()

	records := []*models.ShareRecord{}
	for rows.Next() {
		record := &models.ShareRecord{}
		err := rows.Scan(
			&record.ID,
			&record.ProfileID,
			&record.Channel,
			&record.IssuedAt,
			&record.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate share history: %w", err)
	}
	return records, nil
}
