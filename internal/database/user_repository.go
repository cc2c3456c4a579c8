package database

import (
	"database/sql"
	"fmt"

	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/google/uuid"
)

// UserRepository handles database operations for the users table
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, google_id, auth_provider, profile_picture)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	err := r.db.QueryRow(
		query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.GoogleID, user.AuthProvider, user.ProfilePicture,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	query := userSelect + ` WHERE id = $1`
	return r.scanUser(r.db.QueryRow(query, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := userSelect + ` WHERE email = $1`
	return r.scanUser(r.db.QueryRow(query, email))
}

// GetByEmailOrUsername retrieves a user matching either identifier, used to
// reject duplicate registrations
func (r *UserRepository) GetByEmailOrUsername(email, username string) (*models.User, error) {
	query := userSelect + ` WHERE email = $1 OR username = $2`
	return r.scanUser(r.db.QueryRow(query, email, username))
}

// GetByGoogleID retrieves a user by Google account ID
func (r *UserRepository) GetByGoogleID(googleID string) (*models.User, error) {
	query := userSelect + ` WHERE google_id = $1`
	return r.scanUser(r.db.QueryRow(query, googleID))
}

// LinkGoogleAccount attaches a Google identity to an existing user
func (r *UserRepository) LinkGoogleAccount(userID uuid.UUID, googleID string, picture *string) error {
	query := `
		UPDATE users
		SET google_id = $2, auth_provider = 'google',
			profile_picture = COALESCE($3, profile_picture),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, userID, googleID, picture)
	if err != nil {
		return fmt.Errorf("failed to link google account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// UpdateProfile updates the mutable profile fields
func (r *UserRepository) UpdateProfile(userID uuid.UUID, username, picture *string) error {
	query := `
		UPDATE users
		SET username = COALESCE($2, username),
			profile_picture = COALESCE($3, profile_picture),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, userID, username, picture)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

const userSelect = `
	SELECT id, username, email, password_hash, google_id, auth_provider,
		   profile_picture, created_at, updated_at
	FROM users`

func (r *UserRepository) scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var passwordHash sql.NullString
	var googleID sql.NullString
	var picture sql.NullString

	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &passwordHash, &googleID,
		&user.AuthProvider, &picture, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if passwordHash.Valid {
		user.PasswordHash = &passwordHash.String
	}
	if googleID.Valid {
		user.GoogleID = &googleID.String
	}
	if picture.Valid {
		user.ProfilePicture = &picture.String
	}

	return user, nil
}
