package services

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/citytransit/bus-booking-backend/internal/config"
	"github.com/citytransit/bus-booking-backend/internal/database"
	"github.com/citytransit/bus-booking-backend/internal/models"
	"github.com/citytransit/bus-booking-backend/pkg/jwt"
)

var userColumns = []string{
	"id", "username", "email", "password_hash", "google_id", "auth_provider",
	"profile_picture", "created_at", "updated_at",
}

func newAuthFixture(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	jwtService := jwt.NewService("test-access-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)

	service := NewAuthService(
		database.NewUserRepository(&mockDatabase{db: db}),
		jwtService,
		&config.GoogleConfig{},
		bcrypt.MinCost,
		logger,
	)
	return service, mock
}

func TestRegister(t *testing.T) {
	registerReq := func() *models.RegisterRequest {
		return &models.RegisterRequest{
			Username: "traveler",
			Email:    "Traveler@Example.com",
			Password: "correct-horse-battery",
		}
	}

	t.Run("Success", func(t *testing.T) {
		service, mock := newAuthFixture(t)
		now := time.Now()

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1 OR username = \$2`).
			WithArgs("traveler@example.com", "traveler").
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		resp, err := service.Register(registerReq())
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		require.NotNil(t, resp.User)
		assert.Equal(t, "traveler@example.com", resp.User.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate account", func(t *testing.T) {
		service, mock := newAuthFixture(t)
		now := time.Now()

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1 OR username = \$2`).
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(uuid.New().String(), "traveler", "traveler@example.com", nil, nil, "local", nil, now, now))

		_, err := service.Register(registerReq())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate caught by constraint", func(t *testing.T) {
		service, mock := newAuthFixture(t)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1 OR username = \$2`).
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

		_, err := service.Register(registerReq())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Username with whitespace rejected", func(t *testing.T) {
		service, mock := newAuthFixture(t)

		req := registerReq()
		req.Username = "bad user"

		_, err := service.Register(req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "whitespace")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)

	userRow := func(userID uuid.UUID) []driver.Value {
		now := time.Now()
		return []driver.Value{
			userID.String(), "traveler", "traveler@example.com", string(hash), nil, "local", nil, now, now,
		}
	}

	const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	t.Run("Success", func(t *testing.T) {
		service, mock := newAuthFixture(t)
		userID := uuid.New()

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("traveler@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow(userID)...))

		resp, err := service.Login(&models.LoginRequest{
			Email:    "traveler@example.com",
			Password: "correct-horse-battery",
		}, chromeUA, "203.0.113.10")
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, userID, resp.User.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Wrong password", func(t *testing.T) {
		service, mock := newAuthFixture(t)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("traveler@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow(uuid.New())...))

		_, err := service.Login(&models.LoginRequest{
			Email:    "traveler@example.com",
			Password: "wrong",
		}, chromeUA, "203.0.113.10")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid email or password")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown email", func(t *testing.T) {
		service, mock := newAuthFixture(t)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := service.Login(&models.LoginRequest{
			Email:    "nobody@example.com",
			Password: "whatever",
		}, chromeUA, "203.0.113.10")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid email or password")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Google account without a password", func(t *testing.T) {
		service, mock := newAuthFixture(t)
		now := time.Now()

		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("social@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(uuid.New().String(), "social", "social@example.com", nil, "google-123", "google", nil, now, now))

		_, err := service.Login(&models.LoginRequest{
			Email:    "social@example.com",
			Password: "whatever",
		}, chromeUA, "203.0.113.10")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid email or password")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRefreshToken(t *testing.T) {
	t.Run("Valid refresh token", func(t *testing.T) {
		service, mock := newAuthFixture(t)
		userID := uuid.New()
		now := time.Now()

		jwtService := jwt.NewService("test-access-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)
		refresh, err := jwtService.GenerateRefreshToken(userID, "traveler@example.com")
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(userID.String(), "traveler", "traveler@example.com", nil, nil, "local", nil, now, now))

		resp, err := service.RefreshToken(refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Garbage token", func(t *testing.T) {
		service, mock := newAuthFixture(t)

		_, err := service.RefreshToken("not-a-token")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
