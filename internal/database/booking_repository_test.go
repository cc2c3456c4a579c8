package database

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citytransit/bus-booking-backend/internal/models"
)

var bookingColumns = []string{
	"id", "user_id", "bus_id", "route_id",
	"from_stop_name", "from_stop_lat", "from_stop_lng",
	"to_stop_name", "to_stop_lat", "to_stop_lng",
	"travel_date", "seat_number", "fare", "status",
	"booking_date", "payment_id", "created_at", "updated_at",
}

func bookingRow(id, userID uuid.UUID, status models.BookingStatus) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id.String(), userID.String(), uuid.New().String(), uuid.New().String(),
		"Central Station", 40.7128, -74.0060,
		"Airport Terminal", 40.6892, -74.1745,
		now.Add(24 * time.Hour), "12A", 450.0, string(status),
		now, nil, now, now,
	}
}

func TestBookingCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"booking_date", "created_at", "updated_at"}).
				AddRow(now, now, now))

		booking := &models.Booking{
			UserID:     uuid.New(),
			BusID:      uuid.New(),
			RouteID:    uuid.New(),
			TravelDate: now.Add(24 * time.Hour),
			SeatNumber: "12A",
			Fare:       450,
		}

		err := repo.Create(booking)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, booking.ID)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Seat slot taken", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "bookings_seat_slot_live"})

		booking := &models.Booking{
			UserID:     uuid.New(),
			BusID:      uuid.New(),
			RouteID:    uuid.New(),
			TravelDate: time.Now().Add(24 * time.Hour),
			SeatNumber: "12A",
			Fare:       450,
		}

		err := repo.Create(booking)
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingGetByIDForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})

	t.Run("Found", func(t *testing.T) {
		bookingID := uuid.New()
		userID := uuid.New()

		mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \$1 AND user_id = \$2`).
			WithArgs(bookingID, userID).
			WillReturnRows(sqlmock.NewRows(bookingColumns).
				AddRow(bookingRow(bookingID, userID, models.BookingStatusPending)...))

		booking, err := repo.GetByIDForUser(bookingID, userID)
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, bookingID, booking.ID)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		require.NotNil(t, booking.FromStop)
		assert.Equal(t, "Central Station", booking.FromStop.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		bookingID := uuid.New()
		userID := uuid.New()

		mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id = \$1 AND user_id = \$2`).
			WithArgs(bookingID, userID).
			WillReturnError(sql.ErrNoRows)

		booking, err := repo.GetByIDForUser(bookingID, userID)
		require.NoError(t, err)
		assert.Nil(t, booking)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingGetByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE user_id = \$1 ORDER BY booking_date DESC`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow(bookingRow(uuid.New(), userID, models.BookingStatusConfirmed)...).
			AddRow(bookingRow(uuid.New(), userID, models.BookingStatusCancelled)...))

	bookings, err := repo.GetByUserID(userID)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingUpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})

	t.Run("Success", func(t *testing.T) {
		bookingID := uuid.New()
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, models.BookingStatusConfirmed).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(bookingID, models.BookingStatusConfirmed)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		bookingID := uuid.New()
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, models.BookingStatusCancelled).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(bookingID, models.BookingStatusCancelled)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// mockDatabase implements the DB interface over a sqlmock connection
type mockDatabase struct {
	db *sql.DB
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Get not implemented in mock")
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Select not implemented in mock")
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}
