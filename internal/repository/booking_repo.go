package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voltbook/internal/models"
)

// ErrBookingNotFound indicates an unknown booking id.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepository reads bookings and flips their charging lifecycle fields.
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository returns repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetByID loads a single booking.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	const query = `
		SELECT id, user_id, station_id, vehicle_type, start_time, end_time, status, actual_start, actual_end, total_cost
		FROM bookings
		WHERE id = $1
	`
	var b models.Booking
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID,
		&b.UserID,
		&b.StationID,
		&b.VehicleType,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.ActualStart,
		&b.ActualEnd,
		&b.TotalCost,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// MarkCharging flips a confirmed booking to charging and stamps actual_start
// if it is not set yet.
func (r *BookingRepository) MarkCharging(ctx context.Context, id int64, startedAt time.Time) error {
	const query = `
		UPDATE bookings
		SET status = $2,
		    actual_start = COALESCE(actual_start, $3)
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, models.BookingStatusCharging, startedAt.UTC())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListCharging returns bookings currently in the charging state.
func (r *BookingRepository) ListCharging(ctx context.Context, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, user_id, station_id, vehicle_type, start_time, end_time, status, actual_start, actual_end, total_cost
		FROM bookings
		WHERE status = 'charging'
		ORDER BY actual_start DESC NULLS LAST
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID,
			&b.UserID,
			&b.StationID,
			&b.VehicleType,
			&b.StartTime,
			&b.EndTime,
			&b.Status,
			&b.ActualStart,
			&b.ActualEnd,
			&b.TotalCost,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
