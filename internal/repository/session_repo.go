package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voltbook/internal/models"
)

// ErrSessionNotFound indicates no charging session exists for the booking.
var ErrSessionNotFound = errors.New("charging session not found")

// SessionRepository handles persistence of charging sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByBookingID loads the session attached to a booking.
func (r *SessionRepository) GetByBookingID(ctx context.Context, bookingID int64) (*models.ChargingSession, error) {
	const query = `
		SELECT id, booking_id, start_battery_percent, end_battery_percent, energy_consumed, started_at, ended_at, actual_cost, created_at, updated_at
		FROM charging_sessions
		WHERE booking_id = $1
	`
	var s models.ChargingSession
	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(
		&s.ID,
		&s.BookingID,
		&s.StartBatteryPercent,
		&s.EndBatteryPercent,
		&s.EnergyConsumed,
		&s.StartedAt,
		&s.EndedAt,
		&s.ActualCost,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session, seeding start_battery_percent from the first
// reported reading. Concurrent first updates for the same booking resolve to
// one row: the conflict clause keeps the already-seeded values.
func (r *SessionRepository) Create(ctx context.Context, session *models.ChargingSession) (*models.ChargingSession, error) {
	const query = `
		INSERT INTO charging_sessions (booking_id, start_battery_percent, energy_consumed, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (booking_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, start_battery_percent, energy_consumed, started_at, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		session.BookingID,
		session.StartBatteryPercent,
		session.EnergyConsumed,
		session.StartedAt.UTC(),
	).Scan(
		&session.ID,
		&session.StartBatteryPercent,
		&session.EnergyConsumed,
		&session.StartedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateProgress overwrites energy_consumed with the latest cumulative
// reading. start_battery_percent stays untouched.
func (r *SessionRepository) UpdateProgress(ctx context.Context, bookingID int64, energyKWh float64) error {
	const query = `
		UPDATE charging_sessions
		SET energy_consumed = $2,
		    updated_at = NOW()
		WHERE booking_id = $1 AND ended_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, bookingID, energyKWh)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// FinalizeInput carries everything the finalize transaction writes.
type FinalizeInput struct {
	BookingID         int64
	EndBatteryPercent int
	EnergyConsumed    float64
	EndedAt           time.Time
	ActualCost        float64
}

// Finalize closes the session and completes the booking in one transaction so
// ended_at and booking status can never be observed torn apart.
func (r *SessionRepository) Finalize(ctx context.Context, input FinalizeInput) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const sessionQuery = `
		UPDATE charging_sessions
		SET end_battery_percent = $2,
		    energy_consumed = $3,
		    ended_at = $4,
		    actual_cost = $5,
		    updated_at = NOW()
		WHERE booking_id = $1 AND ended_at IS NULL
	`
	result, err := tx.ExecContext(ctx, sessionQuery,
		input.BookingID,
		input.EndBatteryPercent,
		input.EnergyConsumed,
		input.EndedAt.UTC(),
		input.ActualCost,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}

	const bookingQuery = `
		UPDATE bookings
		SET status = $2,
		    actual_end = $3,
		    total_cost = $4
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, bookingQuery,
		input.BookingID,
		models.BookingStatusCompleted,
		input.EndedAt.UTC(),
		input.ActualCost,
	); err != nil {
		return err
	}

	return tx.Commit()
}
