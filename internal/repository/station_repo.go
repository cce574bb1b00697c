package repository

import (
	"context"
	"database/sql"
	"errors"

	"voltbook/internal/models"
)

// ErrStationNotFound indicates an unknown station id.
var ErrStationNotFound = errors.New("station not found")

// StationRepository reads station pricing metadata.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// GetByID loads a station.
func (r *StationRepository) GetByID(ctx context.Context, id int64) (*models.Station, error) {
	const query = `
		SELECT id, name, price_per_kwh, created_at, updated_at
		FROM stations
		WHERE id = $1
	`
	var s models.Station
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Name,
		&s.PricePerKWh,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
