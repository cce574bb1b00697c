package models

import "time"

// Station minimal metadata needed to price a session.
type Station struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	PricePerKWh float64   `db:"price_per_kwh" json:"price_per_kwh"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
