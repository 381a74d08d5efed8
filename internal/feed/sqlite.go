// Package feed loads the reservation snapshot from the bookings database and keeps
// the availability store current.
package feed

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"studiobook/internal/availability"
)

// Source yields the full current list of reserved segments.
type Source interface {
	Reservations(ctx context.Context) ([]availability.Reservation, error)
}

// DB is the sqlite bookings database the studio's confirmed rentals live in.
type DB struct {
	*sql.DB
}

// Open opens the database at path and creates missing tables.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rentals (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			customer TEXT,
			status TEXT NOT NULL DEFAULT 'confirmed',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS rental_segments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rental_id TEXT NOT NULL,
			date TEXT,
			start_time TEXT,
			end_time TEXT,
			FOREIGN KEY (rental_id) REFERENCES rentals(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rental_segments_rental ON rental_segments(rental_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rentals_date ON rentals(date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// Rental is a confirmed studio rental with its booked segments.
type Rental struct {
	ID       string
	Date     string
	Customer string
	Status   string
	Segments []availability.Reservation
}

// InsertRental stores a rental and its segments in one transaction.
func (db *DB) InsertRental(ctx context.Context, r Rental) error {
	if r.Status == "" {
		r.Status = "confirmed"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rentals (id, date, customer, status) VALUES (?, ?, ?, ?)`,
		r.ID, r.Date, r.Customer, r.Status,
	); err != nil {
		return fmt.Errorf("insert rental %s: %w", r.ID, err)
	}

	for _, s := range r.Segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rental_segments (rental_id, date, start_time, end_time) VALUES (?, ?, ?, ?)`,
			r.ID, s.Date, s.Start, s.End,
		); err != nil {
			return fmt.Errorf("insert segment of %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// SetRentalStatus updates the status of a rental. Cancelled rentals drop out of the feed.
func (db *DB) SetRentalStatus(ctx context.Context, id, status string) error {
	res, err := db.ExecContext(ctx, `UPDATE rentals SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rental %s not found", id)
	}
	return nil
}

// Reservations flattens the segments of every non-cancelled rental. A segment
// without its own date inherits the rental's; segments still missing a date, start
// or end are skipped.
func (db *DB) Reservations(ctx context.Context) ([]availability.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(s.date, ''), r.date), COALESCE(s.start_time, ''), COALESCE(s.end_time, '')
		FROM rental_segments s
		JOIN rentals r ON r.id = s.rental_id
		WHERE r.status != 'cancelled'
		ORDER BY 1, 2`)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []availability.Reservation
	for rows.Next() {
		var r availability.Reservation
		if err := rows.Scan(&r.Date, &r.Start, &r.End); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		if r.Date == "" || r.Start == "" || r.End == "" {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
