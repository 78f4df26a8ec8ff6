// Package postgres implements the storage collaborator: readings, alerts,
// and feedback, plus the labeled-rows join that feeds retraining.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/mfigueredo/clima-alerta/internal/domain"
)

// Storage is the Postgres-backed store. It is the single source of truth;
// all writes are serialized through one connection pool.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Connect opens and pings the database.
func Connect(dsn string, logger *slog.Logger) (*Storage, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &Storage{db: db, logger: logger}, nil
}

// NewStorage wraps an existing handle; used by tests.
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{db: db, logger: logger}
}

// Close releases the connection pool.
func (s *Storage) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id             BIGSERIAL PRIMARY KEY,
	timestamp      TIMESTAMPTZ NOT NULL,
	temperature    DOUBLE PRECISION,
	humidity       DOUBLE PRECISION,
	rain_mm        DOUBLE PRECISION,
	condition_text TEXT,
	wind_kmh       DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS alerts (
	id         BIGSERIAL PRIMARY KEY,
	timestamp  TIMESTAMPTZ NOT NULL DEFAULT now(),
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL,
	reading_id BIGINT NOT NULL REFERENCES readings (id)
);

CREATE TABLE IF NOT EXISTS feedback (
	id        BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
	alert_id  BIGINT NOT NULL REFERENCES alerts (id),
	label     TEXT NOT NULL
);
`

// CreateTables issues the idempotent DDL for the three tables.
func (s *Storage) CreateTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	s.logger.Info("database schema verified")
	return nil
}

// InsertReading persists one reading and returns its id.
func (s *Storage) InsertReading(ctx context.Context, r domain.Reading) (int64, error) {
	const query = `
		INSERT INTO readings (timestamp, temperature, humidity, rain_mm, condition_text, wind_kmh)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := s.db.QueryRowxContext(ctx, query,
		r.Timestamp, r.Temperature, r.Humidity, r.RainMM, r.Condition, r.WindKMH,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert reading: %w", err)
	}
	return id, nil
}

// InsertAlert persists one alert referencing an existing reading and returns
// its id.
func (s *Storage) InsertAlert(ctx context.Context, kind domain.AlertKind, message string, readingID int64) (int64, error) {
	const query = `
		INSERT INTO alerts (kind, message, reading_id)
		VALUES ($1, $2, $3)
		RETURNING id`

	var id int64
	err := s.db.QueryRowxContext(ctx, query, kind, message, readingID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert alert: %w", err)
	}
	s.logger.Info("alert recorded", "alert_id", id, "kind", kind, "reading_id", readingID)
	return id, nil
}

// InsertFeedback persists one feedback label for an existing alert.
func (s *Storage) InsertFeedback(ctx context.Context, alertID int64, label string) error {
	const query = `INSERT INTO feedback (alert_id, label) VALUES ($1, $2)`

	if _, err := s.db.ExecContext(ctx, query, alertID, label); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	s.logger.Info("feedback recorded", "alert_id", alertID, "label", label)
	return nil
}

// LabeledTrainingRows returns the Feedback → Alert → Reading join used for
// retraining. Unrecognized labels are excluded here; NULL features survive
// the scan and are excluded by the trainer.
func (s *Storage) LabeledTrainingRows(ctx context.Context) ([]domain.TrainingRow, error) {
	const query = `
		SELECT r.temperature, r.humidity, r.rain_mm, f.label
		FROM feedback f
		JOIN alerts a ON f.alert_id = a.id
		JOIN readings r ON a.reading_id = r.id
		WHERE r.temperature IS NOT NULL AND f.label IN ($1, $2)`

	var rows []domain.TrainingRow
	if err := s.db.SelectContext(ctx, &rows, query, domain.LabelGood, domain.LabelBad); err != nil {
		return nil, fmt.Errorf("query training rows: %w", err)
	}
	return rows, nil
}

// StatusSummary reports the number of persisted readings and the most
// recent reading timestamp.
func (s *Storage) StatusSummary(ctx context.Context) (domain.StatusSummary, error) {
	var summary domain.StatusSummary

	if err := s.db.GetContext(ctx, &summary.TotalReadings, `SELECT COUNT(*) FROM readings`); err != nil {
		return domain.StatusSummary{}, fmt.Errorf("count readings: %w", err)
	}

	var last time.Time
	err := s.db.GetContext(ctx, &last, `SELECT timestamp FROM readings ORDER BY id DESC LIMIT 1`)
	switch {
	case err == nil:
		summary.LastReadingAt = &last
	case errors.Is(err, sql.ErrNoRows):
		// no readings yet
	default:
		return domain.StatusSummary{}, fmt.Errorf("latest reading timestamp: %w", err)
	}

	return summary, nil
}
