package postgres_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueredo/clima-alerta/internal/adapter/postgres"
	"github.com/mfigueredo/clima-alerta/internal/domain"
)

func newMockStorage(t *testing.T) (*postgres.Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage := postgres.NewStorage(sqlx.NewDb(db, "sqlmock"), slog.Default())
	return storage, mock
}

func testReading() domain.Reading {
	return domain.Reading{
		Timestamp:   time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC),
		Temperature: 38.2,
		Humidity:    85,
		RainMM:      3.5,
		Condition:   "Scattered clouds",
		WindKMH:     14.4,
	}
}

func TestInsertReading(t *testing.T) {
	storage, mock := newMockStorage(t)
	r := testReading()

	mock.ExpectQuery(`INSERT INTO readings`).
		WithArgs(r.Timestamp, r.Temperature, r.Humidity, r.RainMM, r.Condition, r.WindKMH).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(17)))

	id, err := storage.InsertReading(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, int64(17), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReading_Error(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(`INSERT INTO readings`).WillReturnError(sql.ErrConnDone)

	_, err := storage.InsertReading(context.Background(), testReading())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert reading")
}

func TestInsertAlert(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(`INSERT INTO alerts`).
		WithArgs(domain.KindThreshold, "RISK ALERT", int64(17)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

	id, err := storage.InsertAlert(context.Background(), domain.KindThreshold, "RISK ALERT", 17)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFeedback(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec(`INSERT INTO feedback`).
		WithArgs(int64(4), domain.LabelBad).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := storage.InsertFeedback(context.Background(), 4, domain.LabelBad)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabeledTrainingRows(t *testing.T) {
	storage, mock := newMockStorage(t)

	rows := sqlmock.NewRows([]string{"temperature", "humidity", "rain_mm", "label"}).
		AddRow(38.2, 85.0, 3.5, "mal").
		AddRow(22.0, 60.0, nil, "bien")

	mock.ExpectQuery(`FROM feedback f`).
		WithArgs(domain.LabelGood, domain.LabelBad).
		WillReturnRows(rows)

	got, err := storage.LabeledTrainingRows(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].Temperature)
	assert.Equal(t, 38.2, *got[0].Temperature)
	assert.Equal(t, "mal", got[0].Label)

	// NULL features survive the scan as nils; the trainer filters them.
	assert.Nil(t, got[1].RainMM)
	assert.Equal(t, "bien", got[1].Label)
}

func TestStatusSummary(t *testing.T) {
	storage, mock := newMockStorage(t)
	last := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM readings`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(128)))
	mock.ExpectQuery(`SELECT timestamp FROM readings`).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp"}).AddRow(last))

	summary, err := storage.StatusSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(128), summary.TotalReadings)
	require.NotNil(t, summary.LastReadingAt)
	assert.True(t, last.Equal(*summary.LastReadingAt))
}

func TestStatusSummary_EmptyTable(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM readings`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT timestamp FROM readings`).
		WillReturnError(sql.ErrNoRows)

	summary, err := storage.StatusSummary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalReadings)
	assert.Nil(t, summary.LastReadingAt)
}

func TestCreateTables(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS readings`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := storage.CreateTables(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
