package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/nhonchu/fridge-truck/internal/telemetry"
)

func openTestSpool(t *testing.T) *Spool {
	t.Helper()
	spool, err := Open(filepath.Join(t.TempDir(), "spool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = spool.Close() })
	return spool
}

func testSeries(batchID string) telemetry.Series {
	return telemetry.Series{
		BatchID:  batchID,
		TruckID:  "TRK-042",
		OpenedAt: "2026-03-01T08:00:00Z",
		ClosedAt: "2026-03-01T08:00:30Z",
		Samples: []telemetry.SeriesSample{
			{TimestampMs: 1772352000000, Temperature: 4.8, FanDuration: 5},
			{TimestampMs: 1772352005000, Temperature: 4.4, FanDuration: 10},
		},
	}
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	ctx := context.Background()
	spool := openTestSpool(t)

	require.NoError(t, spool.Enqueue(ctx, testSeries("batch-1")))
	require.NoError(t, spool.Enqueue(ctx, testSeries("batch-2")))

	n, err := spool.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	batches, err := spool.DequeueAll(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Equal(t, "batch-1", batches[0].BatchID, "oldest batch first")
	require.Equal(t, "batch-2", batches[1].BatchID)
	require.Equal(t, testSeries("batch-1").Samples, batches[0].Samples)

	n, err = spool.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "dequeue should empty the spool")
}

func TestDequeueAllEmpty(t *testing.T) {
	ctx := context.Background()
	spool := openTestSpool(t)

	batches, err := spool.DequeueAll(ctx)
	require.NoError(t, err)
	require.Nil(t, batches)
}

func TestSpoolSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "spool.db")

	spool, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, spool.Enqueue(ctx, testSeries("batch-1")))
	require.NoError(t, spool.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	batches, err := reopened.DequeueAll(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, "batch-1", batches[0].BatchID)
}

func TestEnqueueDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO series_spool").
		WillReturnError(errors.New("disk I/O error"))

	spool := New(db)
	err = spool.Enqueue(context.Background(), testSeries("batch-1"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "batch-1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDequeueAllRollsBackOnScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, payload FROM series_spool").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).AddRow(1, "not json"))
	mock.ExpectRollback()

	spool := New(db)
	_, err = spool.DequeueAll(context.Background())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
