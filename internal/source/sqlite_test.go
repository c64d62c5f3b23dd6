package source_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/logger"
	"codeberg.org/mutker/heatboard/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSampleDB(t *testing.T, samples []source.Sample) (string, *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "samples.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, source.InitSchema(db, logger.Nop()))
	require.NoError(t, source.InsertSamples(context.Background(), db, samples, logger.Nop()))

	return path, db
}

func TestSQLiteSourceReplaysInOrder(t *testing.T) {
	samples := []source.Sample{
		{Group: "dense_0", Series: "w", Value: 1},
		{Group: "dense_0", Series: "d", Value: -0.5},
		{Group: "dense_1", Series: "w", Value: 7},
		{Group: "dense_0", Series: "reject", Value: 2},
		{Group: "dense_1", Series: "w", Value: 3},
	}
	path, _ := newSampleDB(t, samples)

	src, err := source.NewSQLiteSource(source.SQLiteConfig{DBPath: path, BatchSize: 2}, nil)
	require.NoError(t, err)
	defer src.Close()

	sink := &recordingSink{}
	require.NoError(t, src.Run(context.Background(), sink))

	assert.Equal(t, []source.Sample{samples[0], samples[1], samples[2], samples[4]}, sink.samples)
	assert.Equal(t, source.Stats{Accepted: 4, Rejected: 1}, src.Stats())
}

func TestSQLiteSourceFollowPicksUpNewRows(t *testing.T) {
	path, db := newSampleDB(t, []source.Sample{{Group: "g", Series: "w", Value: 1}})

	src, err := source.NewSQLiteSource(source.SQLiteConfig{
		DBPath:       path,
		Follow:       true,
		PollInterval: 10 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan source.Sample, 4)
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, source.SinkFunc(func(group, series string, value float64) error {
			got <- source.Sample{Group: group, Series: series, Value: value}
			return nil
		}))
	}()

	assert.Equal(t, source.Sample{Group: "g", Series: "w", Value: 1}, <-got)

	require.NoError(t, source.InsertSamples(ctx, db, []source.Sample{{Group: "g", Series: "w", Value: 2}}, logger.Nop()))

	select {
	case s := <-got:
		assert.Equal(t, 2.0, s.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("appended sample was not replayed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			assert.True(t, errors.HasCode(err, source.ErrOperationTimeout))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("source did not stop after cancellation")
	}
}

func TestSQLiteSourceRequiresSamplesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE other (id INTEGER)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = source.NewSQLiteSource(source.SQLiteConfig{DBPath: path}, nil)
	assert.True(t, errors.HasCode(err, source.ErrSchemaValidationFailed))
}

func TestSQLiteSourceRequiresPath(t *testing.T) {
	_, err := source.NewSQLiteSource(source.SQLiteConfig{}, nil)
	assert.True(t, errors.HasCode(err, source.ErrInvalidDBPath))
}

func TestTableExists(t *testing.T) {
	_, db := newSampleDB(t, nil)

	exists, err := source.TableExists(db, "samples")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = source.TableExists(db, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}
