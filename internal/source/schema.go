package source

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/logger"
)

const (
	samplesTable = "samples"

	createSamplesSQL = `
	   CREATE TABLE IF NOT EXISTS samples (
	       seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	       group_name TEXT NOT NULL CHECK (length(group_name) > 0),
	       series     TEXT NOT NULL CHECK (length(series) > 0),
	       value      REAL NOT NULL
	   );`

	insertSampleSQL = `
    INSERT INTO samples (group_name, series, value) VALUES (?, ?, ?)`

	selectSamplesSQL = `
    SELECT seq, group_name, series, value
    FROM samples
    WHERE seq > ?
    ORDER BY seq
    LIMIT ?`
)

// InitSchema creates the samples table that SQLiteSource replays. Producers
// call it before writing with InsertSamples.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Str("sql", createSamplesSQL).Msg("Executing SQL statement")
	if _, err := db.Exec(createSamplesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createSamplesSQL,
		})
	}

	return nil
}

// InsertSamples appends samples in one transaction.
func InsertSamples(ctx context.Context, db *sql.DB, samples []Sample, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback sample insert")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, s.Group, s.Series, s.Value); err != nil {
			return errFactory.WithData(ErrStorageAccess, struct {
				Phase string
				Error string
			}{
				Phase: "insert_sample",
				Error: err.Error(),
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	committed = true

	return nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
