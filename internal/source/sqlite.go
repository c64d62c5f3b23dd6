package source

import (
	"context"
	"database/sql"
	"time"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize    = 500
	defaultPollInterval = time.Second
)

type SQLiteConfig struct {
	DBPath string
	// Follow keeps polling for rows appended after the initial replay.
	Follow       bool
	PollInterval time.Duration
	BatchSize    int
}

func (c SQLiteConfig) Validate() error {
	if c.DBPath == "" {
		return errors.New().New(ErrInvalidDBPath)
	}
	return nil
}

// SQLiteSource replays the samples table of a SQLite database in insertion
// order. The database is opened read-only.
type SQLiteSource struct {
	db      *sql.DB
	cfg     SQLiteConfig
	log     logger.Logger
	lastSeq int64
	stats   Stats
}

func NewSQLiteSource(cfg SQLiteConfig, log logger.Logger) (*SQLiteSource, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	db, err := sql.Open("sqlite3", "file:"+cfg.DBPath+"?mode=ro")
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	exists, err := TableExists(db, samplesTable)
	if err != nil {
		db.Close()
		return nil, err
	}
	if !exists {
		db.Close()
		return nil, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
		}{
			Phase: "check_table_exists",
			Table: samplesTable,
		})
	}

	log = log.With("sqlite_source")
	log.Info().
		Str("path", cfg.DBPath).
		Bool("follow", cfg.Follow).
		Int("batch_size", cfg.BatchSize).
		Msg("Sample database opened")

	return &SQLiteSource{db: db, cfg: cfg, log: log}, nil
}

// Stats returns the counters accumulated by Run.
func (s *SQLiteSource) Stats() Stats { return s.stats }

func (s *SQLiteSource) Run(ctx context.Context, sink Sink) error {
	var ticker *time.Ticker
	if s.cfg.Follow {
		ticker = time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
	}

	for {
		n, err := s.replayBatch(ctx, sink)
		if err != nil {
			return err
		}
		if n == s.cfg.BatchSize {
			continue
		}

		if !s.cfg.Follow {
			s.log.Debug().
				Int("accepted", s.stats.Accepted).
				Int("rejected", s.stats.Rejected).
				Msg("Sample replay finished")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *SQLiteSource) replayBatch(ctx context.Context, sink Sink) (int, error) {
	errFactory := errors.New()

	rows, err := s.db.QueryContext(ctx, selectSamplesSQL, s.lastSeq, s.cfg.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return 0, errFactory.Wrap(ErrOperationTimeout, ctx.Err())
		}
		return 0, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			seq    int64
			sample Sample
		)
		if err := rows.Scan(&seq, &sample.Group, &sample.Series, &sample.Value); err != nil {
			return n, errFactory.Wrap(ErrStorageAccess, err)
		}
		n++
		s.lastSeq = seq

		if err := sink.Add(sample.Group, sample.Series, sample.Value); err != nil {
			s.stats.Rejected++
			s.log.Warn().
				Err(err).
				Int64("seq", seq).
				Str("group", sample.Group).
				Str("series", sample.Series).
				Msg("Observation rejected")
			continue
		}
		s.stats.Accepted++
	}

	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return n, errFactory.Wrap(ErrOperationTimeout, ctx.Err())
		}
		return n, errFactory.Wrap(ErrStorageAccess, err)
	}

	return n, nil
}

func (s *SQLiteSource) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	s.log.Debug().Msg("Sample database closed")

	return nil
}
