package source

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultDirPerm      = 0o755
	defaultFlushTimeout = 5 * time.Second
)

type RecorderConfig struct {
	DBPath       string
	BatchSize    int
	FlushEvery   time.Duration
	FlushTimeout time.Duration
}

// Recorder is a Sink that forwards every observation to another sink and
// appends the accepted ones to a samples table, so a session can later be
// replayed with SQLiteSource.
type Recorder struct {
	next Sink
	db   *sql.DB
	cfg  RecorderConfig
	log  logger.Logger

	mu     sync.Mutex
	buffer []Sample

	ticker        *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
	closeOnce     sync.Once
}

func NewRecorder(next Sink, cfg RecorderConfig, log logger.Logger) (*Recorder, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultPollInterval
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaultFlushTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("recorder")

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal=WAL")
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := InitSchema(db, log); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("batch_size", cfg.BatchSize).
		Dur("flush_every", cfg.FlushEvery).
		Msg("Recording observations")

	r := &Recorder{
		next:          next,
		db:            db,
		cfg:           cfg,
		log:           log,
		buffer:        make([]Sample, 0, cfg.BatchSize),
		ticker:        time.NewTicker(cfg.FlushEvery),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}
	go r.flusher()

	return r, nil
}

// Add forwards to the wrapped sink and records the observation only if it
// was accepted.
func (r *Recorder) Add(group, series string, value float64) error {
	if err := r.next.Add(group, series, value); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, Sample{Group: group, Series: series, Value: value})
	if len(r.buffer) >= r.cfg.BatchSize {
		r.flush()
	}

	return nil
}

// Flush writes buffered samples immediately.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flush()
}

// Close flushes what is left and closes the database.
func (r *Recorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.shutdownChan)
		r.ticker.Stop()
		<-r.flushDoneChan

		if _, cerr := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); cerr != nil {
			r.log.Warn().Err(cerr).Msg("Failed to checkpoint WAL")
		}

		if cerr := r.db.Close(); cerr != nil {
			err = errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "close_database",
				Error: cerr.Error(),
			})
			return
		}

		r.log.Info().Msg("Recorder closed")
	})

	return err
}

func (r *Recorder) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.ticker.C:
			r.mu.Lock()
			r.flush()
			r.mu.Unlock()
		case <-r.shutdownChan:
			r.mu.Lock()
			r.flush()
			r.mu.Unlock()
			return
		}
	}
}

// flush must be called with mu held. Failed batches are dropped after
// logging.
func (r *Recorder) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.FlushTimeout)
	defer cancel()

	n := len(r.buffer)
	err := InsertSamples(ctx, r.db, r.buffer, r.log)
	r.buffer = r.buffer[:0]
	if err != nil {
		r.log.Error().Err(err).Int("samples", n).Msg("Failed to record samples")
		return err
	}

	r.log.Debug().Int("samples", n).Msg("Flushed samples to database")

	return nil
}
