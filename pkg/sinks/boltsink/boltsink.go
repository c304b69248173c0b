// Package boltsink persists transformed records in a bbolt database keyed by
// target identifier. Writes are upserts, so retried tasks overwrite rather
// than duplicate.
package boltsink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tqviet/extraq/pkg/importer"
)

var bucketRecords = []byte("extraq:records")

type Options struct {
	Path   string
	Logger *slog.Logger
}

type Sink struct {
	mu sync.RWMutex

	logger *slog.Logger
	db     *bbolt.DB
	opts   *Options
}

func New(o *Options) (*Sink, error) {
	opts := buildOptions(o)
	s := &Sink{
		logger: opts.Logger,
		opts:   opts,
	}
	if err := s.init(); err != nil {
		s.logger.
			With("err", err).
			Error("failed to initialize sink")
		return nil, err
	}
	return s, nil
}

func buildOptions(opts *Options) *Options {
	def := &Options{
		Logger: slog.Default(),
		Path:   "records.db",
	}
	if opts == nil {
		return def
	}
	if opts.Logger != nil {
		def.Logger = opts.Logger
	}
	if len(opts.Path) > 0 {
		def.Path = opts.Path
	}
	return def
}

func (s *Sink) init() error {
	db, err := bbolt.Open(s.opts.Path, 0600, &bbolt.Options{
		Timeout: time.Second * 1,
	})
	if err != nil {
		return err
	}
	s.db = db

	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return err
	}

	s.db = nil

	return nil
}

// Write upserts one record under its target identifier.
func (s *Sink) Write(_ context.Context, rec importer.TargetRecord) error {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db == nil {
		return fmt.Errorf("sink is already shutdown")
	}

	if len(rec.ID) == 0 {
		return fmt.Errorf("record id is required")
	}

	enc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	tx := func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketRecords)
		if err != nil {
			return fmt.Errorf("failed to initialize records bucket: %w", err)
		}
		return bucket.Put([]byte(rec.ID), enc)
	}

	if err := db.Update(tx); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// Get retrieves one stored record by target identifier.
func (s *Sink) Get(id string) (*importer.TargetRecord, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db == nil {
		return nil, fmt.Errorf("sink is already shutdown")
	}

	var rec *importer.TargetRecord

	err := db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return fmt.Errorf("record %s not found", id)
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("record %s not found", id)
		}

		rec = &importer.TargetRecord{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// Count returns the number of stored records.
func (s *Sink) Count() (int, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db == nil {
		return 0, fmt.Errorf("sink is already shutdown")
	}

	count := 0

	err := db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecords)
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}
