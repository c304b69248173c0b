package runs

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	errs "github.com/tqviet/extraq/internal/errors"
)

type store struct {
	mu sync.RWMutex

	logger *slog.Logger
	db     *bbolt.DB
	opts   *StoreOpts
}

type StoreOpts struct {
	Path   string
	Logger *slog.Logger
}

func NewStore(opts *StoreOpts) (Store, error) {
	o := defaultOpts(opts)
	str := &store{
		opts:   o,
		logger: o.Logger,
	}
	return str, str.init()
}

func defaultOpts(o *StoreOpts) *StoreOpts {
	def := &StoreOpts{
		Path:   "runs.db",
		Logger: slog.Default(),
	}
	if o == nil {
		return def
	}
	if len(o.Path) > 0 {
		def.Path = o.Path
	}
	if o.Logger != nil {
		def.Logger = o.Logger
	}

	return def
}

func (s *store) init() error {
	db, err := bbolt.Open(s.opts.Path, 0600, nil)
	if err != nil {
		return err
	}
	s.db = db

	return nil
}

func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

func bytes(str string) []byte {
	return []byte(str)
}

func (s *store) RecordRun(r *RunInfo) (id string, err error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db == nil {
		return "", fmt.Errorf("store is already shutdown")
	}

	tx := func(tx *bbolt.Tx) error {
		id, err = s.recordRun(tx, r)
		return err
	}

	if err := db.Update(tx); err != nil {
		return "", err
	}

	return id, nil
}

func (s *store) recordRun(tx *bbolt.Tx, r *RunInfo) (id string, err error) {
	bucket, err := tx.CreateBucketIfNotExists(bytes(BucketRunInfo))
	if err != nil {
		return "", fmt.Errorf("failed to initialize run info bucket: %w", err)
	}

	if len(r.ID) > 0 {
		id = r.ID
	} else {
		id = uuid.NewString()
		r.ID = id
	}

	enc, err := EncodeRun(r)
	if err != nil {
		return "", err
	}

	if err := bucket.Put(bytes(RunKey(id)), enc); err != nil {
		return "", fmt.Errorf("failed to save run info: %w", err)
	}

	return id, nil
}

func (s *store) GetRun(id string) (info *RunInfo, err error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db == nil {
		return nil, fmt.Errorf("store is already shutdown")
	}

	err = db.View(func(tx *bbolt.Tx) error {
		info, err = s.getRun(tx, id)
		return err
	})

	return info, err
}

func (s *store) getRun(tx *bbolt.Tx, id string) (*RunInfo, error) {
	bucket := tx.Bucket(bytes(BucketRunInfo))
	if bucket == nil {
		return nil, errs.NewErrNotFound("run")
	}

	data := bucket.Get(bytes(RunKey(id)))
	if data == nil {
		return nil, errs.NewErrNotFound("run")
	}

	return DecodeRun(data)
}

func (s *store) ListRuns(skip uint64, limit uint64) (info []RunInfo, err error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db == nil {
		return nil, fmt.Errorf("store is already shutdown")
	}

	err = db.View(func(tx *bbolt.Tx) error {
		info, err = s.listRuns(tx, skip, limit)
		return err
	})

	return info, err
}

func (s *store) listRuns(tx *bbolt.Tx, skip, limit uint64) ([]RunInfo, error) {
	bucket := tx.Bucket(bytes(BucketRunInfo))
	if bucket == nil {
		return nil, nil
	}

	var list []RunInfo

	if limit == 0 {
		return list, nil
	}

	cur := bucket.Cursor()

	for k, v := cur.First(); k != nil; k, v = cur.Next() {
		if skip > 0 {
			skip -= 1
			continue
		}

		limit -= 1
		r, err := DecodeRun(v)
		if err != nil {
			return nil, fmt.Errorf("failed to DecodeRun run info: %w", err)
		}

		list = append(list, *r)
		if limit == 0 {
			break
		}
	}

	return list, nil
}

func (s *store) UpdateRun(id string, upd func(*RunInfo) bool) (ok bool, err error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db == nil {
		return false, fmt.Errorf("store is already shutdown")
	}

	tx := func(tx *bbolt.Tx) error {
		ok, err = s.updateRun(tx, id, upd)
		if err != nil {
			return err
		}
		return nil
	}

	err = db.Update(tx)
	if err != nil {
		return false, err
	}

	return
}

func (s *store) updateRun(tx *bbolt.Tx, id string, upd func(*RunInfo) bool) (ok bool, err error) {
	bucket := tx.Bucket(bytes(BucketRunInfo))
	if bucket == nil {
		return false, errs.NewErrNotFound("run")
	}

	key := RunKey(id)
	dat := bucket.Get(bytes(key))
	if dat == nil {
		return false, nil
	}

	r, err := DecodeRun(dat)
	if err != nil {
		return false, fmt.Errorf("failed to DecodeRun run info: %w", err)
	}

	if updated := upd(r); !updated {
		// aborted
		return true, nil
	}

	enc, err := EncodeRun(r)
	if err != nil {
		return false, err
	}

	if err := bucket.Put(bytes(key), enc); err != nil {
		return false, fmt.Errorf("failed to save run info: %w", err)
	}

	return true, nil
}
