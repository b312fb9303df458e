package store

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"evfmap/internal/domain"
)

var (
	bucketResults = []byte("results")
	bucketMeta    = []byte("meta")
)

// BoltStore caches mapped listings in a bbolt database, keyed by a digest of
// the listing text.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketResults, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type storedResult struct {
	Schema   int                      `msgpack:"schema"`
	Files    []domain.FileDiagnostics `msgpack:"files"`
	Units    []storedUnit             `msgpack:"units"`
	MappedAt int64                    `msgpack:"mapped_at"`
}

type storedUnit struct {
	Root    string `msgpack:"root"`
	Dropped int    `msgpack:"dropped"`
}

// PutResult stores the diagnostics and unit summaries of result. Line tables
// are not persisted.
func (s *BoltStore) PutResult(key string, result *domain.MapResult) error {
	rec := storedResult{
		Schema:   CurrentSchemaVersion,
		Files:    result.Diagnostics.Files(),
		MappedAt: time.Now().Unix(),
	}
	for _, u := range result.Units {
		rec.Units = append(rec.Units, storedUnit{Root: u.Root, Dropped: u.Dropped})
	}

	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResults).Put([]byte(key), data)
	})
}

// GetResult returns the stored result for key, if any.
func (s *BoltStore) GetResult(key string) (*domain.MapResult, bool, error) {
	var rec storedResult
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketResults).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return msgpack.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode cached result: %w", err)
	}
	if !found || rec.Schema != CurrentSchemaVersion {
		return nil, false, nil
	}

	result := &domain.MapResult{Diagnostics: domain.DiagnosticSetFromFiles(rec.Files)}
	for _, u := range rec.Units {
		result.Units = append(result.Units, domain.UnitSummary{Root: u.Root, Dropped: u.Dropped})
	}
	return result, true, nil
}

// Count returns the number of cached results.
func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketResults).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear drops every cached result.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketResults); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketResults)
		return err
	})
}
