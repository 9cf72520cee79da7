package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	announcedBucket  = []byte("announced_elections")
	errBucketMissing = errors.New("announced elections bucket missing")
)

// Each value is an 8-byte big-endian unix expiry followed by the fingerprint.
const expiryPrefixLen = 8

type boltStore struct {
	db       *bolt.DB
	ttl      time.Duration
	sweepGap time.Duration
	now      func() time.Time

	sweepMu   sync.Mutex
	nextSweep time.Time
}

func openBoltStore(path string, opts Options) (*boltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(announcedBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	s := &boltStore{db: db, ttl: opts.EntryTTL, sweepGap: opts.CleanupInterval, now: time.Now}
	s.nextSweep = s.now().Add(s.sweepGap)
	return s, nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

// Fingerprint treats expired entries as absent; the periodic sweep removes them.
func (s *boltStore) Fingerprint(id string) (string, bool, error) {
	now := s.now()
	var (
		fingerprint string
		found       bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(announcedBucket)
		if b == nil {
			return errBucketMissing
		}
		expiry, fp, ok := decodeEntry(b.Get([]byte(id)))
		if ok && expiry.After(now) {
			fingerprint, found = fp, true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("lookup election %s: %w", id, err)
	}
	return fingerprint, found, nil
}

// Remember records fingerprint for id and restarts its TTL.
func (s *boltStore) Remember(id, fingerprint string) error {
	now := s.now()
	if err := s.sweep(now); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(announcedBucket)
		if b == nil {
			return errBucketMissing
		}
		return b.Put([]byte(id), encodeEntry(now.Add(s.ttl), fingerprint))
	})
}

// sweep deletes expired entries once the cleanup interval has elapsed.
func (s *boltStore) sweep(now time.Time) error {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	if now.Before(s.nextSweep) {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(announcedBucket)
		if b == nil {
			return errBucketMissing
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if expiry, _, ok := decodeEntry(v); ok && expiry.After(now) {
				continue
			}
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sweep expired elections: %w", err)
	}
	s.nextSweep = now.Add(s.sweepGap)
	return nil
}

// size returns the number of stored entries, expired or not.
func (s *boltStore) size() int {
	n := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(announcedBucket); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n
}

func encodeEntry(expiry time.Time, fingerprint string) []byte {
	buf := make([]byte, expiryPrefixLen, expiryPrefixLen+len(fingerprint))
	binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	return append(buf, fingerprint...)
}

func decodeEntry(value []byte) (time.Time, string, bool) {
	if len(value) < expiryPrefixLen {
		return time.Time{}, "", false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryPrefixLen]))
	if unix <= 0 {
		return time.Time{}, "", false
	}
	return time.Unix(unix, 0), string(value[expiryPrefixLen:]), true
}
