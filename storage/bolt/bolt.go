// Package bolt is a storage.Journal backed by a bbolt file.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/Comcast/fernspiel/storage"
	"github.com/Comcast/fernspiel/util/logger"

	bolt "go.etcd.io/bbolt"
)

var (
	bucket = []byte("journal")

	ErrNotOpen = errors.New("journal not open")
)

type Journal struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewJournal(filename string) (*Journal, error) {
	if filename == "" {
		return nil, errors.New("no journal filename")
	}
	return &Journal{
		filename: filename,
	}, nil
}

func (s *Journal) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Journal) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Journal) logf(ctx context.Context, format string, args ...interface{}) {
	if s.Debug {
		logger.FromContext(ctx).Debugf("bolt journal "+format, args...)
	}
}

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func (s *Journal) Record(ctx context.Context, e *storage.Entry) error {
	if s.db == nil {
		return ErrNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		e.Seq = seq
		js, err := json.Marshal(e)
		if err != nil {
			return err
		}
		s.logf(ctx, "Record %d %s", seq, js)
		return b.Put(key(seq), js)
	})
}

func (s *Journal) Recent(ctx context.Context, n int) ([]*storage.Entry, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if n <= 0 {
		return nil, nil
	}
	acc := make([]*storage.Entry, 0, n)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, bs := c.Last(); k != nil && len(acc) < n; k, bs = c.Prev() {
			var e storage.Entry
			if err := json.Unmarshal(bs, &e); err != nil {
				return err
			}
			acc = append(acc, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(acc)-1; i < j; i, j = i+1, j-1 {
		acc[i], acc[j] = acc[j], acc[i]
	}

	s.logf(ctx, "Recent %d found %d", n, len(acc))

	return acc, nil
}
