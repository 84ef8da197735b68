// Package redis is a storage.Journal backed by a Redis list.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Comcast/fernspiel/storage"

	backend "github.com/redis/go-redis/v9"
)

// Journal keeps entries in the list at <prefix>journal and the
// sequence counter at <prefix>seq.
type Journal struct {
	client *backend.Client
	prefix string
	maxLen int64
}

type Option func(*Journal)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Journal) {
		s.prefix = prefix
	}
}

// WithMaxLen trims the journal to the latest n entries.
func WithMaxLen(n int64) Option {
	return func(s *Journal) {
		s.maxLen = n
	}
}

// New makes a Journal with its own client.
func New(address, password string, db int, opts ...Option) *Journal {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient makes a Journal from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Journal {
	s := &Journal{
		client: client,
		prefix: "fernspiel:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Journal) listKey() string {
	return s.prefix + "journal"
}

func (s *Journal) seqKey() string {
	return s.prefix + "seq"
}

// Open checks the connection.
func (s *Journal) Open(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

func (s *Journal) Close(ctx context.Context) error {
	return s.client.Close()
}

func (s *Journal) Record(ctx context.Context, e *storage.Entry) error {
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to get sequence: %w", err)
	}
	e.Seq = uint64(seq)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.listKey(), data)
	if 0 < s.maxLen {
		pipe.LTrim(ctx, s.listKey(), -s.maxLen, -1)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record to redis: %w", err)
	}
	return nil
}

func (s *Journal) Recent(ctx context.Context, n int) ([]*storage.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	vals, err := s.client.LRange(ctx, s.listKey(), -int64(n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}
	acc := make([]*storage.Entry, 0, len(vals))
	for _, val := range vals {
		var e storage.Entry
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		acc = append(acc, &e)
	}
	return acc, nil
}
