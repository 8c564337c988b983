// Package store persists world snapshots to Redis.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// ErrNotFound is returned when a run has no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Store keeps the latest snapshot of each run plus a bounded history.
type Store struct {
	client  *backend.Client
	prefix  string
	ttl     time.Duration
	history int64
}

type Option func(*Store)

// WithTTL sets the expiration of run keys.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithHistory sets how many snapshots per run are kept (0 keeps none).
func WithHistory(n int) Option {
	return func(s *Store) {
		s.history = int64(n)
	}
}

// New connects to the Redis server at address.
func New(address string, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{Addr: address}), opts...)
}

// NewFromClient creates a store over an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  "mapfexec:",
		history: 256,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) latestKey(runID string) string  { return s.prefix + "run:" + runID + ":latest" }
func (s *Store) historyKey(runID string) string { return s.prefix + "run:" + runID + ":history" }
func (s *Store) indexKey() string               { return s.prefix + "runs" }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Save writes snap as the latest snapshot of its run and appends it to the
// run history.
func (s *Store) Save(ctx context.Context, snap *core.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.latestKey(snap.RunID), data, s.ttl)
	if s.history > 0 {
		hk := s.historyKey(snap.RunID)
		pipe.RPush(ctx, hk, data)
		pipe.LTrim(ctx, hk, -s.history, -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, hk, s.ttl)
		}
	}

	// Index score is the expiry time; runs without a TTL never expire.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: snap.RunID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Latest returns the last saved snapshot of a run.
func (s *Store) Latest(ctx context.Context, runID string) (*core.Snapshot, error) {
	val, err := s.client.Get(ctx, s.latestKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return decode(val)
}

// History returns up to the last n snapshots of a run, oldest first.
func (s *Store) History(ctx context.Context, runID string, n int) ([]*core.Snapshot, error) {
	if n <= 0 {
		return nil, nil
	}
	vals, err := s.client.LRange(ctx, s.historyKey(runID), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	out := make([]*core.Snapshot, 0, len(vals))
	for _, v := range vals {
		snap, err := decode([]byte(v))
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Runs lists stored runs, pruning expired ones from the index.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired runs: %w", err)
	}
	runs, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Delete removes a run.
func (s *Store) Delete(ctx context.Context, runID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.latestKey(runID), s.historyKey(runID))
	pipe.ZRem(ctx, s.indexKey(), runID)
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decode(data []byte) (*core.Snapshot, error) {
	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
