// Package redis persists reference extracts in Redis so matcher instances
// can share one synced copy. Each reference row is a hash under
// <prefix>:row:<index>; the column list and sync timestamp live in plain
// keys next to the rows.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/rueidis"

	"github.com/Zaxis018/cbs-match-bot/internal/domain/refdata"
)

const hsetBatch = 500

// Config holds connection parameters for a Redis reference store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store reads and writes reference datasets via rueidis.
type Store struct {
	client rueidis.Client
	prefix string
}

// NewStore connects to Redis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "matchbot:ref"
	}
	return &Store{client: client, prefix: prefix}, nil
}

// NewStoreForTest wraps an existing client, usually a mock.
func NewStoreForTest(client rueidis.Client) *Store {
	return &Store{client: client, prefix: "matchbot:ref"}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for redis: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) rowKey(i int) string {
	// Zero-padded so lexicographic key order matches row order.
	return fmt.Sprintf("%s:row:%012d", s.prefix, i)
}

func (s *Store) columnsKey() string { return s.prefix + ":columns" }
func (s *Store) syncedKey() string  { return s.prefix + ":synced_at" }

// Store replaces the persisted dataset with ds. Rows are written in HSET
// batches, then the column list and sync marker.
func (s *Store) Store(ctx context.Context, ds *refdata.Dataset) error {
	if err := s.drop(ctx); err != nil {
		return err
	}

	cmds := make([]rueidis.Completed, 0, hsetBatch)
	flush := func() error {
		if len(cmds) == 0 {
			return nil
		}
		for _, res := range s.client.DoMulti(ctx, cmds...) {
			if err := res.Error(); err != nil {
				return fmt.Errorf("store rows: %w", err)
			}
		}
		cmds = cmds[:0]
		return nil
	}

	for i := 0; i < ds.Len(); i++ {
		row := ds.Row(i)
		if len(row) == 0 {
			continue
		}
		cmd := s.client.B().Hset().Key(s.rowKey(i)).FieldValue()
		for k, v := range row {
			cmd = cmd.FieldValue(k, v)
		}
		cmds = append(cmds, cmd.Build())
		if len(cmds) == hsetBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	cols, err := json.Marshal(ds.Columns())
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}
	set := s.client.B().Set().Key(s.columnsKey()).Value(string(cols)).Build()
	if err := s.client.Do(ctx, set).Error(); err != nil {
		return fmt.Errorf("store columns: %w", err)
	}
	mark := s.client.B().Set().Key(s.syncedKey()).Value(time.Now().UTC().Format(time.RFC3339)).Build()
	if err := s.client.Do(ctx, mark).Error(); err != nil {
		return fmt.Errorf("store sync marker: %w", err)
	}
	return nil
}

// Load reads the persisted dataset back, preserving row order.
func (s *Store) Load(ctx context.Context) (*refdata.Dataset, error) {
	get := s.client.B().Get().Key(s.columnsKey()).Build()
	raw, err := s.client.Do(ctx, get).ToString()
	if err != nil {
		return nil, fmt.Errorf("load columns: %w", err)
	}
	var columns []string
	if err := json.Unmarshal([]byte(raw), &columns); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}

	keys, err := s.scan(ctx, s.prefix+":row:*")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		return refdata.New(columns, nil), nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.client.B().Hgetall().Key(key).Build()
	}
	results := s.client.DoMulti(ctx, cmds...)
	rows := make([]refdata.Row, len(results))
	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, fmt.Errorf("load row %s: %w", keys[i], err)
		}
		rows[i] = m
	}
	return refdata.New(columns, rows), nil
}

// SyncedAt returns the timestamp of the last Store call (zero when the
// store has never been synced).
func (s *Store) SyncedAt(ctx context.Context) (time.Time, error) {
	get := s.client.B().Get().Key(s.syncedKey()).Build()
	raw, err := s.client.Do(ctx, get).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("load sync marker: %w", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sync marker %q: %w", raw, err)
	}
	return t, nil
}

func (s *Store) drop(ctx context.Context) error {
	keys, err := s.scan(ctx, s.prefix+":*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	del := s.client.B().Del().Key(keys...).Build()
	if err := s.client.Do(ctx, del).Error(); err != nil {
		return fmt.Errorf("drop keys: %w", err)
	}
	return nil
}

func (s *Store) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
