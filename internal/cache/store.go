// Package cache is a content-addressed, TTL-bound file cache wrapping
// arbitrary fetch operations.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/famomatic/ytchill/internal/types"
)

// DefaultTTL is the freshness bound applied by callers that have no
// stronger opinion.
const DefaultTTL = time.Hour

// Key derives the cache key as a sha256 hex digest over the given parts
// joined with NUL. Callers pass the normalized request parameters; equal
// inputs always address the same entry.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// NormalizeQuery folds a query so equivalent spellings share an entry:
// trimmed, lower-cased, inner whitespace collapsed to single spaces.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// entry is the persisted file shape. Payload round-trips through base64
// inside the JSON envelope.
type entry struct {
	CreatedAt int64  `json:"created_at"`
	Payload   []byte `json:"payload"`
}

// Store persists one file per key under a directory. Entries are never
// actively evicted; expiry is checked lazily at read time.
type Store struct {
	dir string
	now func() time.Time
	log *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger for non-fatal cache anomalies.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store rooted at dir.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir: dir,
		now: time.Now,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrFetch returns the cached payload for key when a fresh entry
// exists, otherwise runs fetch. A successful fetch is persisted
// (overwriting any stale entry) before the payload is returned. A failed
// fetch propagates its error; stale data is never served in its place.
func (s *Store) GetOrFetch(key string, ttl time.Duration, fetch func() ([]byte, error)) ([]byte, error) {
	if payload, ok := s.read(key, ttl); ok {
		return payload, nil
	}

	payload, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := s.write(key, payload); err != nil {
		// A write problem must not mask a successful fetch.
		s.log.Warn("cache write failed", "key", key, "err", err)
	}
	return payload, nil
}

// read returns the payload when the entry exists, parses, and is younger
// than ttl. Corrupt or unreadable entries are misses.
func (s *Store) read(key string, ttl time.Duration) ([]byte, bool) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Debug("cache read failed", "key", key, "err", err)
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.log.Debug("cache entry corrupt", "key", key, "err", err)
		return nil, false
	}

	age := s.now().Unix() - e.CreatedAt
	if age < 0 || time.Duration(age)*time.Second >= ttl {
		return nil, false
	}
	return e.Payload, true
}

func (s *Store) write(key string, payload []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheIO, err)
	}
	raw, err := json.Marshal(entry{CreatedAt: s.now().Unix(), Payload: payload})
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheIO, err)
	}
	if err := renameio.WriteFile(s.path(key), raw, 0o644); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCacheIO, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
