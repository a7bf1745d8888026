package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKey_DeterministicAndFixedLength(t *testing.T) {
	a := Key("search", "lofi beats", "15")
	b := Key("search", "lofi beats", "15")
	c := Key("search", "lofi beats", "20")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 64)
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Lofi Beats", "lofi beats"},
		{"  lofi   beats  ", "lofi beats"},
		{"LOFI\tBEATS", "lofi beats"},
		{"lofi beats", "lofi beats"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeQuery(tt.in))
	}
}

func TestGetOrFetch_Idempotent(t *testing.T) {
	s := New(t.TempDir())

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("<html>body</html>"), nil
	}

	first, err := s.GetOrFetch("k", time.Hour, fetch)
	require.NoError(t, err)

	second, err := s.GetOrFetch("k", time.Hour, fetch)
	require.NoError(t, err)

	require.Equal(t, 1, calls, "fetch must run at most once within the TTL")
	require.Equal(t, first, second)
}

func TestGetOrFetch_ExpiredEntryTriggersFetch(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := New(t.TempDir(), WithClock(clock))

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	_, err := s.GetOrFetch("k", time.Hour, fetch)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.GetOrFetch("k", time.Hour, fetch)
	require.NoError(t, err)
	require.Equal(t, 2, calls, "expired entry must be treated as absent")
}

func TestGetOrFetch_RoundTripAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	payload := []byte(`{"query":"lofi","records":[]}`)

	_, err := New(dir).GetOrFetch("k", time.Hour, func() ([]byte, error) {
		return payload, nil
	})
	require.NoError(t, err)

	// Fresh Store over the same directory simulates a process restart.
	got, err := New(dir).GetOrFetch("k", time.Hour, func() ([]byte, error) {
		t.Fatal("fetch must not run on a fresh persisted entry")
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestGetOrFetch_FetchErrorPropagatesAndStaleNotServed(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := New(t.TempDir(), WithClock(clock))

	_, err := s.GetOrFetch("k", time.Hour, func() ([]byte, error) {
		return []byte("old"), nil
	})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	boom := errors.New("upstream down")
	_, err = s.GetOrFetch("k", time.Hour, func() ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom, "a fresh failure is surfaced, never masked by expired data")
}

func TestGetOrFetch_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "k.json"), []byte("{not json"), 0o644))

	calls := 0
	got, err := s.GetOrFetch("k", time.Hour, func() ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, []byte("fresh"), got)
}
