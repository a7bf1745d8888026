package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// Subscription identifies one followed channel. Handle is the channel
// identifier fed back to discovery (@handle or UC id).
type Subscription struct {
	Name   string
	Handle string
}

// LoadSubscriptions reads the line-oriented subscriptions file. Each line
// is "name<TAB>handle"; malformed lines are skipped.
func LoadSubscriptions(path string) ([]Subscription, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var subs []Subscription
	for _, line := range strings.Split(string(raw), "\n") {
		name, handle, ok := strings.Cut(line, "\t")
		if !ok || strings.TrimSpace(handle) == "" {
			continue
		}
		subs = append(subs, Subscription{
			Name:   strings.TrimSpace(name),
			Handle: strings.TrimSpace(handle),
		})
	}
	return subs, nil
}

// SaveSubscriptions writes the full subscription list atomically.
func SaveSubscriptions(path string, subs []Subscription) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	for _, s := range subs {
		fmt.Fprintf(&b, "%s\t%s\n", s.Name, s.Handle)
	}
	return renameio.WriteFile(path, []byte(b.String()), 0o644)
}

// AddSubscription appends a subscription, replacing any existing entry
// with the same handle.
func AddSubscription(path string, sub Subscription) error {
	subs, err := LoadSubscriptions(path)
	if err != nil {
		return err
	}
	kept := subs[:0]
	for _, s := range subs {
		if s.Handle != sub.Handle {
			kept = append(kept, s)
		}
	}
	return SaveSubscriptions(path, append(kept, sub))
}
