package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/famomatic/ytchill/internal/types"
)

// HistoryEntry records one completed playback.
type HistoryEntry struct {
	Record   types.VideoRecord `json:"record"`
	PlayedAt int64             `json:"played_at"`
	Mode     types.PlayMode    `json:"mode"`
}

// History is the persisted watch history: newest first, deduplicated by
// video id, capped at maxEntries.
type History struct {
	path       string
	maxEntries int
	entries    []HistoryEntry
}

// NewHistory creates a history bound to path.
func NewHistory(path string, maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &History{path: path, maxEntries: maxEntries}
}

// Load reads the history file. A missing or unreadable file yields an
// empty history.
func (h *History) Load() error {
	raw, err := os.ReadFile(h.path)
	if err != nil {
		h.entries = nil
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(raw, &h.entries); err != nil {
		h.entries = nil
	}
	return nil
}

// Add prepends a new entry, dropping any older entry for the same video,
// and persists the file.
func (h *History) Add(record types.VideoRecord, mode types.PlayMode) error {
	kept := h.entries[:0]
	for _, e := range h.entries {
		if e.Record.ID != record.ID {
			kept = append(kept, e)
		}
	}
	h.entries = append([]HistoryEntry{{
		Record:   record,
		PlayedAt: time.Now().Unix(),
		Mode:     mode,
	}}, kept...)

	if len(h.entries) > h.maxEntries {
		h.entries = h.entries[:h.maxEntries]
	}
	return h.save()
}

// All returns the entries, newest first.
func (h *History) All() []HistoryEntry {
	return h.entries
}

func (h *History) save() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(h.entries, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(h.path, raw, 0o644)
}
