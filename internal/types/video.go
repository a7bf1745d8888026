package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VideoRecord is a single video extracted from a results page.
// Records are immutable once produced.
type VideoRecord struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	DurationSeconds int    `json:"duration_seconds"`
	IsLive          bool   `json:"is_live"`
}

// WatchURL returns the canonical watch page URL for the record.
func (r VideoRecord) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + r.ID
}

// DurationDisplay renders the duration as "M:SS" or "H:MM:SS".
// Livestreams render as "--:--".
func (r VideoRecord) DurationDisplay() string {
	if r.IsLive {
		return "--:--"
	}
	h := r.DurationSeconds / 3600
	m := (r.DurationSeconds % 3600) / 60
	s := r.DurationSeconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ResultSet is an ordered sequence of records for one query.
// Order is upstream relevance order; selection indices reference it.
type ResultSet struct {
	Query     string        `json:"query"`
	CreatedAt time.Time     `json:"created_at"`
	Records   []VideoRecord `json:"records"`
}

// PlayMode selects how a chosen record is consumed.
type PlayMode string

const (
	ModeStreamAudio   PlayMode = "stream-audio"
	ModeStreamVideo   PlayMode = "stream-video"
	ModeDownloadAudio PlayMode = "download-audio"
	ModeDownloadVideo PlayMode = "download-video"
	ModeSyncplay      PlayMode = "syncplay"
)

// IsDownload reports whether the mode goes through the downloader.
func (m PlayMode) IsDownload() bool {
	return m == ModeDownloadAudio || m == ModeDownloadVideo
}

// WantsVideo reports whether the mode carries a video track.
func (m PlayMode) WantsVideo() bool {
	return m == ModeStreamVideo || m == ModeDownloadVideo || m == ModeSyncplay
}

// Session is the live playback or download attempt. At most one exists
// at a time and it is owned exclusively by the orchestrator loop.
type Session struct {
	ID        uuid.UUID
	Record    VideoRecord
	Mode      PlayMode
	StartedAt time.Time
}

// NewSession creates a session for the chosen record.
func NewSession(record VideoRecord, mode PlayMode) Session {
	return Session{
		ID:        uuid.New(),
		Record:    record,
		Mode:      mode,
		StartedAt: time.Now(),
	}
}
