// Package download invokes yt-dlp and reports its outcome. Exit code is
// the sole success signal; captured stderr is surfaced on failure.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/famomatic/ytchill/internal/types"
)

const binary = "yt-dlp"

// Downloader runs yt-dlp with a mode-appropriate output format.
type Downloader struct {
	outputDir string
	log       *slog.Logger
}

// New creates a Downloader writing into outputDir.
func New(outputDir string, log *slog.Logger) *Downloader {
	if log == nil {
		log = slog.Default()
	}
	return &Downloader{outputDir: outputDir, log: log}
}

// Download fetches the record. Audio modes extract an mp3; video modes
// remux into an mp4 container. A non-zero exit wraps ErrToolFailed and
// carries the downloader's stderr.
func (d *Downloader) Download(ctx context.Context, rec types.VideoRecord, mode types.PlayMode) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%w: %s", types.ErrToolMissing, binary)
	}

	args := formatArgs(mode)
	args = append(args, "-o", filepath.Join(d.outputDir, "%(title)s [%(id)s].%(ext)s"))
	args = append(args, rec.WatchURL())

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = os.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	d.log.Debug("downloader started", "id", rec.ID, "mode", mode)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited %d: %s",
				types.ErrToolFailed, binary, exitErr.ExitCode(), tail(stderr.String()))
		}
		return fmt.Errorf("%w: %s: %v", types.ErrToolFailed, binary, err)
	}
	return nil
}

func formatArgs(mode types.PlayMode) []string {
	if mode.WantsVideo() {
		return []string{"--remux-video", "mp4"}
	}
	return []string{"-x", "--audio-format", "mp3"}
}

// tail keeps error output readable: the last few stderr lines carry the
// actual failure reason.
func tail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
