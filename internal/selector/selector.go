// Package selector presents ordered choices and returns the picked index
// or a cancellation signal. The orchestrator depends only on the Selector
// interface; which implementation backs it is decided at startup.
package selector

import (
	"errors"
	"os/exec"

	"github.com/famomatic/ytchill/internal/types"
)

// ErrCancelled signals the user aborted the picker. Not a failure.
var ErrCancelled = errors.New("selection cancelled")

// Selector presents labels and returns the zero-based index chosen.
type Selector interface {
	Select(labels []string, prompt string) (int, error)
}

// FormatLabel renders a record for the picker. Livestreams show "--:--"
// in place of a duration.
func FormatLabel(rec types.VideoRecord) string {
	return rec.Title + " [" + rec.DurationDisplay() + "] - " + rec.Author
}

// Detect returns the preferred available selector: fzf when on PATH,
// otherwise the built-in prompt.
func Detect() Selector {
	if _, err := exec.LookPath("fzf"); err == nil {
		return &Fzf{}
	}
	return NewPrompt(nil, nil)
}
