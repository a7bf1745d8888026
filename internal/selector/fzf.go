package selector

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Fzf drives an external fzf process. Lines are fed as
// "<index>\t<label>" and only the label column is shown, so the chosen
// index survives fuzzy reordering.
type Fzf struct{}

func (f *Fzf) Select(labels []string, prompt string) (int, error) {
	if len(labels) == 0 {
		return 0, ErrCancelled
	}

	var input strings.Builder
	for i, label := range labels {
		fmt.Fprintf(&input, "%d\t%s\n", i, label)
	}

	cmd := exec.Command("fzf",
		"--prompt", prompt+" > ",
		"--height", "40%",
		"--reverse",
		"--delimiter", "\t",
		"--with-nth", "2",
	)
	cmd.Stdin = strings.NewReader(input.String())
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && abortExitCode(exitErr.ExitCode()) {
			return 0, ErrCancelled
		}
		// Anything else (exit 2, exec failure) is a real fzf problem.
		return 0, fmt.Errorf("fzf: %w", err)
	}
	return parseChoice(string(out), len(labels))
}

// abortExitCode reports whether the fzf exit code means the user backed
// out: 130 on ESC/ctrl-c, 1 on no match.
func abortExitCode(code int) bool {
	return code == 1 || code == 130
}

// parseChoice extracts the index column from an fzf output line.
func parseChoice(out string, n int) (int, error) {
	line := strings.TrimSpace(out)
	if line == "" {
		return 0, ErrCancelled
	}
	idxStr, _, _ := strings.Cut(line, "\t")
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 || idx >= n {
		return 0, fmt.Errorf("unexpected fzf output %q", line)
	}
	return idx, nil
}
