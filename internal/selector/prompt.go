package selector

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Prompt is the built-in fallback selector: a numbered list on Out and a
// single line read from In. Empty input or "q" cancels. One buffered
// reader lives for the Prompt's lifetime, so bytes read ahead for one
// selection are still there for the next.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt creates a prompt selector. Nil readers/writers default to
// stdin/stdout.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) Select(labels []string, prompt string) (int, error) {
	if len(labels) == 0 {
		return 0, ErrCancelled
	}

	fmt.Fprintln(p.out, prompt)
	for i, label := range labels {
		fmt.Fprintf(p.out, "  %2d) %s\n", i+1, label)
	}
	fmt.Fprintf(p.out, "> ")

	raw, err := p.in.ReadString('\n')
	if err != nil && raw == "" {
		return 0, ErrCancelled
	}
	line := strings.TrimSpace(raw)
	if line == "" || strings.EqualFold(line, "q") {
		return 0, ErrCancelled
	}

	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > len(labels) {
		return 0, fmt.Errorf("invalid selection %q", line)
	}
	return choice - 1, nil
}
