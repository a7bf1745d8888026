package scrape

import (
	"errors"
	"strings"
	"testing"

	"github.com/famomatic/ytchill/internal/types"
)

func TestScanBalanced(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"flat", `{"a":1}`, `{"a":1}`},
		{"nested", `{"a":{"b":{"c":[]}}}`, `{"a":{"b":{"c":[]}}}`},
		{"trailing garbage", `{"a":1};</script><html>`, `{"a":1}`},
		{"brace in string", `{"a":"}{"}tail`, `{"a":"}{"}`},
		{"escaped quote in string", `{"a":"\"}{\""}tail`, `{"a":"\"}{\""}`},
		{"escaped backslash before quote", `{"a":"x\\"}tail`, `{"a":"x\\"}`},
		{"deeply nested", `{"a":{"b":{"c":{"d":{"e":{}}}}}}`, `{"a":{"b":{"c":{"d":{"e":{}}}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, err := ScanBalanced([]byte(tt.input), 0)
			if err != nil {
				t.Fatalf("ScanBalanced() error = %v", err)
			}
			if got := tt.input[:end]; got != tt.want {
				t.Fatalf("ScanBalanced() delimited %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScanBalanced_Unterminated(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing close", `{"a":{"b":1}`},
		{"open string", `{"a":"never closed`},
		{"empty", ``},
		{"not a brace", `["a"]`},
		{"deep missing close", strings.Repeat(`{"a":`, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ScanBalanced([]byte(tt.input), 0)
			if !errors.Is(err, types.ErrUnterminatedStructure) {
				t.Fatalf("ScanBalanced() error = %v, want ErrUnterminatedStructure", err)
			}
		})
	}
}

func TestScanBalanced_Offset(t *testing.T) {
	input := `prefix {"a":1} suffix`
	end, err := ScanBalanced([]byte(input), 7)
	if err != nil {
		t.Fatalf("ScanBalanced() error = %v", err)
	}
	if got := input[7:end]; got != `{"a":1}` {
		t.Fatalf("ScanBalanced() delimited %q", got)
	}
}
