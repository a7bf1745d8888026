package download

import (
	"testing"

	"github.com/famomatic/ytchill/internal/types"
)

func TestFormatArgs(t *testing.T) {
	tests := []struct {
		mode types.PlayMode
		want []string
	}{
		{types.ModeDownloadAudio, []string{"-x", "--audio-format", "mp3"}},
		{types.ModeDownloadVideo, []string{"--remux-video", "mp4"}},
	}
	for _, tt := range tests {
		got := formatArgs(tt.mode)
		if len(got) != len(tt.want) {
			t.Fatalf("formatArgs(%s) = %v, want %v", tt.mode, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("formatArgs(%s) = %v, want %v", tt.mode, got, tt.want)
			}
		}
	}
}

func TestTail(t *testing.T) {
	if got := tail("a\nb\nc\nd\ne\nf\ng\n"); got != "c\nd\ne\nf\ng" {
		t.Fatalf("tail() = %q", got)
	}
	if got := tail("only line"); got != "only line" {
		t.Fatalf("tail() = %q", got)
	}
}
