package main

import (
	"testing"

	"github.com/famomatic/ytchill/internal/storage"
	"github.com/famomatic/ytchill/internal/types"
)

func TestPlayMode(t *testing.T) {
	tests := []struct {
		name             string
		video, dl, sync  bool
		want             types.PlayMode
	}{
		{"default is audio streaming", false, false, false, types.ModeStreamAudio},
		{"video flag streams video", true, false, false, types.ModeStreamVideo},
		{"download defaults to audio", false, true, false, types.ModeDownloadAudio},
		{"download with video remuxes video", true, true, false, types.ModeDownloadVideo},
		{"syncplay wins over everything", true, true, true, types.ModeSyncplay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := playMode(tt.video, tt.dl, tt.sync); got != tt.want {
				t.Fatalf("playMode(%v, %v, %v) = %v, want %v", tt.video, tt.dl, tt.sync, got, tt.want)
			}
		})
	}
}

func TestSubscriptionFilesRoundTrip(t *testing.T) {
	path := t.TempDir() + "/subscriptions.txt"
	s := subscriptionFiles{path: path}

	if err := s.Add(storage.Subscription{Name: "Alpha", Handle: "@alpha"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	subs, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(subs) != 1 || subs[0].Handle != "@alpha" {
		t.Fatalf("Load() = %+v", subs)
	}
}
