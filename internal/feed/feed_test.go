package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/famomatic/ytchill/internal/storage"
	"github.com/famomatic/ytchill/internal/types"
)

type fakeLister struct {
	sets map[string][]types.VideoRecord
	errs map[string]error
}

func (f *fakeLister) ChannelVideos(_ context.Context, channel string) (*types.ResultSet, error) {
	if err, ok := f.errs[channel]; ok {
		return nil, err
	}
	return &types.ResultSet{
		Query:     channel,
		CreatedAt: time.Now(),
		Records:   f.sets[channel],
	}, nil
}

func subsFor(handles ...string) []storage.Subscription {
	subs := make([]storage.Subscription, len(handles))
	for i, h := range handles {
		subs[i] = storage.Subscription{Name: h, Handle: h}
	}
	return subs
}

func TestAggregate_PreservesSubscriptionOrder(t *testing.T) {
	lister := &fakeLister{sets: map[string][]types.VideoRecord{
		"@a": {{ID: "a1"}, {ID: "a2"}},
		"@b": {{ID: "b1"}},
		"@c": {{ID: "c1"}, {ID: "c2"}},
	}}

	set, err := Aggregate(context.Background(), lister, subsFor("@a", "@b", "@c"), 0, nil)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	want := []string{"a1", "a2", "b1", "c1", "c2"}
	if len(set.Records) != len(want) {
		t.Fatalf("Aggregate() returned %d records, want %d", len(set.Records), len(want))
	}
	for i, id := range want {
		if set.Records[i].ID != id {
			t.Fatalf("record %d = %q, want %q (order broken)", i, set.Records[i].ID, id)
		}
	}
}

func TestAggregate_Limit(t *testing.T) {
	lister := &fakeLister{sets: map[string][]types.VideoRecord{
		"@a": {{ID: "a1"}, {ID: "a2"}, {ID: "a3"}},
		"@b": {{ID: "b1"}},
	}}

	set, err := Aggregate(context.Background(), lister, subsFor("@a", "@b"), 2, nil)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(set.Records) != 2 {
		t.Fatalf("Aggregate() returned %d records, want 2", len(set.Records))
	}
}

func TestAggregate_SkipsFailedChannels(t *testing.T) {
	lister := &fakeLister{
		sets: map[string][]types.VideoRecord{"@ok": {{ID: "ok1"}}},
		errs: map[string]error{"@down": types.ErrNetwork},
	}

	set, err := Aggregate(context.Background(), lister, subsFor("@down", "@ok"), 0, nil)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(set.Records) != 1 || set.Records[0].ID != "ok1" {
		t.Fatalf("Aggregate() = %+v, want just the healthy channel", set.Records)
	}
}

func TestAggregate_AllChannelsFailed(t *testing.T) {
	lister := &fakeLister{errs: map[string]error{"@x": types.ErrNetwork, "@y": types.ErrNetwork}}

	_, err := Aggregate(context.Background(), lister, subsFor("@x", "@y"), 0, nil)
	if !errors.Is(err, types.ErrNetwork) {
		t.Fatalf("Aggregate() error = %v, want ErrNetwork", err)
	}
}

func TestAggregate_NoSubscriptions(t *testing.T) {
	_, err := Aggregate(context.Background(), &fakeLister{}, nil, 0, nil)
	if !errors.Is(err, types.ErrNoResults) {
		t.Fatalf("Aggregate() error = %v, want ErrNoResults", err)
	}
}
