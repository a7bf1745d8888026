package scrape

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/famomatic/ytchill/internal/types"
)

// videoItem builds a search-result videoRenderer node. A nil duration
// marks a livestream (no lengthText at all).
func videoItem(id, title, author string, duration *string) map[string]any {
	v := map[string]any{
		"videoId": id,
		"title": map[string]any{
			"runs": []any{map[string]any{"text": title}},
		},
		"longBylineText": map[string]any{
			"runs": []any{map[string]any{"text": author}},
		},
	}
	if duration != nil {
		v["lengthText"] = map[string]any{"simpleText": *duration}
	}
	return map[string]any{"videoRenderer": v}
}

func searchPage(t *testing.T, items ...map[string]any) []byte {
	t.Helper()
	data := map[string]any{
		"contents": map[string]any{
			"twoColumnSearchResultsRenderer": map[string]any{
				"primaryContents": map[string]any{
					"sectionListRenderer": map[string]any{
						"contents": []any{
							map[string]any{
								"itemSectionRenderer": map[string]any{
									"contents": items,
								},
							},
						},
					},
				},
			},
		},
	}
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return []byte(fmt.Sprintf(
		"<html><body><script>var ytInitialData = %s;</script></body></html>", raw))
}

func channelPage(t *testing.T, items ...map[string]any) []byte {
	t.Helper()
	wrapped := make([]any, len(items))
	for i, item := range items {
		wrapped[i] = map[string]any{
			"richItemRenderer": map[string]any{"content": item},
		}
	}
	data := map[string]any{
		"contents": map[string]any{
			"twoColumnBrowseResultsRenderer": map[string]any{
				"tabs": []any{
					map[string]any{"tabRenderer": map[string]any{}},
					map[string]any{
						"tabRenderer": map[string]any{
							"content": map[string]any{
								"richGridRenderer": map[string]any{
									"contents": wrapped,
								},
							},
						},
					},
				},
			},
		},
	}
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return []byte(fmt.Sprintf(
		`<html><script>window["ytInitialData"] = %s;</script></html>`, raw))
}

func strptr(s string) *string { return &s }

func TestExtract_SearchPage(t *testing.T) {
	body := searchPage(t,
		videoItem("dQw4w9WgXcQ", "First", "Alice", strptr("3:45")),
		videoItem("jNQXAC9IVRw", "Second", "Bob", strptr("1:23:45")),
		videoItem("9bZkp7q19f0", "Live Now", "Carol", nil),
	)

	got, err := Extract(body, 15)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Extract() returned %d records, want 3", len(got))
	}

	want := []types.VideoRecord{
		{ID: "dQw4w9WgXcQ", Title: "First", Author: "Alice", DurationSeconds: 225},
		{ID: "jNQXAC9IVRw", Title: "Second", Author: "Bob", DurationSeconds: 5025},
		{ID: "9bZkp7q19f0", Title: "Live Now", Author: "Carol", IsLive: true},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExtract_ChannelPageFallback(t *testing.T) {
	body := channelPage(t,
		videoItem("abcdefghijk", "Upload", "Channel", strptr("0:59")),
	)

	got, err := Extract(body, 15)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "abcdefghijk" || got[0].DurationSeconds != 59 {
		t.Fatalf("Extract() = %+v", got)
	}
}

func TestExtract_LimitPreservesOrder(t *testing.T) {
	items := make([]map[string]any, 10)
	for i := range items {
		items[i] = videoItem(fmt.Sprintf("id%08d_-", i), fmt.Sprintf("t%d", i), "a", strptr("0:10"))
	}

	got, err := Extract(searchPage(t, items...), 4)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Extract() returned %d records, want 4", len(got))
	}
	for i, rec := range got {
		if rec.Title != fmt.Sprintf("t%d", i) {
			t.Errorf("record %d title = %q, order not preserved", i, rec.Title)
		}
	}
}

func TestExtract_SkipsItemsMissingRequiredFields(t *testing.T) {
	noID := map[string]any{"videoRenderer": map[string]any{
		"title": map[string]any{"runs": []any{map[string]any{"text": "orphan"}}},
	}}
	noTitle := map[string]any{"videoRenderer": map[string]any{"videoId": "xxxxxxxxxxx"}}
	shelf := map[string]any{"shelfRenderer": map[string]any{}}

	got, err := Extract(searchPage(t,
		noID, noTitle, shelf,
		videoItem("dQw4w9WgXcQ", "Kept", "Alice", strptr("2:00")),
	), 15)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "Kept" {
		t.Fatalf("Extract() = %+v, want only the complete record", got)
	}
}

func TestExtract_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"consent interstitial", "<html>Before you continue</html>", types.ErrMarkerNotFound},
		{"truncated payload", `<script>var ytInitialData = {"contents":{</script>`, types.ErrUnterminatedStructure},
		{"invalid json", `<script>var ytInitialData = {"contents":[,]};</script>`, types.ErrMalformedPayload},
		{"unknown schema", `<script>var ytInitialData = {"contents":{"somethingElse":{}}};</script>`, types.ErrSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract([]byte(tt.body), 15)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Extract() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExtract_TitleRunsConcatenated(t *testing.T) {
	item := map[string]any{"videoRenderer": map[string]any{
		"videoId": "dQw4w9WgXcQ",
		"title": map[string]any{"runs": []any{
			map[string]any{"text": "part one"},
			map[string]any{"text": " & part two"},
		}},
		"ownerText": map[string]any{"runs": []any{map[string]any{"text": "Owner"}}},
		"lengthText": map[string]any{"simpleText": "10:00"},
	}}

	got, err := Extract(searchPage(t, item), 15)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got[0].Title != "part one & part two" {
		t.Fatalf("title = %q", got[0].Title)
	}
	if got[0].Author != "Owner" {
		t.Fatalf("author = %q, want ownerText fallback", got[0].Author)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0:30", 30},
		{"3:45", 225},
		{"10:00", 600},
		{"1:00:00", 3600},
		{"1:23:45", 5025},
		{"SHORTS", 0},
		{"", 0},
		{"1:2:3:4", 0},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in); got != tt.want {
			t.Errorf("parseDuration(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
