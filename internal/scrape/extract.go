// Package scrape turns a raw YouTube page body into video records by
// delimiting and walking the embedded ytInitialData bootstrap JSON.
package scrape

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/famomatic/ytchill/internal/types"
)

// DefaultLimit bounds the record count when the caller passes limit <= 0.
const DefaultLimit = 15

// markers precede the bootstrap JSON assignment. Tried in order; YouTube
// has shipped both shapes over time.
var markers = [][]byte{
	[]byte("var ytInitialData = "),
	[]byte(`window["ytInitialData"] = `),
}

// Extract produces the ordered record sequence embedded in a results or
// channel page body, truncated to limit.
func Extract(body []byte, limit int) ([]types.VideoRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	payload, err := delimitBootstrap(body)
	if err != nil {
		return nil, err
	}

	root, err := simplejson.NewJson(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedPayload, err)
	}

	items, err := rendererItems(root)
	if err != nil {
		return nil, err
	}

	records := make([]types.VideoRecord, 0, limit)
	for _, item := range items {
		rec, ok := recordFromItem(item)
		if !ok {
			continue
		}
		records = append(records, rec)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

// delimitBootstrap locates the marker and returns the balanced JSON object
// that follows it.
func delimitBootstrap(body []byte) ([]byte, error) {
	for _, marker := range markers {
		at := bytes.Index(body, marker)
		if at < 0 {
			continue
		}
		open := bytes.IndexByte(body[at+len(marker):], '{')
		if open < 0 {
			return nil, fmt.Errorf("%w: no object after marker", types.ErrUnterminatedStructure)
		}
		start := at + len(marker) + open
		end, err := ScanBalanced(body, start)
		if err != nil {
			return nil, err
		}
		return body[start:end], nil
	}
	return nil, types.ErrMarkerNotFound
}

// rendererItems walks the known key paths to the result item array.
// Search pages are tried first, then channel video grids.
func rendererItems(root *simplejson.Json) ([]*simplejson.Json, error) {
	if items, ok := searchItems(root); ok {
		return items, nil
	}
	if items, ok := channelItems(root); ok {
		return items, nil
	}
	return nil, fmt.Errorf("%w: no renderer path yielded items", types.ErrSchemaMismatch)
}

func searchItems(root *simplejson.Json) ([]*simplejson.Json, bool) {
	sections := root.GetPath(
		"contents", "twoColumnSearchResultsRenderer",
		"primaryContents", "sectionListRenderer", "contents",
	)
	arr, err := sections.Array()
	if err != nil {
		return nil, false
	}
	// Result items live in the first itemSectionRenderer; later sections
	// hold continuations and shelf promos.
	for i := range arr {
		contents := sections.GetIndex(i).GetPath("itemSectionRenderer", "contents")
		if raw, err := contents.Array(); err == nil {
			items := make([]*simplejson.Json, len(raw))
			for j := range raw {
				items[j] = contents.GetIndex(j)
			}
			return items, true
		}
	}
	return nil, false
}

func channelItems(root *simplejson.Json) ([]*simplejson.Json, bool) {
	tabs := root.GetPath("contents", "twoColumnBrowseResultsRenderer", "tabs")
	arr, err := tabs.Array()
	if err != nil {
		return nil, false
	}
	for i := range arr {
		grid := tabs.GetIndex(i).GetPath("tabRenderer", "content", "richGridRenderer", "contents")
		raw, err := grid.Array()
		if err != nil {
			continue
		}
		items := make([]*simplejson.Json, 0, len(raw))
		for j := range raw {
			if item, ok := grid.GetIndex(j).CheckGet("richItemRenderer"); ok {
				items = append(items, item.Get("content"))
			}
		}
		return items, true
	}
	return nil, false
}

// recordFromItem extracts one record from a result item node. Items that
// are not video renderers, or miss a required id or title, are skipped.
func recordFromItem(item *simplejson.Json) (types.VideoRecord, bool) {
	v, ok := item.CheckGet("videoRenderer")
	if !ok {
		return types.VideoRecord{}, false
	}

	id, err := v.Get("videoId").String()
	if err != nil || id == "" {
		return types.VideoRecord{}, false
	}
	title := runsText(v.Get("title"))
	if title == "" {
		return types.VideoRecord{}, false
	}

	rec := types.VideoRecord{
		ID:     id,
		Title:  title,
		Author: authorText(v),
	}

	length, err := v.GetPath("lengthText", "simpleText").String()
	if err != nil {
		// No display duration means a livestream.
		rec.IsLive = true
		return rec, true
	}
	rec.DurationSeconds = parseDuration(length)
	return rec, true
}

func authorText(v *simplejson.Json) string {
	for _, key := range []string{"longBylineText", "ownerText", "shortBylineText"} {
		if s := runsText(v.Get(key)); s != "" {
			return s
		}
	}
	return ""
}

// runsText concatenates the text runs of a formatted-string node, falling
// back to simpleText.
func runsText(node *simplejson.Json) string {
	if runs, err := node.Get("runs").Array(); err == nil {
		var b strings.Builder
		for i := range runs {
			s, err := node.Get("runs").GetIndex(i).Get("text").String()
			if err == nil {
				b.WriteString(s)
			}
		}
		return b.String()
	}
	s, _ := node.Get("simpleText").String()
	return s
}

// parseDuration converts "M:SS" or "H:MM:SS" display strings to seconds.
// Unrecognized strings yield zero rather than dropping the record.
func parseDuration(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}
