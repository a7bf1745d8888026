// Package streamurl resolves a direct googlevideo stream URL for a video
// without handing the work to an external tool. It delimits the embedded
// ytInitialPlayerResponse with the same balanced scanner the extractor
// uses, picks a format, and solves ciphered URLs by evaluating the
// player JS challenge functions.
package streamurl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/famomatic/ytchill/internal/scrape"
	"github.com/famomatic/ytchill/internal/types"
)

var (
	// ErrNoPlayableFormats indicates no usable format was found.
	ErrNoPlayableFormats = errors.New("no playable formats")
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var playerResponseMarker = []byte("var ytInitialPlayerResponse = ")

var jsURLPattern = regexp.MustCompile(`"(?:jsUrl|PLAYER_JS_URL)"\s*:\s*"(/s/player/[^"]+)"`)

// Resolver fetches watch pages and player JS over HTTP.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
	log        *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

// WithBaseURL points the resolver at a different origin. Used by tests.
func WithBaseURL(u string) Option {
	return func(r *Resolver) { r.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the resolver logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://www.youtube.com",
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a direct stream URL for the video, audio-only unless
// wantVideo is set.
func (r *Resolver) Resolve(ctx context.Context, videoID string, wantVideo bool) (string, error) {
	page, err := r.get(ctx, r.baseURL+"/watch?v="+url.QueryEscape(videoID))
	if err != nil {
		return "", err
	}

	f, err := pickFormat(page, wantVideo)
	if err != nil {
		return "", err
	}
	if f.url != "" && !needsNTransform(f.url) {
		return f.url, nil
	}

	dec, err := r.decipherer(ctx, page)
	if err != nil {
		return "", err
	}
	return f.playableURL(dec)
}

// decipherer fetches the player JS referenced by the watch page and
// builds a challenge solver over it.
func (r *Resolver) decipherer(ctx context.Context, page []byte) (*Decipherer, error) {
	m := jsURLPattern.FindSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("%w: player js url not found", types.ErrSchemaMismatch)
	}
	js, err := r.get(ctx, r.baseURL+string(m[1]))
	if err != nil {
		return nil, err
	}
	return NewDecipherer(js), nil
}

func (r *Resolver) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for %s", types.ErrNetwork, resp.StatusCode, u)
	}
	return io.ReadAll(resp.Body)
}

// format is one streamingData entry.
type format struct {
	url      string
	cipher   string
	mimeType string
	bitrate  int
}

// pickFormat delimits the player response and chooses the richest format
// for the requested mode: muxed formats for video, the highest-bitrate
// audio-only adaptive format otherwise.
func pickFormat(page []byte, wantVideo bool) (format, error) {
	at := bytes.Index(page, playerResponseMarker)
	if at < 0 {
		return format{}, types.ErrMarkerNotFound
	}
	open := bytes.IndexByte(page[at:], '{')
	if open < 0 {
		return format{}, types.ErrUnterminatedStructure
	}
	end, err := scrape.ScanBalanced(page, at+open)
	if err != nil {
		return format{}, err
	}
	root, err := simplejson.NewJson(page[at+open : end])
	if err != nil {
		return format{}, fmt.Errorf("%w: %v", types.ErrMalformedPayload, err)
	}

	list := "adaptiveFormats"
	if wantVideo {
		list = "formats"
	}
	node := root.GetPath("streamingData", list)
	raw, err := node.Array()
	if err != nil {
		return format{}, ErrNoPlayableFormats
	}

	var best format
	for i := range raw {
		fn := node.GetIndex(i)
		f := format{
			mimeType: fn.Get("mimeType").MustString(),
			bitrate:  fn.Get("bitrate").MustInt(),
		}
		f.url, _ = fn.Get("url").String()
		f.cipher, _ = fn.Get("signatureCipher").String()
		if !wantVideo && !strings.HasPrefix(f.mimeType, "audio/") {
			continue
		}
		if f.url == "" && f.cipher == "" {
			continue
		}
		if f.bitrate > best.bitrate || (best.url == "" && best.cipher == "") {
			best = f
		}
	}
	if best.url == "" && best.cipher == "" {
		return format{}, ErrNoPlayableFormats
	}
	return best, nil
}

// playableURL turns the format into a fetchable URL, solving the
// signature cipher and the n throttling parameter as needed.
func (f format) playableURL(dec *Decipherer) (string, error) {
	target := f.url
	if f.cipher != "" {
		vals, err := url.ParseQuery(f.cipher)
		if err != nil {
			return "", fmt.Errorf("%w: bad signature cipher: %v", types.ErrMalformedPayload, err)
		}
		target = vals.Get("url")
		sig, err := dec.DecipherSignature(vals.Get("s"))
		if err != nil {
			return "", err
		}
		param := vals.Get("sp")
		if param == "" {
			param = "signature"
		}
		sep := "&"
		if !strings.Contains(target, "?") {
			sep = "?"
		}
		target += sep + param + "=" + url.QueryEscape(sig)
	}

	if !needsNTransform(target) {
		return target, nil
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrMalformedPayload, err)
	}
	q := parsed.Query()
	transformed, err := dec.TransformN(q.Get("n"))
	if err != nil {
		// A failed n transform still plays, just throttled.
		return target, nil
	}
	q.Set("n", transformed)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func needsNTransform(target string) bool {
	parsed, err := url.Parse(target)
	if err != nil {
		return false
	}
	return parsed.Query().Get("n") != ""
}
