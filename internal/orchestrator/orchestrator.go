// Package orchestrator sequences discovery, selection, and playback as
// a finite-state machine. It is the only place user-facing messages are
// produced; collaborator errors bubble up to it unchanged in kind.
package orchestrator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/famomatic/ytchill/internal/feed"
	"github.com/famomatic/ytchill/internal/player"
	"github.com/famomatic/ytchill/internal/scrape"
	"github.com/famomatic/ytchill/internal/selector"
	"github.com/famomatic/ytchill/internal/storage"
	"github.com/famomatic/ytchill/internal/types"
)

// nowPlayingDelay is how long after launch the buffering message swaps
// to the playing legend. Wall clock, independent of player output.
const nowPlayingDelay = 6 * time.Second

// quitKey ends playback. Every other key is forwarded to the player.
// Ctrl-C arrives as a plain byte while the terminal is raw, so it quits
// the same way.
const (
	quitKey  = 'q'
	ctrlCKey = 0x03
)

// Discoverer is the slice of the discovery service the machine needs.
type Discoverer interface {
	Search(ctx context.Context, query string, limit int) (*types.ResultSet, error)
	ChannelVideos(ctx context.Context, channel string) (*types.ResultSet, error)
}

// Launcher starts a playback process for a record.
type Launcher interface {
	Launch(ctx context.Context, rec types.VideoRecord, mode types.PlayMode) (player.Process, error)
}

// Downloader fetches a record to local storage.
type Downloader interface {
	Download(ctx context.Context, rec types.VideoRecord, mode types.PlayMode) error
}

// HistoryStore records completed playbacks.
type HistoryStore interface {
	Add(rec types.VideoRecord, mode types.PlayMode) error
	All() []storage.HistoryEntry
}

// SubscriptionStore holds followed channels.
type SubscriptionStore interface {
	Load() ([]storage.Subscription, error)
	Add(sub storage.Subscription) error
}

// Config wires the machine's collaborators.
type Config struct {
	Discovery     Discoverer
	Selector      selector.Selector
	Launcher      Launcher
	Downloader    Downloader
	History       HistoryStore
	Subscriptions SubscriptionStore
	Keys          KeySource

	// Input feeds interactive text prompts (search query, channel id).
	Input io.Reader
	// Output receives all user-facing messages.
	Output io.Writer

	Logger *slog.Logger
	Limit  int

	// TimerAfter schedules the status-swap timer. Tests inject their own.
	TimerAfter func(time.Duration) <-chan time.Time
}

// Intent is the CLI-derived request driving the initial transition.
type Intent struct {
	Query     string
	Mode      types.PlayMode
	History   bool
	Feed      bool
	Subscribe bool
}

// Orchestrator runs the state machine. It owns at most one Session and
// one child process at a time.
type Orchestrator struct {
	disc    Discoverer
	sel     selector.Selector
	launch  Launcher
	dl      Downloader
	history HistoryStore
	subs    SubscriptionStore
	keys    KeySource

	in    *bufio.Reader
	out   io.Writer
	log   *slog.Logger
	limit int
	after func(time.Duration) <-chan time.Time

	// menuReachable is false when entry came from a direct CLI action;
	// cancellation then ends the program cleanly instead of looping.
	menuReachable bool
}

// New builds an Orchestrator, defaulting unset ambient fields.
func New(cfg Config) *Orchestrator {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = scrape.DefaultLimit
	}
	if cfg.TimerAfter == nil {
		cfg.TimerAfter = time.After
	}
	if cfg.Keys == nil {
		cfg.Keys = NewStdinKeys(nil)
	}
	return &Orchestrator{
		disc:    cfg.Discovery,
		sel:     cfg.Selector,
		launch:  cfg.Launcher,
		dl:      cfg.Downloader,
		history: cfg.History,
		subs:    cfg.Subscriptions,
		keys:    cfg.Keys,
		in:      bufio.NewReader(cfg.Input),
		out:     cfg.Output,
		log:     cfg.Logger,
		limit:   cfg.Limit,
		after:   cfg.TimerAfter,
	}
}

// Run drives the machine from the intent to StateExit. A nil return is
// overall program success; download failures are reported, not returned.
func (o *Orchestrator) Run(ctx context.Context, intent Intent) error {
	state := o.initialState(intent)
	o.menuReachable = state == StateMenu

	var (
		results  *types.ResultSet
		selected types.VideoRecord
		haveSel  bool
	)

	for state != StateExit {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.log.Debug("state", "state", state.String())

		switch state {
		case StateMenu:
			state = o.runMenu()

		case StateSearching:
			set, next, err := o.runSearch(ctx, intent.Query)
			if err != nil {
				return err
			}
			intent.Query = "" // A repeated search prompts fresh.
			results, state = set, next

		case StateHistory:
			results, state = o.runHistory()

		case StateFeed:
			set, next, err := o.runFeed(ctx)
			if err != nil {
				return err
			}
			results, state = set, next

		case StateSubscribe:
			next, err := o.runSubscribe(ctx, intent.Query)
			if err != nil {
				return err
			}
			intent.Query = ""
			state = next

		case StateSelecting:
			rec, ok := o.runSelecting(results)
			if !ok {
				state = o.recoverState()
				continue
			}
			selected, haveSel = rec, true
			if intent.Mode.IsDownload() {
				state = StateDownloading
			} else {
				state = StatePlaying
			}

		case StatePlaying:
			if !haveSel {
				state = StateExit
				continue
			}
			if err := o.runPlayback(ctx, types.NewSession(selected, intent.Mode)); err != nil {
				return err
			}
			state = StateExit

		case StateDownloading:
			if !haveSel {
				state = StateExit
				continue
			}
			if err := o.runDownload(ctx, types.NewSession(selected, intent.Mode)); err != nil {
				return err
			}
			state = StateExit

		default:
			state = StateExit
		}
	}
	return nil
}

func (o *Orchestrator) initialState(intent Intent) State {
	switch {
	case intent.History:
		return StateHistory
	case intent.Feed:
		return StateFeed
	case intent.Subscribe:
		return StateSubscribe
	case strings.TrimSpace(intent.Query) != "":
		return StateSearching
	default:
		return StateMenu
	}
}

var menuEntries = []struct {
	label string
	state State
}{
	{"Search YouTube", StateSearching},
	{"View your history", StateHistory},
	{"View your feed", StateFeed},
	{"Add subscription", StateSubscribe},
}

func (o *Orchestrator) runMenu() State {
	labels := make([]string, len(menuEntries))
	for i, e := range menuEntries {
		labels[i] = e.label
	}
	idx, err := o.sel.Select(labels, "Select action")
	if err != nil {
		return StateExit
	}
	return menuEntries[idx].state
}

func (o *Orchestrator) runSearch(ctx context.Context, query string) (*types.ResultSet, State, error) {
	if strings.TrimSpace(query) == "" {
		var err error
		query, err = o.promptLine("Search YouTube: ")
		if err != nil || strings.TrimSpace(query) == "" {
			return nil, o.recoverState(), nil
		}
	}

	fmt.Fprintln(o.out, "Searching...")
	set, err := o.disc.Search(ctx, query, o.limit)
	if err != nil {
		return nil, o.reportRecoverable("search failed", err), nil
	}
	return set, StateSelecting, nil
}

func (o *Orchestrator) runHistory() (*types.ResultSet, State) {
	entries := o.history.All()
	if len(entries) == 0 {
		fmt.Fprintln(o.out, "No history yet.")
		return nil, o.recoverState()
	}
	records := make([]types.VideoRecord, len(entries))
	for i, e := range entries {
		records[i] = e.Record
	}
	return &types.ResultSet{Query: "history", CreatedAt: time.Now(), Records: records}, StateSelecting
}

func (o *Orchestrator) runFeed(ctx context.Context) (*types.ResultSet, State, error) {
	subs, err := o.subs.Load()
	if err != nil {
		return nil, o.reportRecoverable("could not read subscriptions", err), nil
	}
	if len(subs) == 0 {
		fmt.Fprintln(o.out, "No subscriptions yet. Add one with --subscribe.")
		return nil, o.recoverState(), nil
	}

	fmt.Fprintln(o.out, "Fetching your feed...")
	set, err := feed.Aggregate(ctx, o.disc, subs, o.limit, o.log)
	if err != nil {
		return nil, o.reportRecoverable("feed failed", err), nil
	}
	return set, StateSelecting, nil
}

func (o *Orchestrator) runSubscribe(ctx context.Context, channel string) (State, error) {
	if strings.TrimSpace(channel) == "" {
		var err error
		channel, err = o.promptLine("Channel (@handle or UC id): ")
		if err != nil || strings.TrimSpace(channel) == "" {
			return o.recoverState(), nil
		}
	}
	channel = strings.TrimSpace(channel)

	// Fetching the channel's uploads both validates the identifier and
	// yields a display name.
	set, err := o.disc.ChannelVideos(ctx, channel)
	if err != nil {
		return o.reportRecoverable("channel not reachable", err), nil
	}
	name := channel
	if len(set.Records) > 0 && set.Records[0].Author != "" {
		name = set.Records[0].Author
	}
	if err := o.subs.Add(storage.Subscription{Name: name, Handle: channel}); err != nil {
		return o.reportRecoverable("could not save subscription", err), nil
	}

	fmt.Fprintf(o.out, "Subscribed to %s.\n", name)
	if o.menuReachable {
		return StateMenu, nil
	}
	return StateExit, nil
}

func (o *Orchestrator) runSelecting(results *types.ResultSet) (types.VideoRecord, bool) {
	if results == nil || len(results.Records) == 0 {
		return types.VideoRecord{}, false
	}
	labels := make([]string, len(results.Records))
	for i, rec := range results.Records {
		labels[i] = selector.FormatLabel(rec)
	}

	idx, err := o.sel.Select(labels, "Select video")
	if err != nil {
		if !errors.Is(err, selector.ErrCancelled) {
			o.log.Warn("selector failed", "err", err)
		}
		// Cancellation returns to the menu, never a hard exit, unless
		// the menu was never reachable to begin with.
		return types.VideoRecord{}, false
	}
	rec := results.Records[idx]
	o.log.Debug("selected", "id", rec.ID, "title", rec.Title)
	return rec, true
}

// runPlayback owns the child process for the session lifetime and
// multiplexes the three event sources: process exit, key presses, and
// the status timer.
func (o *Orchestrator) runPlayback(ctx context.Context, session types.Session) error {
	proc, err := o.launch.Launch(ctx, session.Record, session.Mode)
	if err != nil {
		if errors.Is(err, types.ErrToolMissing) {
			fmt.Fprintf(o.out, "Error: %v. Please install it.\n", err)
			return err
		}
		fmt.Fprintf(o.out, "Error: %v\n", err)
		return err
	}
	o.log.Info("session started", "session", session.ID, "id", session.Record.ID, "mode", session.Mode)

	fmt.Fprintln(o.out, "⏳ Buffering... convincing YouTube to share the goods.")
	defer fmt.Fprintln(o.out, "👋 Thanks for chilling.")

	timer := o.after(nowPlayingDelay)

	// The key source touches stdin (and the terminal mode) only for the
	// playback span; before and after, the prompts own it.
	keys := o.keys.Keys()
	defer func() { _ = o.keys.Close() }()

	for {
		select {
		case playErr := <-proc.Done():
			return o.finishPlayback(session, playErr)

		case b, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if b == quitKey || b == ctrlCKey {
				_ = proc.Terminate()
				playErr := <-proc.Done()
				return o.finishPlayback(session, playErr)
			}
			if err := proc.SendKey(b); err != nil {
				o.log.Debug("key forward failed", "err", err)
			}

		case <-timer:
			// Fires once; a nil channel never fires again.
			timer = nil
			fmt.Fprintln(o.out, "🎵 Now playing. Sit back and chill. (space=pause, arrows=seek, q=quit)")

		case <-ctx.Done():
			_ = proc.Terminate()
			<-proc.Done()
			return ctx.Err()
		}
	}
}

func (o *Orchestrator) finishPlayback(session types.Session, playErr error) error {
	if playErr != nil {
		fmt.Fprintf(o.out, "Playback ended with an error: %v\n", playErr)
		o.log.Warn("playback failed", "session", session.ID, "err", playErr)
		return nil
	}
	if err := o.history.Add(session.Record, session.Mode); err != nil {
		o.log.Warn("history write failed", "err", err)
	}
	return nil
}

func (o *Orchestrator) runDownload(ctx context.Context, session types.Session) error {
	fmt.Fprintf(o.out, "Downloading: %s\n", session.Record.Title)
	err := o.dl.Download(ctx, session.Record, session.Mode)
	switch {
	case err == nil:
		fmt.Fprintln(o.out, "✓ Download complete.")
		if hErr := o.history.Add(session.Record, session.Mode); hErr != nil {
			o.log.Warn("history write failed", "err", hErr)
		}
		return nil
	case errors.Is(err, types.ErrToolMissing):
		fmt.Fprintf(o.out, "Error: %v. Please install it.\n", err)
		return err
	default:
		// A failed download is reported, never fatal to the program.
		fmt.Fprintf(o.out, "Download failed: %v\n", err)
		return nil
	}
}

// reportRecoverable prints the error and picks the safe continuation
// state: the menu when it exists, otherwise a clean exit.
func (o *Orchestrator) reportRecoverable(msg string, err error) State {
	fmt.Fprintf(o.out, "Error: %s: %v\n", msg, err)
	o.log.Warn(msg, "err", err)
	return o.recoverState()
}

func (o *Orchestrator) recoverState() State {
	if o.menuReachable {
		return StateMenu
	}
	return StateExit
}

func (o *Orchestrator) promptLine(prompt string) (string, error) {
	fmt.Fprint(o.out, prompt)
	line, err := o.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
