package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/famomatic/ytchill/internal/cache"
	"github.com/famomatic/ytchill/internal/discovery"
	"github.com/famomatic/ytchill/internal/download"
	"github.com/famomatic/ytchill/internal/logging"
	"github.com/famomatic/ytchill/internal/orchestrator"
	"github.com/famomatic/ytchill/internal/player"
	"github.com/famomatic/ytchill/internal/selector"
	"github.com/famomatic/ytchill/internal/storage"
	"github.com/famomatic/ytchill/internal/streamurl"
	"github.com/famomatic/ytchill/internal/types"
)

func main() {
	var (
		videoMode = flag.Bool("video", false, "Play video instead of audio only")
		doDL      = flag.Bool("download", false, "Download instead of streaming")
		history   = flag.Bool("history", false, "Pick from your watch history")
		feedFlag  = flag.Bool("feed", false, "Pick from your subscription feed")
		subscribe = flag.String("subscribe", "", "Subscribe to a channel (@handle or UC id)")
		syncplay  = flag.Bool("syncplay", false, "Play through syncplay")
		limit     = flag.Int("limit", 0, "Maximum search results (default from config)")
		copyURL   = flag.String("copy-url", "", "Print the watch URL for a video ID and exit")
		resolve   = flag.String("resolve", "", "Print the direct stream URL for a video ID and exit")
		editCfg   = flag.Bool("edit", false, "Open the config file in your editor")
		verbose   = flag.Bool("verbose", false, "Verbose logging plus a JSON debug log")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: ytchill [flags] [search query]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "With no query and no flags, ytchill opens an interactive menu.\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := storage.EnsureAppDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not create app directories: %v\n", err)
		os.Exit(1)
	}

	log, closeLog := logging.New(*verbose, storage.LogPath())
	defer closeLog()

	cfg, err := storage.LoadConfig(storage.ConfigPath())
	if err != nil {
		log.Warn("config unreadable, using defaults", "err", err)
	}

	if *editCfg {
		if err := storage.EditConfig(storage.ConfigPath(), cfg.Editor); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *copyURL != "" {
		fmt.Println(types.VideoRecord{ID: *copyURL}.WatchURL())
		return
	}
	if *resolve != "" {
		resolver := streamurl.New(streamurl.WithLogger(log))
		streamURL, err := resolver.Resolve(ctx, *resolve, *videoMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(streamURL)
		return
	}

	mode := playMode(*videoMode || cfg.VideoMode, *doDL, *syncplay)

	hist := storage.NewHistory(storage.HistoryPath(), cfg.MaxHistoryEntries)
	if err := hist.Load(); err != nil {
		log.Warn("history unreadable, starting empty", "err", err)
	}

	resultLimit := cfg.Limit
	if *limit > 0 {
		resultLimit = *limit
	}

	store := cache.New(filepath.Join(storage.CacheDir(), "pages"), cache.WithLogger(log))
	orch := orchestrator.New(orchestrator.Config{
		Discovery:     discovery.New(store, discovery.WithLogger(log)),
		Selector:      selector.Detect(),
		Launcher:      player.New(log),
		Downloader:    download.New(cfg.DownloadDir, log),
		History:       hist,
		Subscriptions: subscriptionFiles{path: storage.SubscriptionsPath()},
		Logger:        log,
		Limit:         resultLimit,
	})

	intent := orchestrator.Intent{
		Query:     strings.Join(flag.Args(), " "),
		Mode:      mode,
		History:   *history,
		Feed:      *feedFlag,
		Subscribe: *subscribe != "",
	}
	if intent.Subscribe {
		intent.Query = *subscribe
	}

	if err := orch.Run(ctx, intent); err != nil {
		if ctx.Err() != nil {
			os.Exit(130)
		}
		// Tool errors were already reported with guidance.
		if !errors.Is(err, types.ErrToolMissing) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func playMode(video, dl, sync bool) types.PlayMode {
	switch {
	case sync:
		return types.ModeSyncplay
	case dl && video:
		return types.ModeDownloadVideo
	case dl:
		return types.ModeDownloadAudio
	case video:
		return types.ModeStreamVideo
	default:
		return types.ModeStreamAudio
	}
}

// subscriptionFiles adapts the file-backed subscription helpers to the
// orchestrator's store interface.
type subscriptionFiles struct {
	path string
}

func (s subscriptionFiles) Load() ([]storage.Subscription, error) {
	return storage.LoadSubscriptions(s.path)
}

func (s subscriptionFiles) Add(sub storage.Subscription) error {
	return storage.AddSubscription(s.path, sub)
}
