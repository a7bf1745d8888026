// Package feed aggregates the latest uploads across subscribed channels.
package feed

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/famomatic/ytchill/internal/storage"
	"github.com/famomatic/ytchill/internal/types"
)

// maxConcurrentFetches bounds parallel channel page fetches.
const maxConcurrentFetches = 4

// ChannelLister is the slice of the discovery service the feed needs.
type ChannelLister interface {
	ChannelVideos(ctx context.Context, channel string) (*types.ResultSet, error)
}

// Aggregate fetches every subscription's uploads concurrently and merges
// them in subscription order, truncated to limit. Individual channel
// failures are logged and skipped; Aggregate fails only when no channel
// could be fetched.
func Aggregate(ctx context.Context, lister ChannelLister, subs []storage.Subscription, limit int, log *slog.Logger) (*types.ResultSet, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(subs) == 0 {
		return nil, types.ErrNoResults
	}

	perChannel := make([]*types.ResultSet, len(subs))
	errs := make([]error, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			set, err := lister.ChannelVideos(gctx, sub.Handle)
			if err != nil {
				log.Warn("feed channel skipped", "channel", sub.Handle, "err", err)
				errs[i] = err
				return nil
			}
			perChannel[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []types.VideoRecord
	for _, set := range perChannel {
		if set != nil {
			records = append(records, set.Records...)
		}
	}
	if len(records) == 0 {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		return nil, types.ErrNoResults
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return &types.ResultSet{
		Query:     "feed",
		CreatedAt: time.Now(),
		Records:   records,
	}, nil
}
