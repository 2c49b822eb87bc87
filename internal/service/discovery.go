package service

import (
	"context"
	"errors"
	"fmt"

	"royale-meta/internal/api"
	"royale-meta/internal/config"
	"royale-meta/internal/constants"
	"royale-meta/internal/domain"
	"royale-meta/internal/tags"

	"github.com/rs/zerolog"
)

// DiscoveryService walks the player -> recent opponents graph breadth-first,
// collecting tags until every trophy bucket holds the target sample size.
type DiscoveryService struct {
	client  ClashClient
	cfg     *config.Config
	buckets domain.Buckets
	logger  zerolog.Logger
}

func NewDiscoveryService(client ClashClient, cfg *config.Config, logger zerolog.Logger) *DiscoveryService {
	return &DiscoveryService{
		client:  client,
		cfg:     cfg,
		buckets: domain.NewBuckets(cfg.BucketBounds),
		logger:  logger,
	}
}

// DiscoveryResult is the outcome of one crawl: the discovered tags per
// bucket, plus bookkeeping on failed lookups.
type DiscoveryResult struct {
	Buckets      domain.Buckets
	TagsByBucket [][]string
	Processed    int
	Failed       int
}

func (r *DiscoveryResult) Total() int {
	n := 0
	for _, b := range r.TagsByBucket {
		n += len(b)
	}
	return n
}

// Run crawls and persists the discovered tag set to the configured file.
func (s *DiscoveryService) Run(ctx context.Context) (*DiscoveryResult, error) {
	result, err := s.Crawl(ctx)
	if err != nil {
		return nil, err
	}
	if err := tags.Write(s.cfg.TagFile, s.buckets, result.TagsByBucket); err != nil {
		return nil, err
	}
	s.logger.Info().Str("path", s.cfg.TagFile).Int("tags", result.Total()).Msg("tag file written")
	return result, nil
}

// seedBucket marks a queue entry whose trophy bucket is not yet known; it is
// resolved with one profile lookup when the entry is dequeued.
const seedBucket = -1

type queueEntry struct {
	tag    string
	bucket int
}

// Crawl runs the breadth-first walk. A tag is processed at most once across
// the whole run, and bucket membership is fixed at first-discovery time. A
// failed lookup never aborts the crawl; the tag is logged and skipped.
func (s *DiscoveryService) Crawl(ctx context.Context) (*DiscoveryResult, error) {
	target := s.cfg.TargetPerBucket
	n := len(s.buckets)

	queues := make([][]queueEntry, n)
	discovered := make([][]string, n)
	var seedQueue []queueEntry

	queued := make(map[string]bool)
	visited := make(map[string]bool)

	for _, seed := range s.cfg.SeedTags {
		tag := domain.NormalizeTag(seed)
		if tag == "" || queued[tag] {
			continue
		}
		queued[tag] = true
		seedQueue = append(seedQueue, queueEntry{tag: tag, bucket: seedBucket})
	}
	if len(seedQueue) == 0 {
		return nil, errors.New("no seed tags configured")
	}

	s.logger.Info().
		Int("seeds", len(seedQueue)).
		Int("buckets", n).
		Int("target_per_bucket", target).
		Msg("starting tag discovery")

	result := &DiscoveryResult{Buckets: s.buckets}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, ok := s.next(&seedQueue, queues, discovered, target)
		if !ok {
			break
		}
		if visited[entry.tag] {
			continue
		}
		visited[entry.tag] = true
		result.Processed++

		bucket := entry.bucket
		if bucket == seedBucket {
			profile, err := s.client.GetPlayer(ctx, entry.tag)
			if err != nil {
				s.logger.Warn().Err(err).Str("tag", entry.tag).Msg("seed lookup failed, skipping")
				result.Failed++
				continue
			}
			bucket = s.buckets.IndexFor(profile.Trophies)
		}

		if len(discovered[bucket]) < target {
			discovered[bucket] = append(discovered[bucket], entry.tag)
			s.logger.Info().
				Str("tag", entry.tag).
				Str("bucket", s.buckets[bucket].Label()).
				Int("filled", len(discovered[bucket])).
				Int("target", target).
				Msg("tag discovered")
		}

		battles, err := s.client.GetBattleLog(ctx, entry.tag)
		if err != nil {
			s.logger.Warn().Err(err).Str("tag", entry.tag).Msg("battle log fetch failed, skipping")
			result.Failed++
			continue
		}

		for _, battle := range battles {
			for _, opponent := range battle.Opponent {
				s.enqueueOpponent(queues, discovered, queued, entry.tag, opponent, target)
			}
		}

		if result.Processed%constants.ProgressLogEvery == 0 {
			s.logProgress(discovered, target)
		}
	}

	result.TagsByBucket = discovered
	for i, b := range s.buckets {
		if len(discovered[i]) < target {
			s.logger.Warn().
				Str("bucket", b.Label()).
				Int("discovered", len(discovered[i])).
				Int("target", target).
				Msg("bucket below target, reachable graph exhausted")
		}
	}
	s.logger.Info().
		Int("total", result.Total()).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Msg("discovery complete")

	return result, nil
}

func (s *DiscoveryService) enqueueOpponent(queues [][]queueEntry, discovered [][]string, queued map[string]bool, selfTag string, opponent api.BattleLogPlayer, target int) {
	tag := domain.NormalizeTag(opponent.Tag)
	if tag == "" || tag == selfTag || queued[tag] {
		return
	}
	bucket := s.buckets.IndexFor(opponent.StartingTrophies)
	if len(discovered[bucket]) >= target {
		return
	}
	queued[tag] = true
	queues[bucket] = append(queues[bucket], queueEntry{tag: tag, bucket: bucket})
}

// next picks the pending tag to process. Seeds drain first; after that the
// bucket with the lowest fill ratio among those still below target and with
// pending work wins, lower bucket on ties.
func (s *DiscoveryService) next(seedQueue *[]queueEntry, queues [][]queueEntry, discovered [][]string, target int) (queueEntry, bool) {
	if len(*seedQueue) > 0 {
		entry := (*seedQueue)[0]
		*seedQueue = (*seedQueue)[1:]
		return entry, true
	}

	best := -1
	var bestRatio float64
	for i := range queues {
		if len(queues[i]) == 0 || len(discovered[i]) >= target {
			continue
		}
		ratio := float64(len(discovered[i])) / float64(target)
		if best == -1 || ratio < bestRatio {
			best = i
			bestRatio = ratio
		}
	}
	if best == -1 {
		return queueEntry{}, false
	}

	entry := queues[best][0]
	queues[best] = queues[best][1:]
	return entry, true
}

func (s *DiscoveryService) logProgress(discovered [][]string, target int) {
	ev := s.logger.Info()
	for i, b := range s.buckets {
		ev = ev.Str(b.Label(), fmt.Sprintf("%d/%d", len(discovered[i]), target))
	}
	ev.Msg("discovery progress")
}
