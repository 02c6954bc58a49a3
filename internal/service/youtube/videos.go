package youtube

import (
	"context"
	"math"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/internal/util"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const defaultVideoTitle = "Untitled video"

// FetchStats returns view/like/comment counts for the given videos. Videos
// missing from the upstream response are absent from the map.
func (s *Service) FetchStats(ctx context.Context, ids []string, deadline time.Time) (map[string]domain.VideoStats, error) {
	batches, err := s.fetchBatches(ctx, ids, deadline, false)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]domain.VideoStats)
	for _, batch := range batches {
		for _, record := range batch {
			stats[record.ID] = toStats(record)
		}
	}
	return stats, nil
}

// FetchPerformance is FetchStats plus title and duration.
func (s *Service) FetchPerformance(ctx context.Context, ids []string, deadline time.Time) (map[string]domain.VideoPerformance, error) {
	batches, err := s.fetchBatches(ctx, ids, deadline, true)
	if err != nil {
		return nil, err
	}

	perf := make(map[string]domain.VideoPerformance)
	for _, batch := range batches {
		for _, record := range batch {
			title := record.Title
			if title == "" {
				title = defaultVideoTitle
			}
			perf[record.ID] = domain.VideoPerformance{
				VideoStats:      toStats(record),
				Title:           title,
				DurationSeconds: ParseISODuration(record.Duration),
			}
		}
	}
	return perf, nil
}

// fetchBatches splits ids into upstream-sized batches and runs them on a
// bounded pool. Each batch writes only its own slot.
func (s *Service) fetchBatches(ctx context.Context, ids []string, deadline time.Time, detailed bool) ([][]VideoRecord, error) {
	unique := make([]string, 0, len(ids))
	for _, id := range util.UniqueStrings(ids) {
		if id != "" {
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, nil
	}

	batches := chunk(unique, constants.BatchConfig.MaxIDsPerCall)
	results := make([][]VideoRecord, len(batches))

	p := pool.New().
		WithMaxGoroutines(s.concurrency).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for idx, batch := range batches {
		p.Go(func(ctx context.Context) error {
			if err := s.checkpoint(ctx, deadline, "Timed out while fetching video statistics.", "video_stats"); err != nil {
				return err
			}

			records, err := s.api.ListVideos(ctx, batch, detailed)
			if err != nil {
				return err
			}
			results[idx] = records
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		s.logger.Warn("Video batch fetch failed",
			zap.Int("ids", len(unique)),
			zap.Int("batches", len(batches)),
			zap.Bool("detailed", detailed),
			zap.Error(err))
		return nil, err
	}

	return results, nil
}

func chunk(ids []string, size int) [][]string {
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

func toStats(record VideoRecord) domain.VideoStats {
	return domain.VideoStats{
		Views:    clampCount(record.Views),
		Likes:    clampCount(record.Likes),
		Comments: clampCount(record.Comments),
	}
}

func clampCount(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
