package youtube

import (
	"context"
	"fmt"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/internal/util"
	"github.com/enzo-prism/density/pkg/errors"
	"go.uber.org/zap"
)

// IngestOptions bounds a single pass over an uploads playlist. The rank
// window is optional; when set, uploads inside it are also collected into
// RankedUploads up to RankCap, in feed order.
type IngestOptions struct {
	PlaylistID        string
	Location          *time.Location
	StartDayIndex     int
	EndDayIndex       int
	RankStartDayIndex *int
	RankEndDayIndex   *int
	RankCap           int
	Deadline          time.Time
}

// IngestUploads pages through the playlist newest-first and stops as soon as
// a page's oldest upload predates every window of interest.
func (s *Service) IngestUploads(ctx context.Context, opts IngestOptions) (*domain.IngestResult, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	rankCap := opts.RankCap
	if rankCap <= 0 {
		rankCap = constants.IngestionConfig.RankCap
	}

	hasRank := opts.RankStartDayIndex != nil && opts.RankEndDayIndex != nil
	stopBefore := opts.StartDayIndex
	if hasRank {
		stopBefore = min(stopBefore, *opts.RankStartDayIndex)
	}

	result := &domain.IngestResult{
		DayCounts:     make(map[string]int),
		Uploads:       make([]domain.Upload, 0),
		RankedUploads: make([]domain.Upload, 0),
	}

	pageToken := ""
	for {
		if err := s.checkpoint(ctx, opts.Deadline, "Timed out while listing channel uploads.", "ingestion"); err != nil {
			return nil, err
		}

		page, err := s.api.ListUploads(ctx, opts.PlaylistID, pageToken)
		if err != nil {
			return nil, err
		}
		result.PagesFetched++

		oldest, seen := 0, false
		for _, item := range page.Items {
			if item.VideoID == "" || item.PublishedAt == "" {
				continue
			}
			publishedAt, err := time.Parse(time.RFC3339, item.PublishedAt)
			if err != nil {
				continue
			}

			localDate := util.CivilDateIn(publishedAt, loc)
			dayIndex := util.DayIndex(localDate)
			if !seen || dayIndex < oldest {
				oldest, seen = dayIndex, true
			}

			upload := domain.Upload{
				VideoID:     item.VideoID,
				PublishedAt: publishedAt,
				LocalDate:   localDate,
				DayIndex:    dayIndex,
			}

			if dayIndex >= opts.StartDayIndex && dayIndex <= opts.EndDayIndex {
				result.DayCounts[localDate]++
				result.Uploads = append(result.Uploads, upload)
			}

			if hasRank && len(result.RankedUploads) < rankCap &&
				dayIndex >= *opts.RankStartDayIndex && dayIndex <= *opts.RankEndDayIndex {
				result.RankedUploads = append(result.RankedUploads, upload)
			}
		}

		if page.NextPageToken == "" {
			break
		}
		if seen && oldest < stopBefore {
			break
		}
		pageToken = page.NextPageToken
	}

	s.logger.Debug("Upload ingestion completed",
		zap.String("playlist_id", opts.PlaylistID),
		zap.Int("pages", result.PagesFetched),
		zap.Int("uploads", len(result.Uploads)),
		zap.Int("ranked", len(result.RankedUploads)))

	return result, nil
}

// checkpoint fails once the caller goes away or the shared deadline passes.
// A context deadline counts as a timeout; only an explicit cancel is reported
// as cancellation.
func (s *Service) checkpoint(ctx context.Context, deadline time.Time, message, stage string) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.NewTimeoutError(message, stage)
		}
		return fmt.Errorf("%s cancelled: %w", stage, err)
	}
	if !deadline.IsZero() && !s.now().Before(deadline) {
		return errors.NewTimeoutError(message, stage)
	}
	return nil
}
