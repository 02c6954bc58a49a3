package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/internal/service/youtube"
	"github.com/enzo-prism/density/internal/util"
	"github.com/enzo-prism/density/pkg/errors"
	"go.uber.org/zap"
)

// Source is the upstream data the analyzer consumes.
type Source interface {
	IngestUploads(ctx context.Context, opts youtube.IngestOptions) (*domain.IngestResult, error)
	FetchStats(ctx context.Context, ids []string, deadline time.Time) (map[string]domain.VideoStats, error)
	FetchPerformance(ctx context.Context, ids []string, deadline time.Time) (map[string]domain.VideoPerformance, error)
}

// Analyzer runs the full analysis for one resolved channel. Only ingestion
// failures fail the analysis; metric fetches degrade the result instead.
type Analyzer struct {
	source  Source
	logger  *zap.Logger
	rankCap int
	now     func() time.Time
}

func NewAnalyzer(source Source, logger *zap.Logger, rankCap int) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rankCap <= 0 {
		rankCap = constants.IngestionConfig.RankCap
	}
	return &Analyzer{
		source:  source,
		logger:  logger,
		rankCap: rankCap,
		now:     time.Now,
	}
}

// Analyze computes the response for req. The context deadline, if any, is
// the request-wide deadline checked before every page and batch.
func (a *Analyzer) Analyze(ctx context.Context, req domain.AnalyzeRequest, resolved *domain.ResolvedChannel) (*domain.AnalyzeResponse, error) {
	loc, err := util.LoadTimezone(req.Timezone)
	if err != nil {
		return nil, err
	}

	window, err := a.window(req, resolved, loc)
	if err != nil {
		return nil, err
	}

	rankWindowDays := util.Clamp(window.Days, constants.IngestionConfig.RankMinDays, constants.IngestionConfig.RankMaxDays)
	rankStart := window.EndDayIndex - rankWindowDays + 1
	rankEnd := window.EndDayIndex
	deadline, _ := ctx.Deadline()

	ingest, err := a.source.IngestUploads(ctx, youtube.IngestOptions{
		PlaylistID:        resolved.UploadsPlaylistID,
		Location:          loc,
		StartDayIndex:     window.StartDayIndex,
		EndDayIndex:       window.EndDayIndex,
		RankStartDayIndex: &rankStart,
		RankEndDayIndex:   &rankEnd,
		RankCap:           a.rankCap,
		Deadline:          deadline,
	})
	if err != nil {
		return nil, err
	}

	streaks := ComputeStreaks(ingest.DayCounts, window.EndDate)

	var performance domain.Performance
	perfByID, perfErr := a.source.FetchPerformance(ctx, uploadIDs(ingest.Uploads), deadline)
	if perfErr != nil {
		if errors.Is(perfErr, context.Canceled) {
			return nil, perfErr
		}
		a.logger.Warn("Performance data unavailable",
			zap.String("channel_id", resolved.Channel.ID),
			zap.Error(perfErr))
		performance = UnavailablePerformance(perfErr)
		perfByID = nil
	} else {
		performance = BuildPerformance(ingest.Uploads, perfByID)
	}

	rankStats, err := a.rankStats(ctx, ingest.RankedUploads, perfByID, deadline)
	if err != nil {
		return nil, err
	}

	rank := ComputeRank(RankInput{
		WindowDays:    rankWindowDays,
		EndDate:       window.EndDate,
		DayCounts:     ingest.DayCounts,
		RankedUploads: ingest.RankedUploads,
		Stats:         rankStats,
	})

	a.logger.Info("Channel analyzed",
		zap.String("channel_id", resolved.Channel.ID),
		zap.String("timezone", req.Timezone),
		zap.Int("lookback_days", window.Days),
		zap.Int("uploads", len(ingest.Uploads)),
		zap.Int("pages", ingest.PagesFetched),
		zap.String("performance", string(performance.Status)),
		zap.String("rank", string(rank.Status)),
		zap.Int("score", rank.Score))

	return &domain.AnalyzeResponse{
		Channel:      resolved.Channel,
		Timezone:     req.Timezone,
		LookbackDays: window.Days,
		StartDate:    window.StartDate,
		EndDate:      window.EndDate,
		Days:         ingest.DayCounts,
		Stats:        streaks,
		Performance:  performance,
		Rank:         rank,
	}, nil
}

func (a *Analyzer) window(req domain.AnalyzeRequest, resolved *domain.ResolvedChannel, loc *time.Location) (util.DateWindow, error) {
	now := a.now()
	if req.Range != domain.RangeLifetime {
		days := req.Days
		if days <= 0 {
			days = util.DefaultWindowDays
		}
		return util.WindowEndingToday(loc, days, now), nil
	}

	if resolved.CreatedAt == nil || resolved.CreatedAt.IsZero() {
		return util.DateWindow{}, errors.NewLifetimeUnavailableError(resolved.Channel.ID)
	}
	return util.WindowFromStart(loc, util.CivilDateIn(*resolved.CreatedAt, loc), now), nil
}

// rankStats prefers metrics already fetched for the performance block and
// falls back to a stats-only fetch. A nil result means posting_only.
func (a *Analyzer) rankStats(ctx context.Context, ranked []domain.Upload, perf map[string]domain.VideoPerformance, deadline time.Time) (map[string]domain.VideoStats, error) {
	if perf != nil {
		stats := make(map[string]domain.VideoStats)
		for _, upload := range ranked {
			if p, ok := perf[upload.VideoID]; ok {
				stats[upload.VideoID] = p.VideoStats
			}
		}
		if len(stats) > 0 {
			return stats, nil
		}
	}

	stats, err := a.source.FetchStats(ctx, uploadIDs(ranked), deadline)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("rank stats: %w", err)
		}
		a.logger.Warn("Rank stats unavailable, scoring posting only", zap.Error(err))
		return nil, nil
	}
	return stats, nil
}

func uploadIDs(uploads []domain.Upload) []string {
	ids := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		ids = append(ids, upload.VideoID)
	}
	return util.UniqueStrings(ids)
}
