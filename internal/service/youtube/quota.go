package youtube

import (
	"sync"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/enzo-prism/density/pkg/errors"
	"go.uber.org/zap"
)

// QuotaTracker keeps a local estimate of the daily YouTube quota. The budget
// resets at midnight Pacific time, matching the upstream accounting.
type QuotaTracker struct {
	limit    int
	margin   int
	used     int
	resetAt  time.Time
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
	mu       sync.Mutex
}

func NewQuotaTracker(limit int, logger *zap.Logger) *QuotaTracker {
	if limit <= 0 {
		limit = constants.QuotaConfig.DailyLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(constants.QuotaConfig.ResetTimezone)
	if err != nil {
		loc = time.UTC
	}

	margin := constants.QuotaConfig.SafetyMargin
	if margin >= limit {
		margin = 0
	}

	qt := &QuotaTracker{
		limit:    limit,
		margin:   margin,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
	qt.resetAt = qt.nextReset()
	return qt
}

func (q *QuotaTracker) nextReset() time.Time {
	now := q.now().In(q.location)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, q.location)
}

// Consume reserves cost units, failing with a 429 API error once the budget
// minus the safety margin is spent.
func (q *QuotaTracker) Consume(cost int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.now().Before(q.resetAt) {
		q.used = 0
		q.resetAt = q.nextReset()
		q.logger.Info("YouTube API quota auto-reset",
			zap.Time("next_reset", q.resetAt))
	}

	if q.used+cost > q.limit-q.margin {
		return errors.NewAPIError("YouTube API quota exhausted.", 429, map[string]any{
			"used":       q.used,
			"limit":      q.limit,
			"requested":  cost,
			"reset_time": q.resetAt.Format(time.RFC3339),
		})
	}

	q.used += cost
	remaining := q.limit - q.used
	if remaining < q.margin*2 {
		q.logger.Warn("YouTube API quota running low",
			zap.Int("remaining", remaining),
			zap.Time("reset_time", q.resetAt))
	}
	return nil
}

// Status returns used and remaining units along with the next reset.
func (q *QuotaTracker) Status() (used int, remaining int, resetAt time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.now().Before(q.resetAt) {
		return 0, q.limit, q.nextReset()
	}
	return q.used, q.limit - q.used, q.resetAt
}
