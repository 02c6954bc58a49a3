package analysis

import (
	"context"

	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/internal/util"
	"github.com/enzo-prism/density/pkg/errors"
)

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// BuildPerformance aggregates per-video metrics by local day and weekday.
// Uploads without metrics are skipped rather than counted as zero.
func BuildPerformance(uploads []domain.Upload, perf map[string]domain.VideoPerformance) domain.Performance {
	days := make(map[string]domain.PerformanceTotals)
	videos := make([]domain.VideoPoint, 0, len(uploads))
	totals := domain.PerformanceTotals{}
	var buckets [7][]int64

	for _, upload := range uploads {
		p, ok := perf[upload.VideoID]
		if !ok {
			continue
		}

		videos = append(videos, domain.VideoPoint{
			ID:              upload.VideoID,
			Title:           p.Title,
			PublishedAt:     upload.PublishedAt,
			LocalDate:       upload.LocalDate,
			Views:           p.Views,
			Likes:           p.Likes,
			Comments:        p.Comments,
			DurationSeconds: p.DurationSeconds,
		})

		day := days[upload.LocalDate]
		day.Views += p.Views
		day.Likes += p.Likes
		day.Comments += p.Comments
		days[upload.LocalDate] = day

		totals.Views += p.Views
		totals.Likes += p.Likes
		totals.Comments += p.Comments

		wd := util.Weekday(upload.LocalDate)
		buckets[wd] = append(buckets[wd], p.Views)
	}

	weekdays := make([]domain.WeekdayStat, 0, len(weekdayLabels))
	for wd, label := range weekdayLabels {
		weekdays = append(weekdays, domain.WeekdayStat{
			Weekday:     wd,
			Label:       label,
			VideoCount:  len(buckets[wd]),
			MedianViews: util.MedianRounded(buckets[wd]),
		})
	}

	return domain.Performance{
		Status:   domain.PerformanceOK,
		Days:     days,
		Videos:   videos,
		Weekdays: weekdays,
		Totals:   &totals,
	}
}

// UnavailablePerformance describes why the performance block is missing.
func UnavailablePerformance(err error) domain.Performance {
	message := "Performance data is temporarily unavailable."

	var timeoutErr *errors.TimeoutError
	var apiErr *errors.APIError
	switch {
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		message = "Performance data request timed out. Please try again."
	case errors.As(err, &apiErr) && apiErr.IsQuota():
		message = "Performance data unavailable due to YouTube API limits."
	case errors.As(err, &apiErr):
		message = "Performance data could not be loaded right now."
	}

	return domain.Performance{
		Status:  domain.PerformanceUnavailable,
		Message: message,
	}
}
