package adapter

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/pkg/errors"
)

const (
	maxTitleRunes = 48
	topVideoCount = 3
)

// ReportFormatter renders analysis results as plain-text reports.
type ReportFormatter struct {
	width int
}

// NewReportFormatter creates a formatter whose section rules are width runes long.
func NewReportFormatter(width int) *ReportFormatter {
	if width <= 0 {
		width = 40
	}
	return &ReportFormatter{width: width}
}

// FormatReport formats a full analysis into a multi-section report
func (f *ReportFormatter) FormatReport(resp *domain.AnalyzeResponse) string {
	if resp == nil {
		return "No analysis available."
	}

	var sb strings.Builder
	sb.WriteString(f.formatHeader(resp))
	sb.WriteString("\n\n")
	sb.WriteString(f.FormatStreaks(resp.Stats))
	sb.WriteString("\n\n")
	sb.WriteString(f.FormatRank(resp.Rank))
	sb.WriteString("\n\n")
	sb.WriteString(f.FormatPerformance(resp.Performance))

	return strings.TrimSpace(sb.String())
}

func (f *ReportFormatter) formatHeader(resp *domain.AnalyzeResponse) string {
	var sb strings.Builder
	title := resp.Channel.Title
	if resp.Channel.Handle != "" {
		title = fmt.Sprintf("%s (%s)", title, resp.Channel.Handle)
	}
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", f.width) + "\n")
	sb.WriteString(fmt.Sprintf("Window: %s to %s (%d days, %s)", resp.StartDate, resp.EndDate, resp.LookbackDays, resp.Timezone))
	return sb.String()
}

// FormatStreaks formats posting totals and streaks
func (f *ReportFormatter) FormatStreaks(stats domain.StreakStats) string {
	var sb strings.Builder
	sb.WriteString(f.section("Posting"))
	sb.WriteString(fmt.Sprintf("Uploads: %d\n", stats.TotalPosts))
	sb.WriteString(fmt.Sprintf("Current streak: %s\n", pluralDays(stats.CurrentStreak)))
	sb.WriteString(fmt.Sprintf("Longest streak: %s\n", pluralDays(stats.LongestStreak)))
	if stats.LastPostedDate != nil {
		sb.WriteString(fmt.Sprintf("Last upload: %s", *stats.LastPostedDate))
	} else {
		sb.WriteString("Last upload: none in window")
	}
	return sb.String()
}

// FormatRank formats the density rank with its breakdown, highlights and quests
func (f *ReportFormatter) FormatRank(rank domain.RankResult) string {
	var sb strings.Builder
	sb.WriteString(f.section(fmt.Sprintf("Density rank (last %d days)", rank.WindowDays)))
	sb.WriteString(fmt.Sprintf("%d/100  grade %s  tier %s\n", rank.Score, rank.Grade, rank.Tier))
	if rank.NextTier.Name != nil {
		sb.WriteString(fmt.Sprintf("Next tier: %s in %d points\n", *rank.NextTier.Name, rank.NextTier.PointsToNext))
	} else {
		sb.WriteString("Top tier reached\n")
	}

	b := rank.Breakdown
	sb.WriteString(fmt.Sprintf("Cadence %d  Consistency %d", b.Cadence, b.Consistency))
	if rank.Status == domain.RankStatusOK {
		sb.WriteString(fmt.Sprintf("  Impact %d  Engagement %d", b.Impact, b.Engagement))
	} else {
		sb.WriteString("  (posting only)")
	}
	sb.WriteString("\n")

	for _, h := range rank.Highlights {
		sb.WriteString("+ " + h + "\n")
	}
	for _, q := range rank.Quests {
		sb.WriteString("> " + q + "\n")
	}
	if rank.Disclaimer != "" {
		sb.WriteString(rank.Disclaimer)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatPerformance formats view totals, the best weekday and top videos
func (f *ReportFormatter) FormatPerformance(perf domain.Performance) string {
	var sb strings.Builder
	sb.WriteString(f.section("Performance"))

	if perf.Status != domain.PerformanceOK {
		sb.WriteString(perf.Message)
		return sb.String()
	}

	if perf.Totals != nil {
		sb.WriteString(fmt.Sprintf("Views %s  Likes %s  Comments %s\n",
			humanize.Comma(perf.Totals.Views), humanize.Comma(perf.Totals.Likes), humanize.Comma(perf.Totals.Comments)))
	}

	if best, ok := bestWeekday(perf.Weekdays); ok {
		sb.WriteString(fmt.Sprintf("Best weekday: %s (median %s views over %d videos)\n", best.Label, humanize.Comma(best.MedianViews), best.VideoCount))
	}

	videos := append([]domain.VideoPoint(nil), perf.Videos...)
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Views > videos[j].Views })
	for i, v := range videos {
		if i == topVideoCount {
			break
		}
		sb.WriteString(fmt.Sprintf("%d. %s  %s views  %s\n", i+1, truncateTitle(v.Title), humanize.Comma(v.Views), v.LocalDate))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// FormatError renders a failed analysis for terminal output. Application
// errors show their user-facing message; rate limits add the wait.
func (f *ReportFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	message, ok := errors.UserMessage(err)
	if !ok {
		message = err.Error()
	}

	var rlErr *errors.RateLimitError
	if errors.As(err, &rlErr) && rlErr.RetryAfter > 0 {
		seconds := max(int(math.Ceil(rlErr.RetryAfter.Seconds())), 1)
		message = fmt.Sprintf("%s (retry in %ds)", message, seconds)
	}
	return message
}

// Helper methods

func (f *ReportFormatter) section(title string) string {
	return title + "\n" + strings.Repeat("-", f.width) + "\n"
}

func bestWeekday(weekdays []domain.WeekdayStat) (domain.WeekdayStat, bool) {
	var (
		best  domain.WeekdayStat
		found bool
	)
	for _, w := range weekdays {
		if w.VideoCount == 0 {
			continue
		}
		if !found || w.MedianViews > best.MedianViews {
			best, found = w, true
		}
	}
	return best, found
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return string(runes[:maxTitleRunes-3]) + "..."
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
