package analysis

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/internal/util"
)

const (
	rankDisclaimer   = "Not affiliated with YouTube; based on public data."
	defaultHighlight = "Building momentum"
	defaultQuest     = "Stay consistent for the next boost"

	maxHighlights = 4
	maxQuests     = 3
)

type cadencePoint struct {
	postsPerWeek float64
	score        float64
}

var cadenceCurve = []cadencePoint{
	{0, 0},
	{0.5, 10},
	{1, 18},
	{2, 28},
	{4, 36},
	{7, 40},
}

type tier struct {
	name     string
	minScore int
}

var tiers = []tier{
	{"Vacuum", 0},
	{"Mist", 20},
	{"Solid", 35},
	{"Alloy", 50},
	{"Diamond", 65},
	{"Neutron Star", 80},
	{"Black Hole", 90},
}

var grades = []struct {
	minScore int
	grade    string
}{
	{97, "A+"},
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{60, "D"},
}

// RankInput is everything the scorer needs. Stats may be nil or empty, in
// which case the result is posting_only.
type RankInput struct {
	WindowDays    int
	EndDate       string
	DayCounts     map[string]int
	RankedUploads []domain.Upload
	Stats         map[string]domain.VideoStats
}

type postingMetrics struct {
	postsPerWeek   float64
	daysPostedPct  float64
	activeWeeksPct float64
	maxGapDays     int
}

// ComputeRank scores posting density over the trailing window ending on EndDate.
func ComputeRank(in RankInput) domain.RankResult {
	windowDays := max(1, in.WindowDays)
	endIdx := util.DayIndex(in.EndDate)
	startIdx := endIdx - windowDays + 1

	posting := measurePosting(in.DayCounts, startIdx, endIdx, windowDays)
	cadence := scoreCadence(posting.postsPerWeek)
	consistency := scoreConsistency(posting.activeWeeksPct, posting.daysPostedPct, posting.maxGapDays)

	status := domain.RankStatusPostingOnly
	var medianViews, medianLikes, medianComments, impact, engagement float64
	if len(in.Stats) > 0 {
		views := make([]float64, 0, len(in.RankedUploads))
		likesPer1k := make([]float64, 0, len(in.RankedUploads))
		commentsPer1k := make([]float64, 0, len(in.RankedUploads))
		for _, upload := range in.RankedUploads {
			s, ok := in.Stats[upload.VideoID]
			if !ok {
				continue
			}
			views = append(views, float64(s.Views))
			if s.Views > 0 {
				likesPer1k = append(likesPer1k, float64(s.Likes)/float64(s.Views)*1000)
				commentsPer1k = append(commentsPer1k, float64(s.Comments)/float64(s.Views)*1000)
			}
		}
		medianViews = util.Median(views)
		medianLikes = util.Median(likesPer1k)
		medianComments = util.Median(commentsPer1k)
		impact = scoreImpact(medianViews)
		engagement = scoreEngagement(medianLikes, medianComments)
		status = domain.RankStatusOK
	}

	score := util.Clamp(int(math.Round(cadence+consistency+impact+engagement)), 0, 100)
	tierName, next := mapTier(score)

	result := domain.RankResult{
		Status:     status,
		WindowDays: windowDays,
		Score:      score,
		Grade:      mapGrade(score),
		Tier:       tierName,
		NextTier:   next,
		Breakdown: domain.RankBreakdown{
			Cadence:     int(math.Round(cadence)),
			Consistency: int(math.Round(consistency)),
			Impact:      int(math.Round(impact)),
			Engagement:  int(math.Round(engagement)),
		},
		Metrics: domain.RankMetrics{
			PostsPerWeek:   util.RoundTo(posting.postsPerWeek, 1),
			DaysPostedPct:  util.RoundTo(posting.daysPostedPct, 3),
			ActiveWeeksPct: util.RoundTo(posting.activeWeeksPct, 3),
			MaxGapDays:     posting.maxGapDays,
		},
		Disclaimer: rankDisclaimer,
	}

	if status == domain.RankStatusOK {
		mv := int64(math.Round(medianViews))
		ml := util.RoundTo(medianLikes, 2)
		mc := util.RoundTo(medianComments, 2)
		result.Metrics.MedianViews = &mv
		result.Metrics.MedianLikesPer1k = &ml
		result.Metrics.MedianCommentsPer1k = &mc
	}

	result.Highlights = highlights(posting, status, medianViews)
	result.Quests = quests(posting, status, impact)
	return result
}

func measurePosting(dayCounts map[string]int, startIdx, endIdx, windowDays int) postingMetrics {
	total := 0
	posted := make(map[int]struct{})
	for date, count := range dayCounts {
		idx := util.DayIndex(date)
		if idx < startIdx || idx > endIdx || count <= 0 {
			continue
		}
		posted[idx] = struct{}{}
		total += count
	}

	totalWeeks := max(1, (windowDays+6)/7)
	active := make([]bool, totalWeeks)
	for idx := range posted {
		if week := (idx - startIdx) / 7; week >= 0 && week < totalWeeks {
			active[week] = true
		}
	}
	activeWeeks := 0
	for _, a := range active {
		if a {
			activeWeeks++
		}
	}

	maxGap, gap := 0, 0
	for idx := startIdx; idx <= endIdx; idx++ {
		if _, ok := posted[idx]; ok {
			maxGap = max(maxGap, gap)
			gap = 0
		} else {
			gap++
		}
	}
	maxGap = max(maxGap, gap)

	return postingMetrics{
		postsPerWeek:   float64(total) / (float64(windowDays) / 7),
		daysPostedPct:  float64(len(posted)) / float64(windowDays),
		activeWeeksPct: float64(activeWeeks) / float64(totalWeeks),
		maxGapDays:     maxGap,
	}
}

// scoreCadence interpolates linearly between curve points and saturates at
// the last one. A value exactly on a point scores that point.
func scoreCadence(postsPerWeek float64) float64 {
	if postsPerWeek <= cadenceCurve[0].postsPerWeek {
		return 0
	}
	for i := 1; i < len(cadenceCurve); i++ {
		prev, next := cadenceCurve[i-1], cadenceCurve[i]
		if postsPerWeek <= next.postsPerWeek {
			ratio := (postsPerWeek - prev.postsPerWeek) / (next.postsPerWeek - prev.postsPerWeek)
			return prev.score + ratio*(next.score-prev.score)
		}
	}
	return cadenceCurve[len(cadenceCurve)-1].score
}

func scoreConsistency(activeWeeksPct, daysPostedPct float64, maxGapDays int) float64 {
	base := 35 * (0.6*activeWeeksPct + 0.4*daysPostedPct)
	penalty := 0.0
	switch {
	case maxGapDays > 30:
		penalty = 18
	case maxGapDays > 14:
		penalty = 12
	case maxGapDays > 7:
		penalty = 6
	}
	return util.Clamp(base-penalty, 0, 35)
}

func scoreImpact(medianViews float64) float64 {
	if math.IsNaN(medianViews) || math.IsInf(medianViews, 0) || medianViews <= 0 {
		return 0
	}
	return util.Clamp(math.Log10(medianViews+1)/6*15, 0, 15)
}

func scoreEngagement(medianLikesPer1k, medianCommentsPer1k float64) float64 {
	return util.Clamp(medianLikesPer1k/15*8+medianCommentsPer1k/2*2, 0, 10)
}

func mapGrade(score int) string {
	for _, g := range grades {
		if score >= g.minScore {
			return g.grade
		}
	}
	return "F"
}

func mapTier(score int) (string, domain.NextTier) {
	current := 0
	for i, t := range tiers {
		if score < t.minScore {
			break
		}
		current = i
	}

	if current+1 >= len(tiers) {
		return tiers[current].name, domain.NextTier{}
	}
	next := tiers[current+1]
	name := next.name
	return tiers[current].name, domain.NextTier{
		Name:         &name,
		PointsToNext: util.Clamp(next.minScore-score, 0, 100),
	}
}

func highlights(p postingMetrics, status domain.RankStatus, medianViews float64) []string {
	out := make([]string, 0, maxHighlights)
	if p.postsPerWeek >= 1 {
		out = append(out, fmt.Sprintf("%.1f uploads/week", p.postsPerWeek))
	}
	if p.activeWeeksPct >= 0.85 {
		out = append(out, fmt.Sprintf("Active %d%% of weeks", int(math.Round(p.activeWeeksPct*100))))
	}
	if p.maxGapDays <= 7 {
		out = append(out, "No gaps longer than a week")
	} else if p.maxGapDays <= 14 {
		out = append(out, fmt.Sprintf("Longest gap %d days", p.maxGapDays))
	}
	if status == domain.RankStatusOK && medianViews > 0 {
		out = append(out, fmt.Sprintf("Median %s views/video", humanize.Comma(int64(math.Round(medianViews)))))
	}

	if len(out) == 0 {
		return []string{defaultHighlight}
	}
	return out[:min(len(out), maxHighlights)]
}

func quests(p postingMetrics, status domain.RankStatus, impact float64) []string {
	out := make([]string, 0, 4)
	if p.postsPerWeek < 2 {
		out = append(out, "Add 1 more upload day each week")
	}
	if p.maxGapDays > 7 {
		out = append(out, "Avoid gaps > 7 days for a big boost")
	}
	if p.activeWeeksPct < 0.9 {
		out = append(out, "Post at least once every week")
	}
	if status == domain.RankStatusOK && impact < 6 {
		out = append(out, "Experiment with titles/thumbnails (median views is low)")
	}

	if len(out) == 0 {
		return []string{defaultQuest}
	}
	return out[:min(len(out), maxQuests)]
}
