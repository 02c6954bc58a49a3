package domain

type RankStatus string

const (
	RankStatusOK          RankStatus = "ok"
	RankStatusPostingOnly RankStatus = "posting_only"
)

type NextTier struct {
	Name         *string `json:"name"`
	PointsToNext int     `json:"pointsToNext"`
}

type RankBreakdown struct {
	Cadence     int `json:"cadence"`
	Consistency int `json:"consistency"`
	Impact      int `json:"impact"`
	Engagement  int `json:"engagement"`
}

type RankMetrics struct {
	PostsPerWeek        float64  `json:"postsPerWeek"`
	DaysPostedPct       float64  `json:"daysPostedPct"`
	ActiveWeeksPct      float64  `json:"activeWeeksPct"`
	MaxGapDays          int      `json:"maxGapDays"`
	MedianViews         *int64   `json:"medianViews,omitempty"`
	MedianLikesPer1k    *float64 `json:"medianLikesPer1k,omitempty"`
	MedianCommentsPer1k *float64 `json:"medianCommentsPer1k,omitempty"`
}

// RankResult is the density rank for the trailing ranking window.
type RankResult struct {
	Status     RankStatus    `json:"status"`
	WindowDays int           `json:"windowDays"`
	Score      int           `json:"score"`
	Grade      string        `json:"grade"`
	Tier       string        `json:"tier"`
	NextTier   NextTier      `json:"nextTier"`
	Breakdown  RankBreakdown `json:"breakdown"`
	Metrics    RankMetrics   `json:"metrics"`
	Highlights []string      `json:"highlights"`
	Quests     []string      `json:"quests"`
	Disclaimer string        `json:"disclaimer"`
}
