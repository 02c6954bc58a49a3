package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

type RangeKind string

const (
	RangeDays     RangeKind = "days"
	RangeLifetime RangeKind = "lifetime"
)

// AnalyzeRequest is a validated-at-the-edge analysis request. Days is only
// meaningful for RangeDays and has already been clamped.
type AnalyzeRequest struct {
	ChannelReference string
	Timezone         string
	Range            RangeKind
	Days             int
	ClientID         string
}

// WindowKey is the cache-key fragment for the requested window.
func (r AnalyzeRequest) WindowKey() string {
	if r.Range == RangeLifetime {
		return string(RangeLifetime)
	}
	return strconv.Itoa(r.Days)
}

type PerformanceStatus string

const (
	PerformanceOK          PerformanceStatus = "ok"
	PerformanceUnavailable PerformanceStatus = "unavailable"
)

type PerformanceTotals struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

type VideoPoint struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	PublishedAt     time.Time `json:"publishedAt"`
	LocalDate       string    `json:"localDate"`
	Views           int64     `json:"views"`
	Likes           int64     `json:"likes"`
	Comments        int64     `json:"comments"`
	DurationSeconds int64     `json:"durationSeconds"`
}

type WeekdayStat struct {
	Weekday     int    `json:"weekday"`
	Label       string `json:"label"`
	VideoCount  int    `json:"videoCount"`
	MedianViews int64  `json:"medianViews"`
}

// Performance is either a full block (Status ok) or an unavailable marker
// with a human-readable Message.
type Performance struct {
	Status   PerformanceStatus            `json:"status"`
	Days     map[string]PerformanceTotals `json:"days,omitempty"`
	Videos   []VideoPoint                 `json:"videos,omitempty"`
	Weekdays []WeekdayStat                `json:"weekdays,omitempty"`
	Totals   *PerformanceTotals           `json:"totals,omitempty"`
	Message  string                       `json:"message,omitempty"`
}

// MarshalJSON emits only status and message for an unavailable block, and
// always emits the aggregate fields, empty or not, for an ok block.
func (p Performance) MarshalJSON() ([]byte, error) {
	if p.Status != PerformanceOK {
		return json.Marshal(struct {
			Status  PerformanceStatus `json:"status"`
			Message string            `json:"message"`
		}{p.Status, p.Message})
	}

	days := p.Days
	if days == nil {
		days = map[string]PerformanceTotals{}
	}
	videos := p.Videos
	if videos == nil {
		videos = []VideoPoint{}
	}
	weekdays := p.Weekdays
	if weekdays == nil {
		weekdays = []WeekdayStat{}
	}
	totals := PerformanceTotals{}
	if p.Totals != nil {
		totals = *p.Totals
	}

	return json.Marshal(struct {
		Status   PerformanceStatus            `json:"status"`
		Days     map[string]PerformanceTotals `json:"days"`
		Videos   []VideoPoint                 `json:"videos"`
		Weekdays []WeekdayStat                `json:"weekdays"`
		Totals   PerformanceTotals            `json:"totals"`
	}{p.Status, days, videos, weekdays, totals})
}

type AnalyzeResponse struct {
	Channel      ChannelInfo    `json:"channel"`
	Timezone     string         `json:"timezone"`
	LookbackDays int            `json:"lookbackDays"`
	StartDate    string         `json:"startDate"`
	EndDate      string         `json:"endDate"`
	Days         map[string]int `json:"days"`
	Stats        StreakStats    `json:"stats"`
	Performance  Performance    `json:"performance"`
	Rank         RankResult     `json:"rank"`
}

// Degraded reports whether any enrichment step fell back to partial data.
func (r *AnalyzeResponse) Degraded() bool {
	return r.Performance.Status != PerformanceOK || r.Rank.Status != RankStatusOK
}

// NormalizeTimes moves every timestamp back to UTC. Decoders that restore
// instants in the host zone call it so a cached response renders the same as
// a fresh one.
func (r *AnalyzeResponse) NormalizeTimes() {
	for i := range r.Performance.Videos {
		r.Performance.Videos[i].PublishedAt = r.Performance.Videos[i].PublishedAt.UTC()
	}
}
