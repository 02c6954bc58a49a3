package domain

import "time"

// Upload is one video from the uploads playlist, bucketed into a local date.
type Upload struct {
	VideoID     string    `json:"videoId"`
	PublishedAt time.Time `json:"publishedAt"`
	LocalDate   string    `json:"localDate"`
	DayIndex    int       `json:"dayIndex"`
}

// IngestResult holds everything collected from a single pass over the uploads playlist.
type IngestResult struct {
	DayCounts     map[string]int
	Uploads       []Upload
	RankedUploads []Upload
	PagesFetched  int
}

type VideoStats struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

type VideoPerformance struct {
	VideoStats
	Title           string `json:"title"`
	DurationSeconds int64  `json:"durationSeconds"`
}
