package domain

type StreakStats struct {
	TotalPosts     int     `json:"totalPosts"`
	CurrentStreak  int     `json:"currentStreak"`
	LongestStreak  int     `json:"longestStreak"`
	LastPostedDate *string `json:"lastPostedDate"`
}
