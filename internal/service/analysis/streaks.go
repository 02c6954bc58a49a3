package analysis

import (
	"slices"

	"github.com/enzo-prism/density/internal/domain"
	"github.com/enzo-prism/density/internal/util"
)

// ComputeStreaks derives posting streaks from per-day upload counts. The
// current streak ends on the anchor date, or on the day before it when the
// anchor day has no upload yet.
func ComputeStreaks(dayCounts map[string]int, anchor string) domain.StreakStats {
	stats := domain.StreakStats{}

	posted := make(map[int]struct{}, len(dayCounts))
	indices := make([]int, 0, len(dayCounts))
	for date, count := range dayCounts {
		if count <= 0 {
			continue
		}
		stats.TotalPosts += count
		idx := util.DayIndex(date)
		if _, dup := posted[idx]; dup {
			continue
		}
		posted[idx] = struct{}{}
		indices = append(indices, idx)
	}

	if len(indices) == 0 {
		return stats
	}
	slices.Sort(indices)

	longest, run := 1, 1
	for i := 1; i < len(indices); i++ {
		if indices[i] == indices[i-1]+1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	stats.LongestStreak = longest

	last := util.DateFromIndex(indices[len(indices)-1])
	stats.LastPostedDate = &last

	anchorIdx := util.DayIndex(anchor)
	cursor, ok := anchorIdx, false
	if _, hit := posted[anchorIdx]; hit {
		ok = true
	} else if _, hit := posted[anchorIdx-1]; hit {
		cursor, ok = anchorIdx-1, true
	}
	if ok {
		for {
			if _, hit := posted[cursor]; !hit {
				break
			}
			stats.CurrentStreak++
			cursor--
		}
	}

	return stats
}
