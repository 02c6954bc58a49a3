package youtube

import (
	"regexp"
	"strconv"
)

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts a video duration such as "PT1H2M3S" or
// "P1DT5M" into seconds. Empty or malformed input yields 0.
func ParseISODuration(value string) int64 {
	m := isoDurationPattern.FindStringSubmatch(value)
	if m == nil {
		return 0
	}

	units := [...]int64{86400, 3600, 60, 1}
	var total int64
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}
