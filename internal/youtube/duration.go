package youtube

import (
	"regexp"
	"strconv"
)

var durationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseDuration converts an ISO 8601 period like "PT1H2M3S" to seconds.
// Malformed or empty input yields 0.
func ParseDuration(iso string) int {
	if iso == "" {
		return 0
	}
	match := durationPattern.FindStringSubmatch(iso)
	if match == nil {
		return 0
	}
	h, _ := strconv.Atoi(match[1])
	m, _ := strconv.Atoi(match[2])
	s, _ := strconv.Atoi(match[3])
	return h*3600 + m*60 + s
}
