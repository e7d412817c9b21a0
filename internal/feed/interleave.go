package feed

import "github.com/vidsift/vidsift/internal/youtube"

// interleaveRoundRobin merges the groups by round index: round i visits
// every group in declared order and appends its i-th item if present.
// Duplicate video ids keep their first-seen position only.
func interleaveRoundRobin(groups [][]youtube.VideoItem) []youtube.VideoItem {
	maxLen := 0
	total := 0
	for _, g := range groups {
		total += len(g)
		if len(g) > maxLen {
			maxLen = len(g)
		}
	}

	seen := make(map[string]struct{}, total)
	merged := make([]youtube.VideoItem, 0, total)
	for i := 0; i < maxLen; i++ {
		for _, g := range groups {
			if i >= len(g) {
				continue
			}
			v := g[i]
			if _, ok := seen[v.ID]; ok {
				continue
			}
			seen[v.ID] = struct{}{}
			merged = append(merged, v)
		}
	}
	return merged
}

// interleaveRatio merges primary and secondary by taking up to ratio
// items from primary then one from secondary, repeating until both are
// exhausted. Deduplication by id spans the whole merged sequence.
func interleaveRatio(primary, secondary []youtube.VideoItem, ratio int) []youtube.VideoItem {
	seen := make(map[string]struct{}, len(primary)+len(secondary))
	merged := make([]youtube.VideoItem, 0, len(primary)+len(secondary))

	take := func(v youtube.VideoItem) {
		if _, ok := seen[v.ID]; ok {
			return
		}
		seen[v.ID] = struct{}{}
		merged = append(merged, v)
	}

	pi, si := 0, 0
	for pi < len(primary) || si < len(secondary) {
		for k := 0; k < ratio && pi < len(primary); k++ {
			take(primary[pi])
			pi++
		}
		if si < len(secondary) {
			take(secondary[si])
			si++
		}
	}
	return merged
}
