package feed

import (
	"testing"

	"github.com/vidsift/vidsift/internal/youtube"
)

func vids(ids ...string) []youtube.VideoItem {
	items := make([]youtube.VideoItem, len(ids))
	for i, id := range ids {
		items[i] = youtube.VideoItem{ID: id}
	}
	return items
}

func idList(items []youtube.VideoItem) []string {
	ids := make([]string, len(items))
	for i, v := range items {
		ids[i] = v.ID
	}
	return ids
}

func assertOrder(t *testing.T, got []youtube.VideoItem, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", idList(got), want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("got %v, want %v", idList(got), want)
		}
	}
}

func TestInterleaveRoundRobin_VisitsGroupsByRound(t *testing.T) {
	merged := interleaveRoundRobin([][]youtube.VideoItem{
		vids("a1", "a2", "a3"),
		vids("b1", "b2"),
		vids("c1"),
	})

	assertOrder(t, merged, []string{"a1", "b1", "c1", "a2", "b2", "a3"})
}

func TestInterleaveRoundRobin_DuplicateKeepsFirstSeenPosition(t *testing.T) {
	merged := interleaveRoundRobin([][]youtube.VideoItem{
		vids("x", "a2"),
		vids("x", "b2"),
	})

	assertOrder(t, merged, []string{"x", "a2", "b2"})
}

func TestInterleaveRoundRobin_SkipsEmptyGroups(t *testing.T) {
	merged := interleaveRoundRobin([][]youtube.VideoItem{
		nil,
		vids("a1", "a2"),
		nil,
	})

	assertOrder(t, merged, []string{"a1", "a2"})
}

func TestInterleaveRatio_ThreeToOne(t *testing.T) {
	merged := interleaveRatio(
		vids("s1", "s2", "s3", "s4", "s5", "s6"),
		vids("r1", "r2"),
		3,
	)

	assertOrder(t, merged, []string{"s1", "s2", "s3", "r1", "s4", "s5", "s6", "r2"})
}

func TestInterleaveRatio_DrainsLongerSide(t *testing.T) {
	merged := interleaveRatio(vids("s1"), vids("r1", "r2", "r3"), 3)

	assertOrder(t, merged, []string{"s1", "r1", "r2", "r3"})
}

func TestInterleaveRatio_DedupesAcrossSides(t *testing.T) {
	merged := interleaveRatio(
		vids("s1", "dup", "s3"),
		vids("dup", "r2"),
		3,
	)

	assertOrder(t, merged, []string{"s1", "dup", "s3", "r2"})
}
