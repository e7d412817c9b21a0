package policy

import (
	"testing"

	"github.com/vidsift/vidsift/internal/youtube"
)

func TestIsShortForm_DurationBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    bool
	}{
		{"unknown duration is not short-form", 0, false},
		{"one second is short-form", 1, true},
		{"exactly sixty seconds is short-form", 60, true},
		{"sixty-one seconds is not short-form", 61, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := youtube.VideoItem{ID: "v", Title: "regular title", DurationSeconds: tt.seconds}
			if got := IsShortForm(v); got != tt.want {
				t.Errorf("IsShortForm(%ds) = %v, want %v", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestIsShortForm_TitleMarker(t *testing.T) {
	long := youtube.VideoItem{Title: "My day at the beach #Shorts", DurationSeconds: 600}
	if !IsShortForm(long) {
		t.Error("a long video tagged #Shorts should still count as short-form")
	}

	singular := youtube.VideoItem{Title: "quick tip #SHORT", DurationSeconds: 600}
	if !IsShortForm(singular) {
		t.Error("the singular #short marker should count as short-form")
	}

	plain := youtube.VideoItem{Title: "short documentary about shortages", DurationSeconds: 600}
	if IsShortForm(plain) {
		t.Error("the word 'short' without a hash marker should not count as short-form")
	}
}

func TestBlocklist_MatchesTitleAndChannel(t *testing.T) {
	filter := NewFilter(NewBlocklist([]string{"spoiler", `clickbait|ragebait`}))

	if !filter.IsBlocked(youtube.VideoItem{Title: "Huge SPOILER inside"}) {
		t.Error("blocklist matching should be case-insensitive on titles")
	}
	if !filter.IsBlocked(youtube.VideoItem{Title: "ok", ChannelTitle: "Ragebait Central"}) {
		t.Error("blocklist should match channel titles too")
	}
	if filter.IsBlocked(youtube.VideoItem{Title: "calm cooking video", ChannelTitle: "Kitchen"}) {
		t.Error("unrelated video should not be blocked")
	}
}

func TestBlocklist_InvalidPatternFallsBackToLiteral(t *testing.T) {
	filter := NewFilter(NewBlocklist([]string{"[broken"}))

	if !filter.IsBlocked(youtube.VideoItem{Title: "this [broken thing"}) {
		t.Error("a pattern that fails to compile should still match literally")
	}
	if filter.IsBlocked(youtube.VideoItem{Title: "fine video"}) {
		t.Error("literal fallback should not match unrelated titles")
	}
}

func TestApply_RemovesBlockedUnconditionally(t *testing.T) {
	filter := NewFilter(NewBlocklist([]string{"banned"}))
	items := []youtube.VideoItem{
		{ID: "a", Title: "fine", DurationSeconds: 300},
		{ID: "b", Title: "BANNED content", DurationSeconds: 300},
	}

	got := filter.Apply(items, Options{})
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("blocked item should be removed even with short-form filter off, got %v", got)
	}
}

func TestApply_ShortFormOnlyWhenEnabled(t *testing.T) {
	filter := NewFilter(NewBlocklist(nil))
	items := []youtube.VideoItem{
		{ID: "long", Title: "long video", DurationSeconds: 300},
		{ID: "short", Title: "clip", DurationSeconds: 30},
	}

	kept := filter.Apply(items, Options{ExcludeShortForm: false})
	if len(kept) != 2 {
		t.Errorf("short-form items should survive when the filter is off, got %d items", len(kept))
	}

	filtered := filter.Apply(items, Options{ExcludeShortForm: true})
	if len(filtered) != 1 || filtered[0].ID != "long" {
		t.Errorf("short-form items should be removed when the filter is on, got %v", filtered)
	}
}

func TestApply_NeverReturnsShortFormWhenEnabled(t *testing.T) {
	filter := NewFilter(NewBlocklist(nil))
	items := []youtube.VideoItem{
		{ID: "a", Title: "ok", DurationSeconds: 61},
		{ID: "b", Title: "ok", DurationSeconds: 60},
		{ID: "c", Title: "tagged #shorts", DurationSeconds: 0},
		{ID: "d", Title: "ok", DurationSeconds: 1},
		{ID: "e", Title: "ok", DurationSeconds: 0},
	}

	for _, v := range filter.Apply(items, Options{ExcludeShortForm: true}) {
		if IsShortForm(v) {
			t.Errorf("filtered feed must not contain short-form item %s", v.ID)
		}
	}
}

func TestApply_DropsHiddenVideos(t *testing.T) {
	filter := NewFilter(NewBlocklist(nil))
	items := []youtube.VideoItem{
		{ID: "keep", Title: "ok", DurationSeconds: 300},
		{ID: "hidden", Title: "ok", DurationSeconds: 300},
	}

	got := filter.Apply(items, Options{HiddenIDs: []string{"hidden"}})
	if len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("hidden video should be removed from the feed, got %v", got)
	}
}

func TestApply_PreservesOrder(t *testing.T) {
	filter := NewFilter(NewBlocklist(nil))
	items := []youtube.VideoItem{
		{ID: "1", DurationSeconds: 300},
		{ID: "2", DurationSeconds: 300},
		{ID: "3", DurationSeconds: 300},
	}

	got := filter.Apply(items, Options{})
	for i, want := range []string{"1", "2", "3"} {
		if got[i].ID != want {
			t.Fatalf("filtering must preserve order, position %d = %s", i, got[i].ID)
		}
	}
}
