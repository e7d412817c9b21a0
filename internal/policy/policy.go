// Package policy decides which videos are allowed into a feed.
//
// All functions are pure: they never perform I/O and treat missing fields
// as absent. The blocklist pattern set is injected configuration, not a
// compiled-in constant.
package policy

import (
	"regexp"
	"strings"

	"github.com/vidsift/vidsift/internal/youtube"
)

// shortFormMaxSeconds is the duration ceiling for short-form content.
const shortFormMaxSeconds = 60

// Options selects which optional filters Apply enforces. Blocked items
// are always removed.
type Options struct {
	ExcludeShortForm bool
	HiddenIDs        []string
}

// IsShortForm reports whether the video is short-form content: duration
// in (0, 60] seconds, or a short-form marker in the title.
func IsShortForm(v youtube.VideoItem) bool {
	if v.DurationSeconds > 0 && v.DurationSeconds <= shortFormMaxSeconds {
		return true
	}
	// "#short" also matches "#shorts"
	return strings.Contains(strings.ToLower(v.Title), "#short")
}

// Blocklist is a compiled set of case-insensitive patterns matched
// against video and channel titles.
type Blocklist struct {
	patterns []*regexp.Regexp
}

// NewBlocklist compiles the given terms. Each term is tried as a regular
// expression first; terms that fail to compile are matched literally.
func NewBlocklist(terms []string) *Blocklist {
	patterns := make([]*regexp.Regexp, 0, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + term)
		if err != nil {
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
		}
		patterns = append(patterns, re)
	}
	return &Blocklist{patterns: patterns}
}

// Matches reports whether any blocklist pattern matches text.
func (b *Blocklist) Matches(text string) bool {
	if b == nil || text == "" {
		return false
	}
	for _, re := range b.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Filter removes disallowed videos from feeds.
type Filter struct {
	blocklist *Blocklist
}

// NewFilter creates a Filter over the given blocklist.
func NewFilter(blocklist *Blocklist) *Filter {
	return &Filter{blocklist: blocklist}
}

// IsBlocked reports whether the video's title or channel title matches
// the blocklist.
func (f *Filter) IsBlocked(v youtube.VideoItem) bool {
	return f.blocklist.Matches(v.Title) || f.blocklist.Matches(v.ChannelTitle)
}

// Apply returns the videos that pass policy: blocked and hidden items are
// removed unconditionally, short-form items only when opts requests it.
// The input order is preserved.
func (f *Filter) Apply(items []youtube.VideoItem, opts Options) []youtube.VideoItem {
	hidden := make(map[string]struct{}, len(opts.HiddenIDs))
	for _, id := range opts.HiddenIDs {
		hidden[id] = struct{}{}
	}

	kept := make([]youtube.VideoItem, 0, len(items))
	for _, v := range items {
		if _, ok := hidden[v.ID]; ok {
			continue
		}
		if f.IsBlocked(v) {
			continue
		}
		if opts.ExcludeShortForm && IsShortForm(v) {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}
