// Package youtube provides a client for the YouTube Data API v3.
//
// This package enables vidsift to:
// - Fetch popular videos by region and category
// - Search videos and batch-fetch full details
// - Read the authenticated user's subscriptions and liked videos
// - Record API quota cost per request
package youtube

import "time"

// VideoItem is a single video as vidsift sees it. Identity is ID; items
// fetched from different endpoints for the same video are interchangeable.
type VideoItem struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ChannelID       string    `json:"channel_id"`
	ChannelTitle    string    `json:"channel_title"`
	Thumbnail       string    `json:"thumbnail"`
	PublishedAt     time.Time `json:"published_at"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	DurationSeconds int       `json:"duration_seconds"`
}

// ChannelSummary describes a channel as shown on channel and
// subscription views.
type ChannelSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	SubscriberCount int64  `json:"subscriber_count"`
	VideoCount      int64  `json:"video_count"`
	Thumbnail       string `json:"thumbnail"`
	Banner          string `json:"banner"`
}

// SearchParams configures a Search call.
type SearchParams struct {
	Query      string
	PageToken  string
	MaxResults int
	Region     string
}

// SearchPage is one page of lightweight search results. Items carry
// snippet data only; statistics and duration require a detail fetch.
type SearchPage struct {
	Items         []VideoItem
	NextPageToken string
}

// SubscriptionsPage is one page of the authenticated user's subscriptions.
type SubscriptionsPage struct {
	Channels      []ChannelSummary
	NextPageToken string
}

// ChannelIDs returns the channel identifiers of the page in order.
func (p *SubscriptionsPage) ChannelIDs() []string {
	ids := make([]string, 0, len(p.Channels))
	for _, ch := range p.Channels {
		ids = append(ids, ch.ID)
	}
	return ids
}
