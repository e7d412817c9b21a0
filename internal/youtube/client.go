package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// maxBatchSize is the upstream limit on ids per videos.list call.
const maxBatchSize = 50

// Quota cost in units per operation. Search is billed at 100 units,
// everything else at 1, charged on request regardless of the outcome.
const (
	costList   = 1
	costSearch = 100
)

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// QuotaRecorder receives the unit cost of every request before it is sent.
type QuotaRecorder interface {
	Add(units int)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTokenSource sets the bearer token source for authenticated operations.
// An empty string means no token is available.
func WithTokenSource(token func() string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithQuotaRecorder sets the quota cost recorder.
func WithQuotaRecorder(quota QuotaRecorder) ClientOption {
	return func(c *Client) {
		c.quota = quota
	}
}

// Client is a YouTube Data API client.
type Client struct {
	apiKey     func() string
	token      func() string
	quota      QuotaRecorder
	baseURL    string
	httpClient HTTPClient
}

// NewClient creates a new YouTube API client. apiKey is consulted on every
// request so key changes take effect without rebuilding the client.
func NewClient(apiKey func() string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		token:      func() string { return "" },
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TestAPIKey probes a candidate API key with a minimal popular-videos
// request. The probe is not charged against the quota meter.
func (c *Client) TestAPIKey(ctx context.Context, key string) error {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", "JP")
	params.Set("maxResults", "1")
	params.Set("key", key)

	_, err := c.get(ctx, "/videos?"+params.Encode(), false)
	return err
}

// PopularByCategory retrieves the region's most popular videos, optionally
// narrowed to a category. An empty categoryID means all categories.
func (c *Client) PopularByCategory(ctx context.Context, region, categoryID string, maxResults int) ([]VideoItem, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", region)
	params.Set("maxResults", strconv.Itoa(maxResults))
	if categoryID != "" {
		params.Set("videoCategoryId", categoryID)
	}

	c.charge(costList)
	body, err := c.get(ctx, "/videos?"+params.Encode(), false)
	if err != nil {
		return nil, err
	}

	var response videoListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse popular videos response: %w", err)
	}

	return mapVideoList(response), nil
}

// Search retrieves one page of lightweight search results.
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchPage, error) {
	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", p.Query)
	params.Set("type", "video")
	params.Set("videoDuration", "medium")
	params.Set("order", "relevance")
	params.Set("regionCode", p.Region)
	params.Set("maxResults", strconv.Itoa(maxResults))
	if p.PageToken != "" {
		params.Set("pageToken", p.PageToken)
	}

	c.charge(costSearch)
	body, err := c.get(ctx, "/search?"+params.Encode(), false)
	if err != nil {
		return nil, err
	}

	return parseSearchPage(body)
}

// ChannelSearch retrieves one page of a channel's uploads, newest first.
func (c *Client) ChannelSearch(ctx context.Context, channelID, pageToken string, maxResults int) (*SearchPage, error) {
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("type", "video")
	params.Set("videoDuration", "medium")
	params.Set("order", "date")
	params.Set("maxResults", strconv.Itoa(maxResults))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	c.charge(costSearch)
	body, err := c.get(ctx, "/search?"+params.Encode(), false)
	if err != nil {
		return nil, err
	}

	return parseSearchPage(body)
}

// VideosByIDs batch-fetches full details for the given video ids. Sets
// larger than the upstream batch limit are split into chunks of 50 and
// the chunk results concatenated in dispatch order.
func (c *Client) VideosByIDs(ctx context.Context, ids []string) ([]VideoItem, error) {
	videos := make([]VideoItem, 0, len(ids))
	for start := 0; start < len(ids); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		params := url.Values{}
		params.Set("part", "snippet,contentDetails,statistics")
		params.Set("id", strings.Join(ids[start:end], ","))

		c.charge(costList)
		body, err := c.get(ctx, "/videos?"+params.Encode(), false)
		if err != nil {
			return nil, err
		}

		var response videoListResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("failed to parse video details response: %w", err)
		}
		videos = append(videos, mapVideoList(response)...)
	}

	return videos, nil
}

// VideoByID fetches full details for a single video, or nil if the
// upstream no longer knows it.
func (c *Client) VideoByID(ctx context.Context, id string) (*VideoItem, error) {
	videos, err := c.VideosByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, nil
	}
	return &videos[0], nil
}

// Channel retrieves channel metadata, or nil if the channel does not exist.
func (c *Client) Channel(ctx context.Context, channelID string) (*ChannelSummary, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics,brandingSettings")
	params.Set("id", channelID)

	c.charge(costList)
	body, err := c.get(ctx, "/channels?"+params.Encode(), false)
	if err != nil {
		return nil, err
	}

	var response channelListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse channel response: %w", err)
	}
	if len(response.Items) == 0 {
		return nil, nil
	}

	item := response.Items[0]
	subs, _ := strconv.ParseInt(item.Statistics.SubscriberCount, 10, 64)
	videoCount, _ := strconv.ParseInt(item.Statistics.VideoCount, 10, 64)
	return &ChannelSummary{
		ID:              item.ID,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		SubscriberCount: subs,
		VideoCount:      videoCount,
		Thumbnail:       item.Snippet.Thumbnails.pick(),
		Banner:          item.BrandingSettings.Image.BannerExternalURL,
	}, nil
}

// ActivitiesForChannel returns video ids of the channel's recent uploads.
func (c *Client) ActivitiesForChannel(ctx context.Context, channelID string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("channelId", channelID)
	params.Set("maxResults", strconv.Itoa(maxResults))

	c.charge(costList)
	body, err := c.get(ctx, "/activities?"+params.Encode(), false)
	if err != nil {
		return nil, err
	}

	var response activitiesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse activities response: %w", err)
	}

	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Snippet.Type == "upload" && item.ContentDetails.Upload.VideoID != "" {
			ids = append(ids, item.ContentDetails.Upload.VideoID)
		}
	}
	return ids, nil
}

// Subscriptions retrieves one page of the authenticated user's
// subscriptions in alphabetical order. Requires a bearer token.
func (c *Client) Subscriptions(ctx context.Context, pageToken string) (*SubscriptionsPage, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("mine", "true")
	params.Set("maxResults", "50")
	params.Set("order", "alphabetical")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	c.charge(costList)
	body, err := c.get(ctx, "/subscriptions?"+params.Encode(), true)
	if err != nil {
		return nil, err
	}

	var response subscriptionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse subscriptions response: %w", err)
	}

	channels := make([]ChannelSummary, 0, len(response.Items))
	for _, item := range response.Items {
		channels = append(channels, ChannelSummary{
			ID:          item.Snippet.ResourceID.ChannelID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			Thumbnail:   item.Snippet.Thumbnails.pick(),
		})
	}

	return &SubscriptionsPage{Channels: channels, NextPageToken: response.NextPageToken}, nil
}

// LikedVideos retrieves the user's most recently liked videos with full
// details. Requires a bearer token.
func (c *Client) LikedVideos(ctx context.Context, maxResults int) ([]VideoItem, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("myRating", "like")
	params.Set("maxResults", strconv.Itoa(maxResults))

	c.charge(costList)
	body, err := c.get(ctx, "/videos?"+params.Encode(), true)
	if err != nil {
		return nil, err
	}

	var response videoListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse liked videos response: %w", err)
	}

	return mapVideoList(response), nil
}

func (c *Client) charge(units int) {
	if c.quota != nil {
		c.quota.Add(units)
	}
}

// get performs a GET against the API. Authenticated requests must carry a
// bearer token and fail before any I/O when none is available; the API key
// is appended to every request unless already present.
func (c *Client) get(ctx context.Context, endpoint string, authenticated bool) ([]byte, error) {
	token := ""
	if authenticated {
		token = c.token()
		if token == "" {
			return nil, &AuthRequiredError{}
		}
	}

	requestURL := c.baseURL + endpoint
	if !strings.Contains(requestURL, "key=") {
		sep := "&"
		if !strings.Contains(requestURL, "?") {
			sep = "?"
		}
		requestURL += sep + "key=" + url.QueryEscape(c.apiKey())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body),
		}
	}

	return body, nil
}

// upstreamMessage extracts the human-readable message from an API error
// body, or "" when the body is not the documented error envelope.
func upstreamMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}

func parseSearchPage(body []byte) (*SearchPage, error) {
	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	items := make([]VideoItem, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ID.VideoID == "" {
			continue
		}
		publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		items = append(items, VideoItem{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelID:    item.Snippet.ChannelID,
			ChannelTitle: item.Snippet.ChannelTitle,
			Thumbnail:    item.Snippet.Thumbnails.pick(),
			PublishedAt:  publishedAt,
		})
	}

	return &SearchPage{Items: items, NextPageToken: response.NextPageToken}, nil
}

func mapVideoList(response videoListResponse) []VideoItem {
	videos := make([]VideoItem, 0, len(response.Items))
	for _, item := range response.Items {
		publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		viewCount, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
		likeCount, _ := strconv.ParseInt(item.Statistics.LikeCount, 10, 64)
		videos = append(videos, VideoItem{
			ID:              item.ID,
			Title:           item.Snippet.Title,
			Description:     item.Snippet.Description,
			ChannelID:       item.Snippet.ChannelID,
			ChannelTitle:    item.Snippet.ChannelTitle,
			Thumbnail:       item.Snippet.Thumbnails.pick(),
			PublishedAt:     publishedAt,
			ViewCount:       viewCount,
			LikeCount:       likeCount,
			DurationSeconds: ParseDuration(item.ContentDetails.Duration),
		})
	}
	return videos
}

// API response types (private - implementation detail)

type thumbnailSet struct {
	Medium struct {
		URL string `json:"url"`
	} `json:"medium"`
	High struct {
		URL string `json:"url"`
	} `json:"high"`
	Default struct {
		URL string `json:"url"`
	} `json:"default"`
}

// pick prefers the medium rendition, then high, then default.
func (t thumbnailSet) pick() string {
	if t.Medium.URL != "" {
		return t.Medium.URL
	}
	if t.High.URL != "" {
		return t.High.URL
	}
	return t.Default.URL
}

type videoSnippet struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	ChannelID    string       `json:"channelId"`
	ChannelTitle string       `json:"channelTitle"`
	PublishedAt  string       `json:"publishedAt"`
	Thumbnails   thumbnailSet `json:"thumbnails"`
}

type videoListResponse struct {
	Items []struct {
		ID         string       `json:"id"`
		Snippet    videoSnippet `json:"snippet"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet videoSnippet `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string       `json:"title"`
			Description string       `json:"description"`
			Thumbnails  thumbnailSet `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
		BrandingSettings struct {
			Image struct {
				BannerExternalURL string `json:"bannerExternalUrl"`
			} `json:"image"`
		} `json:"brandingSettings"`
	} `json:"items"`
}

type activitiesResponse struct {
	Items []struct {
		Snippet struct {
			Type string `json:"type"`
		} `json:"snippet"`
		ContentDetails struct {
			Upload struct {
				VideoID string `json:"videoId"`
			} `json:"upload"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type subscriptionsResponse struct {
	Items []struct {
		Snippet struct {
			ResourceID struct {
				ChannelID string `json:"channelId"`
			} `json:"resourceId"`
			Title       string       `json:"title"`
			Description string       `json:"description"`
			Thumbnails  thumbnailSet `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}
