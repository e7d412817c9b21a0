// Package feed aggregates YouTube listings into filtered, deduplicated,
// paginated feeds.
//
// Each public operation is a one-shot pipeline: fan out upstream calls,
// merge, filter against user policy, cache. Optional branches degrade to
// empty contributions on failure; load-bearing calls propagate typed
// gateway errors so callers can tell "no network" from "upstream
// rejected" from "authentication required".
package feed

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vidsift/vidsift/internal/cache"
	"github.com/vidsift/vidsift/internal/policy"
	"github.com/vidsift/vidsift/internal/youtube"
)

// resultTTL is how long merged pages stay valid in the response cache.
const resultTTL = 5 * time.Minute

// Caps keeping personalized-feed quota cost bounded.
const (
	maxSubscriptionChannels = 30
	activityPerChannel      = 5
	likedVideoCount         = 5
	likedSearchResults      = 5
	relatedResultCap        = 10
)

// homeCategories is the fixed category mix of the unauthenticated home
// feed, in interleave order. Category ids are the upstream's.
var homeCategories = []struct {
	ID    string
	Count int
}{
	{"", 10},   // general
	{"10", 6},  // music
	{"20", 6},  // gaming
	{"24", 6},  // entertainment
	{"25", 4},  // news
	{"17", 4},  // sports
}

// Gateway is the upstream surface the aggregator consumes.
type Gateway interface {
	PopularByCategory(ctx context.Context, region, categoryID string, maxResults int) ([]youtube.VideoItem, error)
	Search(ctx context.Context, p youtube.SearchParams) (*youtube.SearchPage, error)
	ChannelSearch(ctx context.Context, channelID, pageToken string, maxResults int) (*youtube.SearchPage, error)
	VideosByIDs(ctx context.Context, ids []string) ([]youtube.VideoItem, error)
	Channel(ctx context.Context, channelID string) (*youtube.ChannelSummary, error)
	ActivitiesForChannel(ctx context.Context, channelID string, maxResults int) ([]string, error)
	Subscriptions(ctx context.Context, pageToken string) (*youtube.SubscriptionsPage, error)
	LikedVideos(ctx context.Context, maxResults int) ([]youtube.VideoItem, error)
}

// Settings supplies the user policy consulted on every feed build.
type Settings interface {
	Region() string
	ShortFormFilterEnabled() bool
	HiddenVideos() []string
}

// Result is a finished feed page. Order encodes ranking. An empty Items
// with a nil error is a legitimate empty feed, distinct from failure.
type Result struct {
	Items         []youtube.VideoItem `json:"items"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

// AggregatorOption configures the Aggregator.
type AggregatorOption func(*Aggregator)

// WithResultCache replaces the feed result cache (useful for testing
// expiry with a fake clock).
func WithResultCache(c *cache.Cache[Result]) AggregatorOption {
	return func(a *Aggregator) {
		a.results = c
	}
}

// WithSubscriptionCache replaces the subscriptions cache.
func WithSubscriptionCache(c *cache.Cache[youtube.SubscriptionsPage]) AggregatorOption {
	return func(a *Aggregator) {
		a.subs = c
	}
}

// Aggregator owns the session's feed state: gateway, response caches,
// and policy filter. One instance per session, no hidden globals.
type Aggregator struct {
	gw       Gateway
	filter   *policy.Filter
	settings Settings
	logger   *log.Logger
	results  *cache.Cache[Result]
	subs     *cache.Cache[youtube.SubscriptionsPage]
}

// New creates an Aggregator.
func New(gw Gateway, filter *policy.Filter, settings Settings, logger *log.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		gw:       gw,
		filter:   filter,
		settings: settings,
		logger:   logger,
		results:  cache.New[Result](),
		subs:     cache.New[youtube.SubscriptionsPage](),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Home builds the unauthenticated home feed: popular videos from a fixed
// category mix, fetched concurrently and interleaved round-robin so no
// category dominates the top of the page. A failing category contributes
// nothing; the feed never fails as a whole.
func (a *Aggregator) Home(ctx context.Context) (*Result, error) {
	region := a.settings.Region()
	perCategory := make([][]youtube.VideoItem, len(homeCategories))

	var g errgroup.Group
	for i, cat := range homeCategories {
		g.Go(func() error {
			items, err := a.gw.PopularByCategory(ctx, region, cat.ID, cat.Count)
			if err != nil {
				a.logger.Printf("home feed: category %q: %v", cat.ID, err)
				return nil
			}
			perCategory[i] = items
			return nil
		})
	}
	_ = g.Wait()

	items := a.applyPolicy(interleaveRoundRobin(perCategory))
	return &Result{Items: items}, nil
}

// Trending builds a single-call popular feed for the user's region.
func (a *Aggregator) Trending(ctx context.Context, maxResults int) (*Result, error) {
	if maxResults <= 0 {
		maxResults = 25
	}
	items, err := a.gw.PopularByCategory(ctx, a.settings.Region(), "", maxResults)
	if err != nil {
		return nil, fmt.Errorf("trending feed: %w", err)
	}
	return &Result{Items: a.applyPolicy(items)}, nil
}

// Search runs a cached two-phase search: a lightweight listing page
// followed by a detail batch, joined by video id. Listing items whose
// details are gone (deleted videos) are dropped.
func (a *Aggregator) Search(ctx context.Context, query, pageToken string) (*Result, error) {
	key := "search:" + query + ":" + pageToken
	if cached, ok := a.results.Get(key); ok {
		return &cached, nil
	}

	page, err := a.gw.Search(ctx, youtube.SearchParams{
		Query:     query,
		PageToken: pageToken,
		Region:    a.settings.Region(),
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	return a.resolveListing(ctx, key, page)
}

// ChannelVideos lists a channel's uploads, newest first, via the same
// two-phase listing pipeline as Search.
func (a *Aggregator) ChannelVideos(ctx context.Context, channelID, pageToken string) (*Result, error) {
	key := "channel:" + channelID + ":" + pageToken
	if cached, ok := a.results.Get(key); ok {
		return &cached, nil
	}

	page, err := a.gw.ChannelSearch(ctx, channelID, pageToken, 20)
	if err != nil {
		return nil, fmt.Errorf("channel %s videos: %w", channelID, err)
	}

	return a.resolveListing(ctx, key, page)
}

// resolveListing turns a lightweight listing page into a cached Result.
// A page with no usable ids short-circuits to an empty result that still
// carries the upstream cursor; the detail batch is load-bearing.
func (a *Aggregator) resolveListing(ctx context.Context, key string, page *youtube.SearchPage) (*Result, error) {
	ids := idsOf(page.Items)
	if len(ids) == 0 {
		return &Result{Items: []youtube.VideoItem{}, NextPageToken: page.NextPageToken}, nil
	}

	details, err := a.gw.VideosByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching video details: %w", err)
	}

	result := Result{
		Items:         a.applyPolicy(joinDetails(page.Items, details)),
		NextPageToken: page.NextPageToken,
	}
	a.results.Set(key, result, resultTTL)
	return &result, nil
}

// Video fetches one video's full details, or nil when upstream no longer
// has it.
func (a *Aggregator) Video(ctx context.Context, id string) (*youtube.VideoItem, error) {
	items, err := a.gw.VideosByIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", id, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// Channel fetches channel metadata.
func (a *Aggregator) Channel(ctx context.Context, channelID string) (*youtube.ChannelSummary, error) {
	ch, err := a.gw.Channel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", channelID, err)
	}
	return ch, nil
}

// Related approximates related videos by searching on keywords derived
// from the source title, excluding the source video itself.
func (a *Aggregator) Related(ctx context.Context, source youtube.VideoItem) (*Result, error) {
	result, err := a.Search(ctx, keywordsFromTitle(source.Title), "")
	if err != nil {
		return nil, err
	}

	items := make([]youtube.VideoItem, 0, len(result.Items))
	for _, v := range result.Items {
		if v.ID == source.ID {
			continue
		}
		items = append(items, v)
		if len(items) == relatedResultCap {
			break
		}
	}
	return &Result{Items: items, NextPageToken: result.NextPageToken}, nil
}

// Subscriptions returns one cached page of the user's subscriptions.
func (a *Aggregator) Subscriptions(ctx context.Context, pageToken string) (*youtube.SubscriptionsPage, error) {
	key := "subs:" + pageToken
	if cached, ok := a.subs.Get(key); ok {
		return &cached, nil
	}

	page, err := a.gw.Subscriptions(ctx, pageToken)
	if err != nil {
		return nil, fmt.Errorf("subscriptions: %w", err)
	}

	a.subs.Set(key, *page, resultTTL)
	return page, nil
}

// AllSubscriptions walks the subscription pagination to the end and
// returns every subscribed channel.
func (a *Aggregator) AllSubscriptions(ctx context.Context) ([]youtube.ChannelSummary, error) {
	const key = "subs:all"
	if cached, ok := a.subs.Get(key); ok {
		return cached.Channels, nil
	}

	var channels []youtube.ChannelSummary
	pageToken := ""
	for {
		page, err := a.Subscriptions(ctx, pageToken)
		if err != nil {
			return nil, err
		}
		channels = append(channels, page.Channels...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	a.subs.Set(key, youtube.SubscriptionsPage{Channels: channels}, resultTTL)
	return channels, nil
}

// Personalized builds the authenticated home feed from two independent
// branches: recent uploads of subscribed channels, and search results
// seeded by the user's liked videos. Either branch may fail without
// failing the feed; an empty result with a nil error means both came up
// empty and the caller may fall back to Home.
func (a *Aggregator) Personalized(ctx context.Context) (*Result, error) {
	const key = "feed:personal"
	if cached, ok := a.results.Get(key); ok {
		return &cached, nil
	}

	var subVideos, likedVideos []youtube.VideoItem

	var g errgroup.Group
	g.Go(func() error {
		items, err := a.subscriptionUploads(ctx)
		if err != nil {
			a.logger.Printf("personalized feed: subscription uploads: %v", err)
			return nil
		}
		subVideos = items
		return nil
	})
	g.Go(func() error {
		items, err := a.recommendedFromLiked(ctx)
		if err != nil {
			a.logger.Printf("personalized feed: liked recommendations: %v", err)
			return nil
		}
		likedVideos = items
		return nil
	})
	_ = g.Wait()

	mixed := interleaveRatio(subVideos, likedVideos, 3)
	result := Result{Items: a.applyPolicy(mixed)}
	a.results.Set(key, result, resultTTL)
	return &result, nil
}

// subscriptionUploads resolves recent uploads across the user's
// subscriptions: channel list, per-channel activity fan-out, one detail
// batch, sorted newest first. Channel count is capped for quota control.
func (a *Aggregator) subscriptionUploads(ctx context.Context) ([]youtube.VideoItem, error) {
	channels, err := a.AllSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	if len(channels) > maxSubscriptionChannels {
		channels = channels[:maxSubscriptionChannels]
	}

	perChannel := make([][]string, len(channels))
	var g errgroup.Group
	for i, ch := range channels {
		g.Go(func() error {
			ids, err := a.gw.ActivitiesForChannel(ctx, ch.ID, activityPerChannel)
			if err != nil {
				a.logger.Printf("personalized feed: activities for %s: %v", ch.ID, err)
				return nil
			}
			perChannel[i] = ids
			return nil
		})
	}
	_ = g.Wait()

	var videoIDs []string
	seen := make(map[string]struct{})
	for _, ids := range perChannel {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			videoIDs = append(videoIDs, id)
		}
	}
	if len(videoIDs) == 0 {
		return nil, nil
	}

	details, err := a.gw.VideosByIDs(ctx, videoIDs)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].PublishedAt.After(details[j].PublishedAt)
	})
	return details, nil
}

// recommendedFromLiked derives one search per recently liked video from
// its title keywords, merges the hits, and resolves their details. Each
// search may fail independently.
func (a *Aggregator) recommendedFromLiked(ctx context.Context) ([]youtube.VideoItem, error) {
	liked, err := a.gw.LikedVideos(ctx, likedVideoCount)
	if err != nil {
		return nil, err
	}
	if len(liked) == 0 {
		return nil, nil
	}

	region := a.settings.Region()
	perLiked := make([][]youtube.VideoItem, len(liked))
	var g errgroup.Group
	for i, v := range liked {
		g.Go(func() error {
			page, err := a.gw.Search(ctx, youtube.SearchParams{
				Query:      keywordsFromTitle(v.Title),
				MaxResults: likedSearchResults,
				Region:     region,
			})
			if err != nil {
				a.logger.Printf("personalized feed: search for liked %s: %v", v.ID, err)
				return nil
			}
			perLiked[i] = page.Items
			return nil
		})
	}
	_ = g.Wait()

	var hits []youtube.VideoItem
	seen := make(map[string]struct{})
	for _, items := range perLiked {
		for _, item := range items {
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			hits = append(hits, item)
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	details, err := a.gw.VideosByIDs(ctx, idsOf(hits))
	if err != nil {
		return nil, err
	}
	return joinDetails(hits, details), nil
}

// ClearCache drops every cached feed result and subscription page.
func (a *Aggregator) ClearCache() {
	a.results.Clear()
	a.subs.Clear()
}

// CachedResults reports how many entries the response caches hold.
func (a *Aggregator) CachedResults() int {
	return a.results.Len() + a.subs.Len()
}

func (a *Aggregator) applyPolicy(items []youtube.VideoItem) []youtube.VideoItem {
	return a.filter.Apply(items, policy.Options{
		ExcludeShortForm: a.settings.ShortFormFilterEnabled(),
		HiddenIDs:        a.settings.HiddenVideos(),
	})
}

func idsOf(items []youtube.VideoItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID != "" {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// joinDetails inner-joins listing items with their detail records by
// video id, keeping the listing order. Items without a detail record are
// dropped.
func joinDetails(listed, details []youtube.VideoItem) []youtube.VideoItem {
	byID := make(map[string]youtube.VideoItem, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}

	joined := make([]youtube.VideoItem, 0, len(listed))
	for _, item := range listed {
		if d, ok := byID[item.ID]; ok {
			joined = append(joined, d)
		}
	}
	return joined
}
