package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidsift/vidsift/internal/feed"
	"github.com/vidsift/vidsift/internal/youtube"
)

// fakeFeeds implements Feeds with per-method hooks.
type fakeFeeds struct {
	homeFn     func() (*feed.Result, error)
	personalFn func() (*feed.Result, error)
	searchFn   func(query, pageToken string) (*feed.Result, error)
	videoFn    func(id string) (*youtube.VideoItem, error)
	subsFn     func(pageToken string) (*youtube.SubscriptionsPage, error)

	cleared       bool
	personalCalls int
}

func (f *fakeFeeds) Home(context.Context) (*feed.Result, error) {
	if f.homeFn != nil {
		return f.homeFn()
	}
	return &feed.Result{Items: []youtube.VideoItem{}}, nil
}

func (f *fakeFeeds) Personalized(context.Context) (*feed.Result, error) {
	f.personalCalls++
	if f.personalFn != nil {
		return f.personalFn()
	}
	return &feed.Result{Items: []youtube.VideoItem{}}, nil
}

func (f *fakeFeeds) Search(_ context.Context, query, pageToken string) (*feed.Result, error) {
	if f.searchFn != nil {
		return f.searchFn(query, pageToken)
	}
	return &feed.Result{Items: []youtube.VideoItem{}}, nil
}

func (f *fakeFeeds) ChannelVideos(_ context.Context, channelID, pageToken string) (*feed.Result, error) {
	return &feed.Result{Items: []youtube.VideoItem{{ID: channelID + "-v1"}}}, nil
}

func (f *fakeFeeds) Channel(_ context.Context, channelID string) (*youtube.ChannelSummary, error) {
	if channelID == "missing" {
		return nil, nil
	}
	return &youtube.ChannelSummary{ID: channelID}, nil
}

func (f *fakeFeeds) Video(_ context.Context, id string) (*youtube.VideoItem, error) {
	if f.videoFn != nil {
		return f.videoFn(id)
	}
	return &youtube.VideoItem{ID: id, Title: "video " + id}, nil
}

func (f *fakeFeeds) Related(_ context.Context, source youtube.VideoItem) (*feed.Result, error) {
	return &feed.Result{Items: []youtube.VideoItem{{ID: "rel1"}}}, nil
}

func (f *fakeFeeds) Subscriptions(_ context.Context, pageToken string) (*youtube.SubscriptionsPage, error) {
	if f.subsFn != nil {
		return f.subsFn(pageToken)
	}
	return &youtube.SubscriptionsPage{}, nil
}

func (f *fakeFeeds) ClearCache() { f.cleared = true }

type fakeQuota struct{ used int }

func (q *fakeQuota) Usage() int { return q.used }

type fakePurger struct{ purged bool }

func (p *fakePurger) PurgeCache() { p.purged = true }

// fakeLibrary is an in-memory Library.
type fakeLibrary struct {
	hidden     []string
	watchLater []youtube.VideoItem
	history    []youtube.VideoItem
}

func (l *fakeLibrary) HiddenVideos() []string { return l.hidden }
func (l *fakeLibrary) HideVideo(id string)    { l.hidden = append(l.hidden, id) }
func (l *fakeLibrary) UnhideVideo(id string) {
	kept := l.hidden[:0]
	for _, h := range l.hidden {
		if h != id {
			kept = append(kept, h)
		}
	}
	l.hidden = kept
}
func (l *fakeLibrary) WatchLater() []youtube.VideoItem { return l.watchLater }
func (l *fakeLibrary) AddWatchLater(v youtube.VideoItem) {
	l.watchLater = append([]youtube.VideoItem{v}, l.watchLater...)
}
func (l *fakeLibrary) RemoveWatchLater(id string) {
	kept := l.watchLater[:0]
	for _, v := range l.watchLater {
		if v.ID != id {
			kept = append(kept, v)
		}
	}
	l.watchLater = kept
}
func (l *fakeLibrary) History() []youtube.VideoItem { return l.history }
func (l *fakeLibrary) AddHistory(v youtube.VideoItem) {
	l.history = append([]youtube.VideoItem{v}, l.history...)
}
func (l *fakeLibrary) ClearHistory() { l.history = nil }

func newTestServer(feeds *fakeFeeds, opts ...Option) http.Handler {
	return New(feeds, &fakeQuota{used: 123}, &fakePurger{}, log.New(io.Discard, "", 0), opts...).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not a JSON envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return envelope
}

func TestHomeFeed_ReturnsData(t *testing.T) {
	feeds := &fakeFeeds{
		homeFn: func() (*feed.Result, error) {
			return &feed.Result{Items: []youtube.VideoItem{{ID: "v1"}}}, nil
		},
	}
	rec := doRequest(t, newTestServer(feeds), http.MethodGet, "/api/feed")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	envelope := decodeEnvelope(t, rec)
	if _, ok := envelope["data"]; !ok {
		t.Error("success responses should wrap the payload in a data field")
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeFeeds{}), http.MethodGet, "/api/search")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d, want 400", rec.Code)
	}
}

func TestSearch_PassesQueryAndPage(t *testing.T) {
	var gotQuery, gotPage string
	feeds := &fakeFeeds{
		searchFn: func(query, pageToken string) (*feed.Result, error) {
			gotQuery, gotPage = query, pageToken
			return &feed.Result{}, nil
		},
	}

	rec := doRequest(t, newTestServer(feeds), http.MethodGet, "/api/search?q=go+talks&page=p2")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotQuery != "go talks" || gotPage != "p2" {
		t.Errorf("search called with (%q, %q)", gotQuery, gotPage)
	}
}

func TestVideo_NotFound(t *testing.T) {
	feeds := &fakeFeeds{
		videoFn: func(id string) (*youtube.VideoItem, error) { return nil, nil },
	}

	rec := doRequest(t, newTestServer(feeds), http.MethodGet, "/api/videos/gone")

	if rec.Code != http.StatusNotFound {
		t.Errorf("missing video = %d, want 404", rec.Code)
	}
}

func TestChannel_NotFound(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeFeeds{}), http.MethodGet, "/api/channels/missing")

	if rec.Code != http.StatusNotFound {
		t.Errorf("missing channel = %d, want 404", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"missing token maps to 401", &youtube.AuthRequiredError{}, http.StatusUnauthorized},
		{"upstream rejection maps to 502", &youtube.UpstreamError{StatusCode: 500, Message: "backendError"}, http.StatusBadGateway},
		{"network failure maps to 502", &youtube.NetworkError{Err: errors.New("refused")}, http.StatusBadGateway},
		{"anything else maps to 500", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feeds := &fakeFeeds{
				homeFn: func() (*feed.Result, error) { return nil, tt.err },
			}
			rec := doRequest(t, newTestServer(feeds), http.MethodGet, "/api/feed")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestUpstreamError_MessageReachesClient(t *testing.T) {
	feeds := &fakeFeeds{
		homeFn: func() (*feed.Result, error) {
			return nil, &youtube.UpstreamError{StatusCode: 403, Message: "quotaExceeded"}
		},
	}

	rec := doRequest(t, newTestServer(feeds), http.MethodGet, "/api/feed")

	if !strings.Contains(rec.Body.String(), "quotaExceeded") {
		t.Errorf("upstream message should reach the client, body: %s", rec.Body.String())
	}
}

func TestPersonalFeed_RefreshesTokenOnceAndRetries(t *testing.T) {
	refreshes := 0
	feeds := &fakeFeeds{}
	feeds.personalFn = func() (*feed.Result, error) {
		if feeds.personalCalls == 1 {
			return nil, &youtube.UpstreamError{StatusCode: 401}
		}
		return &feed.Result{Items: []youtube.VideoItem{{ID: "v1"}}}, nil
	}

	h := newTestServer(feeds, WithTokenRefresher(func(context.Context) error {
		refreshes++
		return nil
	}))
	rec := doRequest(t, h, http.MethodGet, "/api/feed/personal")

	if rec.Code != http.StatusOK {
		t.Fatalf("status after successful retry = %d, want 200", rec.Code)
	}
	if refreshes != 1 {
		t.Errorf("token should be refreshed exactly once, got %d", refreshes)
	}
	if feeds.personalCalls != 2 {
		t.Errorf("the failed call should be retried once, saw %d calls", feeds.personalCalls)
	}
}

func TestPersonalFeed_FailedRefreshReturnsOriginalError(t *testing.T) {
	feeds := &fakeFeeds{
		personalFn: func() (*feed.Result, error) {
			return nil, &youtube.AuthRequiredError{}
		},
	}

	h := newTestServer(feeds, WithTokenRefresher(func(context.Context) error {
		return errors.New("refresh rejected")
	}))
	rec := doRequest(t, h, http.MethodGet, "/api/feed/personal")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want the original 401", rec.Code)
	}
	if feeds.personalCalls != 1 {
		t.Errorf("a failed refresh must not retry the call, saw %d calls", feeds.personalCalls)
	}
}

func TestQuotaEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeFeeds{}), http.MethodGet, "/api/quota")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "123") {
		t.Errorf("quota usage should appear in the response, body: %s", rec.Body.String())
	}
}

func TestClearCache_ClearsBothLayers(t *testing.T) {
	feeds := &fakeFeeds{}
	purger := &fakePurger{}
	h := New(feeds, &fakeQuota{}, purger, log.New(io.Discard, "", 0)).Routes()

	rec := doRequest(t, h, http.MethodDelete, "/api/cache")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !feeds.cleared {
		t.Error("in-memory feed cache should be cleared")
	}
	if !purger.purged {
		t.Error("persisted derived data should be purged")
	}
}

func TestLibraryRoutes_AbsentWithoutLibrary(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeFeeds{}), http.MethodGet, "/api/watchlater")

	if rec.Code == http.StatusOK {
		t.Error("library endpoints should not exist when no library is configured")
	}
}

func TestWatchLater_AddStoresResolvedVideo(t *testing.T) {
	library := &fakeLibrary{}
	h := newTestServer(&fakeFeeds{}, WithLibrary(library))

	rec := doRequest(t, h, http.MethodPost, "/api/watchlater/v1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(library.watchLater) != 1 || library.watchLater[0].Title != "video v1" {
		t.Errorf("watch-later entry should carry the resolved details, got %+v", library.watchLater)
	}
}

func TestWatchLater_AddMissingVideoIs404(t *testing.T) {
	library := &fakeLibrary{}
	feeds := &fakeFeeds{
		videoFn: func(id string) (*youtube.VideoItem, error) { return nil, nil },
	}
	h := newTestServer(feeds, WithLibrary(library))

	rec := doRequest(t, h, http.MethodPost, "/api/watchlater/gone")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(library.watchLater) != 0 {
		t.Error("a missing video must not be added to watch later")
	}
}

func TestHistory_RecordAndClear(t *testing.T) {
	library := &fakeLibrary{}
	h := newTestServer(&fakeFeeds{}, WithLibrary(library))

	if rec := doRequest(t, h, http.MethodPost, "/api/history/v1"); rec.Code != http.StatusOK {
		t.Fatalf("recording playback = %d, want 200", rec.Code)
	}
	if len(library.history) != 1 {
		t.Fatalf("history should hold the played video, got %d entries", len(library.history))
	}

	if rec := doRequest(t, h, http.MethodDelete, "/api/history"); rec.Code != http.StatusOK {
		t.Fatalf("clearing history = %d, want 200", rec.Code)
	}
	if len(library.history) != 0 {
		t.Error("history should be empty after clearing")
	}
}

func TestHideAndUnhide(t *testing.T) {
	library := &fakeLibrary{}
	h := newTestServer(&fakeFeeds{}, WithLibrary(library))

	if rec := doRequest(t, h, http.MethodPost, "/api/videos/v1/hide"); rec.Code != http.StatusOK {
		t.Fatalf("hiding = %d, want 200", rec.Code)
	}
	if len(library.hidden) != 1 || library.hidden[0] != "v1" {
		t.Errorf("hidden list = %v, want [v1]", library.hidden)
	}

	if rec := doRequest(t, h, http.MethodDelete, "/api/videos/v1/hide"); rec.Code != http.StatusOK {
		t.Fatalf("unhiding = %d, want 200", rec.Code)
	}
	if len(library.hidden) != 0 {
		t.Errorf("hidden list should be empty after unhide, got %v", library.hidden)
	}
}
