// Package server exposes vidsift feeds over a local JSON API for a
// browser frontend. It owns no aggregation logic: handlers translate
// HTTP to aggregator calls and typed gateway errors to status codes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidsift/vidsift/internal/feed"
	"github.com/vidsift/vidsift/internal/youtube"
)

// Envelope is the JSON response wrapper.
type Envelope map[string]any

// Feeds is the aggregation surface the server exposes.
type Feeds interface {
	Home(ctx context.Context) (*feed.Result, error)
	Personalized(ctx context.Context) (*feed.Result, error)
	Search(ctx context.Context, query, pageToken string) (*feed.Result, error)
	ChannelVideos(ctx context.Context, channelID, pageToken string) (*feed.Result, error)
	Channel(ctx context.Context, channelID string) (*youtube.ChannelSummary, error)
	Video(ctx context.Context, id string) (*youtube.VideoItem, error)
	Related(ctx context.Context, source youtube.VideoItem) (*feed.Result, error)
	Subscriptions(ctx context.Context, pageToken string) (*youtube.SubscriptionsPage, error)
	ClearCache()
}

// QuotaReader reports today's quota consumption.
type QuotaReader interface {
	Usage() int
}

// Purger clears persisted derived data alongside the in-memory caches.
type Purger interface {
	PurgeCache()
}

// Option configures the Server.
type Option func(*Server)

// WithTokenRefresher installs the single re-authentication retry: when
// an authenticated call fails with an authorization-class error, refresh
// is invoked once and the call retried.
func WithTokenRefresher(refresh func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.refresh = refresh
	}
}

// Server handles the local JSON API.
type Server struct {
	feeds   Feeds
	quota   QuotaReader
	purger  Purger
	library Library
	logger  *log.Logger
	refresh func(ctx context.Context) error
}

// New creates a Server.
func New(feeds Feeds, quota QuotaReader, purger Purger, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		feeds:  feeds,
		quota:  quota,
		purger: purger,
		logger: logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Routes builds the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/feed", s.handleHomeFeed)
		r.Get("/feed/personal", s.handlePersonalFeed)
		r.Get("/search", s.handleSearch)
		r.Get("/videos/{id}", s.handleVideo)
		r.Get("/videos/{id}/related", s.handleRelated)
		r.Get("/channels/{id}", s.handleChannel)
		r.Get("/channels/{id}/videos", s.handleChannelVideos)
		r.Get("/subscriptions", s.handleSubscriptions)
		r.Get("/quota", s.handleQuota)
		r.Delete("/cache", s.handleClearCache)
		if s.library != nil {
			s.libraryRoutes(r)
		}
	})

	return r
}

func (s *Server) handleHomeFeed(w http.ResponseWriter, r *http.Request) {
	result, err := s.feeds.Home(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Envelope{"data": result})
}

func (s *Server) handlePersonalFeed(w http.ResponseWriter, r *http.Request) {
	var result *feed.Result
	err := s.withAuthRetry(r.Context(), func() error {
		var err error
		result, err = s.feeds.Personalized(r.Context())
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Envelope{"data": result})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeJSON(w, http.StatusBadRequest, Envelope{"message": "missing query parameter 'q'"})
		return
	}

	result, err := s.feeds.Search(r.Context(), query, r.URL.Query().Get("page"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Envelope{"data": result})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.feeds.Video(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if video == nil {
		s.writeJSON(w, http.StatusNotFound, Envelope{"message": "video not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, Envelope{"data": video})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	video, err := s.feeds.Video(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if video == nil {
		s.writeJSON(w, http.StatusNotFound, Envelope{"message": "video not found"})
		return
	}

	result, err := s.feeds.Related(r.Context(), *video)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Envelope{"data": result})
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	channel, err := s.feeds.Channel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if channel == nil {
		s.writeJSON(w, http.StatusNotFound, Envelope{"message": "channel not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, Envelope{"data": channel})
}

func (s *Server) handleChannelVideos(w http.ResponseWriter, r *http.Request) {
	result, err := s.feeds.ChannelVideos(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("page"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Envelope{"data": result})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	var page *youtube.SubscriptionsPage
	err := s.withAuthRetry(r.Context(), func() error {
		var err error
		page, err = s.feeds.Subscriptions(r.Context(), r.URL.Query().Get("page"))
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Envelope{"data": page})
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Envelope{"data": Envelope{"used": s.quota.Usage()}})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.feeds.ClearCache()
	if s.purger != nil {
		s.purger.PurgeCache()
	}
	s.writeJSON(w, http.StatusOK, Envelope{"message": "cache cleared"})
}

// withAuthRetry runs fn, and on an authorization-class failure refreshes
// the token once and reruns it. Any other failure, or a second
// authorization failure, is returned as-is.
func (s *Server) withAuthRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || s.refresh == nil || !youtube.IsAuthError(err) {
		return err
	}
	if refreshErr := s.refresh(ctx); refreshErr != nil {
		s.logger.Printf("token refresh failed: %v", refreshErr)
		return err
	}
	return fn()
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var upstreamErr *youtube.UpstreamError
	var networkErr *youtube.NetworkError
	switch {
	case youtube.IsAuthRequired(err):
		s.writeJSON(w, http.StatusUnauthorized, Envelope{"message": "authentication required"})
	case errors.As(err, &upstreamErr):
		s.logger.Printf("upstream error: %v", err)
		s.writeJSON(w, http.StatusBadGateway, Envelope{"message": upstreamErr.Error()})
	case errors.As(err, &networkErr):
		s.logger.Printf("network error: %v", err)
		s.writeJSON(w, http.StatusBadGateway, Envelope{"message": "upstream unreachable - try again"})
	default:
		s.logger.Printf("internal error: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, Envelope{"message": "internal server error"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data Envelope) {
	js, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("error marshaling JSON: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(js); err != nil {
		s.logger.Printf("error writing JSON response: %v", err)
	}
}
