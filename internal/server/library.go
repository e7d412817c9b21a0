package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidsift/vidsift/internal/youtube"
)

// Library is the user's personal video lists: hidden videos, watch
// later, and playback history.
type Library interface {
	HiddenVideos() []string
	HideVideo(id string)
	UnhideVideo(id string)
	WatchLater() []youtube.VideoItem
	AddWatchLater(v youtube.VideoItem)
	RemoveWatchLater(id string)
	History() []youtube.VideoItem
	AddHistory(v youtube.VideoItem)
	ClearHistory()
}

// WithLibrary enables the personal-list endpoints.
func WithLibrary(library Library) Option {
	return func(s *Server) {
		s.library = library
	}
}

func (s *Server) libraryRoutes(r chi.Router) {
	r.Get("/watchlater", s.handleWatchLater)
	r.Post("/watchlater/{id}", s.handleAddWatchLater)
	r.Delete("/watchlater/{id}", s.handleRemoveWatchLater)
	r.Get("/history", s.handleHistory)
	r.Post("/history/{id}", s.handleAddHistory)
	r.Delete("/history", s.handleClearHistory)
	r.Post("/videos/{id}/hide", s.handleHideVideo)
	r.Delete("/videos/{id}/hide", s.handleUnhideVideo)
}

func (s *Server) handleWatchLater(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Envelope{"data": s.library.WatchLater()})
}

// handleAddWatchLater resolves the video's details first so the stored
// entry can be rendered without another API call.
func (s *Server) handleAddWatchLater(w http.ResponseWriter, r *http.Request) {
	video, err := s.feeds.Video(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if video == nil {
		s.writeJSON(w, http.StatusNotFound, Envelope{"message": "video not found"})
		return
	}
	s.library.AddWatchLater(*video)
	s.writeJSON(w, http.StatusOK, Envelope{"data": video})
}

func (s *Server) handleRemoveWatchLater(w http.ResponseWriter, r *http.Request) {
	s.library.RemoveWatchLater(chi.URLParam(r, "id"))
	s.writeJSON(w, http.StatusOK, Envelope{"message": "removed"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Envelope{"data": s.library.History()})
}

// handleAddHistory records a playback event. The frontend calls it when
// a video actually starts, keeping GET /videos/{id} side-effect free.
func (s *Server) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	video, err := s.feeds.Video(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if video == nil {
		s.writeJSON(w, http.StatusNotFound, Envelope{"message": "video not found"})
		return
	}
	s.library.AddHistory(*video)
	s.writeJSON(w, http.StatusOK, Envelope{"data": video})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.library.ClearHistory()
	s.writeJSON(w, http.StatusOK, Envelope{"message": "history cleared"})
}

func (s *Server) handleHideVideo(w http.ResponseWriter, r *http.Request) {
	s.library.HideVideo(chi.URLParam(r, "id"))
	s.writeJSON(w, http.StatusOK, Envelope{"message": "hidden"})
}

func (s *Server) handleUnhideVideo(w http.ResponseWriter, r *http.Request) {
	s.library.UnhideVideo(chi.URLParam(r, "id"))
	s.writeJSON(w, http.StatusOK, Envelope{"message": "unhidden"})
}
