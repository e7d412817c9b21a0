// Package settings provides Viper-based persistent storage for vidsift:
// user preferences, credentials, the quota ledger, and the user's video
// lists. Values survive between sessions in a single YAML file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/vidsift/vidsift/internal/quota"
	"github.com/vidsift/vidsift/internal/youtube"
)

const configFileName = "settings.yaml"

// Storage keys. List-valued and record-valued keys hold JSON strings,
// scalars are stored natively.
const (
	KeyAPIKey             = "api_key"
	KeyRegion             = "region"
	KeyShortFormFilter    = "shortform_filter"
	KeyBlockedTerms       = "blocked_terms"
	KeyGoogleClientID     = "google_client_id"
	KeyGoogleClientSecret = "google_client_secret"
	KeyAccessToken        = "access_token"
	KeyRefreshToken       = "refresh_token"
	KeyUserProfile        = "user_profile"
	keyQuota              = "quota"
	keyHiddenVideos       = "hidden_videos"
	keyWatchLater         = "watch_later"
	keyHistory            = "history"
)

// historyLimit caps the watch history length.
const historyLimit = 200

// preservedOnPurge lists the keys a cache purge must not touch: settings
// and credentials survive, derived data does not.
var preservedOnPurge = []string{
	KeyAPIKey,
	KeyRegion,
	KeyShortFormFilter,
	KeyBlockedTerms,
	KeyGoogleClientID,
	KeyGoogleClientSecret,
	KeyAccessToken,
	KeyRefreshToken,
	KeyUserProfile,
}

// Profile is the signed-in user's identity as shown in the UI.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Store is a file-backed key/value settings store. Write failures are
// logged and swallowed: losing a preference must never fail an operation.
type Store struct {
	v      *viper.Viper
	path   string
	logger *log.Logger
}

// Open loads (or initializes) the settings file under dir.
func Open(dir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &Store{
		v:      viper.New(),
		path:   filepath.Join(dir, configFileName),
		logger: logger,
	}
	s.configure(s.v)

	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
		// No settings file yet, defaults apply.
	}

	return s, nil
}

func (s *Store) configure(v *viper.Viper) {
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	v.SetDefault(KeyRegion, "JP")
	v.SetDefault(KeyShortFormFilter, true)
}

func (s *Store) save() {
	if err := s.v.WriteConfigAs(s.path); err != nil {
		s.logger.Printf("settings: writing %s: %v", s.path, err)
	}
}

func (s *Store) setJSON(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Printf("settings: encoding %s: %v", key, err)
		return
	}
	s.v.Set(key, string(data))
	s.save()
}

func (s *Store) getJSON(key string, out any) bool {
	raw := s.v.GetString(key)
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.logger.Printf("settings: decoding %s: %v", key, err)
		return false
	}
	return true
}

// GetString returns the raw string value stored under key.
func (s *Store) GetString(key string) string {
	return s.v.GetString(key)
}

// SetString stores a raw string value under key.
func (s *Store) SetString(key, value string) {
	s.v.Set(key, value)
	s.save()
}

// Remove deletes key from the store.
func (s *Store) Remove(key string) {
	s.rebuild(func(k string) bool { return k != key })
}

// PurgeCache removes everything except settings and credentials:
// derived data such as the quota ledger and the user's video lists is
// dropped, tokens and preferences survive.
func (s *Store) PurgeCache() {
	preserved := make(map[string]bool, len(preservedOnPurge))
	for _, k := range preservedOnPurge {
		preserved[k] = true
	}
	s.rebuild(func(k string) bool { return preserved[k] })
}

// rebuild replaces the backing Viper with one holding only the keys keep
// accepts. Viper has no key deletion, so removal is a rebuild.
func (s *Store) rebuild(keep func(key string) bool) {
	fresh := viper.New()
	s.configure(fresh)
	for _, key := range s.v.AllKeys() {
		if keep(key) {
			fresh.Set(key, s.v.Get(key))
		}
	}
	s.v = fresh
	s.save()
}

// --- preferences ---

// Region returns the content region code, defaulting to "JP".
func (s *Store) Region() string { return s.v.GetString(KeyRegion) }

// SetRegion stores the content region code.
func (s *Store) SetRegion(region string) { s.SetString(KeyRegion, region) }

// ShortFormFilterEnabled reports whether short-form videos are filtered
// out of feeds. Defaults to true.
func (s *Store) ShortFormFilterEnabled() bool { return s.v.GetBool(KeyShortFormFilter) }

// SetShortFormFilter stores the short-form filter preference.
func (s *Store) SetShortFormFilter(enabled bool) {
	s.v.Set(KeyShortFormFilter, enabled)
	s.save()
}

// BlockedTerms returns the configured blocklist patterns. Empty unless
// the user has configured any.
func (s *Store) BlockedTerms() []string {
	var terms []string
	s.getJSON(KeyBlockedTerms, &terms)
	return terms
}

// SetBlockedTerms stores the blocklist patterns.
func (s *Store) SetBlockedTerms(terms []string) { s.setJSON(KeyBlockedTerms, terms) }

// --- credentials ---

// APIKey returns the stored API key, or "".
func (s *Store) APIKey() string { return s.v.GetString(KeyAPIKey) }

// SetAPIKey stores the API key.
func (s *Store) SetAPIKey(key string) { s.SetString(KeyAPIKey, key) }

// AccessToken returns the stored OAuth access token, or "".
func (s *Store) AccessToken() string { return s.v.GetString(KeyAccessToken) }

// SetAccessToken stores the OAuth access token.
func (s *Store) SetAccessToken(token string) { s.SetString(KeyAccessToken, token) }

// RefreshToken returns the stored OAuth refresh token, or "".
func (s *Store) RefreshToken() string { return s.v.GetString(KeyRefreshToken) }

// SetRefreshToken stores the OAuth refresh token.
func (s *Store) SetRefreshToken(token string) { s.SetString(KeyRefreshToken, token) }

// ClearTokens removes both OAuth tokens.
func (s *Store) ClearTokens() {
	s.rebuild(func(k string) bool { return k != KeyAccessToken && k != KeyRefreshToken })
}

// UserProfile returns the signed-in user's profile, or nil.
func (s *Store) UserProfile() *Profile {
	var p Profile
	if !s.getJSON(KeyUserProfile, &p) {
		return nil
	}
	return &p
}

// SetUserProfile stores the signed-in user's profile.
func (s *Store) SetUserProfile(p Profile) { s.setJSON(KeyUserProfile, p) }

// --- quota ledger ---

// QuotaLedger returns the persisted quota ledger. A missing record is an
// empty ledger, not an error.
func (s *Store) QuotaLedger() (quota.Ledger, error) {
	var ledger quota.Ledger
	s.getJSON(keyQuota, &ledger)
	return ledger, nil
}

// SetQuotaLedger persists the quota ledger.
func (s *Store) SetQuotaLedger(ledger quota.Ledger) error {
	s.setJSON(keyQuota, ledger)
	return nil
}

// --- video lists ---

// HiddenVideos returns the ids of videos the user has hidden.
func (s *Store) HiddenVideos() []string {
	var ids []string
	s.getJSON(keyHiddenVideos, &ids)
	return ids
}

// HideVideo adds a video id to the hidden list.
func (s *Store) HideVideo(id string) {
	ids := s.HiddenVideos()
	for _, existing := range ids {
		if existing == id {
			return
		}
	}
	s.setJSON(keyHiddenVideos, append(ids, id))
}

// UnhideVideo removes a video id from the hidden list.
func (s *Store) UnhideVideo(id string) {
	ids := s.HiddenVideos()
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	s.setJSON(keyHiddenVideos, kept)
}

// ClearHiddenVideos empties the hidden list.
func (s *Store) ClearHiddenVideos() { s.setJSON(keyHiddenVideos, []string{}) }

// WatchLater returns the watch-later list, newest first.
func (s *Store) WatchLater() []youtube.VideoItem {
	var items []youtube.VideoItem
	s.getJSON(keyWatchLater, &items)
	return items
}

// AddWatchLater prepends a video to the watch-later list. Already-listed
// videos are left where they are.
func (s *Store) AddWatchLater(v youtube.VideoItem) {
	items := s.WatchLater()
	for _, existing := range items {
		if existing.ID == v.ID {
			return
		}
	}
	s.setJSON(keyWatchLater, append([]youtube.VideoItem{v}, items...))
}

// RemoveWatchLater removes a video from the watch-later list.
func (s *Store) RemoveWatchLater(id string) {
	items := s.WatchLater()
	kept := items[:0]
	for _, existing := range items {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}
	s.setJSON(keyWatchLater, kept)
}

// History returns the watch history, most recent first.
func (s *Store) History() []youtube.VideoItem {
	var items []youtube.VideoItem
	s.getJSON(keyHistory, &items)
	return items
}

// AddHistory moves (or inserts) a video to the front of the history,
// trimming to the history limit.
func (s *Store) AddHistory(v youtube.VideoItem) {
	items := s.History()
	kept := make([]youtube.VideoItem, 0, len(items)+1)
	kept = append(kept, v)
	for _, existing := range items {
		if existing.ID != v.ID {
			kept = append(kept, existing)
		}
	}
	if len(kept) > historyLimit {
		kept = kept[:historyLimit]
	}
	s.setJSON(keyHistory, kept)
}

// ClearHistory empties the watch history.
func (s *Store) ClearHistory() { s.setJSON(keyHistory, []youtube.VideoItem{}) }
