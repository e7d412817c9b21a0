// Package main provides the vidsift CLI entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vidsift/vidsift/internal/feed"
	"github.com/vidsift/vidsift/internal/policy"
	"github.com/vidsift/vidsift/internal/quota"
	"github.com/vidsift/vidsift/internal/settings"
	"github.com/vidsift/vidsift/internal/youtube"
	"github.com/vidsift/vidsift/pkg/oauth"
)

var version = "0.1.0"

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	if dir := os.Getenv("VIDSIFT_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "vidsift")
}

// app bundles the session-scoped components every command works with.
// Everything is created at command start and torn down with the process;
// there are no package-level singletons.
type app struct {
	store  *settings.Store
	meter  *quota.Meter
	client *youtube.Client
	agg    *feed.Aggregator
	logger *log.Logger
}

func newApp() (*app, error) {
	logger := log.New(os.Stderr, "", log.Ldate|log.Ltime)

	store, err := settings.Open(getConfigDir(), logger)
	if err != nil {
		return nil, err
	}

	meter := quota.NewMeter(store, logger)

	opts := []youtube.ClientOption{
		youtube.WithTokenSource(store.AccessToken),
		youtube.WithQuotaRecorder(meter),
	}
	if url := os.Getenv("VIDSIFT_API_URL"); url != "" {
		opts = append(opts, youtube.WithBaseURL(url))
	}
	client := youtube.NewClient(store.APIKey, opts...)

	filter := policy.NewFilter(policy.NewBlocklist(store.BlockedTerms()))
	agg := feed.New(client, filter, store, logger)

	return &app{
		store:  store,
		meter:  meter,
		client: client,
		agg:    agg,
		logger: logger,
	}, nil
}

// googleClient returns the OAuth client credentials, preferring the
// settings store over the environment.
func (a *app) googleClient() (id, secret string, err error) {
	id = a.store.GetString(settings.KeyGoogleClientID)
	if id == "" {
		id = os.Getenv("VIDSIFT_GOOGLE_CLIENT_ID")
	}
	secret = a.store.GetString(settings.KeyGoogleClientSecret)
	if secret == "" {
		secret = os.Getenv("VIDSIFT_GOOGLE_CLIENT_SECRET")
	}
	if id == "" || secret == "" {
		return "", "", fmt.Errorf("missing OAuth credentials: set VIDSIFT_GOOGLE_CLIENT_ID and VIDSIFT_GOOGLE_CLIENT_SECRET or run 'vidsift config set %s/%s'",
			settings.KeyGoogleClientID, settings.KeyGoogleClientSecret)
	}
	return id, secret, nil
}

// refreshTokens trades the stored refresh token for a fresh access token.
func (a *app) refreshTokens(ctx context.Context) error {
	refreshToken := a.store.RefreshToken()
	if refreshToken == "" {
		return fmt.Errorf("no refresh token stored - run 'vidsift auth'")
	}

	clientID, clientSecret, err := a.googleClient()
	if err != nil {
		return err
	}

	token, err := oauth.NewFlow(clientID, clientSecret, defaultCallbackPort).Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	a.store.SetAccessToken(token.AccessToken)
	if token.RefreshToken != "" {
		a.store.SetRefreshToken(token.RefreshToken)
	}
	return nil
}

// withAuthRetry runs fn and, when it fails with an authorization-class
// error, refreshes the stored token once and reruns it.
func (a *app) withAuthRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !youtube.IsAuthError(err) {
		return err
	}
	if refreshErr := a.refreshTokens(ctx); refreshErr != nil {
		return err
	}
	return fn()
}

// newRootCmd creates the root command for the vidsift CLI.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "vidsift",
		Short:   "A clean, filtered YouTube browsing client",
		Long:    "Vidsift aggregates YouTube feeds and filters them against your policy: blocked terms, short-form exclusion, hidden videos.",
		Version: version,
	}

	rootCmd.SetVersionTemplate("vidsift version {{.Version}}\n")

	rootCmd.AddCommand(newFeedCmd())
	rootCmd.AddCommand(newTrendingCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newChannelCmd())
	rootCmd.AddCommand(newRelatedCmd())
	rootCmd.AddCommand(newSubsCmd())
	rootCmd.AddCommand(newHideCmd())
	rootCmd.AddCommand(newUnhideCmd())
	rootCmd.AddCommand(newQuotaCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}
