package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidsift/vidsift/internal/display"
	"github.com/vidsift/vidsift/internal/feed"
	"github.com/vidsift/vidsift/internal/settings"
	"github.com/vidsift/vidsift/internal/youtube"
)

// commandTimeout bounds a whole CLI operation including fan-outs.
const commandTimeout = 60 * time.Second

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// newFeedCmd creates the feed subcommand.
func newFeedCmd() *cobra.Command {
	var personal bool
	var limit int

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Display the aggregated home feed",
		Long:  "Display the category-mixed home feed, or your personalized feed built from subscriptions and likes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}

			var result *feed.Result
			if personal {
				if a.store.AccessToken() == "" {
					return fmt.Errorf("not signed in - run 'vidsift auth' for a personalized feed")
				}
				err = a.withAuthRetry(ctx, func() error {
					var err error
					result, err = a.agg.Personalized(ctx)
					return err
				})
				if err != nil {
					return err
				}
				if len(result.Items) == 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), "Personalized feed is empty, showing popular videos instead.")
					result, err = a.agg.Home(ctx)
					if err != nil {
						return err
					}
				}
			} else {
				result, err = a.agg.Home(ctx)
				if err != nil {
					return err
				}
			}

			if limit > 0 && len(result.Items) > limit {
				result = &feed.Result{Items: result.Items[:limit], NextPageToken: result.NextPageToken}
			}

			display.New(cmd.OutOrStdout()).RenderFeed(result)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&personal, "personal", "P", false, "Build the feed from your subscriptions and likes")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum number of items to display")

	return cmd
}

// newTrendingCmd creates the trending subcommand.
func newTrendingCmd() *cobra.Command {
	var max int

	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Display the region's most popular videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}

			result, err := a.agg.Trending(ctx, max)
			if err != nil {
				return err
			}

			display.New(cmd.OutOrStdout()).RenderFeed(result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&max, "max", "m", 25, "Maximum number of videos to fetch")

	return cmd
}

// newSearchCmd creates the search subcommand.
func newSearchCmd() *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}

			result, err := a.agg.Search(ctx, strings.Join(args, " "), page)
			if err != nil {
				return err
			}

			display.New(cmd.OutOrStdout()).RenderFeed(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&page, "page", "p", "", "Pagination token from a previous page")

	return cmd
}

// newChannelCmd creates the channel subcommand.
func newChannelCmd() *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "channel <channel-id>",
		Short: "Display a channel and its recent uploads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}

			renderer := display.New(cmd.OutOrStdout())

			channel, err := a.agg.Channel(ctx, args[0])
			if err != nil {
				return err
			}
			if channel == nil {
				return fmt.Errorf("channel %s not found", args[0])
			}
			renderer.RenderChannel(channel)
			fmt.Fprintln(cmd.OutOrStdout())

			result, err := a.agg.ChannelVideos(ctx, args[0], page)
			if err != nil {
				return err
			}
			renderer.RenderFeed(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&page, "page", "p", "", "Pagination token from a previous page")

	return cmd
}

// newRelatedCmd creates the related subcommand.
func newRelatedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "related <video-id>",
		Short: "Display videos related to a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}

			video, err := a.agg.Video(ctx, args[0])
			if err != nil {
				return err
			}
			if video == nil {
				return fmt.Errorf("video %s not found", args[0])
			}

			result, err := a.agg.Related(ctx, *video)
			if err != nil {
				return err
			}

			display.New(cmd.OutOrStdout()).RenderFeed(result)
			return nil
		},
	}

	return cmd
}

// newSubsCmd creates the subs subcommand.
func newSubsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subs",
		Short: "List your subscribed channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}

			var channels []youtube.ChannelSummary
			err = a.withAuthRetry(ctx, func() error {
				var err error
				channels, err = a.agg.AllSubscriptions(ctx)
				return err
			})
			if err != nil {
				return err
			}

			display.New(cmd.OutOrStdout()).RenderSubscriptions(channels)
			return nil
		},
	}

	return cmd
}

// newHideCmd creates the hide subcommand.
func newHideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hide <video-id>",
		Short: "Hide a video from all feeds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.store.HideVideo(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Hidden %s\n", args[0])
			return nil
		},
	}
}

// newUnhideCmd creates the unhide subcommand.
func newUnhideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unhide <video-id>",
		Short: "Remove a video from the hidden list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.store.UnhideVideo(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Unhidden %s\n", args[0])
			return nil
		},
	}
}

// newQuotaCmd creates the quota subcommand.
func newQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show today's API quota usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			display.New(cmd.OutOrStdout()).RenderQuota(a.meter.Usage(), a.agg.CachedResults())
			return nil
		},
	}
}

// newCacheCmd creates the cache subcommand.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached results",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop cached results and derived data, keeping settings and tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.agg.ClearCache()
			a.store.PurgeCache()
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	})

	return cmd
}

// newConfigCmd creates the config subcommand.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Config directory: %s\n", getConfigDir())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.store.GetString(args[0]))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a configuration value",
		Long:  "Store a configuration value. Setting api_key validates the key against the API first; blocked_terms takes a comma-separated pattern list.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}

			key, value := args[0], args[1]
			switch key {
			case settings.KeyAPIKey:
				if err := a.client.TestAPIKey(ctx, value); err != nil {
					return fmt.Errorf("API key rejected: %w", err)
				}
				a.store.SetAPIKey(value)
			case settings.KeyBlockedTerms:
				a.store.SetBlockedTerms(strings.Split(value, ","))
			default:
				a.store.SetString(key, value)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.store.Remove(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])
			return nil
		},
	})

	return cmd
}
