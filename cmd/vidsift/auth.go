package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidsift/vidsift/pkg/browser"
	"github.com/vidsift/vidsift/pkg/oauth"
)

const defaultCallbackPort = 8765

// newAuthCmd creates the auth subcommand.
func newAuthCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in with Google for personalized feeds",
		Long:  "Run the OAuth flow granting vidsift read-only access to your YouTube subscriptions and likes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			clientID, clientSecret, err := a.googleClient()
			if err != nil {
				return err
			}

			flow := oauth.NewFlow(clientID, clientSecret, port)
			state, err := oauth.NewState()
			if err != nil {
				return err
			}
			authURL := flow.AuthURL(state)

			fmt.Fprintln(cmd.OutOrStdout(), "Opening browser for authorization...")
			if err := browser.Open(authURL); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Could not open browser. Please visit:\n%s\n", authURL)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Waiting for authorization...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			code, err := oauth.NewCallbackServer(port).WaitForCallback(ctx, state)
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Exchanging authorization code...")
			token, err := flow.Exchange(ctx, code)
			if err != nil {
				return err
			}

			a.store.SetAccessToken(token.AccessToken)
			if token.RefreshToken != "" {
				a.store.SetRefreshToken(token.RefreshToken)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Signed in. Try 'vidsift feed --personal'.")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", defaultCallbackPort, "Port for the OAuth callback server")

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Forget the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.store.ClearTokens()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	})

	return cmd
}
