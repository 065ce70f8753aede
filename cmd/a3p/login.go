package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	gsheet "a3p/internal/sheets/google"
)

var (
	loginPort    int
	loginTimeout time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "sheets-login",
	Short: "Authorize read access to a Google spreadsheet with your account",
	Long: `Runs the OAuth consent flow for the client in GOOGLE_OAUTH_CLIENT_JSON or
GOOGLE_OAUTH_CLIENT_FILE and saves the token to GOOGLE_OAUTH_TOKEN_FILE
(default token.json). The sheets backend uses that token instead of a
service account when GOOGLE_OAUTH_TOKEN_FILE is set.

Add http://localhost:<port>/callback to the client's authorized redirect URIs.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().IntVar(&loginPort, "port", 8085, "local port of the OAuth redirect")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "how long to wait for the consent")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := gsheet.OAuthConfigFromEnv()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", loginPort))
	if err != nil {
		return fmt.Errorf("listening for redirect: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	tok, err := gsheet.Authorize(ctx, cfg, ln, func(url string) {
		fmt.Printf("Open this URL to authorize:\n%s\n", url)
	})
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	out := gsheet.TokenFile()
	if err := gsheet.SaveToken(out, tok); err != nil {
		return err
	}
	fmt.Printf("Saved token to %s\n", out)
	return nil
}
