package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in and out of your showdeck account",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in via the browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if sess, ok := app.sessions.Current(); ok {
			fmt.Printf("Already signed in as %s. Run `showdeck auth logout` first to switch accounts.\n", sess.Username)
			return nil
		}

		url, err := app.sessions.BeginLogin()
		if err != nil {
			fmt.Printf("Open this URL to sign in:\n  %s\n\n", url)
		} else {
			fmt.Println("A browser window should have opened; sign in there.")
		}

		fmt.Print("Paste the access token shown after signing in: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token := strings.TrimSpace(line)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		profile, err := app.backend.WhoAmI(ctx, token)
		if err != nil {
			return fmt.Errorf("token rejected: %w", err)
		}

		if err := app.sessions.CompleteLogin(token, *profile); err != nil {
			return err
		}

		fmt.Printf("Signed in as %s.\n", profile.Username)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.sessions.Logout(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		sess, ok := app.sessions.Current()
		if !ok {
			fmt.Println("Not signed in.")
			return nil
		}
		fmt.Printf("Signed in as %s (user %s).\n", sess.Username, sess.UserID)
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
}
