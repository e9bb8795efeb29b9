package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	envFile string
	baseURL string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "gosession",
		Short:         "Manage an authenticated backend session from the command line",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "env file to load (default .env)")
	cmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "backend base URL (overrides GOSESSION_BASE_URL)")

	cmd.AddCommand(
		newLoginCommand(flags),
		newLogoutCommand(flags),
		newTokenCommand(flags),
		newStatusCommand(flags),
		newBootstrapCommand(flags),
	)
	return cmd
}

func (f *rootFlags) open(bootstrap bool) (*runtime, error) {
	return openRuntime(runtimeOptions{envFile: f.envFile, baseURL: f.baseURL, bootstrap: bootstrap})
}

func newLoginCommand(flags *rootFlags) *cobra.Command {
	var (
		username      string
		passwordStdin bool
		load          bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			rt, err := flags.open(load)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.manager.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			state := rt.manager.State()
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (session %s, access token valid until %s)\n",
				state.User.Username, state.SessionID, state.AccessExpiration.Format(time.RFC3339))
			if load {
				printReport(cmd, rt.manager.LastBootstrapReport())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().BoolVar(&load, "bootstrap", false, "load settings and collections after login")
	return cmd
}

func newLogoutCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.open(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.manager.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newTokenCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a usable access token, refreshing it when needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.open(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.restore(cmd.Context()); err != nil {
				return err
			}
			tok, ok := rt.manager.AccessToken(cmd.Context())
			if !ok {
				return errors.New("session expired; run `gosession login`")
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}

func newStatusCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a stored session can be restored",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.open(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if !rt.manager.Hydrate(cmd.Context()) {
				fmt.Fprintln(out, "not logged in")
				return nil
			}
			state := rt.manager.State()
			fmt.Fprintf(out, "logged in\nsession:  %s\nexpires:  %s\nbackend:  %s\n",
				state.SessionID, state.AccessExpiration.Format(time.RFC3339), rt.cfg.Auth.BaseURL)
			return nil
		},
	}
}

func newBootstrapCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Restore the session and load settings and every collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.open(true)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.restore(cmd.Context()); err != nil {
				return err
			}
			report := rt.manager.LastBootstrapReport()
			printReport(cmd, report)
			if !report.OK() {
				return fmt.Errorf("%d collections failed to load", len(report.Failures))
			}
			return nil
		},
	}
}

// readPassword reads one line from stdin. The password is echoed when stdin is a
// terminal; use --password-stdin with a pipe to avoid that.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if !fromStdin {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
