package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-fintrack/authstate"
	"github.com/goliatone/go-fintrack/client"
	"github.com/spf13/cobra"
)

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(e *env) *prompter {
	return &prompter{in: bufio.NewReader(e.io.In), out: e.io.Out}
}

// value returns current when set, otherwise asks for it.
func (p *prompter) value(current, label string) (string, error) {
	if current != "" {
		return current, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

func newLoginCommand(e *env) *cobra.Command {
	var email, password, provider, token, code, state string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a password or an OAuth provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p := newPrompter(e)

			var (
				record authstate.Record
				err    error
			)
			switch {
			case token != "":
				record, err = e.repo.SignInWithToken(ctx, token)
			case provider != "" && code != "":
				record, err = e.repo.CompleteSocial(ctx, provider, code, state)
			case provider != "":
				record, err = socialLogin(ctx, e, p, provider)
			default:
				if email, err = p.value(email, "Email"); err != nil {
					return err
				}
				if password, err = p.value(password, "Password"); err != nil {
					return err
				}
				record, err = e.repo.SignIn(ctx, email, password)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(e.io.Out, "Signed in as %s\n", describe(record))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&email, "email", "", "account email")
	f.StringVar(&password, "password", "", "account password")
	f.StringVar(&provider, "provider", "", "OAuth provider, e.g. google")
	f.StringVar(&token, "token", "", "adopt a token issued by the OAuth callback")
	f.StringVar(&code, "code", "", "OAuth authorization code, with --provider and --state")
	f.StringVar(&state, "state", "", "OAuth state, with --provider and --code")
	return cmd
}

func socialLogin(ctx context.Context, e *env, p *prompter, provider string) (authstate.Record, error) {
	redirect, err := e.api.BeginSocial(ctx, provider)
	if err != nil {
		return authstate.Record{}, err
	}

	fmt.Fprintf(e.io.Out, "Open this URL to sign in with %s:\n\n  %s\n\n", redirect.Provider, redirect.URL)
	token, err := p.value("", "Token shown after signing in")
	if err != nil {
		return authstate.Record{}, err
	}
	return e.repo.SignInWithToken(ctx, token)
}

func newRegisterCommand(e *env) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(e)
			var err error
			if name, err = p.value(name, "Name"); err != nil {
				return err
			}
			if email, err = p.value(email, "Email"); err != nil {
				return err
			}
			if password, err = p.value(password, "Password"); err != nil {
				return err
			}

			record, err := e.repo.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.io.Out, "Welcome %s\n", describe(record))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "display name")
	f.StringVar(&email, "email", "", "account email")
	f.StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !e.store.IsAuthenticated() {
				fmt.Fprintln(e.io.Out, "Not signed in")
				return nil
			}
			if err := e.repo.SignOut(cmd.Context()); err != nil {
				e.logger.Warn("server logout failed, local session removed", "error", err)
			}
			fmt.Fprintln(e.io.Out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(e *env) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printState(e.io.Out, e.store.State())
			if !watch {
				return nil
			}
			return watchSession(cmd.Context(), e)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and print every sign in or out")
	return cmd
}

// watchSession prints the store state whenever the session file changes.
func watchSession(ctx context.Context, e *env) error {
	watcher, err := client.NewSessionWatcher(e.sessions.Path(), e.repo, 0)
	if err != nil {
		return err
	}
	watcher.WithLogger(e.logger)

	changes := make(chan authstate.State, 8)
	off := e.store.OnChange(func(s authstate.State) {
		select {
		case changes <- s:
		default:
		}
	})
	defer off()

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-changes:
			printState(e.io.Out, s)
		}
	}
}

func printState(w io.Writer, s authstate.State) {
	record, ok := s.User.Record()
	if !ok {
		fmt.Fprintln(w, "Not signed in")
		return
	}
	fmt.Fprintf(w, "Signed in as %s (id %s)\n", describe(record), record.ID)
}

func describe(r authstate.Record) string {
	switch {
	case r.DisplayName != "" && r.Email != "":
		return fmt.Sprintf("%s <%s>", r.DisplayName, r.Email)
	case r.Email != "":
		return r.Email
	case r.DisplayName != "":
		return r.DisplayName
	default:
		return r.ID
	}
}
