// Package cli is the fintrack command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goliatone/go-fintrack/authstate"
	"github.com/goliatone/go-fintrack/client"
	"github.com/goliatone/go-fintrack/config"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// restoreGrace is how long a command waits past the restore timeout.
const restoreGrace = time.Second

// ErrNotSignedIn is returned by commands that need a session.
var ErrNotSignedIn = errors.New("not signed in, run `fintrack login` first")

// IO are the streams a command talks to.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// env is built before every command and torn down after it.
type env struct {
	cfg      *config.Config
	logger   logging.Logger
	api      *client.Client
	sessions *client.FileSessionStore
	repo     *client.AuthRepository
	manager  *authstate.Manager
	store    *authstate.UserStore
	printer  *message.Printer
	io       IO
}

type rootFlags struct {
	configFile  string
	server      string
	sessionFile string
	logLevel    string
}

// Run executes the CLI with args. Streams left nil default to the process
// stdio.
func Run(ctx context.Context, streams IO, args []string) error {
	root, e := newRootCommand(streams)
	defer e.teardown()

	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(streams IO) (*cobra.Command, *env) {
	if streams.In == nil {
		streams.In = os.Stdin
	}
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}

	flags := &rootFlags{}
	e := &env{io: streams}

	root := &cobra.Command{
		Use:           "fintrack",
		Short:         "Track income, expenses and monthly reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd.Context(), flags)
		},
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default .fintrack.yml, or FINTRACK_CONFIG_FILE)")
	pf.StringVar(&flags.server, "server", "", "API base URL (overrides client.base_url)")
	pf.StringVar(&flags.sessionFile, "session-file", "", "session file (overrides client.session_file)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCommand(e),
		newRegisterCommand(e),
		newLogoutCommand(e),
		newWhoamiCommand(e),
		newTransactionCommand(e),
		newReportCommand(e),
	)
	return root, e
}

func (e *env) setup(ctx context.Context, flags *rootFlags) error {
	v := config.New(flags.configFile)
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if flags.server != "" {
		cfg.Client.BaseURL = flags.server
	}
	if flags.sessionFile != "" {
		cfg.Client.SessionFile = flags.sessionFile
	}
	e.cfg = cfg

	base := logging.New(e.io.Err, flags.logLevel, cfg.Log.Format)
	provider := logging.NewSlogProvider(base)
	e.logger = provider.GetLogger("cli")

	e.printer = message.NewPrinter(language.Make(cfg.Client.Locale))
	e.api = client.New(cfg.Client.BaseURL,
		client.WithTimeout(cfg.Client.Timeout),
		client.WithLogger(provider.GetLogger("client")),
	)
	e.sessions = client.NewFileSessionStore(cfg.Client.SessionFile)
	e.repo = client.NewAuthRepository(e.api, e.sessions).
		WithLogger(provider.GetLogger("client.auth")).
		WithRestoreTimeout(cfg.Client.Timeout)

	e.manager = authstate.NewManager(e.repo).WithLoggerProvider(provider)
	e.store = authstate.NewUserStore()
	e.store.Bind(e.manager)
	e.manager.Initialize()

	timeout := cfg.Client.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// The restore gives up after timeout and falls back to the cached user,
	// so the wait has to outlast it.
	waitCtx, cancel := context.WithTimeout(ctx, timeout+restoreGrace)
	defer cancel()
	if _, err := e.store.WaitReady(waitCtx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

func (e *env) teardown() {
	if e.store != nil {
		e.store.Unbind()
	}
	if e.manager != nil {
		e.manager.Cleanup()
	}
	if e.repo != nil {
		e.repo.Close()
	}
}

// requireUser returns the signed in record.
func (e *env) requireUser() (authstate.Record, error) {
	record, ok := e.store.User().Record()
	if !ok {
		return authstate.Record{}, ErrNotSignedIn
	}
	return record, nil
}
