// Command fintrack-server runs the fintrack REST API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-fintrack/config"
	"github.com/goliatone/go-fintrack/internal/app"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "fintrack-server",
		Short:         "Personal finance tracking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .fintrack.yml, or FINTRACK_CONFIG_FILE)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := config.New(cfgFile)
			if err := v.BindPFlag("server.port", cmd.Flags().Lookup("port")); err != nil {
				return err
			}
			if err := v.BindPFlag("server.host", cmd.Flags().Lookup("host")); err != nil {
				return err
			}

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			base := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			provider := logging.NewSlogProvider(base)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := app.NewServer(ctx, cfg, provider)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Close(closeCtx); err != nil {
					base.Error("close server resources", "error", err)
				}
			}()

			return srv.Run(ctx)
		},
	}
	serve.Flags().Int("port", 8080, "listen port")
	serve.Flags().String("host", "127.0.0.1", "listen host")

	root.AddCommand(serve)
	return root
}
