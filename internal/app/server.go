// Package app wires the fintrack server out of its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/auth/activitymap"
	"github.com/goliatone/go-fintrack/auth/revocation"
	"github.com/goliatone/go-fintrack/auth/social"
	"github.com/goliatone/go-fintrack/auth/social/google"
	"github.com/goliatone/go-fintrack/config"
	"github.com/goliatone/go-fintrack/events"
	"github.com/goliatone/go-fintrack/httpapi"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/goliatone/go-fintrack/persistence"
	"github.com/goliatone/go-fintrack/report"
	"github.com/goliatone/go-fintrack/transaction"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// TopicActivity carries auth.ActivityEvent payloads.
const TopicActivity = "auth.activity"

// Server is a wired API with the resources it owns.
type Server struct {
	App    *fiber.App
	DB     *bun.DB
	Bus    *events.Bus
	Redis  *redis.Client
	Logger logging.Logger

	shutdownTimeout time.Duration
	addr            string
	unsubscribe     []func()
}

// NewServer opens storage, migrates it and builds every service behind the
// REST API.
func NewServer(ctx context.Context, cfg *config.Config, provider logging.LoggerProvider) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	provider, logger := logging.ResolveLogger("app", provider, nil)

	db, err := persistence.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	tables := append(auth.Tables(), social.Tables()...)
	tables = append(tables, transaction.Tables()...)
	tables = append(tables, report.Tables()...)
	if err := persistence.Migrate(ctx, db, tables...); err != nil {
		db.Close()
		return nil, err
	}

	srv := &Server{
		DB:              db,
		Logger:          logger,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		addr:            cfg.Server.Addr(),
	}

	revocations, err := srv.revocationStore(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}

	srv.Bus = events.NewBus(events.Config{
		BufferSize: cfg.Events.BufferSize,
		DropIfFull: cfg.Events.DropIfFull,
	}, provider.GetLogger("events"))

	activity := auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		return srv.Bus.Publish(ctx, TopicActivity, event)
	})
	activityLog := provider.GetLogger("activity")
	srv.unsubscribe = append(srv.unsubscribe, srv.Bus.Subscribe(TopicActivity, func(_ context.Context, msg events.Message) error {
		event, ok := msg.Payload.(auth.ActivityEvent)
		if !ok {
			return fmt.Errorf("unexpected activity payload %T", msg.Payload)
		}
		activityLog.Info("auth activity", activitymap.Normalize(event).Fields()...)
		return nil
	}))

	users := auth.NewUsersRepository(db)
	tokens := auth.NewTokenServiceFromConfig(cfg.Auth, provider.GetLogger("auth.tokens"))
	auther := auth.NewAuthenticator(auth.NewUserProvider(users).WithLoggerProvider(provider), cfg.Auth).
		WithLoggerProvider(provider).
		WithTokenService(tokens).
		WithRevocationStore(revocations).
		WithActivitySink(activity)
	register := auth.NewRegisterUserHandler(users).
		WithActivitySink(activity).
		WithLogger(provider.GetLogger("auth.register"))

	transactions := transaction.NewService(transaction.NewRepository(db), srv.Bus).
		WithLogger(provider.GetLogger("transaction"))
	reports := report.NewService(report.NewRepository(db), transactions).
		WithLogger(provider.GetLogger("report"))
	srv.unsubscribe = append(srv.unsubscribe,
		report.NewConsumer(reports, provider.GetLogger("report.consumer")).Register(srv.Bus))

	deps := httpapi.Dependencies{
		Auth:         auther,
		AuthConfig:   cfg.Auth,
		Register:     register,
		Transactions: transactions,
		Reports:      reports,
		Logger:       provider.GetLogger("http"),
	}
	if cfg.Social.Google.Enabled() {
		deps.Social = newSocial(cfg, db, users, auther, activity, provider)
	}

	srv.App = httpapi.New(deps)
	return srv, nil
}

func newSocial(cfg *config.Config, db *bun.DB, users auth.Users, auther *auth.Auther, activity auth.ActivitySink, provider logging.LoggerProvider) *social.Authenticator {
	secret := cfg.Social.StateKey
	if secret == "" {
		secret = cfg.Auth.SigningKey
	}

	g := cfg.Social.Google
	return social.NewAuthenticator(
		social.NewAccounts(db),
		users,
		auther,
		social.Config{
			StateSecret: secret,
			StateTTL:    cfg.Social.StateTTL,
			AllowSignup: cfg.Social.AllowSignup,
		},
		social.WithProvider(google.New(google.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			CallbackURL:  g.RedirectURL,
			Scopes:       g.Scopes,
		})),
		social.WithActivitySink(activity),
		social.WithLogger(provider.GetLogger("auth.social")),
	)
}

func (s *Server) revocationStore(ctx context.Context, cfg config.RedisConfig) (auth.RevocationStore, error) {
	if cfg.Addr == "" {
		s.Logger.Info("token revocations kept in memory")
		return revocation.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	s.Redis = client
	s.Logger.Info("token revocations kept in redis", "addr", cfg.Addr)
	return revocation.NewRedisStore(client), nil
}

// Run serves on the configured address until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("fintrack server listening", "addr", ln.Addr().String())
		errCh <- s.App.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.Logger.Info("fintrack server shutting down")
	if err := s.App.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// Close drains the bus and releases storage.
func (s *Server) Close(ctx context.Context) error {
	if err := s.Bus.Flush(ctx); err != nil {
		s.Logger.Warn("event bus not drained", "error", err)
	}
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.Bus.Close()

	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	errs = append(errs, s.DB.Close())
	return errors.Join(errs...)
}
