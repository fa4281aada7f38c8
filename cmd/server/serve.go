package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadapter "certportal/internal/adapters/http"
	"certportal/internal/adapters/localauth"
	pg "certportal/internal/adapters/postgres"
	"certportal/internal/adapters/supabase"
	"certportal/internal/config"
	"certportal/internal/platform/health"
	"certportal/internal/platform/metrics"
	"certportal/internal/ports"
	"certportal/internal/render"
	certsvc "certportal/internal/services/certificates"
	"certportal/internal/services/sessions"
	"certportal/internal/services/verify"
	"certportal/internal/workers/sessionrelay"
	"certportal/internal/workers/sessionsweep"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if log == nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return serve(cmd.Context(), cfg, log)
}

// backend is the data and auth surface selected by BACKEND.
type backend struct {
	repo    ports.CertificateRepository
	auth    ports.Authenticator
	sweeper ports.SessionSweeper
	close   func()
}

func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger, hc *health.Handler) (*backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := pg.Connect(ctx, cfg.Postgres.DatabaseURL, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		auth, err := localauth.New(localauth.Config{
			AdminEmail:        cfg.Auth.AdminEmail,
			AdminPasswordHash: cfg.Auth.AdminPasswordHash,
			Secret:            cfg.Auth.JWTSecret,
			SessionTTL:        cfg.Auth.SessionTTL,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
		hc.RegisterCheck("postgres", db.Health)
		log.Info("using postgres backend")
		return &backend{repo: db, auth: auth, sweeper: auth, close: db.Close}, nil

	default:
		client := supabase.New(cfg.Supabase.URL, cfg.Supabase.AnonKey, log,
			supabase.WithTable(cfg.Supabase.Table),
			supabase.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout}),
		)
		hc.RegisterCheck("supabase", client.Health)
		log.Info("using supabase backend", zap.String("url", cfg.Supabase.URL))
		return &backend{repo: client, auth: client, close: func() {}}, nil
	}
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	hc := health.New(cfg.Env, log)

	rules := render.DefaultRules()
	if cfg.BadgeRulesFile != "" {
		loaded, err := render.LoadRules(cfg.BadgeRulesFile)
		if err != nil {
			return err
		}
		rules = loaded
		log.Info("badge rules loaded", zap.String("file", cfg.BadgeRulesFile), zap.Int("rules", len(rules)))
	}

	be, err := openBackend(ctx, cfg, log, hc)
	if err != nil {
		return err
	}
	defer be.close()

	broker := sessions.NewBroker(m, log)
	manager := sessions.NewManager(be.auth, broker, m, log)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Redis.Addr != "" {
		relay, err := sessionrelay.Connect(ctx, sessionrelay.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, log)
		if err != nil {
			return err
		}
		defer relay.Close()
		broker.SetPublisher(relay)
		hc.RegisterCheck("redis", relay.Health)
		g.Go(func() error { return relay.Run(ctx, broker) })
	}

	if be.sweeper != nil {
		g.Go(func() error {
			sessionsweep.Run(ctx, be.sweeper, broker, cfg.SweepInterval, log)
			return nil
		})
	}

	srv := httpadapter.New(httpadapter.Options{
		Verifier:       verify.New(be.repo, m, log),
		Certificates:   certsvc.New(be.repo),
		Sessions:       manager,
		Rules:          rules,
		Health:         hc,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Log:            log,
		CookieSecure:   cfg.CookieSecure,
	})
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end with the group so open event streams close on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("backend", cfg.Backend))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
