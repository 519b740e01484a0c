package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Bahjat/link-audit/internal/analyzer"
	"github.com/Bahjat/link-audit/internal/linkaudit"
	"github.com/Bahjat/link-audit/internal/platform/config"
	"github.com/Bahjat/link-audit/internal/platform/logger"
	"github.com/Bahjat/link-audit/internal/platform/middleware"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "link-audit: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.LogLevel)

	fetcher := linkaudit.NewHTTPClient(cfg.UserAgent, cfg.PageTimeout, cfg.AllowPrivateNetworks)
	prober := linkaudit.NewProber(linkaudit.ProberOptions{
		UserAgent:            cfg.UserAgent,
		LinkTimeout:          cfg.LinkTimeout,
		ExternalTimeout:      cfg.ExternalTimeout,
		AllowPrivateNetworks: cfg.AllowPrivateNetworks,
	}, cfg.LinkCheckConcurrency)
	engine := linkaudit.NewEngine(fetcher, prober,
		linkaudit.NewGate(cfg.LinkCheckConcurrency),
		linkaudit.NewGate(cfg.BatchConcurrency),
		linkaudit.EngineConfig{
			Domain:  cfg.SiteDomain,
			Profile: linkaudit.DefaultSiteProfile(),
			Logger:  log,
		},
	)

	svc := analyzer.NewService(engine, log)
	mux := http.NewServeMux()
	analyzer.NewTransport(svc, log).RegisterRoutes(mux)

	handler := middleware.RequestID(middleware.Logging(log)(middleware.Recover(log)(mux)))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			"port", cfg.Port,
			"link_concurrency", cfg.LinkCheckConcurrency,
			"batch_concurrency", cfg.BatchConcurrency,
			"site_domain", cfg.SiteDomain,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
