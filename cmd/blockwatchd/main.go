package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/blockwatch/internal/watch/common/clock"
	"github.com/haukened/blockwatch/internal/watch/common/log"
	"github.com/haukened/blockwatch/internal/watch/config"
	"github.com/haukened/blockwatch/internal/watch/gateways/authority"
	"github.com/haukened/blockwatch/internal/watch/gateways/httpapi"
	"github.com/haukened/blockwatch/internal/watch/gateways/telegram"
	"github.com/haukened/blockwatch/internal/watch/infra/metrics"
	"github.com/haukened/blockwatch/internal/watch/repos/registry"
	"github.com/haukened/blockwatch/internal/watch/repos/sessions"
	"github.com/haukened/blockwatch/internal/watch/services/intake"
	"github.com/haukened/blockwatch/internal/watch/services/monitor"
	"github.com/haukened/blockwatch/internal/watch/services/notify"
)

const (
	version = "0.1.0-dev"
	appName = "blockwatchd"
)

// Application holds the wired components of the monitor.
type Application struct {
	config    *config.AppConfig
	registry  *registry.Registry
	scheduler *monitor.Scheduler
	intake    *intake.Service
	http      *httpapi.Server
	bot       *telegram.Bot
}

func main() {
	configPath := flag.String("config", os.Getenv("WATCH_CONFIG"), "path to an optional YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appName, version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.LogLevel,
		"interval":  cfg.CheckInterval().String(),
		"endpoints": len(cfg.AuthorityEndpoints),
		"operators": len(cfg.OperatorIDs),
		"telegram":  cfg.TelegramToken != "",
		"http_port": cfg.HTTPPort,
	}, "Starting blockwatch")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Monitor failed")
	}

	log.Info(nil, "blockwatch stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := &clock.RealClock{}
	logger := log.GetLogger()
	m := metrics.New(true)

	reg := registry.New(registry.Options{
		Clock:   clk,
		Logger:  log.Named(logger, "registry"),
		Metrics: m,
	})

	checker := authority.NewChecker(authority.Options{
		Endpoints: cfg.AuthorityEndpoints,
		Scheme:    cfg.AuthorityScheme,
		Timeout:   cfg.PerEndpointTimeout(),
		Logger:    log.Named(logger, "authority"),
		Clock:     clk,
		Metrics:   m,
	})
	log.Info(map[string]any{
		"endpoints": checker.Endpoints(),
		"timeout":   cfg.PerEndpointTimeout().String(),
	}, "Authority checker configured")

	var (
		channel notify.OperatorChannel
		api     *telegram.Client
	)
	if cfg.TelegramToken != "" {
		client, err := telegram.NewClient(telegram.ClientOptions{
			Token:  cfg.TelegramToken,
			APIURL: cfg.TelegramAPIURL,
			Logger: log.Named(logger, "telegram"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram client: %w", err)
		}
		api = client
		channel = client
	} else {
		log.Warn(nil, "No telegram token configured, alerts will only be logged")
		channel = notify.LogChannel{Logger: log.Named(logger, "alerts")}
	}

	dispatcher := notify.NewDispatcher(channel, cfg.OperatorIDs, log.Named(logger, "notify"), m)

	scheduler := monitor.New(checker, reg, dispatcher, monitor.Options{
		Interval:   cfg.CheckInterval(),
		FirstDelay: cfg.FirstCheckDelay(),
		Workers:    cfg.CheckWorkers,
		Logger:     log.Named(logger, "monitor"),
		Clock:      clk,
		Metrics:    m,
	})

	intakeSvc := intake.New(reg, checker, log.Named(logger, "intake"))

	app := &Application{
		config:    cfg,
		registry:  reg,
		scheduler: scheduler,
		intake:    intakeSvc,
	}

	if cfg.HTTPPort > 0 {
		app.http = httpapi.New(httpapi.Options{
			Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
			Intake:  intakeSvc,
			Cycler:  scheduler,
			Metrics: m.Handler(),
			Logger:  log.Named(logger, "http"),
			Debug:   cfg.Env == "dev",
		})
	}

	if api != nil {
		store, err := sessions.New(cfg.SessionCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create session store: %w", err)
		}
		app.bot = telegram.NewBot(telegram.BotOptions{
			API:           api,
			Intake:        intakeSvc,
			Sessions:      store,
			IsOperator:    cfg.IsOperator,
			CheckInterval: cfg.CheckInterval(),
			PollTimeout:   cfg.TelegramPollTimeout(),
			Logger:        log.Named(logger, "bot"),
		})
	}

	return app, nil
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (app *Application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.scheduler.Run(ctx) })
	if app.http != nil {
		g.Go(func() error { return app.http.Run(ctx) })
	}
	if app.bot != nil {
		g.Go(func() error { return app.bot.Run(ctx) })
	}

	log.Info(map[string]any{
		"http": app.http != nil,
		"bot":  app.bot != nil,
	}, "blockwatch started")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("component failed: %w", err)
	}
	return nil
}
