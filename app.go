package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"vidsum/internal/api"
	"vidsum/internal/config"
	"vidsum/internal/history"
	"vidsum/internal/kv"
	"vidsum/internal/logging"
	"vidsum/internal/metrics"
	"vidsum/internal/summarizer"
	"vidsum/internal/terminal"
	"vidsum/internal/ui"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// app holds the components shared by every command
type app struct {
	v          *viper.Viper
	configFile string
	stdout     io.Writer

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	storage  kv.Storage
	store    *history.Store
	client   *api.Client
	svc      *summarizer.Service
	display  *ui.Display
}

func newApp() *app {
	return &app{
		v:      viper.New(),
		stdout: os.Stdout,
	}
}

// loadConfig resolves configuration and the logger only
func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, os.Stderr)
	slog.SetDefault(a.logger)
	if f := config.ConfigFile(a.v); f != "" {
		a.logger.Debug("config loaded", slog.String("file", f))
	}
	return nil
}

// setup builds storage, the backend client and the service
func (a *app) setup(ctx context.Context) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	if a.svc != nil {
		return nil
	}
	cfg := a.cfg

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.MustNew(a.registry)

	storage, err := kv.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	a.storage = storage

	a.display = a.newDisplay()
	a.store = history.NewStore(storage,
		history.WithKey(cfg.StoreKey),
		history.WithRecorder(a.metrics),
		history.WithLogger(a.logger),
	)

	client, err := api.NewClient(cfg.APIURL, cfg.APITimeout,
		api.WithRateLimits(cfg.RatePerMinute, cfg.SummaryRatePerMinute),
		api.WithRecorder(a.metrics),
		api.WithLogger(a.logger),
		api.WithUserAgent(userAgent(cfg.UserAgent)),
	)
	if err != nil {
		_ = storage.Close()
		return err
	}
	a.client = client

	a.svc = summarizer.NewService(client, a.store,
		summarizer.WithLogger(a.logger),
		summarizer.WithSummaryRecorder(a.metrics),
		summarizer.WithLanguage(cfg.Language),
	)
	a.logger.Debug("initialized",
		slog.String("api", cfg.APIURL),
		slog.String("store", cfg.StoreBackend),
	)
	return nil
}

// userAgent defaults to vidsum/<version>
func userAgent(configured string) string {
	if configured != "" {
		return configured
	}
	return "vidsum/" + version
}

// newDisplay targets the terminal unless output was redirected by the caller
func (a *app) newDisplay() *ui.Display {
	if a.stdout == io.Writer(os.Stdout) {
		return ui.NewDisplay()
	}
	return ui.NewDisplayTo(a.stdout, 0)
}

// spinner animates only on an interactive stdout
func (a *app) spinner() *terminal.Spinner {
	if a.stdout != io.Writer(os.Stdout) || !terminal.IsTerminal() {
		return terminal.NewSpinner(io.Discard)
	}
	return terminal.NewSpinner(a.stdout)
}

func (a *app) close() {
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("closing store", slog.Any("error", err))
		}
		a.storage = nil
	}
}
