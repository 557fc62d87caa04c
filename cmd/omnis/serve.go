package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/polisai/omnis/internal/governance"
	"github.com/polisai/omnis/pkg/attachment"
	"github.com/polisai/omnis/pkg/catalog"
	"github.com/polisai/omnis/pkg/config"
	"github.com/polisai/omnis/pkg/domain"
	"github.com/polisai/omnis/pkg/engine"
	"github.com/polisai/omnis/pkg/intent"
	"github.com/polisai/omnis/pkg/logging"
	"github.com/polisai/omnis/pkg/server"
	"github.com/polisai/omnis/pkg/storage"
	"github.com/polisai/omnis/pkg/telemetry"
	"github.com/spf13/cobra"
)

// serveFlags holds the parsed serve flags
type serveFlags struct {
	Config   string
	Addr     string
	LogLevel string
	Pretty   bool
}

func parseServeFlags(cmd *cobra.Command) (*serveFlags, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return nil, fmt.Errorf("failed to get addr flag: %w", err)
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	pretty, err := cmd.Flags().GetBool("pretty")
	if err != nil {
		return nil, fmt.Errorf("failed to get pretty flag: %w", err)
	}

	return &serveFlags{
		Config:   configPath,
		Addr:     addr,
		LogLevel: logLevel,
		Pretty:   pretty,
	}, nil
}

// flagOverrides returns a function that applies the explicitly set serve flags
// to a configuration. It is applied at startup and again to every reload.
func flagOverrides(cmd *cobra.Command, flags *serveFlags) func(*config.Config) {
	levelSet := cmd.Flags().Changed("log-level")
	prettySet := cmd.Flags().Changed("pretty")

	return func(cfg *config.Config) {
		if flags.Addr != "" {
			cfg.Server.Addr = flags.Addr
		}
		if levelSet {
			cfg.Logging.Level = flags.LogLevel
		}
		if prettySet {
			cfg.Logging.Pretty = flags.Pretty
		}
	}
}

// loadServeConfig loads the file (if any) and lets explicitly set flags win.
func loadServeConfig(cmd *cobra.Command, flags *serveFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return nil, err
	}

	flagOverrides(cmd, flags)(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// buildClassifier appends the configured keyword rules to the built-in table.
func buildClassifier(cfg *config.Config) (*intent.Classifier, error) {
	extra := make([]intent.Rule, 0, len(cfg.Intent.ExtraRules))
	for _, r := range cfg.Intent.ExtraRules {
		extra = append(extra, intent.KeywordRule(r.Name, domain.Category(r.Category), r.Tokens))
	}
	classifier, err := intent.WithExtraRules(extra)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	return classifier, nil
}

// buildEngine wires the engine collaborators from configuration.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	cat := catalog.Default()
	if cfg.Catalog.AgentsFile != "" {
		var err error
		cat, err = catalog.LoadFile(cfg.Catalog.AgentsFile)
		if err != nil {
			return nil, err
		}
	}

	classifier, err := buildClassifier(cfg)
	if err != nil {
		return nil, err
	}

	var selector engine.Selector
	if cfg.Simulator.Seed != 0 {
		selector = engine.NewSeededSelector(cfg.Simulator.Seed)
	}

	validator := attachment.NewValidator(attachment.Policy{
		AllowedTypes: cfg.Attachments.AllowedTypes,
		MaxSizeBytes: cfg.Attachments.MaxSizeBytes,
	}, logger)

	simulator := engine.NewSimulator(engine.SimulatorConfig{
		MinDelay:      cfg.Simulator.MinDelay,
		MaxDelay:      cfg.Simulator.MaxDelay,
		FrameworkName: cfg.Simulator.FrameworkName,
	}, selector, logger)

	return engine.New(engine.Options{
		Catalog:    cat,
		Validator:  validator,
		Classifier: classifier,
		Simulator:  simulator,
		Sessions:   storage.NewMemorySessionStore(domain.View(cfg.Sessions.DefaultView), logger),
		Logger:     logger,
	})
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, _ []string) error {
	flags, err := parseServeFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadServeConfig(cmd, flags)
	if err != nil {
		return err
	}

	levelVar := new(slog.LevelVar)
	logger := logging.NewLogger(logging.Config{
		Level:    cfg.Logging.Level,
		Pretty:   cfg.Logging.Pretty,
		LevelVar: levelVar,
	})
	slog.SetDefault(logger)

	logger.Info("Starting omnis", "version", version, "config", flags.Config, "addr", cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     cfg.Telemetry.Headers,
		ResourceTags: map[string]string{
			"service.version": version,
		},
	})
	if err != nil {
		logger.Error("Failed to set up telemetry", "error", err)
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("Failed to flush telemetry", "error", err)
		}
	}()

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Error("Failed to build engine", "error", err)
		return err
	}
	defer func() { _ = eng.Close() }()

	metrics := server.NewMetrics(eng.ActiveSessions)

	if flags.Config != "" {
		loader, err := config.NewLoader(flags.Config, logger)
		if err != nil {
			return err
		}
		baseline, err := loader.Load()
		if err != nil {
			return err
		}
		override := flagOverrides(cmd, flags)
		if err := loader.Watch(func(next *config.Config) {
			applyReload(baseline, next, override, levelVar, metrics, logger)
		}); err != nil {
			logger.Warn("Config hot reload disabled", "error", err)
		}
		defer func() { _ = loader.Close() }()
	}

	srvCfg := server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	if cfg.Server.TLS != nil {
		srvCfg.CertFile = cfg.Server.TLS.CertFile
		srvCfg.KeyFile = cfg.Server.TLS.KeyFile
	}

	var opts []server.Option
	limits := governance.RateLimiterConfig{
		RequestsPerSecond: cfg.Limits.SubmissionsPerSecond,
		BurstSize:         cfg.Limits.Burst,
	}
	if limits.Enabled() {
		opts = append(opts, server.WithSubmitLimiter(governance.NewRateLimiter(limits)))
	}

	srv := server.New(srvCfg, server.NewHandler(eng, metrics, logger, opts...), logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", "error", err)
		return err
	}

	logger.Info("Omnis stopped")
	return nil
}

// applyReload applies the live-reloadable settings from next. Only the log
// level changes at runtime; everything else needs a restart. baseline and next
// are both file configurations; explicit flags are re-applied through override
// so they keep winning over the file.
func applyReload(baseline, next *config.Config, override func(*config.Config), levelVar *slog.LevelVar, metrics *server.Metrics, logger *slog.Logger) {
	effective := *next
	override(&effective)

	level, err := logging.ParseLevel(effective.Logging.Level)
	if err != nil {
		metrics.RecordConfigReload("error")
		logger.Error("Ignoring reloaded log level", "level", effective.Logging.Level, "error", err)
		return
	}
	levelVar.Set(level)
	metrics.RecordConfigReload("success")

	logger.Info("Log level applied", "level", effective.Logging.Level)
	if restartRequired(baseline, next) {
		logger.Warn("Configuration changed outside logging; restart to apply")
	}
}

func restartRequired(baseline, next *config.Config) bool {
	a, b := *baseline, *next
	a.Logging, b.Logging = config.LoggingConfig{}, config.LoggingConfig{}
	return !reflect.DeepEqual(a, b)
}
