package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-screener/internal/acquire"
	"github.com/JakeFAU/profile-screener/internal/api"
	"github.com/JakeFAU/profile-screener/internal/auth"
	"github.com/JakeFAU/profile-screener/internal/browser/headless"
	"github.com/JakeFAU/profile-screener/internal/config"
	"github.com/JakeFAU/profile-screener/internal/detector"
	"github.com/JakeFAU/profile-screener/internal/logging"
	"github.com/JakeFAU/profile-screener/internal/screener"
	"github.com/JakeFAU/profile-screener/internal/storage/local"
)

// app holds the services shared by every subcommand.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	screener api.Screener
}

func (a *app) Close() {
	_ = a.logger.Sync() //nolint:errcheck // best-effort flush
}

type appKey struct{}

// newApp is the application factory. It's a variable so tests can inject a
// fake screener.
var newApp = buildApp

func buildApp(cfg config.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	det := detector.New()
	opts := []acquire.Option{
		acquire.WithLogger(logger),
		acquire.WithDetector(det),
		acquire.WithAuthFlow(auth.New(cfg.AuthFlowConfig(), det, logger)),
	}
	if dir := cfg.Acquire.DebugScreenshotDir; dir != "" {
		store, err := local.New(local.Config{Dir: dir})
		if err != nil {
			return nil, fmt.Errorf("init screenshot store: %w", err)
		}
		opts = append(opts, acquire.WithArtifactStore(store))
		logger.Info("debug screenshots enabled", zap.String("dir", store.Dir()))
	}

	controller, err := acquire.New(cfg.AcquireConfig(), headless.NewLauncher(logger), opts...)
	if err != nil {
		return nil, fmt.Errorf("init acquisition controller: %w", err)
	}
	svc, err := screener.New(controller, logger)
	if err != nil {
		return nil, fmt.Errorf("init screener: %w", err)
	}
	return &app{cfg: cfg, logger: logger, screener: svc}, nil
}

func appFrom(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey{}).(*app)
	if !ok || a == nil {
		return nil, errors.New("application not initialized")
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	var development bool

	cmd := &cobra.Command{
		Use:   "profilescreener",
		Short: "Screens public professional profiles with a headless browser.",
		Long: `profilescreener loads a profile page in headless Chrome, extracts the
candidate's record, and scores it. It runs either as an HTTP service or as a
one-shot command.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts := []config.LoadOption{
				config.WithFlag("logging.development", cmd.Flags().Lookup("development")),
				config.WithFlag("server.port", cmd.Flags().Lookup("port")),
				config.WithFlag("browser.headless", cmd.Flags().Lookup("headless")),
			}
			cfg, err := config.Load(cfgFile, opts...)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, err := appFrom(cmd.Context()); err == nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("SCREENER_CONFIG"), "config file (YAML or JSON)")
	cmd.PersistentFlags().BoolVar(&development, "development", false, "human-readable development logging")
	cmd.PersistentFlags().Bool("headless", true, "run Chrome headless")

	cmd.AddCommand(newServeCmd(), newScreenCmd())
	return cmd
}
