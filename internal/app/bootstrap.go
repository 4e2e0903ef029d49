package app

import (
	"context"
	"fmt"

	"kubeconfig-updater/internal/color"
	"kubeconfig-updater/internal/config"
	"kubeconfig-updater/pkg/logging"
)

// Application is one configured invocation of kubeconfig-updater.
type Application struct {
	config   *Config
	settings config.UpdaterConfig
	services *Services
}

// NewApplication loads the settings, initializes logging and builds the
// services of a run. Logs go to the configured stderr so the report on stdout
// stays readable.
func NewApplication(cfg *Config) (*Application, error) {
	settings, err := cfg.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.InitForCLI(logging.ParseLevel(settings.LogLevel), cfg.Stderr)
	color.Initialize(true)

	logging.Debug("Bootstrap", "Using kubeconfig %s, remote path %s", settings.Kubeconfig, settings.RemotePath)

	services, err := InitializeServices(cfg, settings)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, err
	}

	return newApplication(cfg, settings, services), nil
}

func newApplication(cfg *Config, settings config.UpdaterConfig, services *Services) *Application {
	return &Application{
		config:   cfg,
		settings: settings,
		services: services,
	}
}

// Run performs one reconciliation pass and returns the process exit code.
// A non-nil error is always paired with reconcile.ExitFatal.
func (a *Application) Run(ctx context.Context) (int, error) {
	return runReconcile(ctx, a.config, a.settings, a.services)
}

// Verify probes every context of the kubeconfig without touching it.
func (a *Application) Verify(ctx context.Context) (int, error) {
	return runVerify(ctx, a.services)
}
