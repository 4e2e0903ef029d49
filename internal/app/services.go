package app

import (
	"context"
	"fmt"

	"kubeconfig-updater/internal/config"
	"kubeconfig-updater/internal/kube"
	"kubeconfig-updater/internal/kubeconfig"
	"kubeconfig-updater/internal/prompt"
	"kubeconfig-updater/internal/remote"
	"kubeconfig-updater/internal/reporting"
)

// Verifier probes kubeconfig contexts against their API servers.
type Verifier interface {
	Verify(ctx context.Context, contexts []string) ([]kube.ProbeResult, error)
}

// Services holds the collaborators of one run.
type Services struct {
	Store    *kubeconfig.Store
	Dialer   remote.Dialer
	Prompter prompt.Prompter
	Reporter *reporting.ConsoleReporter
	Verifier Verifier
}

// InitializeServices loads the kubeconfig and builds the SSH transport, the
// terminal prompter and the console reporter.
func InitializeServices(cfg *Config, settings config.UpdaterConfig) (*Services, error) {
	store, err := kubeconfig.Load(settings.Kubeconfig, kubeconfig.WithBackupSuffix(settings.BackupSuffix))
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}

	prompter := prompt.NewTerminal(cfg.Stdin, cfg.Stderr)

	return &Services{
		Store:    store,
		Dialer:   remote.NewSSHDialer(settings.SSH, prompter),
		Prompter: prompter,
		Reporter: reporting.NewConsoleReporter(cfg.Stdout),
		Verifier: kube.NewVerifier(store.Path()),
	}, nil
}
