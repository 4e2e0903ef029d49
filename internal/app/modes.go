package app

import (
	"context"

	"kubeconfig-updater/internal/config"
	"kubeconfig-updater/internal/reconcile"
	"kubeconfig-updater/internal/reporting"
	"kubeconfig-updater/pkg/logging"
)

// runReconcile refreshes every context, prints the summary and, depending on
// the settings, the dry-run diff or the verification table.
func runReconcile(ctx context.Context, cfg *Config, settings config.UpdaterConfig, svc *Services) (int, error) {
	rep := svc.Reporter
	rep.Header(svc.Store.Path(), cfg.DryRun)

	r := reconcile.New(svc.Store, svc.Dialer, svc.Prompter,
		reconcile.WithDryRun(cfg.DryRun),
		reconcile.WithRemotePath(settings.RemotePath),
		reconcile.WithProgress(rep.ProgressWriter()),
	)

	summary, err := r.Run(ctx)
	if err != nil {
		return reconcile.ExitFatal, err
	}
	rep.Summary(summary)

	if cfg.DryRun {
		if err := showDiff(svc); err != nil {
			return reconcile.ExitFatal, err
		}
		if settings.Verify {
			logging.Info("CLI", "Dry run, skipping verification")
		}
		return summary.ExitCode(), nil
	}

	code := summary.ExitCode()
	if settings.Verify && summary.Saved {
		var merged []string
		for _, o := range summary.Outcomes {
			if o.Kind == reconcile.KindMerged {
				merged = append(merged, o.Context)
			}
		}
		if !verify(ctx, svc, merged) && code == reconcile.ExitOK {
			code = reconcile.ExitPartial
		}
	}
	return code, nil
}

// runVerify probes every context in document order.
func runVerify(ctx context.Context, svc *Services) (int, error) {
	contexts := svc.Store.Contexts()
	names := make([]string, 0, len(contexts))
	for _, c := range contexts {
		names = append(names, c.Name)
	}

	if !verify(ctx, svc, names) {
		return reconcile.ExitPartial, nil
	}
	return reconcile.ExitOK, nil
}

func verify(ctx context.Context, svc *Services, contexts []string) bool {
	results, err := svc.Verifier.Verify(ctx, contexts)
	svc.Reporter.Verification(results)
	if err != nil {
		logging.Warn("CLI", "Verification failed: %v", err)
		return false
	}
	return true
}

func showDiff(svc *Services) error {
	after, err := svc.Store.Bytes()
	if err != nil {
		return err
	}
	text, err := reporting.UnifiedDiff(svc.Store.Path(), svc.Store.Original(), after)
	if err != nil {
		return err
	}
	svc.Reporter.Diff(text)
	return nil
}
