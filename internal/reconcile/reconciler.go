// Package reconcile walks the contexts of a kubeconfig and refreshes the
// certificate credentials of each from its control-plane node.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"kubeconfig-updater/internal/credentials"
	"kubeconfig-updater/internal/kubeconfig"
	"kubeconfig-updater/internal/prompt"
	"kubeconfig-updater/internal/remote"
	"kubeconfig-updater/pkg/logging"
)

const subsystem = "Reconciler"

// Store is the part of *kubeconfig.Store the reconciler uses.
type Store interface {
	Backup() error
	Save() error
	Contexts() []kubeconfig.Context
	FindCluster(name string) (kubeconfig.Cluster, bool)
	FindUser(name string) (kubeconfig.User, bool)
	SetClusterField(name, field, value string) (bool, error)
	SetUserField(name, field, value string) (bool, error)
}

var _ Store = (*kubeconfig.Store)(nil)

// Reconciler refreshes every context of a Store, one at a time in document
// order.
type Reconciler struct {
	store    Store
	dialer   remote.Dialer
	prompter prompt.Prompter

	dryRun     bool
	remotePath string
	progress   io.Writer
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDryRun fetches and merges in memory but neither backs up nor saves.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) { r.dryRun = dryRun }
}

// WithRemotePath overrides the credential file read on each node.
func WithRemotePath(path string) Option {
	return func(r *Reconciler) { r.remotePath = path }
}

// WithProgress writes one "Processing context i/N" line per context to w.
func WithProgress(w io.Writer) Option {
	return func(r *Reconciler) {
		if w != nil {
			r.progress = w
		}
	}
}

// New returns a Reconciler for store. Remote sessions are opened through
// dialer and every question is asked through prompter.
func New(store Store, dialer remote.Dialer, prompter prompt.Prompter, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:      store,
		dialer:     dialer,
		prompter:   prompter,
		remotePath: remote.DefaultRemotePath,
		progress:   io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one reconciliation pass. Per-context problems are recorded in
// the returned Summary. A non-nil error means the pass was fatal: the backup
// could not be written, ctx was cancelled, or the final save failed. In all
// of those cases the kubeconfig on disk is unchanged.
func (r *Reconciler) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{DryRun: r.dryRun}

	if !r.dryRun {
		if err := r.store.Backup(); err != nil {
			logging.Error(subsystem, err, "Backup failed, no context was touched")
			return summary, err
		}
	}

	fetcher := remote.NewFetcher(r.dialer, remote.NewSession(r.prompter), remote.WithRemotePath(r.remotePath))
	fetched := make(map[string]credentials.Material)

	contexts := r.store.Contexts()
	for i, c := range contexts {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("reconciliation interrupted before %s: %w", c.Name, err)
		}

		fmt.Fprintf(r.progress, "Processing context %d/%d: %s\n", i+1, len(contexts), c.Name)
		outcome := r.reconcileContext(ctx, fetcher, fetched, c)
		summary.Outcomes = append(summary.Outcomes, outcome)

		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("reconciliation interrupted during %s: %w", c.Name, err)
		}
	}

	if r.dryRun {
		logging.Info(subsystem, "Dry run, kubeconfig left untouched")
		return summary, nil
	}

	if err := r.store.Save(); err != nil {
		logging.Error(subsystem, err, "Saving kubeconfig failed")
		return summary, err
	}
	summary.Saved = true
	return summary, nil
}

// reconcileContext drives one context through
// Pending -> Resolved -> Fetched -> Extracted -> Merged.
func (r *Reconciler) reconcileContext(ctx context.Context, fetcher *remote.Fetcher, fetched map[string]credentials.Material, c kubeconfig.Context) Outcome {
	out := Outcome{
		Context: c.Name,
		Cluster: c.Cluster,
		User:    c.User,
		States:  []State{StatePending},
	}

	cluster, ok := r.store.FindCluster(c.Cluster)
	if !ok {
		return skip(out, KindResolutionSkipped, fmt.Errorf("cluster %q: %w", c.Cluster, kubeconfig.ErrEntryNotFound))
	}
	if _, ok := r.store.FindUser(c.User); !ok {
		return skip(out, KindResolutionSkipped, fmt.Errorf("user %q: %w", c.User, kubeconfig.ErrEntryNotFound))
	}
	out.advance(StateResolved)

	host, err := remote.ParseHost(cluster.Server)
	if err != nil {
		return skip(out, KindEndpointSkipped, err)
	}
	out.Host = host

	material, reused := fetched[cluster.Name]
	if reused {
		logging.Debug(subsystem, "Context %s: reusing credentials fetched for cluster %s", c.Name, cluster.Name)
		out.Reused = true
		out.advance(StateFetched)
	} else {
		res, err := fetcher.Fetch(ctx, cluster.Name, cluster.Server, cluster.ServerUser)
		if err != nil {
			return fail(out, err)
		}
		out.advance(StateFetched)

		if res.Prompted {
			changed, err := r.store.SetClusterField(cluster.Name, kubeconfig.FieldServerUser, res.Username)
			if err != nil {
				return fail(out, fmt.Errorf("caching login name: %w", err))
			}
			out.UsernameCached = changed
		}

		material, err = credentials.Extract(res.Data)
		if err != nil {
			return fail(out, err)
		}
		fetched[cluster.Name] = material
	}
	out.advance(StateExtracted)

	if err := r.merge(&out, cluster.Name, c.User, material); err != nil {
		return fail(out, err)
	}
	out.advance(StateMerged)
	out.Kind = KindMerged

	if out.Updated() {
		logging.Info(subsystem, "Context %s: credentials updated (%d fields)", c.Name, len(out.Changed))
	} else {
		logging.Info(subsystem, "Context %s: credentials already current", c.Name)
	}
	return out
}

// merge patches only the three credential fields, leaving every other key of
// the cluster and user records alone.
func (r *Reconciler) merge(out *Outcome, cluster, user string, m credentials.Material) error {
	patches := []struct {
		set   func(name, field, value string) (bool, error)
		name  string
		field string
		value string
	}{
		{r.store.SetClusterField, cluster, kubeconfig.FieldCertificateAuthorityData, m.Authority},
		{r.store.SetUserField, user, kubeconfig.FieldClientCertificateData, m.ClientCertificate},
		{r.store.SetUserField, user, kubeconfig.FieldClientKeyData, m.ClientKey},
	}

	for _, p := range patches {
		changed, err := p.set(p.name, p.field, p.value)
		if err != nil {
			return fmt.Errorf("merging %s: %w", p.field, err)
		}
		if changed {
			out.Changed = append(out.Changed, p.field)
		}
	}
	return nil
}

func skip(out Outcome, kind Kind, err error) Outcome {
	out.Kind = kind
	out.Err = err
	out.advance(StateSkipped)
	logging.Warn(subsystem, "Context %s: %s: %v", out.Context, kind, err)
	return out
}

func fail(out Outcome, err error) Outcome {
	out.Kind = KindFailed
	out.Err = err
	out.advance(StateFailed)
	logging.Error(subsystem, err, "Context %s: %s", out.Context, describe(err))
	return out
}

func describe(err error) string {
	var (
		connErr      *remote.ConnectionError
		permErr      *remote.PermissionError
		malformedErr *credentials.MalformedError
	)
	switch {
	case errors.As(err, &connErr):
		return "connection failed"
	case errors.As(err, &permErr):
		return "permission denied"
	case errors.As(err, &malformedErr):
		return "malformed remote credentials"
	default:
		return "failed"
	}
}
