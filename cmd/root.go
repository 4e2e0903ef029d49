package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kubeconfig-updater/internal/app"
	"kubeconfig-updater/internal/reconcile"
	"kubeconfig-updater/internal/reporting"
)

// cfg collects the flag values of the current invocation.
var cfg = app.NewConfig()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kubeconfig-updater",
	Short: "Refresh kubeconfig certificates from the clusters' control-plane nodes",
	Long: `kubeconfig-updater refreshes the certificate credentials of every context
in your kubeconfig. For each context it connects to the control-plane node
behind the cluster's server URL over SSH, reads /etc/kubernetes/admin.conf
and merges its certificate authority, client certificate and client key into
the local entries. Everything else in the file is left as it is.

The SSH login used for a cluster is asked for once and remembered in the
cluster entry (serveruser). A backup of the kubeconfig is written before
anything changes.

Exit status: 0 when every context was refreshed, 2 when some were skipped or
failed, 1 when nothing could be written.`,
	Args: cobra.NoArgs,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. unreachable nodes, failed writes)
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return exitError(application.Run(commandContext(cmd)))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits the process with its status. This
// is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "kubeconfig-updater version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err on w and maps it onto a process exit status.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return reconcile.ExitOK
	}

	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			reporting.NewConsoleReporter(w).Fatal(exitErr.Err)
		}
		return exitErr.Code
	}

	reporting.NewConsoleReporter(w).Fatal(err)
	return reconcile.ExitFatal
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newVerifyCmd())

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.ConfigPath, "config", "", "Settings file layered over ~/.config/kubeconfig-updater/config.yaml")
	pf.StringVar(&cfg.Kubeconfig, "kubeconfig", "", "Kubeconfig to refresh (default: $KUBECONFIG or ~/.kube/config)")
	pf.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	f := rootCmd.Flags()
	f.StringVar(&cfg.RemotePath, "remote-path", "", "Credential file on the control-plane node (default: /etc/kubernetes/admin.conf)")
	f.BoolVar(&cfg.DryRun, "dry-run", false, "Fetch and merge in memory, print the diff, write nothing")
	f.BoolVar(&cfg.Verify, "verify", false, "Probe every refreshed context against its API server after saving")
	f.IntVar(&cfg.SSHPort, "ssh-port", 0, "SSH port of the control-plane nodes (default: 22 or ~/.ssh/config)")
	f.StringVar(&cfg.IdentityFile, "identity-file", "", "Private key used in addition to ssh-agent keys")
	f.BoolVar(&cfg.InsecureIgnoreHostKey, "insecure-ignore-host-key", false, "Do not verify SSH host keys (use with caution)")
	f.DurationVar(&cfg.ConnectTimeout, "connect-timeout", 0, "SSH connection timeout (default: 5s)")
}
