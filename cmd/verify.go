package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kubeconfig-updater/internal/app"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every context can reach and authenticate to its cluster",
		Long: `Probes every context of the kubeconfig with its current credentials: the
API server version is requested and the nodes are listed. The kubeconfig is
not modified.

Exits 0 when every context passed and 2 otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return exitError(application.Verify(commandContext(cmd)))
		},
	}
}
