package config

import (
	"path/filepath"
	"time"

	"k8s.io/client-go/tools/clientcmd"

	"kubeconfig-updater/internal/kubeconfig"
)

const (
	DefaultSSHPort        = 22
	DefaultConnectTimeout = 5 * time.Second
	DefaultCommandTimeout = 30 * time.Second
)

// defaultKubeconfigPath resolves the kubeconfig the same way kubectl does:
// the first $KUBECONFIG entry, falling back to ~/.kube/config.
var defaultKubeconfigPath = func() string {
	return clientcmd.NewDefaultPathOptions().GetDefaultFilename()
}

// GetDefaultConfig returns the built-in configuration. RemotePath stays empty
// here; the fetcher owns that default.
func GetDefaultConfig() UpdaterConfig {
	knownHosts := ""
	if home, err := osUserHomeDir(); err == nil {
		knownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}

	return UpdaterConfig{
		Kubeconfig:   defaultKubeconfigPath(),
		BackupSuffix: kubeconfig.DefaultBackupSuffix,
		LogLevel:     "info",
		SSH: SSHConfig{
			Port:           DefaultSSHPort,
			KnownHostsFile: knownHosts,
			ConnectTimeout: DefaultConnectTimeout,
			CommandTimeout: DefaultCommandTimeout,
		},
	}
}
