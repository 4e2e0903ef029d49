package config

import (
	"time"
)

// UpdaterConfig is the top-level configuration structure for kubeconfig-updater.
type UpdaterConfig struct {
	Kubeconfig   string    `yaml:"kubeconfig,omitempty"`   // Local kubeconfig to refresh; defaults to $KUBECONFIG or ~/.kube/config
	BackupSuffix string    `yaml:"backupSuffix,omitempty"` // Appended to the kubeconfig path for the pre-run backup (default: ".bak")
	RemotePath   string    `yaml:"remotePath,omitempty"`   // Administrator credential file on the control-plane node
	Verify       bool      `yaml:"verify,omitempty"`       // Probe every context with client-go after a successful save
	LogLevel     string    `yaml:"logLevel,omitempty"`     // debug, info, warn or error
	SSH          SSHConfig `yaml:"ssh"`
}

// SSHConfig holds the transport settings used to reach control-plane nodes.
type SSHConfig struct {
	Port                  int           `yaml:"port,omitempty"`                  // Remote sshd port (default: 22, or the ~/.ssh/config Port)
	IdentityFile          string        `yaml:"identityFile,omitempty"`          // Private key used in addition to ssh-agent keys
	KnownHostsFile        string        `yaml:"knownHostsFile,omitempty"`        // known_hosts used for host key verification
	InsecureIgnoreHostKey bool          `yaml:"insecureIgnoreHostKey,omitempty"` // Skip host key verification entirely
	ConnectTimeout        time.Duration `yaml:"connectTimeout,omitempty"`        // Session establishment timeout
	CommandTimeout        time.Duration `yaml:"commandTimeout,omitempty"`        // Timeout for a single remote read
	UseSSHConfig          *bool         `yaml:"useSSHConfig,omitempty"`          // Consult ~/.ssh/config for Port/IdentityFile/Hostname
}

// SSHConfigEnabled reports whether ~/.ssh/config should be consulted.
func (c SSHConfig) SSHConfigEnabled() bool {
	return c.UseSSHConfig == nil || *c.UseSSHConfig
}
