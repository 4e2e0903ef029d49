package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kubeconfig-updater/internal/kubeconfig"
)

// mockHome points the loader at a temporary home directory and restores the
// package seams when the test ends.
func mockHome(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	originalOsUserHomeDir := osUserHomeDir
	originalGetUserConfigPath := getUserConfigPath
	originalDefaultKubeconfigPath := defaultKubeconfigPath
	t.Cleanup(func() {
		osUserHomeDir = originalOsUserHomeDir
		getUserConfigPath = originalGetUserConfigPath
		defaultKubeconfigPath = originalDefaultKubeconfigPath
	})

	osUserHomeDir = func() (string, error) { return tempDir, nil }
	getUserConfigPath = func() (string, error) {
		return filepath.Join(tempDir, userConfigDir, configFileName), nil
	}
	defaultKubeconfigPath = func() string {
		return filepath.Join(tempDir, ".kube", "config")
	}
	return tempDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	home := mockHome(t)

	loadedConfig, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".kube", "config"), loadedConfig.Kubeconfig)
	assert.Equal(t, kubeconfig.DefaultBackupSuffix, loadedConfig.BackupSuffix)
	assert.Empty(t, loadedConfig.RemotePath, "the fetcher supplies the default remote path")
	assert.Equal(t, DefaultSSHPort, loadedConfig.SSH.Port)
	assert.Equal(t, DefaultConnectTimeout, loadedConfig.SSH.ConnectTimeout)
	assert.Equal(t, DefaultCommandTimeout, loadedConfig.SSH.CommandTimeout)
	assert.Equal(t, filepath.Join(home, ".ssh", "known_hosts"), loadedConfig.SSH.KnownHostsFile)
	assert.True(t, loadedConfig.SSH.SSHConfigEnabled())
	assert.False(t, loadedConfig.Verify)
}

func TestLoadConfig_UserOverride(t *testing.T) {
	home := mockHome(t)

	writeFile(t, filepath.Join(home, userConfigDir, configFileName), `
remotePath: /etc/rancher/k3s/k3s.yaml
verify: true
ssh:
  port: 2222
  identityFile: ~/.ssh/cluster_ed25519
  connectTimeout: 10s
  useSSHConfig: false
`)

	loadedConfig, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/etc/rancher/k3s/k3s.yaml", loadedConfig.RemotePath)
	assert.True(t, loadedConfig.Verify)
	assert.Equal(t, 2222, loadedConfig.SSH.Port)
	assert.Equal(t, filepath.Join(home, ".ssh", "cluster_ed25519"), loadedConfig.SSH.IdentityFile)
	assert.Equal(t, 10*time.Second, loadedConfig.SSH.ConnectTimeout)
	assert.Equal(t, DefaultCommandTimeout, loadedConfig.SSH.CommandTimeout, "unset values keep their default")
	assert.False(t, loadedConfig.SSH.SSHConfigEnabled())
	assert.Equal(t, kubeconfig.DefaultBackupSuffix, loadedConfig.BackupSuffix)
}

func TestLoadConfig_ExplicitOverridesUser(t *testing.T) {
	home := mockHome(t)

	writeFile(t, filepath.Join(home, userConfigDir, configFileName), `
backupSuffix: .user
ssh:
  port: 2222
`)
	explicit := filepath.Join(home, "explicit.yaml")
	writeFile(t, explicit, `
backupSuffix: .orig
kubeconfig: ~/clusters/lab.yaml
`)

	loadedConfig, err := LoadConfig(explicit)
	require.NoError(t, err)

	assert.Equal(t, ".orig", loadedConfig.BackupSuffix)
	assert.Equal(t, filepath.Join(home, "clusters", "lab.yaml"), loadedConfig.Kubeconfig)
	assert.Equal(t, 2222, loadedConfig.SSH.Port)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		userFile string
		explicit func(home string) string
	}{
		{
			name:     "malformed user file",
			userFile: "ssh: [not, a, mapping",
		},
		{
			name: "missing explicit file",
			explicit: func(home string) string {
				return filepath.Join(home, "does-not-exist.yaml")
			},
		},
		{
			name:     "invalid duration",
			userFile: "ssh:\n  connectTimeout: soon\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := mockHome(t)
			if tt.userFile != "" {
				writeFile(t, filepath.Join(home, userConfigDir, configFileName), tt.userFile)
			}
			explicit := ""
			if tt.explicit != nil {
				explicit = tt.explicit(home)
			}

			_, err := LoadConfig(explicit)
			assert.Error(t, err)
		})
	}
}

func TestGetUserConfigDir(t *testing.T) {
	home := mockHome(t)

	dir, err := GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, userConfigDir), dir)
}
