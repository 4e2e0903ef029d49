package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir

const (
	userConfigDir  = ".config/kubeconfig-updater"
	configFileName = "config.yaml"
)

// LoadConfig loads the configuration by layering the defaults, the user
// configuration file and, when explicitPath is not empty, an explicit file.
// A missing user file is not an error; a missing explicit file is.
func LoadConfig(explicitPath string) (UpdaterConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// Log this error but don't fail; user config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return UpdaterConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	if explicitPath != "" {
		explicitConfig, err := loadConfigFromFile(expandHome(explicitPath))
		if err != nil {
			return UpdaterConfig{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
		config = mergeConfigs(config, explicitConfig)
	}

	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// loadConfigFromFile loads an UpdaterConfig from a YAML file.
func loadConfigFromFile(filePath string) (UpdaterConfig, error) {
	var config UpdaterConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return UpdaterConfig{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return UpdaterConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Zero values in
// the overlay leave the base untouched.
func mergeConfigs(base, overlay UpdaterConfig) UpdaterConfig {
	merged := base

	if overlay.Kubeconfig != "" {
		merged.Kubeconfig = expandHome(overlay.Kubeconfig)
	}
	if overlay.BackupSuffix != "" {
		merged.BackupSuffix = overlay.BackupSuffix
	}
	if overlay.RemotePath != "" {
		merged.RemotePath = overlay.RemotePath
	}
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}
	if overlay.Verify {
		merged.Verify = true
	}

	if overlay.SSH.Port != 0 {
		merged.SSH.Port = overlay.SSH.Port
	}
	if overlay.SSH.IdentityFile != "" {
		merged.SSH.IdentityFile = expandHome(overlay.SSH.IdentityFile)
	}
	if overlay.SSH.KnownHostsFile != "" {
		merged.SSH.KnownHostsFile = expandHome(overlay.SSH.KnownHostsFile)
	}
	if overlay.SSH.InsecureIgnoreHostKey {
		merged.SSH.InsecureIgnoreHostKey = true
	}
	if overlay.SSH.ConnectTimeout != 0 {
		merged.SSH.ConnectTimeout = overlay.SSH.ConnectTimeout
	}
	if overlay.SSH.CommandTimeout != 0 {
		merged.SSH.CommandTimeout = overlay.SSH.CommandTimeout
	}
	if overlay.SSH.UseSSHConfig != nil {
		v := *overlay.SSH.UseSSHConfig
		merged.SSH.UseSSHConfig = &v
	}

	return merged
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := osUserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
