package app

import (
	"io"
	"os"
	"time"

	"kubeconfig-updater/internal/config"
	"kubeconfig-updater/internal/remote"
)

// Config holds the command line settings of one invocation. Zero values mean
// "not given on the command line" and leave the layered settings alone.
type Config struct {
	// Settings file layered on top of the user configuration
	ConfigPath string

	Kubeconfig string
	RemotePath string

	DryRun bool
	Verify bool
	Debug  bool

	// SSH overrides
	SSHPort               int
	IdentityFile          string
	InsecureIgnoreHostKey bool
	ConnectTimeout        time.Duration

	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
}

// NewConfig creates a Config bound to the process streams.
func NewConfig() *Config {
	return &Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Settings loads the layered tool configuration and applies the command line
// overrides on top of it.
func (c *Config) Settings() (config.UpdaterConfig, error) {
	settings, err := config.LoadConfig(c.ConfigPath)
	if err != nil {
		return config.UpdaterConfig{}, err
	}
	return c.apply(settings), nil
}

func (c *Config) apply(s config.UpdaterConfig) config.UpdaterConfig {
	if c.Kubeconfig != "" {
		s.Kubeconfig = c.Kubeconfig
	}
	if c.RemotePath != "" {
		s.RemotePath = c.RemotePath
	}
	if s.RemotePath == "" {
		s.RemotePath = remote.DefaultRemotePath
	}
	if c.Verify {
		s.Verify = true
	}
	if c.Debug {
		s.LogLevel = "debug"
	}
	if c.SSHPort != 0 {
		s.SSH.Port = c.SSHPort
	}
	if c.IdentityFile != "" {
		s.SSH.IdentityFile = c.IdentityFile
	}
	if c.InsecureIgnoreHostKey {
		s.SSH.InsecureIgnoreHostKey = true
	}
	if c.ConnectTimeout != 0 {
		s.SSH.ConnectTimeout = c.ConnectTimeout
	}
	return s
}
