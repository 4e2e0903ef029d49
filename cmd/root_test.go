package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kubeconfig-updater/internal/kubeconfig"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "kubeconfig-updater" {
		t.Errorf("Expected Use to be 'kubeconfig-updater', got %s", rootCmd.Use)
	}
	if rootCmd.Short == "" || rootCmd.Long == "" {
		t.Error("Expected Short and Long descriptions to be set")
	}
	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
	if rootCmd.RunE == nil {
		t.Error("Expected the root command to run a reconciliation pass")
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "kubeconfig-updater version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())

	assert.Equal(t, "kubeconfig-updater version 1.0.0\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	SetVersion("0.4.0")
	var buf bytes.Buffer
	versionCmd := newVersionCmd()
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	assert.Equal(t, "kubeconfig-updater version 0.4.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, expected := range []string{"version", "verify"} {
		if !found[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestRootFlags(t *testing.T) {
	local := []string{"remote-path", "dry-run", "verify", "ssh-port", "identity-file", "insecure-ignore-host-key", "connect-timeout"}
	for _, name := range local {
		assert.NotNil(t, rootCmd.Flags().Lookup(name), "flag --%s", name)
	}
	for _, name := range []string{"kubeconfig", "config", "debug"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "persistent flag --%s", name)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantOutput string
	}{
		{name: "success", err: nil, wantCode: 0},
		{name: "partial success is silent", err: exitError(2, nil), wantCode: 2},
		{name: "fatal run", err: exitError(1, errors.New("writing kubeconfig: disk full")), wantCode: 1, wantOutput: "disk full"},
		{name: "plain error", err: errors.New("unknown flag: --nope"), wantCode: 1, wantOutput: "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, tt.wantCode, exitCode(tt.err, &buf))
			if tt.wantOutput == "" {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), tt.wantOutput)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	assert.NoError(t, exitError(0, nil))

	cause := errors.New("boom")
	err := exitError(1, cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, "exit status 2", exitError(2, nil).Error())
}

func TestRootCommand_MissingKubeconfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	rootCmd.SetArgs([]string{"--kubeconfig", filepath.Join(home, "absent")})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfg.Kubeconfig = ""
	})

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, kubeconfig.ErrConfigNotFound)

	var buf bytes.Buffer
	assert.Equal(t, 1, exitCode(err, &buf))
	assert.True(t, strings.Contains(buf.String(), "kubeconfig not found"))
}
