package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVerifyComponentsCommand(t *testing.T) {
	out, err := execute(t, "verify-components", "--manifest", "../components.yaml", "--dir", "../internal/web/templates")

	require.NoError(t, err)
	assert.Contains(t, out, "✓ Layout (layout.tmpl)")
	assert.NotContains(t, out, "✗")
}

func TestVerifyComponentsCommand_Missing(t *testing.T) {
	_, err := execute(t, "verify-components", "--manifest", "../components.yaml", "--dir", t.TempDir())

	assert.Error(t, err)
}

func TestDeploySystemdCommand(t *testing.T) {
	out, err := execute(t, "deploy", "systemd", "--config", "../deploy/ecosystem.yaml")

	require.NoError(t, err)
	assert.Contains(t, out, "ExecStart=/opt/greenwood/bin/greenwood serve")
	assert.Contains(t, out, "WantedBy=multi-user.target")
}
