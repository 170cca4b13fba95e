package main

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["sync"])
	assert.True(t, names["export-state"])
}

func TestRootCommandVerboseFlagRaisesLogLevel(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	logrus.SetLevel(logrus.InfoLevel)

	root := newRootCommand()
	root.SetArgs([]string{"export-state", "--verbose", "--config", "/nonexistent/path.yaml"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	// The command itself fails (bad config path), but PersistentPreRun must
	// still have run first and raised the log level.
	_ = root.Execute()

	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestExportStateCommandFailsOnMissingConfig(t *testing.T) {
	opts := &rootOptions{ConfigPath: "/nonexistent/path.yaml"}
	cmd := newExportStateCommand(opts)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}
