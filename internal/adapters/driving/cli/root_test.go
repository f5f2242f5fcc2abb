package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "lexsync", rootCmd.Use)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{
		"sources", "status", "connect", "model", "load", "pipeline",
		"update", "update-all", "history", "version",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	for _, name := range []string{"verbose", "json-logs", "config", "data-dir", "metrics-file"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestExecute_BootstrapAndCleanup(t *testing.T) {
	defer withServices(nil, nil, nil)()

	var got GlobalOptions
	cleaned := false
	SetBootstrap(func(_ context.Context, opts GlobalOptions) (*Services, func() error, error) {
		got = opts
		return &Services{Sources: &mockSources{sources: sampleSources()}}, func() error {
			cleaned = true
			return nil
		}, nil
	})
	defer SetBootstrap(nil)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sources", "--data-dir", "/tmp/lexsync", "--metrics-file", "/tmp/lexsync.prom"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, Execute(context.Background()))
	assert.Equal(t, "/tmp/lexsync", got.DataDir)
	assert.Equal(t, "/tmp/lexsync.prom", got.MetricsFile)
	assert.True(t, cleaned)
	assert.Contains(t, buf.String(), "codice-civile")
}

func TestExecute_CleanupRunsAfterFailure(t *testing.T) {
	defer withServices(nil, nil, nil)()

	errCleanup := errors.New("flush metrics")
	SetBootstrap(func(context.Context, GlobalOptions) (*Services, func() error, error) {
		return &Services{Sources: &mockSources{err: errUpstream}}, func() error { return errCleanup }, nil
	})
	defer SetBootstrap(nil)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})
	defer rootCmd.SetArgs(nil)

	err := Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errUpstream)
	assert.ErrorIs(t, err, errCleanup)
}

func TestExecute_BootstrapError(t *testing.T) {
	defer withServices(nil, nil, nil)()

	errOpen := errors.New("database locked")
	SetBootstrap(func(context.Context, GlobalOptions) (*Services, func() error, error) {
		return nil, nil, errOpen
	})
	defer SetBootstrap(nil)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sources"})
	defer rootCmd.SetArgs(nil)

	assert.ErrorIs(t, Execute(context.Background()), errOpen)
}
