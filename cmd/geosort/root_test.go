package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosort-service/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "geocode", "inspect"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"in", "out", "map", "geojson", "concurrency"} {
		require.NotNil(t, runCmd.Flags().Lookup(name), "run command should have --%s flag", name)
	}
	assert.Equal(t, "0", runCmd.Flags().Lookup("concurrency").DefValue)
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.csv")
	require.NoError(t, os.WriteFile(path, []byte("Street;No;Zip;City\nMain St;1;12345;Town\n"), 0o644))

	c := &config.Config{Geocode: config.GeocodeConfig{Columns: config.ColumnsConfig{Street: 0, HouseNumber: 1, PostalCode: 2, City: 3}}}
	cfg = c
	t.Cleanup(func() { cfg = nil })

	var out bytes.Buffer
	inspectCmd.SetOut(&out)
	inspectIn = path
	t.Cleanup(func() { inspectIn = "" })

	require.NoError(t, inspectCmd.RunE(inspectCmd, nil))

	s := out.String()
	assert.Contains(t, s, "rows:    1")
	assert.Contains(t, s, "[3] City")
	assert.Contains(t, s, `"Main St 1, 12345 Town"`)
}

func TestInspectCommand_ParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.xls")
	require.NoError(t, os.WriteFile(path, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, 0o644))

	cfg = &config.Config{}
	t.Cleanup(func() { cfg = nil })
	inspectIn = path
	t.Cleanup(func() { inspectIn = "" })

	assert.Error(t, inspectCmd.RunE(inspectCmd, nil))
}

func TestRootCommand_WrapsSetupErrors(t *testing.T) {
	t.Setenv("GEOSORT_LOG_LEVEL", "loud")
	t.Cleanup(func() { cfg = nil })

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
	assert.NotEmpty(t, eris.Unpack(err).ErrChain, "setup errors carry an eris chain")
}
