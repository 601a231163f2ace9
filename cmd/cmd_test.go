package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "levelup (devel)")
}

func TestImportRequiresFile(t *testing.T) {
	rootCmd.SetArgs([]string{"import"})
	assert.Error(t, rootCmd.Execute())
}

func TestCreateAdminValidatesFlags(t *testing.T) {
	rootCmd.SetArgs([]string{"create-admin", "--username", "root", "--password", "x"})
	assert.Error(t, rootCmd.Execute())
}
