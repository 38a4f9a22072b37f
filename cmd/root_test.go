package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"parse", "labels", "merge", "push", "setup", "runs", "orders"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "order-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestParseCommand_Flags(t *testing.T) {
	require.NotNil(t, parseCmd.Flags().Lookup("json"))
	require.NotNil(t, parseCmd.Flags().Lookup("save"))
}

func TestLabelsCommand_Flags(t *testing.T) {
	flag := labelsCmd.Flags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "labels.pdf", flag.DefValue)
	assert.Equal(t, "o", flag.Shorthand)
}

func TestMergeCommand_Flags(t *testing.T) {
	require.NotNil(t, mergeCmd.Flags().Lookup("slip"))
	require.NotNil(t, mergeCmd.Flags().Lookup("shipping"))
	require.NotNil(t, mergeCmd.Flags().Lookup("report"))

	flag := mergeCmd.Flags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "merged.pdf", flag.DefValue)
}

func TestPushCommand_Flags(t *testing.T) {
	flag := pushCmd.Flags().Lookup("retry-failed")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestOrdersCommand_Flags(t *testing.T) {
	require.NotNil(t, ordersCmd.Flags().Lookup("buyer"))
	require.NotNil(t, ordersCmd.Flags().Lookup("source"))
	require.NotNil(t, ordersCmd.Flags().Lookup("order-id"))

	flag := ordersCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}
