package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"schema", "init"},
		{"history"},
		{"outcome"},
		{"stats"},
		{"locks", "sweep"},
		{"locks", "list"},
		{"locks", "show"},
	} {
		found, rest, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Empty(t, rest)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}

func TestHistoryLimitFlag(t *testing.T) {
	flag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "25", flag.DefValue)
}

func TestArgsAreRequired(t *testing.T) {
	assert.Error(t, historyCmd.Args(historyCmd, nil))
	assert.Error(t, outcomeCmd.Args(outcomeCmd, []string{"a", "b"}))
	assert.NoError(t, statsCmd.Args(statsCmd, []string{"100"}))
	assert.Error(t, locksShowCmd.Args(locksShowCmd, nil))
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)

	require.NoError(t, printJSON(c, map[string]int{"completed": 2}))
	assert.JSONEq(t, `{"completed": 2}`, out.String())
}
