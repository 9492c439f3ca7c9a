package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nDmitry/tgsnap/internal/entity"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()

	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "tgsnap dev\n", out)
}

func TestFetchCommand_InvalidLink(t *testing.T) {
	_, err := execute(t, "fetch", "https://example.com/durov/1")

	require.Error(t, err)
	assert.Equal(t, entity.MsgInvalidLink, err.Error())
}

func TestFetchCommand_RequiresURL(t *testing.T) {
	_, err := execute(t, "fetch")

	assert.Error(t, err)
}

func TestFetchCommand_HasNoInlineFlag(t *testing.T) {
	flag := fetchCmd.Flags().Lookup("no-inline")

	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
