package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	base := []string{
		"--store", "file",
		"--state-dir", filepath.Join(dir, "vaults"),
		"--log-level", "error",
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, base...))
	err := root.Execute()
	return out.String(), err
}

func TestCommandLifecycle(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "deposit", "--amount", "10", "--account", "alice")
	require.Error(t, err, "deposit before init")

	_, err = execute(t, dir, "init", "--asset", "0x55d398326f99059fF775485246999027B3197955")
	require.NoError(t, err)
	_, err = execute(t, dir, "init", "--asset", "0x55d398326f99059fF775485246999027B3197955")
	require.Error(t, err, "second init")

	out, err := execute(t, dir, "deposit", "--amount", "1000", "--account", "alice")
	require.NoError(t, err)
	var receipt receiptView
	require.NoError(t, json.Unmarshal([]byte(out), &receipt))
	assert.Equal(t, "1000", receipt.Shares)
	assert.NotEmpty(t, receipt.ID)

	_, err = execute(t, dir, "deposit", "--amount", "500", "--account", "bob")
	require.NoError(t, err)

	out, err = execute(t, dir, "preview", "--shares", "300")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &receipt))
	assert.Equal(t, "300", receipt.Assets)

	out, err = execute(t, dir, "withdraw", "--shares", "300", "--account", "alice")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &receipt))
	assert.Equal(t, "300", receipt.Assets)

	out, err = execute(t, dir, "stats", "--decimals", "2")
	require.NoError(t, err)
	var stats statsView
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, "1200", stats.TotalAssets)
	assert.Equal(t, "1200", stats.TotalSupply)
	assert.Equal(t, "12.00", stats.Display.TotalAssets)
	assert.Equal(t, uint32(30), stats.FeeRate)

	_, err = execute(t, dir, "replay")
	require.NoError(t, err)
}

func TestCommandRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "init", "--asset", "not-an-address")
	require.Error(t, err)

	_, err = execute(t, dir, "init", "--asset", "0x55d398326f99059fF775485246999027B3197955")
	require.NoError(t, err)

	_, err = execute(t, dir, "deposit", "--amount=-5", "--account", "alice")
	require.Error(t, err)

	_, err = execute(t, dir, "withdraw", "--shares", "1", "--account", "alice")
	require.Error(t, err)

	_, err = execute(t, dir, "preview")
	require.Error(t, err)
}

func TestCommandVaultsKeepSeparateJournals(t *testing.T) {
	dir := t.TempDir()

	for _, id := range []string{"a", "b"} {
		_, err := execute(t, dir, "init", "--vault-id", id, "--asset", "0x55d398326f99059fF775485246999027B3197955")
		require.NoError(t, err)
		_, err = execute(t, dir, "deposit", "--vault-id", id, "--amount", "100", "--account", "alice")
		require.NoError(t, err)
	}

	for _, id := range []string{"a", "b"} {
		_, err := execute(t, dir, "replay", "--vault-id", id)
		require.NoError(t, err, "replay vault %s", id)
		assert.FileExists(t, filepath.Join(dir, "vaults", id+".events.jsonl"))
		assert.FileExists(t, filepath.Join(dir, "vaults", id+".transfers.jsonl"))
	}
}

func TestCommandReplayFreshVault(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "init", "--asset", "0x55d398326f99059fF775485246999027B3197955")
	require.NoError(t, err)
	_, err = execute(t, dir, "replay")
	require.NoError(t, err)
}

func TestCommandPosition(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "init", "--asset", "0x55d398326f99059fF775485246999027B3197955")
	require.NoError(t, err)
	_, err = execute(t, dir, "deposit", "--amount", "1000", "--account", "alice")
	require.NoError(t, err)
	_, err = execute(t, dir, "deposit", "--amount", "3000", "--account", "bob")
	require.NoError(t, err)
	_, err = execute(t, dir, "withdraw", "--shares", "200", "--account", "alice")
	require.NoError(t, err)

	out, err := execute(t, dir, "position", "--account", "alice")
	require.NoError(t, err)

	var view struct {
		Account    string      `json:"account"`
		Shares     json.Number `json:"shares"`
		Deposited  json.Number `json:"deposited"`
		Withdrawn  json.Number `json:"withdrawn"`
		Operations int         `json:"operations"`
		PoolShare  string      `json:"pool_share"`
		Value      string      `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "alice", view.Account)
	assert.Equal(t, "800", view.Shares.String())
	assert.Equal(t, "1000", view.Deposited.String())
	assert.Equal(t, "200", view.Withdrawn.String())
	assert.Equal(t, 2, view.Operations)
	assert.Equal(t, "800", view.Value)
	assert.Equal(t, "0.210526315789473684", view.PoolShare)

	_, err = execute(t, dir, "position")
	require.Error(t, err)
}
