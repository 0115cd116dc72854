package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCommand_Empty(t *testing.T) {
	out, err := executeCommand(t, "log", "--data", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "(no events)")
}

func TestLogCommand_ShowsRecentEvents(t *testing.T) {
	dataDir := t.TempDir()

	_, err := executeCommand(t, "tell", "--data", dataDir, "first [thought]")
	require.NoError(t, err)
	_, err = executeCommand(t, "tell", "--data", dataDir, "second [thought]")
	require.NoError(t, err)

	out, err := executeCommand(t, "log", "--data", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "user")
	assert.Contains(t, out, "first [thought]")
	assert.Contains(t, out, "second [thought]")
}

func TestLogCommand_LastBound(t *testing.T) {
	dataDir := t.TempDir()

	_, err := executeCommand(t, "tell", "--data", dataDir, "first [thought]")
	require.NoError(t, err)
	_, err = executeCommand(t, "tell", "--data", dataDir, "second [thought]")
	require.NoError(t, err)

	out, err := executeCommand(t, "log", "--data", dataDir, "--last", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "first [thought]")
	assert.Contains(t, out, "second [thought]")
}

func TestLogCommand_JSON(t *testing.T) {
	dataDir := t.TempDir()

	_, err := executeCommand(t, "tell", "--data", dataDir, "one [symbol]")
	require.NoError(t, err)

	out, err := executeCommand(t, "log", "--data", dataDir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []logEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "user", resp.Data[0].Kind)
	assert.Equal(t, "one [symbol]", resp.Data[0].Text)
	assert.Greater(t, resp.Data[0].TS, 0.0)
}
