package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solstake.log")
	var console bytes.Buffer

	l, err := newWithConsole(&Config{LogFile: path, MaxSize: 1, Development: true}, &console)
	require.NoError(t, err)

	pool := solana.NewWallet().PublicKey()
	l.WithPool(pool).Info("pool saved")
	end := l.TrackPerformance("stake")
	end()
	require.NoError(t, l.Sync())

	assert.Contains(t, console.String(), "pool saved")
	assert.Contains(t, console.String(), "Operation completed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.NotEmpty(t, lines)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "pool saved", first["msg"])
	assert.Equal(t, pool.String(), first["pool_address"])
}

func TestWithOperation_CorrelationIDs(t *testing.T) {
	var console bytes.Buffer
	l, err := newWithConsole(&Config{}, &console)
	require.NoError(t, err)

	l.WithOperation("claim").Info("first")
	l.WithOperation("claim").Info("second")

	out := strings.Split(strings.TrimSpace(console.String()), "\n")
	require.Len(t, out, 2)
	assert.NotEqual(t, extractCorrelation(out[0]), extractCorrelation(out[1]))
}

func TestNew_InfoLevelDropsDebug(t *testing.T) {
	var console bytes.Buffer
	l, err := newWithConsole(&Config{}, &console)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("shown")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func extractCorrelation(line string) string {
	const key = `"correlation_id": "`
	i := strings.Index(line, key)
	if i < 0 {
		return ""
	}
	rest := line[i+len(key):]
	return rest[:strings.IndexByte(rest, '"')]
}
