package finnhub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAdvisor/pkg/logger"
)

func TestDecodeTicks(t *testing.T) {
	frame := []byte(`{"type":"trade","data":[{"s":"AAPL","p":187.5,"v":10,"t":1710410400123},{"s":"MSFT","p":410.1,"v":2,"t":1710410401000}]}`)
	ticks := decodeTicks(frame)
	require.Len(t, ticks, 2)
	assert.Equal(t, "AAPL", ticks[0].Symbol)
	assert.Equal(t, 187.5, ticks[0].Price)
	assert.Equal(t, 10.0, ticks[0].Volume)
	assert.Equal(t, int64(1710410400), ticks[0].Timestamp)
	assert.Equal(t, "MSFT", ticks[1].Symbol)
}

func TestDecodeTicksIgnoresOtherFrames(t *testing.T) {
	assert.Empty(t, decodeTicks([]byte(`{"type":"ping"}`)))
	assert.Empty(t, decodeTicks([]byte(`not json`)))
	assert.Empty(t, decodeTicks([]byte(`{"type":"trade","data":[]}`)))
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New("key", "wss://ws.finnhub.io", []string{"AAPL"}, 0, 0, logger.Nop())
	assert.Equal(t, 5*time.Second, c.reconnectDelay)
	assert.Equal(t, 30*time.Second, c.pingInterval)
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Close())
}
