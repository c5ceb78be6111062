package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2025-03-14")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), got)
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	assert.True(t, ParseTimeDefault("", def).Equal(def))
	assert.True(t, ParseTimeDefault("not-a-time", def).Equal(def))
}

func TestFormatDateUsesUTCDay(t *testing.T) {
	in := time.Date(2025, 1, 2, 23, 59, 0, 0, time.FixedZone("X", -3600))
	assert.Equal(t, "2025-01-03", FormatDate(in))
}

func TestTail(t *testing.T) {
	s := []int{1, 2, 3, 4}
	assert.Equal(t, []int{3, 4}, Tail(s, 2))
	assert.Equal(t, s, Tail(s, 0))
	assert.Equal(t, s, Tail(s, 10))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 5, ParseIntDefault("", 5))
	assert.Equal(t, 5, ParseIntDefault("x", 5))
	assert.Equal(t, 12, ParseIntDefault("12", 5))
}
