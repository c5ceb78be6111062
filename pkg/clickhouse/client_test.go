package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "advisor",
		User:        "u",
		Password:    "p",
		DialTimeout: 2 * time.Second,
		AsyncInsert: true,
	})
	assert.Equal(t, "clickhouse://u:p@ch:9000/advisor?async_insert=1&dial_timeout=2s", dsn)
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "d", User: "u", UseHTTP: true})
	assert.Equal(t, "http://u:@ch:8123/d", dsn)
}

func TestBuildInsert(t *testing.T) {
	q, args, err := buildInsert("nav", []string{"a", "b"}, [][]any{{1, "x"}, {2, "y"}})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO nav (a, b) VALUES (?, ?),(?, ?)", q)
	assert.Equal(t, []any{1, "x", 2, "y"}, args)

	_, _, err = buildInsert("nav", []string{"a", "b"}, [][]any{{1}})
	assert.Error(t, err)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
