package logger

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu      sync.Mutex
	topics  []string
	batches [][]DigestEntry
}

func (s *captureSink) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	s.batches = append(s.batches, payload.([]DigestEntry))
	return nil
}

func (s *captureSink) snapshot() ([]string, [][]DigestEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.topics...), append([][]DigestEntry(nil), s.batches...)
}

func TestDigestDeduplicates(t *testing.T) {
	sink := &captureSink{}
	d := NewDigest(&DigestConfig{Interval: time.Hour, Topic: "advisor.logs", Sink: sink})
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	d.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	d.Add("warn", "provider failed", map[string]interface{}{"provider": "forecast"}, "a.go:1")
	d.Add("warn", "provider failed", map[string]interface{}{"provider": "forecast"}, "a.go:1")
	d.Add("warn", "provider failed", map[string]interface{}{"provider": "sentiment"}, "a.go:1")
	assert.Equal(t, 2, d.Len())

	d.Close()
	assert.Equal(t, 0, d.Len())

	topics, batches := sink.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"advisor.logs"}, topics)
	batch := batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "forecast", batch[0].Fields["provider"], "batch is ordered by first sighting")
	assert.Equal(t, 2, batch[0].Count)
	assert.Equal(t, base.Add(time.Second), batch[0].FirstSeen)
	assert.Equal(t, base.Add(2*time.Second), batch[0].LastSeen)
	assert.Equal(t, 1, batch[1].Count)
}

func TestDigestFlushesAtThreshold(t *testing.T) {
	sink := &captureSink{}
	d := NewDigest(&DigestConfig{Interval: time.Hour, CountThreshold: 2, Sink: sink})
	defer d.Close()

	d.Add("error", "one", nil, "")
	d.Add("error", "two", nil, "")
	assert.Equal(t, 0, d.Len())

	assert.Eventually(t, func() bool {
		_, batches := sink.snapshot()
		return len(batches) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDigestWithoutSinkDiscards(t *testing.T) {
	d := NewDigest(&DigestConfig{Interval: time.Hour})
	d.Add("warn", "dropped", nil, "")
	d.Flush()
	assert.Equal(t, 0, d.Len())
	d.Close()
	d.Close()
}

func TestLoggerFeedsDigest(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	sink := &captureSink{}
	l.AttachDigest(&DigestConfig{Interval: time.Hour, Sink: sink, Topic: "logs"})

	l.Info("not digested")
	for i := 0; i < 2; i++ {
		l.Warn("slow provider", String("provider", "anomaly"))
	}
	l.DetachDigest()

	_, batches := sink.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "slow provider", batches[0][0].Message)
	assert.Equal(t, 2, batches[0][0].Count)
	assert.Contains(t, buf.String(), "not digested")
}
