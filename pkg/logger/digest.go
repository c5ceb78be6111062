package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Sink receives flushed digest batches, e.g. a Kafka producer.
type Sink interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type DigestConfig struct {
	Interval       time.Duration // flush interval
	CountThreshold int           // unique entries that force a flush
	Topic          string
	Sink           Sink
}

// DigestEntry is one distinct (level, message, fields, caller) seen since the
// last flush.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Digest deduplicates repeated warnings and errors and ships them in batches,
// so a failing provider produces one entry with a count instead of a flood.
type Digest struct {
	cfg     DigestConfig
	mu      sync.Mutex
	entries map[string]*DigestEntry
	flushWG sync.WaitGroup
	stop    chan struct{}
	done    chan struct{}
	now     func() time.Time
}

func NewDigest(cfg *DigestConfig) *Digest {
	c := *cfg
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.CountThreshold <= 0 {
		c.CountThreshold = 100
	}
	d := &Digest{
		cfg:     c,
		entries: make(map[string]*DigestEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go d.loop()
	return d
}

func (d *Digest) Add(level, message string, fields map[string]interface{}, caller string) {
	key := digestKey(level, message, fields, caller)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		d.entries[key] = &DigestEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	if len(d.entries) >= d.cfg.CountThreshold {
		d.flushLocked()
	}
}

// Len reports the number of distinct pending entries.
func (d *Digest) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Flush ships pending entries now.
func (d *Digest) Flush() {
	d.mu.Lock()
	d.flushLocked()
	d.mu.Unlock()
}

func digestKey(level, message string, fields map[string]interface{}, caller string) string {
	// json.Marshal sorts map keys, so equal field sets hash equally.
	raw, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
		C string                 `json:"c"`
	}{level, message, fields, caller})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (d *Digest) loop() {
	defer close(d.done)
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.Flush()
		case <-d.stop:
			d.Flush()
			return
		}
	}
}

func (d *Digest) flushLocked() {
	if len(d.entries) == 0 {
		return
	}
	if d.cfg.Sink == nil {
		d.entries = make(map[string]*DigestEntry)
		return
	}
	batch := make([]DigestEntry, 0, len(d.entries))
	for _, e := range d.entries {
		batch = append(batch, *e)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].FirstSeen.Before(batch[j].FirstSeen) })
	d.entries = make(map[string]*DigestEntry)

	d.flushWG.Add(1)
	go func() {
		defer d.flushWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.cfg.Sink.PublishMessage(ctx, d.cfg.Topic, batch); err != nil {
			// The logger cannot log its own sink failure without recursing.
			fmt.Fprintf(os.Stderr, "log digest publish failed: %v\n", err)
		}
	}()
}

// Close flushes pending entries and waits for in-flight publishes.
func (d *Digest) Close() {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	<-d.done
	d.flushWG.Wait()
}
