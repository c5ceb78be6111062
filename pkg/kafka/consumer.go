package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"FinAdvisor/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics and dispatches messages to a worker pool.
// Offsets are committed after the handler succeeds or exhausts its retries,
// so a poison message cannot stall a partition.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *logger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	msgChan  chan kafka.Message
	stopChan chan struct{}
	stopOnce sync.Once
	readWG   sync.WaitGroup
	workWG   sync.WaitGroup
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "advisor",
		Workers:    1,
		BufferSize: 64,
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		MinBytes:   1,
		MaxBytes:   10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	initConsumerMetricsOnce()
	return &Consumer{
		cfg:      cfg,
		log:      log,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		msgChan:  make(chan kafka.Message, cfg.BufferSize),
		stopChan: make(chan struct{}),
	}, nil
}

// RegisterHandler registers a handler for its topic. It must be called before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka handler already registered", logger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start opens one reader per registered topic and starts the workers.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}

	for i := 0; i < c.cfg.Workers; i++ {
		c.workWG.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.readWG.Add(1)
		go c.read(topic, reader)
	}

	c.log.Info("kafka consumer started",
		logger.Int("topics", len(c.readers)),
		logger.Int("workers", c.cfg.Workers),
		logger.String("group", c.cfg.GroupID),
	)
	return nil
}

// Stop stops reading, drains queued messages and closes the readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		close(c.stopChan)
		c.readWG.Wait()
		close(c.msgChan)

		done := make(chan struct{})
		go func() {
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer workers: %w", ctx.Err())
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.log.Warn("kafka reader close failed", logger.String("topic", topic), logger.Error(err))
			}
		}
		c.log.Info("kafka consumer stopped")
	})
	return stopErr
}

func (c *Consumer) read(topic string, reader *kafka.Reader) {
	defer c.readWG.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka fetch failed", logger.String("topic", topic), logger.Error(err))
			select {
			case <-time.After(c.cfg.BackoffMin):
			case <-c.stopChan:
				return
			}
			continue
		}

		select {
		case c.msgChan <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-c.stopChan:
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.workWG.Done()
	for msg := range c.msgChan {
		c.process(msg)
	}
}

func (c *Consumer) process(msg kafka.Message) {
	handler, ok := c.handlers[msg.Topic]
	if !ok {
		return
	}
	start := time.Now()
	err := c.handleWithRetry(handler, msg.Value)
	result := "ok"
	if err != nil {
		result = "error"
		c.log.Error("kafka message dropped",
			logger.String("topic", msg.Topic),
			logger.Int("partition", msg.Partition),
			logger.Int64("offset", msg.Offset),
			logger.Error(err),
		)
	}
	consumerHandled.WithLabelValues(msg.Topic, result).Inc()
	consumerHandleLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())

	if reader := c.readers[msg.Topic]; reader != nil {
		c.commit(reader, msg)
	}
}

func (c *Consumer) handleWithRetry(handler MessageHandler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	for attempt := 1; ; attempt++ {
		err = handler.Handle(context.Background(), data)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.stopChan:
			return err
		}
	}
}

func (c *Consumer) commit(reader *kafka.Reader, msg kafka.Message) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Warn("kafka commit failed", logger.String("topic", msg.Topic), logger.Error(err))
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min << uint(attempt-1)
	if exp > max || exp <= 0 {
		exp = max
	}
	// up to 50% jitter
	if half := int64(exp) / 2; half > 0 {
		exp -= time.Duration(rand.Int63n(half))
	}
	return exp
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandled       *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
)

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "advisor_kafka_consumer_queue_depth", Help: "Messages waiting for a worker"},
			[]string{"topic"},
		)
		consumerHandled = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "advisor_kafka_consumer_messages_total", Help: "Messages handled by result"},
			[]string{"topic", "result"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "advisor_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
