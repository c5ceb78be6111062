package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "FinAdvisor/pkg/http"
	pkgkafka "FinAdvisor/pkg/kafka"
	applogger "FinAdvisor/pkg/logger"
)

// Runner is a background component started with the app and stopped on
// shutdown: the price feed, the scheduler.
type Runner interface {
	Start(ctx context.Context) error
	Stop() error
}

type closer struct {
	name string
	c    io.Closer
}

type Option func(*App)

// WithConsumer starts c with the given handlers.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c == nil {
			return
		}
		a.consumer = c
		a.handlers = append(a.handlers, handlers...)
	}
}

// WithRunner adds a background component. A nil runner is ignored.
func WithRunner(name string, r Runner) Option {
	return func(a *App) {
		if r != nil {
			a.runners = append(a.runners, namedRunner{name: name, r: r})
		}
	}
}

// WithCloser registers a resource closed after everything else stopped, in
// reverse registration order. A nil closer is ignored.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, closer{name: name, c: c})
		}
	}
}

// WithShutdownTimeout bounds the whole shutdown sequence.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

type namedRunner struct {
	name string
	r    Runner
}

// App encapsulates the application lifecycle.
type App struct {
	log             *applogger.Logger
	http            *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	runners         []namedRunner
	closers         []closer
	shutdownTimeout time.Duration
}

func New(log *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	a := &App{log: log, http: httpServer, shutdownTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts every component and blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start brings up the consumer, runners and HTTP server, in that order.
func (a *App) Start(ctx context.Context) error {
	if a.consumer != nil {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
	}
	for _, nr := range a.runners {
		if err := nr.r.Start(ctx); err != nil {
			a.log.Error("component start failed", applogger.String("component", nr.name), applogger.Error(err))
			return err
		}
		a.log.Info("component started", applogger.String("component", nr.name))
	}
	return a.http.Start()
}

// Shutdown stops intake first (HTTP, consumer, runners), then closes
// resources. Every step runs even if an earlier one failed.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.http.Stop(ctx); err != nil {
		errs = append(errs, err)
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			errs = append(errs, err)
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	for i := len(a.runners) - 1; i >= 0; i-- {
		nr := a.runners[i]
		if err := nr.r.Stop(); err != nil {
			errs = append(errs, err)
			a.log.Warn("component stop error", applogger.String("component", nr.name), applogger.Error(err))
		}
	}
	// the digest publishes through the producer, so it goes before the closers
	a.log.DetachDigest()
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.c.Close(); err != nil {
			errs = append(errs, err)
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
