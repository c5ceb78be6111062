package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"FinAdvisor/internal/domain/models"
	domrepo "FinAdvisor/internal/domain/repository"
	"FinAdvisor/internal/services/portfolio"
	pkgch "FinAdvisor/pkg/clickhouse"
	"FinAdvisor/pkg/logger"
)

const (
	tradesTable = "advisor_trades"
	navTable    = "advisor_nav"
)

// ArchiveSchema creates the archive tables.
var ArchiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS advisor_trades (
		portfolio_id String,
		trade_id     String,
		ts           DateTime64(3, 'UTC'),
		symbol       LowCardinality(String),
		side         LowCardinality(String),
		qty          Float64,
		price        Float64,
		fees         Float64,
		reason_codes Array(String)
	) ENGINE = MergeTree ORDER BY (portfolio_id, ts)`,
	`CREATE TABLE IF NOT EXISTS advisor_nav (
		portfolio_id String,
		ts           DateTime64(3, 'UTC'),
		nav          Float64
	) ENGINE = MergeTree ORDER BY (portfolio_id, ts)`,
}

// Inserter is the subset of pkg/clickhouse.Client the archive writes through.
type Inserter interface {
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error
	Health(ctx context.Context) error
	Close() error
}

// ClickHouseArchive stores ledger records evicted from in-memory retention.
type ClickHouseArchive struct {
	db Inserter
}

func NewClickHouseArchive(db Inserter) *ClickHouseArchive {
	return &ClickHouseArchive{db: db}
}

func (a *ClickHouseArchive) ArchiveTrades(ctx context.Context, portfolioID string, trades []models.Trade) error {
	rows := make([][]any, 0, len(trades))
	for _, t := range trades {
		codes := make([]string, len(t.ReasonCodes))
		for i, c := range t.ReasonCodes {
			codes[i] = string(c)
		}
		rows = append(rows, []any{portfolioID, t.ID, t.Timestamp.UTC(), t.Symbol, string(t.Side), t.Qty, t.Price, t.Fees, codes})
	}
	return a.db.InsertRows(ctx, tradesTable,
		[]string{"portfolio_id", "trade_id", "ts", "symbol", "side", "qty", "price", "fees", "reason_codes"}, rows)
}

func (a *ClickHouseArchive) ArchiveNav(ctx context.Context, portfolioID string, points []models.NavPoint) error {
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{portfolioID, p.Timestamp.UTC(), p.NAV})
	}
	return a.db.InsertRows(ctx, navTable, []string{"portfolio_id", "ts", "nav"}, rows)
}

func (a *ClickHouseArchive) Health(ctx context.Context) error { return a.db.Health(ctx) }

func (a *ClickHouseArchive) Close() error { return a.db.Close() }

type archiveJob struct {
	portfolioID string
	trades      []models.Trade
	navs        []models.NavPoint
}

// AsyncArchiver adapts an Archive to the ledger's synchronous Archiver hook.
// Evictions are queued and written by one background goroutine; when the
// queue is full or the archiver is closed the batch is dropped and logged.
type AsyncArchiver struct {
	archive domrepo.Archive
	log     *logger.Logger
	timeout time.Duration
	jobs    chan archiveJob
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewAsyncArchiver(archive domrepo.Archive, log *logger.Logger, queue int) *AsyncArchiver {
	if queue <= 0 {
		queue = 256
	}
	a := &AsyncArchiver{
		archive: archive,
		log:     log,
		timeout: 10 * time.Second,
		jobs:    make(chan archiveJob, queue),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// For returns the ledger hook for one portfolio. It matches
// portfolio.ArchiverFactory.
func (a *AsyncArchiver) For(portfolioID string) portfolio.Archiver {
	return ledgerArchiver{parent: a, id: portfolioID}
}

func (a *AsyncArchiver) enqueue(j archiveJob) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.log.Warn("archiver closed, dropping batch",
			logger.String("portfolio", j.portfolioID),
			logger.Int("trades", len(j.trades)),
			logger.Int("navs", len(j.navs)),
		)
		return
	}
	select {
	case a.jobs <- j:
	default:
		a.log.Warn("archive queue full, dropping batch",
			logger.String("portfolio", j.portfolioID),
			logger.Int("trades", len(j.trades)),
			logger.Int("navs", len(j.navs)),
		)
	}
}

func (a *AsyncArchiver) run() {
	defer close(a.done)
	for j := range a.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		var err error
		kind := "nav"
		if len(j.trades) > 0 {
			kind = "trades"
			err = a.archive.ArchiveTrades(ctx, j.portfolioID, j.trades)
		} else {
			err = a.archive.ArchiveNav(ctx, j.portfolioID, j.navs)
		}
		cancel()
		if err != nil {
			a.log.Error("archive write failed",
				logger.String("portfolio", j.portfolioID),
				logger.String("kind", kind),
				logger.Error(err),
			)
		}
	}
}

// Close drains queued batches, then closes the archive. Later evictions are
// dropped.
func (a *AsyncArchiver) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return nil
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()

	<-a.done
	return a.archive.Close()
}

type ledgerArchiver struct {
	parent *AsyncArchiver
	id     string
}

func (l ledgerArchiver) ArchiveTrades(trades []models.Trade) {
	if len(trades) > 0 {
		l.parent.enqueue(archiveJob{portfolioID: l.id, trades: trades})
	}
}

func (l ledgerArchiver) ArchiveNav(points []models.NavPoint) {
	if len(points) > 0 {
		l.parent.enqueue(archiveJob{portfolioID: l.id, navs: points})
	}
}

// trimSQL collapses whitespace so schema statements log on one line.
func trimSQL(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// InitArchiveSchema creates the archive tables on c.
func InitArchiveSchema(ctx context.Context, c *pkgch.Client, log *logger.Logger) error {
	for _, stmt := range ArchiveSchema {
		log.Debug("clickhouse schema", logger.String("stmt", trimSQL(stmt)))
	}
	return c.InitSchema(ctx, ArchiveSchema)
}

var (
	_ domrepo.Archive    = (*ClickHouseArchive)(nil)
	_ portfolio.Archiver = ledgerArchiver{}
	_ Inserter           = (*pkgch.Client)(nil)
)
