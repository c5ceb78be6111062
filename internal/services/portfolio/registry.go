package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"FinAdvisor/internal/domain/models"
)

var (
	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrPortfolioExists   = errors.New("portfolio already exists")
)

// Account is one registered portfolio: a ledger and the risk profile it trades under.
type Account struct {
	ID      string
	Profile models.ProfileName

	mu     sync.Mutex
	ledger *Ledger
}

// ArchiverFactory builds the archiver attached to a new portfolio's ledger.
type ArchiverFactory func(portfolioID string) Archiver

type RegistryOption func(*Registry)

// WithLedgerHistoryLimit applies WithHistoryLimit to every ledger the registry creates.
func WithLedgerHistoryLimit(n int) RegistryOption {
	return func(r *Registry) { r.historyLimit = n }
}

// WithArchiverFactory attaches an archiver to every ledger the registry creates.
func WithArchiverFactory(f ArchiverFactory) RegistryOption {
	return func(r *Registry) { r.archivers = f }
}

// Registry maps portfolio ids to accounts. Ledger access goes through With,
// which serializes every call per id.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]*Account

	historyLimit int
	archivers    ArchiverFactory
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{accounts: make(map[string]*Account)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a new portfolio. An empty id is replaced by a generated one.
func (r *Registry) Create(id string, profile models.ProfileName, initialCash float64) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}

	opts := []LedgerOption{WithHistoryLimit(r.historyLimit)}
	if r.archivers != nil {
		if a := r.archivers(id); a != nil {
			opts = append(opts, WithArchiver(a))
		}
	}
	l, err := NewLedger(initialCash, opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; ok {
		return nil, fmt.Errorf("create %s: %w", id, ErrPortfolioExists)
	}
	acc := &Account{ID: id, Profile: profile, ledger: l}
	r.accounts[id] = acc
	return acc, nil
}

func (r *Registry) Get(id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %s: %w", id, ErrPortfolioNotFound)
	}
	return acc, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrPortfolioNotFound)
	}
	delete(r.accounts, id)
	return nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// With runs fn with exclusive access to the portfolio's ledger.
func (r *Registry) With(id string, fn func(acc *Account, l *Ledger) error) error {
	acc, err := r.Get(id)
	if err != nil {
		return err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return fn(acc, acc.ledger)
}
