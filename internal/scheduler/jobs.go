package scheduler

import (
	"context"
	"fmt"
)

// Marker marks every registered portfolio to market and reports successes.
type Marker interface {
	MarkAll(ctx context.Context) int
	Count() int
}

// MarkJob appends a nav point to every portfolio at price-book prices.
type MarkJob struct {
	portfolios Marker
}

func NewMarkJob(m Marker) *MarkJob { return &MarkJob{portfolios: m} }

func (j *MarkJob) Name() string { return "mark_to_market" }

// Run fails only when portfolios exist and none could be marked.
func (j *MarkJob) Run(ctx context.Context) error {
	total := j.portfolios.Count()
	if total == 0 {
		return nil
	}
	if ok := j.portfolios.MarkAll(ctx); ok == 0 {
		return fmt.Errorf("marked 0 of %d portfolios", total)
	}
	return nil
}
