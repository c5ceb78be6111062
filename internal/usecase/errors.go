package usecase

import (
	"errors"

	domsvc "FinAdvisor/internal/domain/service"
	"FinAdvisor/internal/services/portfolio"
)

// ErrNoSymbols rejects a recommendation cycle with nothing to evaluate.
var ErrNoSymbols = errors.New("no symbols requested")

// ErrorKind classifies ledger and registry errors for metrics labels and API codes.
// Unknown errors report "internal".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, portfolio.ErrInvalidInitialCash):
		return "invalid_initial_cash"
	case errors.Is(err, portfolio.ErrInvalidSide):
		return "invalid_side"
	case errors.Is(err, portfolio.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, portfolio.ErrInsufficientCash):
		return "insufficient_cash"
	case errors.Is(err, portfolio.ErrInsufficientQuantity):
		return "insufficient_quantity"
	case errors.Is(err, portfolio.ErrMissingPrice):
		return "missing_price"
	case errors.Is(err, portfolio.ErrPortfolioNotFound):
		return "not_found"
	case errors.Is(err, portfolio.ErrPortfolioExists):
		return "exists"
	case errors.Is(err, ErrUnknownProfile):
		return "unknown_profile"
	case errors.Is(err, domsvc.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrNoSymbols):
		return "no_symbols"
	default:
		return "internal"
	}
}

// IsValidationError reports whether err is a rejected ledger input rather than a fault.
func IsValidationError(err error) bool {
	switch ErrorKind(err) {
	case "invalid_initial_cash", "invalid_side", "invalid_amount",
		"insufficient_cash", "insufficient_quantity", "missing_price", "unknown_profile", "invalid_price", "no_symbols":
		return true
	}
	return false
}
