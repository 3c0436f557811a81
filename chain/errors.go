package chain

import (
	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeConsumed        = "CHAIN_CONSUMED"
	ErrCodePromoted        = "CHAIN_PROMOTED"
	ErrCodeSignalInstalled = "CHAIN_SIGNAL_INSTALLED"
	ErrCodeNilFuture       = "CHAIN_NIL_FUTURE"
)

var (
	ErrConsumed = apperrors.New("chain was already run", apperrors.CategoryConflict).
			WithTextCode(ErrCodeConsumed)
	ErrPromoted = apperrors.New("chain was promoted to a value chain", apperrors.CategoryConflict).
			WithTextCode(ErrCodePromoted)
	ErrSignalInstalled = apperrors.New("cancellation signal already installed", apperrors.CategoryConflict).
				WithTextCode(ErrCodeSignalInstalled)
	ErrNilFuture = apperrors.New("step continuation returned a nil future", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeNilFuture)
)
