// =============================
// File: internal/staking/errors.go
// =============================
package staking

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable numeric code reported to clients, in the style of
// Solana custom program errors.
type ErrorCode uint32

const (
	CodeUnauthorized ErrorCode = iota + 1
	CodeAlreadyInitialized
	CodeInvalidAmount
	CodeNotFound
	CodeDuplicatePosition
	CodeNoTierReached
	CodeAlreadyClaimed
	CodeInsufficientReserve
	CodeInvalidScheduleConfig
	CodeTransferFailed
	CodeMalformedInput
	CodeInvalidCommand
	CodeTransferUnconfirmed
)

// Error is a pool accounting failure. Every failure aborts the whole
// operation; nothing is committed.
type Error struct {
	Code ErrorCode
	Name string
}

func (e *Error) Error() string {
	return e.Name
}

var (
	ErrUnauthorized          = &Error{Code: CodeUnauthorized, Name: "unauthorized"}
	ErrAlreadyInitialized    = &Error{Code: CodeAlreadyInitialized, Name: "pool already initialized"}
	ErrInvalidAmount         = &Error{Code: CodeInvalidAmount, Name: "invalid amount"}
	ErrNotFound              = &Error{Code: CodeNotFound, Name: "stake not found"}
	ErrDuplicatePosition     = &Error{Code: CodeDuplicatePosition, Name: "duplicate position"}
	ErrNoTierReached         = &Error{Code: CodeNoTierReached, Name: "no reward tier reached"}
	ErrAlreadyClaimed        = &Error{Code: CodeAlreadyClaimed, Name: "reward tier already claimed"}
	ErrInsufficientReserve   = &Error{Code: CodeInsufficientReserve, Name: "insufficient reserve"}
	ErrInvalidScheduleConfig = &Error{Code: CodeInvalidScheduleConfig, Name: "invalid reward schedule"}
	ErrTransferFailed        = &Error{Code: CodeTransferFailed, Name: "token transfer failed"}
	ErrMalformedInput        = &Error{Code: CodeMalformedInput, Name: "malformed input"}
	ErrInvalidCommand        = &Error{Code: CodeInvalidCommand, Name: "invalid command"}
	// ErrTransferUnconfirmed: the transfer was submitted but its outcome is
	// unknown. The pool is not updated and must be reconciled against chain.
	ErrTransferUnconfirmed = &Error{Code: CodeTransferUnconfirmed, Name: "token transfer outcome unknown"}
)

// TransferError carries the gateway failure behind ErrTransferFailed, or
// behind ErrTransferUnconfirmed when the gateway could not learn the outcome.
type TransferError struct {
	Transfer Transfer
	Cause    error
}

func (e *TransferError) Error() string {
	name := ErrTransferFailed.Name
	if e.Unconfirmed() {
		name = ErrTransferUnconfirmed.Name
	}
	return fmt.Sprintf("%s: %d from %s to %s: %v",
		name, e.Transfer.Amount, e.Transfer.From, e.Transfer.To, e.Cause)
}

// Unconfirmed reports whether the transfer may still have happened.
func (e *TransferError) Unconfirmed() bool {
	return errors.Is(e.Cause, ErrTransferUnconfirmed)
}

// Is reports ErrTransferFailed for definite failures only.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed && !e.Unconfirmed()
}

func (e *TransferError) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the accounting error code from err.
func CodeOf(err error) (ErrorCode, bool) {
	var te *TransferError
	if errors.As(err, &te) {
		if te.Unconfirmed() {
			return CodeTransferUnconfirmed, true
		}
		return CodeTransferFailed, true
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}

// IsAccountingError определяет, является ли ошибка отказом бухгалтерии пула,
// а не инфраструктурной ошибкой.
func IsAccountingError(err error) bool {
	_, ok := CodeOf(err)
	return ok
}
