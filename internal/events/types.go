// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event.
type EventType string

const (
	// Pool operation events
	OperationCommitted EventType = "operation.committed"
	OperationRejected  EventType = "operation.rejected"
	// TransferUnconfirmed: the transfer was sent but its outcome is unknown
	// and the pool record was not updated.
	TransferUnconfirmed EventType = "operation.unconfirmed"

	// Audit events
	ReserveShortfall EventType = "audit.shortfall"
	AuditCompleted   EventType = "audit.completed"

	// AnyEvent subscribes a handler to every event type.
	AnyEvent EventType = "*"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase fills BaseEvent for typ at the current time.
func NewBase(typ EventType) BaseEvent {
	return BaseEvent{EventType: typ, EventTime: time.Now().UTC()}
}

// OperationCommittedEvent is emitted after a pool record was persisted.
type OperationCommittedEvent struct {
	BaseEvent
	PoolAddress solana.PublicKey
	PoolID      string
	Operation   string
	Signer      solana.PublicKey
	Amount      uint64 // tokens moved by the operation, 0 if none
	JournalID   int64
}

// OperationRejectedEvent is emitted when the processor returned an error.
type OperationRejectedEvent struct {
	BaseEvent
	PoolAddress solana.PublicKey
	Operation   string
	Code        int // staking error code, 0 for infrastructure errors
	Error       error
}

// TransferUnconfirmedEvent needs reconciliation of the pool record against chain.
type TransferUnconfirmedEvent struct {
	BaseEvent
	PoolAddress solana.PublicKey
	PoolID      string
	Operation   string
	Signer      solana.PublicKey
	Error       error
}

// ReserveShortfallEvent is emitted when outstanding rewards exceed the reserve.
type ReserveShortfallEvent struct {
	BaseEvent
	PoolAddress solana.PublicKey
	PoolID      string
	Liability   uint64
	Available   uint64
}

// AuditCompletedEvent summarises one audit run.
type AuditCompletedEvent struct {
	BaseEvent
	Pools      int
	Shortfalls int
	Failures   int
	Duration   time.Duration
}
