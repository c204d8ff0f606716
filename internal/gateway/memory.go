// =============================
// File: internal/gateway/memory.go
// =============================
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOwnerMismatch     = errors.New("authority does not own source account")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

type memAccount struct {
	owner   solana.PublicKey
	balance uint64
	// открыт как получатель; владелец ещё неизвестен
	unclaimed bool
}

// Memory – книга балансов в памяти. Перевод либо проходит целиком, либо
// не меняет ни одного баланса.
type Memory struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*memAccount
	history  []staking.Transfer
	failWith error
	autoFund bool
}

// MemoryOption configures a Memory ledger.
type MemoryOption func(*Memory)

// WithAutoFund credits a source account up to the transfer amount before
// moving funds. Unknown sources, and destinations created by an earlier
// transfer, are owned by the first authority that spends from them.
// Used for dry runs where real balances and owners are not known.
func WithAutoFund() MemoryOption {
	return func(m *Memory) { m.autoFund = true }
}

// NewMemory создаёт пустую книгу балансов.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{accounts: make(map[solana.PublicKey]*memAccount)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open registers a token account owned by owner. Reopening an account keeps
// its balance and replaces the owner.
func (m *Memory) Open(account, owner solana.PublicKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[account]; ok {
		a.owner, a.unclaimed = owner, false
		return
	}
	m.accounts[account] = &memAccount{owner: owner}
}

// Mint credits amount to account, opening it for owner when unknown.
func (m *Memory) Mint(account, owner solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[account]
	if !ok {
		a = &memAccount{owner: owner}
		m.accounts[account] = a
	}
	if a.unclaimed {
		a.owner, a.unclaimed = owner, false
	}
	if a.balance+amount < a.balance {
		return ErrBalanceOverflow
	}
	a.balance += amount
	return nil
}

// Balance возвращает баланс аккаунта (0 для неизвестного).
func (m *Memory) Balance(account solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[account]; ok {
		return a.balance
	}
	return 0
}

// FailNext makes the next transfer fail with err without moving funds.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// History returns a copy of the completed transfers.
func (m *Memory) History() []staking.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]staking.Transfer(nil), m.history...)
}

// Transfer moves tokens between registered accounts.
func (m *Memory) Transfer(ctx context.Context, t staking.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		err := m.failWith
		m.failWith = nil
		return err
	}

	src, ok := m.accounts[t.From]
	if !ok && m.autoFund {
		src = &memAccount{owner: t.Authority}
		m.accounts[t.From] = src
		ok = true
	}
	if !ok {
		return fmt.Errorf("source %s: %w", t.From, ErrInsufficientFunds)
	}
	if m.autoFund && src.unclaimed {
		src.owner, src.unclaimed = t.Authority, false
	}
	if !src.owner.Equals(t.Authority) {
		return fmt.Errorf("source %s: %w", t.From, ErrOwnerMismatch)
	}
	if m.autoFund && src.balance < t.Amount {
		src.balance = t.Amount
	}
	if src.balance < t.Amount {
		return fmt.Errorf("source %s has %d, need %d: %w", t.From, src.balance, t.Amount, ErrInsufficientFunds)
	}
	if t.From.Equals(t.To) {
		m.history = append(m.history, t)
		return nil
	}
	dst, ok := m.accounts[t.To]
	if !ok {
		dst = &memAccount{unclaimed: true}
	}
	if dst.balance+t.Amount < dst.balance {
		return fmt.Errorf("destination %s: %w", t.To, ErrBalanceOverflow)
	}

	m.accounts[t.To] = dst
	src.balance -= t.Amount
	dst.balance += t.Amount
	m.history = append(m.history, t)
	return nil
}

var _ staking.Gateway = (*Memory)(nil)
