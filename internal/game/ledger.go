package game

import (
	"context"
	"sync"
)

const (
	reasonEntryFee    = "entry_fee"
	reasonEntryRefund = "entry_refund"
	reasonVoiceEnable = "voice_enable"
)

// Ledger is the coin economy contract. Debit fails with ErrInsufficientFunds when
// the balance cannot cover amount.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int, reason string) error
	Credit(ctx context.Context, userID string, amount int, reason string) error
}

type LedgerEntry struct {
	UserID string
	Amount int
	Reason string
}

// MemoryLedger keeps balances in process. Unknown users start with the
// configured opening balance.
type MemoryLedger struct {
	mu       sync.Mutex
	opening  int
	balances map[string]int
	entries  []LedgerEntry
}

func NewMemoryLedger(openingBalance int) *MemoryLedger {
	return &MemoryLedger{
		opening:  openingBalance,
		balances: make(map[string]int),
	}
}

func (l *MemoryLedger) balanceLocked(userID string) int {
	balance, ok := l.balances[userID]
	if !ok {
		balance = l.opening
		l.balances[userID] = balance
	}
	return balance
}

func (l *MemoryLedger) SetBalance(userID string, balance int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = balance
}

func (l *MemoryLedger) Balance(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(userID)
}

func (l *MemoryLedger) Entries() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *MemoryLedger) Debit(_ context.Context, userID string, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balanceLocked(userID)
	if balance < amount {
		return ErrInsufficientFunds
	}
	l.balances[userID] = balance - amount
	l.entries = append(l.entries, LedgerEntry{UserID: userID, Amount: -amount, Reason: reason})
	return nil
}

func (l *MemoryLedger) Credit(_ context.Context, userID string, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = l.balanceLocked(userID) + amount
	l.entries = append(l.entries, LedgerEntry{UserID: userID, Amount: amount, Reason: reason})
	return nil
}
