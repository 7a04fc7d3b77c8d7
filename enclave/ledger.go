package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/escrowauction/core"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountFrozen     = errors.New("account frozen")
)

// AccountLedger holds platform account balances. It funds bids (as a
// core.Collector) and receives payouts and withdrawals (as a core.Transferer).
type AccountLedger struct {
	mu       sync.Mutex
	balances map[core.Identity]decimal.Decimal
	frozen   map[core.Identity]bool
}

func NewAccountLedger(frozen ...core.Identity) *AccountLedger {
	l := &AccountLedger{
		balances: make(map[core.Identity]decimal.Decimal),
		frozen:   make(map[core.Identity]bool, len(frozen)),
	}
	for _, id := range frozen {
		l.frozen[id] = true
	}
	return l
}

// Deposit credits a positive whole amount to account and returns the new balance
func (l *AccountLedger) Deposit(account core.Identity, amount decimal.Decimal) (decimal.Decimal, error) {
	if account == core.NoIdentity {
		return decimal.Zero, fmt.Errorf("%w: account is required", core.ErrInvalidCaller)
	}
	if !core.ValidAmount(amount) || !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: deposits must be positive whole amounts of at most %d digits", core.ErrInvalidAmount, core.MaxAmountDigits)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.creditLocked(account, amount); err != nil {
		return decimal.Zero, err
	}
	return l.balances[account], nil
}

// Debit removes amount from account
func (l *AccountLedger) Debit(account core.Identity, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balances[account]
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, account, balance, amount)
	}
	l.balances[account] = balance.Sub(amount)
	return nil
}

func (l *AccountLedger) Balance(account core.Identity) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Transfer credits the recipient
func (l *AccountLedger) Transfer(_ context.Context, to core.Identity, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.creditLocked(to, amount)
}

// Collect debits the bidder
func (l *AccountLedger) Collect(_ context.Context, from core.Identity, amount decimal.Decimal) error {
	return l.Debit(from, amount)
}

func (l *AccountLedger) creditLocked(account core.Identity, amount decimal.Decimal) error {
	if l.frozen[account] {
		return fmt.Errorf("%w: %s", ErrAccountFrozen, account)
	}
	l.balances[account] = l.balances[account].Add(amount)
	return nil
}
