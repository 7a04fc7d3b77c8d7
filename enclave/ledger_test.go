package main

import (
	"context"
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/escrowauction/core"
)

func TestAccountLedger_DepositAndDebit(t *testing.T) {
	ledger := NewAccountLedger()

	balance, err := ledger.Deposit("0xalice", decimal.NewFromInt(1000))
	assert.NoError(t, err)
	check.True(t, balance.Equal(decimal.NewFromInt(1000)))

	balance, err = ledger.Deposit("0xalice", decimal.NewFromInt(500))
	assert.NoError(t, err)
	check.True(t, balance.Equal(decimal.NewFromInt(1500)))

	assert.NoError(t, ledger.Debit("0xalice", decimal.NewFromInt(1500)))
	check.True(t, ledger.Balance("0xalice").IsZero())

	err = ledger.Debit("0xalice", decimal.NewFromInt(1))
	check.True(t, errors.Is(err, ErrInsufficientFunds))
}

func TestAccountLedger_DepositInvalid(t *testing.T) {
	ledger := NewAccountLedger("0xfrozen")

	_, err := ledger.Deposit("0xalice", decimal.Zero)
	check.True(t, errors.Is(err, core.ErrInvalidAmount))

	_, err = ledger.Deposit("0xalice", decimal.NewFromInt(-5))
	check.True(t, errors.Is(err, core.ErrInvalidAmount))

	_, err = ledger.Deposit("0xalice", decimal.RequireFromString("1.5"))
	check.True(t, errors.Is(err, core.ErrInvalidAmount))

	_, err = ledger.Deposit(core.NoIdentity, decimal.NewFromInt(5))
	check.True(t, errors.Is(err, core.ErrInvalidCaller))

	_, err = ledger.Deposit("0xalice", decimal.New(1, 20000000))
	check.True(t, errors.Is(err, core.ErrInvalidAmount))
	check.True(t, len(err.Error()) < 200)

	_, err = ledger.Deposit("0xfrozen", decimal.NewFromInt(5))
	check.True(t, errors.Is(err, ErrAccountFrozen))
	check.True(t, ledger.Balance("0xfrozen").IsZero())
}

func TestAccountLedger_TransferAndCollect(t *testing.T) {
	ctx := context.Background()
	ledger := NewAccountLedger("0xfrozen")

	assert.NoError(t, ledger.Transfer(ctx, "0xbob", decimal.NewFromInt(300)))
	check.True(t, ledger.Balance("0xbob").Equal(decimal.NewFromInt(300)))

	assert.NoError(t, ledger.Collect(ctx, "0xbob", decimal.NewFromInt(100)))
	check.True(t, ledger.Balance("0xbob").Equal(decimal.NewFromInt(200)))

	err := ledger.Collect(ctx, "0xbob", decimal.NewFromInt(201))
	check.True(t, errors.Is(err, ErrInsufficientFunds))
	check.True(t, ledger.Balance("0xbob").Equal(decimal.NewFromInt(200)))

	err = ledger.Transfer(ctx, "0xfrozen", decimal.NewFromInt(1))
	check.True(t, errors.Is(err, ErrAccountFrozen))
}
