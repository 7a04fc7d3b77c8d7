package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transferer moves value out of the auction to an account.
// Transfer must return promptly; a non-nil error means nothing was transferred.
type Transferer interface {
	Transfer(ctx context.Context, to Identity, amount decimal.Decimal) error
}

// Collector takes the funds that accompany a bid from the bidder.
// Collect is called while the auction is locked and must not call back into it.
type Collector interface {
	Collect(ctx context.Context, from Identity, amount decimal.Decimal) error
}

// AuctionConfig holds the construction parameters of an Auction.
type AuctionConfig struct {
	// ID identifies the auction (a random UUID if empty)
	ID string

	// Beneficiary creates the auction and receives the proceeds
	Beneficiary Identity

	// DurationMinutes is the time from creation to the initial deadline
	DurationMinutes int

	// Transferer pays out the beneficiary and withdrawals (required)
	Transferer Transferer

	// Collector funds bids; when nil the funds are assumed to arrive with the call
	Collector Collector

	// Clock defaults to SystemClock
	Clock Clock

	// Sink defaults to a new EventLog
	Sink EventSink
}

// Auction is the escrowed ascending auction state machine.
//
// State moves Open -> Closed purely with time (the deadline passing) and
// Closed -> Finalized only through Finalize. Every mutation happens under mu;
// the lock is released while value is transferred out, and state committed
// before the transfer is compensated if the transfer fails.
type Auction struct {
	id          string
	beneficiary Identity
	clock       Clock
	transferer  Transferer
	collector   Collector
	sink        EventSink

	mu             sync.RWMutex
	deadline       time.Time
	highestBidder  Identity
	highestBid     decimal.Decimal
	ended          bool
	pendingReturns map[Identity]decimal.Decimal
	accounting     Accounting
}

// NewAuction creates an auction whose deadline is DurationMinutes from now.
func NewAuction(cfg AuctionConfig) (*Auction, error) {
	if cfg.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be a positive number of minutes, got %d", ErrInvalidDuration, cfg.DurationMinutes)
	}
	if cfg.Beneficiary == NoIdentity {
		return nil, fmt.Errorf("%w: beneficiary is required", ErrInvalidConfig)
	}
	if cfg.Transferer == nil {
		return nil, fmt.Errorf("%w: transferer is required", ErrInvalidConfig)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NewEventLog()
	}

	return &Auction{
		id:             id,
		beneficiary:    cfg.Beneficiary,
		clock:          clock,
		transferer:     cfg.Transferer,
		collector:      cfg.Collector,
		sink:           sink,
		deadline:       clock.Now().Add(time.Duration(cfg.DurationMinutes) * time.Minute),
		pendingReturns: make(map[Identity]decimal.Decimal),
	}, nil
}

// ID returns the auction identifier.
func (a *Auction) ID() string {
	return a.id
}

// PlaceBid records amount from caller as the new leading bid.
//
// Any escrow the caller already holds, including their own leading bid when
// they raise it, is applied to the new bid, so the leader's pending return is
// always zero. The remainder is collected through the Collector as part of the call.
func (a *Auction) PlaceBid(ctx context.Context, caller Identity, amount decimal.Decimal) (*BidResult, error) {
	if caller == NoIdentity {
		return nil, fmt.Errorf("%w: caller is required", ErrInvalidCaller)
	}
	if !ValidAmount(amount) {
		return nil, fmt.Errorf("%w: bids must be whole non-negative amounts of at most %d digits", ErrInvalidAmount, MaxAmountDigits)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if a.ended || !now.Before(a.deadline) {
		return nil, fmt.Errorf("%w: deadline %s", ErrAuctionNotOpen, a.deadline.Format(time.RFC3339))
	}

	minimum := MinimumBid(a.highestBid)
	if amount.LessThan(minimum) {
		return nil, fmt.Errorf("%w: got %s, minimum is %s", ErrBidTooLow, amount, minimum)
	}

	applied := a.pendingReturns[caller]
	if caller == a.highestBidder {
		applied = applied.Add(a.highestBid)
	}
	applied = decimal.Min(applied, amount)
	deposit := amount.Sub(applied)

	if deposit.IsPositive() && a.collector != nil {
		if err := a.collector.Collect(ctx, caller, deposit); err != nil {
			return nil, fmt.Errorf("%w: collect %s from %s: %w", ErrPaymentFailed, deposit, caller, err)
		}
	}

	// The previous leader's funds move to escrow, accumulating with earlier outbid amounts.
	if a.highestBidder != NoIdentity {
		a.pendingReturns[a.highestBidder] = a.pendingReturns[a.highestBidder].Add(a.highestBid)
	}
	if remaining := a.pendingReturns[caller].Sub(applied); remaining.IsPositive() {
		a.pendingReturns[caller] = remaining
	} else {
		delete(a.pendingReturns, caller)
	}
	a.highestBidder = caller
	a.highestBid = amount
	a.accounting.TotalReceived = a.accounting.TotalReceived.Add(deposit)

	if a.deadline.Sub(now) < ExtensionWindow {
		a.deadline = a.deadline.Add(ExtensionWindow)
	}

	a.sink.Emit(Event{Type: EventNewBid, Account: caller, Amount: amount, Timestamp: now})

	return &BidResult{
		Bidder:        caller,
		Amount:        amount,
		EscrowApplied: applied,
		Deposit:       deposit,
		Deadline:      a.deadline,
	}, nil
}

// Finalize ends the auction and pays the winning bid minus commission to the beneficiary.
//
// The auction is marked ended before the payout is attempted, so a Finalize that
// races an in-flight payout gets ErrAuctionAlreadyFinalized even though the first
// call may still fail with ErrTransferFailed and reopen finalization. Callers that
// see ErrAuctionAlreadyFinalized without a settlement should retry once the first
// call returns.
func (a *Auction) Finalize(ctx context.Context, caller Identity) (*Settlement, error) {
	a.mu.Lock()
	now := a.clock.Now()
	if a.ended {
		a.mu.Unlock()
		return nil, ErrAuctionAlreadyFinalized
	}
	if now.Before(a.deadline) {
		deadline := a.deadline
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: deadline %s", ErrAuctionNotYetEnded, deadline.Format(time.RFC3339))
	}
	if caller != a.beneficiary {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: only the beneficiary can finalize", ErrUnauthorized)
	}

	a.ended = true
	settlement := &Settlement{
		Winner:     a.highestBidder,
		WinningBid: a.highestBid,
		Commission: Commission(a.highestBid),
		Payout:     Payout(a.highestBid),
	}
	a.accounting.TotalPaidOut = a.accounting.TotalPaidOut.Add(settlement.Payout)
	a.accounting.TotalCommission = a.accounting.TotalCommission.Add(settlement.Commission)
	a.mu.Unlock()

	if settlement.Winner != NoIdentity {
		if err := a.transferer.Transfer(ctx, a.beneficiary, settlement.Payout); err != nil {
			a.mu.Lock()
			a.ended = false
			a.accounting.TotalPaidOut = a.accounting.TotalPaidOut.Sub(settlement.Payout)
			a.accounting.TotalCommission = a.accounting.TotalCommission.Sub(settlement.Commission)
			a.mu.Unlock()
			return nil, fmt.Errorf("%w: payout to %s: %w", ErrTransferFailed, a.beneficiary, err)
		}
	}

	a.sink.Emit(Event{Type: EventAuctionEnded, Account: settlement.Winner, Amount: settlement.WinningBid, Timestamp: now})
	return settlement, nil
}

// Withdraw transfers the caller's escrowed balance back to them.
// The balance is zeroed before the transfer and re-credited if the transfer fails.
func (a *Auction) Withdraw(ctx context.Context, caller Identity) (decimal.Decimal, error) {
	a.mu.Lock()
	amount := a.pendingReturns[caller]
	if !amount.IsPositive() {
		a.mu.Unlock()
		return decimal.Zero, ErrNothingToWithdraw
	}
	delete(a.pendingReturns, caller)
	a.accounting.TotalWithdrawn = a.accounting.TotalWithdrawn.Add(amount)
	a.mu.Unlock()

	if err := a.transferer.Transfer(ctx, caller, amount); err != nil {
		a.mu.Lock()
		a.pendingReturns[caller] = a.pendingReturns[caller].Add(amount)
		a.accounting.TotalWithdrawn = a.accounting.TotalWithdrawn.Sub(amount)
		a.mu.Unlock()
		return decimal.Zero, fmt.Errorf("%w: %s: %w", ErrWithdrawalFailed, caller, err)
	}

	a.sink.Emit(Event{Type: EventWithdrawal, Account: caller, Amount: amount, Timestamp: a.clock.Now()})
	return amount, nil
}

// Winner returns the current leader and leading bid.
func (a *Auction) Winner() (Identity, decimal.Decimal) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.highestBidder, a.highestBid
}

// Details returns a snapshot of the auction state.
func (a *Auction) Details() AuctionDetails {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return AuctionDetails{
		ID:            a.id,
		Beneficiary:   a.beneficiary,
		Deadline:      a.deadline,
		HighestBidder: a.highestBidder,
		HighestBid:    a.highestBid,
		Ended:         a.ended,
	}
}

// PendingReturn returns the escrowed balance owed to id.
func (a *Auction) PendingReturn(id Identity) decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pendingReturns[id]
}

// Phase returns the current lifecycle phase.
func (a *Auction) Phase() Phase {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch {
	case a.ended:
		return PhaseFinalized
	case a.clock.Now().Before(a.deadline):
		return PhaseOpen
	default:
		return PhaseClosed
	}
}

// Accounting returns a snapshot of the value bookkeeping.
func (a *Auction) Accounting() Accounting {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snapshot := a.accounting
	snapshot.Escrowed = decimal.Zero
	for _, owed := range a.pendingReturns {
		snapshot.Escrowed = snapshot.Escrowed.Add(owed)
	}
	snapshot.Locked = decimal.Zero
	if !a.ended {
		snapshot.Locked = a.highestBid
	}
	return snapshot
}
