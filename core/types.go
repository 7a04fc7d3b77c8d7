package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Identity is an opaque account address. The empty Identity means "none".
type Identity string

// NoIdentity is reported as the leader before any bid is accepted.
const NoIdentity Identity = ""

// Phase is the lifecycle phase of an auction, derived from the clock and the ended flag.
type Phase string

const (
	PhaseOpen      Phase = "open"
	PhaseClosed    Phase = "closed"
	PhaseFinalized Phase = "finalized"
)

// EventType names a notification emitted by the auction.
type EventType string

const (
	EventNewBid       EventType = "NewBid"
	EventAuctionEnded EventType = "AuctionEnded"
	EventWithdrawal   EventType = "Withdrawal"
)

// Event is a single entry of the append-only notification log.
// Account and Amount carry the bidder/amount for NewBid, the winner/winning bid
// for AuctionEnded and the recipient/amount for Withdrawal.
type Event struct {
	Sequence  uint64          `json:"sequence"`
	Type      EventType       `json:"type"`
	Account   Identity        `json:"account"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
}

// AuctionDetails is a point-in-time snapshot of the auction state.
type AuctionDetails struct {
	ID            string          `json:"id"`
	Beneficiary   Identity        `json:"beneficiary"`
	Deadline      time.Time       `json:"deadline"`
	HighestBidder Identity        `json:"highest_bidder"`
	HighestBid    decimal.Decimal `json:"highest_bid"`
	Ended         bool            `json:"ended"`
}

// BidResult describes an accepted bid. Deposit is the fresh value collected
// from the bidder; EscrowApplied is the bidder's escrow reused toward Amount.
type BidResult struct {
	Bidder        Identity        `json:"bidder"`
	Amount        decimal.Decimal `json:"amount"`
	EscrowApplied decimal.Decimal `json:"escrow_applied"`
	Deposit       decimal.Decimal `json:"deposit"`
	Deadline      time.Time       `json:"deadline"`
}

// Settlement describes the payout made by a successful Finalize.
// Winner is NoIdentity and all amounts are zero when no bid was ever placed.
type Settlement struct {
	Winner     Identity        `json:"winner"`
	WinningBid decimal.Decimal `json:"winning_bid"`
	Commission decimal.Decimal `json:"commission"`
	Payout     decimal.Decimal `json:"payout"`
}

// Accounting tracks where every unit of value received by the auction went.
//
// TotalReceived always equals Locked + Escrowed + TotalWithdrawn + TotalPaidOut + TotalCommission.
type Accounting struct {
	// TotalReceived is the sum of all deposits collected with accepted bids
	TotalReceived decimal.Decimal `json:"total_received"`

	// Locked is the current leading bid while the auction is not finalized
	Locked decimal.Decimal `json:"locked"`

	// Escrowed is the sum of all pending returns
	Escrowed decimal.Decimal `json:"escrowed"`

	TotalWithdrawn  decimal.Decimal `json:"total_withdrawn"`
	TotalPaidOut    decimal.Decimal `json:"total_paid_out"`
	TotalCommission decimal.Decimal `json:"total_commission"`
}

// Balanced reports whether the conservation law holds for this snapshot.
func (a Accounting) Balanced() bool {
	accounted := a.Locked.
		Add(a.Escrowed).
		Add(a.TotalWithdrawn).
		Add(a.TotalPaidOut).
		Add(a.TotalCommission)
	return a.TotalReceived.Equal(accounted)
}
