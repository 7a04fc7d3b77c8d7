package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/enclaveapi"
)

// AuctionHouse serves one auction and the ledger that funds it
type AuctionHouse struct {
	auction *core.Auction
	ledger  *AccountLedger
	events  *core.EventLog

	// getAttester defaults to the NSM handle
	getAttester func() (EnclaveAttester, error)
}

// HouseConfig wires an AuctionHouse. Clock and GetAttester are optional.
type HouseConfig struct {
	AuctionID       string
	Beneficiary     core.Identity
	DurationMinutes int
	Ledger          *AccountLedger
	Clock           core.Clock
	GetAttester     func() (EnclaveAttester, error)
}

func NewAuctionHouse(cfg HouseConfig) (*AuctionHouse, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("%w: ledger is required", core.ErrInvalidConfig)
	}
	events := core.NewEventLog()

	auction, err := core.NewAuction(core.AuctionConfig{
		ID:              cfg.AuctionID,
		Beneficiary:     cfg.Beneficiary,
		DurationMinutes: cfg.DurationMinutes,
		Transferer:      cfg.Ledger,
		Collector:       cfg.Ledger,
		Clock:           cfg.Clock,
		Sink:            events,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	getAttester := cfg.GetAttester
	if getAttester == nil {
		getAttester = getEnclaveAttester
	}

	return &AuctionHouse{
		auction:     auction,
		ledger:      cfg.Ledger,
		events:      events,
		getAttester: getAttester,
	}, nil
}

// Handle executes a single request. It never returns a nil response; failures
// are reported with Success=false, a message and an error code.
func (h *AuctionHouse) Handle(ctx context.Context, req enclaveapi.EnclaveRequest) enclaveapi.EnclaveResponse {
	startTime := time.Now()

	resp, err := h.dispatch(ctx, req)
	if err != nil {
		log.Printf("INFO: Request %s from %q rejected: %v", req.Type, req.Caller, err)
		resp = enclaveapi.EnclaveResponse{
			Message:   err.Error(),
			ErrorCode: errorCode(err),
		}
	} else {
		resp.Success = true
	}

	resp.Type = responseType(req.Type)
	resp.ProcessingTime = time.Since(startTime).Milliseconds()
	return resp
}

func (h *AuctionHouse) dispatch(ctx context.Context, req enclaveapi.EnclaveRequest) (enclaveapi.EnclaveResponse, error) {
	switch req.Type {
	case enclaveapi.RequestPing:
		return enclaveapi.EnclaveResponse{Message: "TEE server is healthy", Phase: h.auction.Phase()}, nil

	case enclaveapi.RequestDeposit:
		balance, err := h.ledger.Deposit(req.Caller, req.Amount)
		if err != nil {
			return enclaveapi.EnclaveResponse{}, err
		}
		return enclaveapi.EnclaveResponse{Message: "deposit accepted", Balance: &balance}, nil

	case enclaveapi.RequestGetBalance:
		balance := h.ledger.Balance(req.Caller)
		pending := h.auction.PendingReturn(req.Caller)
		return enclaveapi.EnclaveResponse{Balance: &balance, PendingReturn: &pending}, nil

	case enclaveapi.RequestPlaceBid:
		bid, err := h.auction.PlaceBid(ctx, req.Caller, req.Amount)
		if err != nil {
			return enclaveapi.EnclaveResponse{}, err
		}
		log.Printf("INFO: Bid accepted: bidder=%s amount=%s deposit=%s deadline=%s",
			bid.Bidder, bid.Amount, bid.Deposit, bid.Deadline.Format(time.RFC3339))
		return enclaveapi.EnclaveResponse{Message: "bid accepted", Bid: bid}, nil

	case enclaveapi.RequestFinalize:
		return h.finalize(ctx, req.Caller)

	case enclaveapi.RequestWithdraw:
		amount, err := h.auction.Withdraw(ctx, req.Caller)
		if err != nil {
			return enclaveapi.EnclaveResponse{}, err
		}
		log.Printf("INFO: Withdrawal of %s to %s", amount, req.Caller)
		return enclaveapi.EnclaveResponse{Message: "withdrawal complete", Withdrawn: &amount}, nil

	case enclaveapi.RequestGetWinner:
		bidder, amount := h.auction.Winner()
		return enclaveapi.EnclaveResponse{Winner: &enclaveapi.Winner{Bidder: bidder, Amount: amount}}, nil

	case enclaveapi.RequestGetAuctionDetails:
		details := h.auction.Details()
		return enclaveapi.EnclaveResponse{Details: &details, Phase: h.auction.Phase()}, nil

	case enclaveapi.RequestGetEvents:
		return enclaveapi.EnclaveResponse{Events: h.events.Since(req.Since)}, nil

	default:
		return enclaveapi.EnclaveResponse{}, fmt.Errorf("%w: %q", errUnknownRequest, req.Type)
	}
}

func (h *AuctionHouse) finalize(ctx context.Context, caller core.Identity) (enclaveapi.EnclaveResponse, error) {
	settlement, err := h.auction.Finalize(ctx, caller)
	if err != nil {
		return enclaveapi.EnclaveResponse{}, err
	}
	log.Printf("INFO: Auction %s finalized: winner=%q bid=%s payout=%s commission=%s",
		h.auction.ID(), settlement.Winner, settlement.WinningBid, settlement.Payout, settlement.Commission)

	resp := enclaveapi.EnclaveResponse{Message: "auction finalized", Settlement: settlement}

	// The auction stays finalized even if it cannot be attested
	attester, err := h.getAttester()
	if err != nil {
		log.Printf("ERROR: Failed to initialize TEE attester: %v", err)
		resp.AttestationError = err.Error()
		return resp, nil
	}
	userData := BuildSettlementUserData(h.auction.Details(), settlement, h.events)
	cose, err := GenerateSettlementAttestation(attester, userData)
	if err != nil {
		resp.AttestationError = err.Error()
		return resp, nil
	}
	resp.AttestationCOSEBase64 = cose.EncodeBase64()
	return resp, nil
}

var errUnknownRequest = errors.New("unknown request type")

// errorCode prefers the auction's codes and falls back to ledger and transport codes
func errorCode(err error) string {
	if code := core.ErrorCode(err); code != "internal" {
		return code
	}
	switch {
	case errors.Is(err, errUnknownRequest):
		return "unknown_request"
	case errors.Is(err, ErrAccountFrozen):
		return "account_frozen"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	}
	return "internal"
}

func responseType(requestType string) string {
	switch requestType {
	case enclaveapi.RequestPing:
		return "pong"
	case "":
		return "error"
	}
	return requestType + "_response"
}
