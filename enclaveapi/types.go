package enclaveapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/escrowauction/core"
)

// Request types understood by the auction enclave
const (
	RequestPing              = "ping"
	RequestDeposit           = "deposit"
	RequestGetBalance        = "get_balance"
	RequestPlaceBid          = "place_bid"
	RequestFinalize          = "finalize"
	RequestWithdraw          = "withdraw"
	RequestGetWinner         = "get_winner"
	RequestGetAuctionDetails = "get_auction_details"
	RequestGetEvents         = "get_events"
)

// PCRs represents the Platform Configuration Registers from AWS Nitro Enclaves
type PCRs struct {
	// PCR0: Hash of the Enclave Image File (EIF)
	ImageFileHash string `json:"0"`

	// PCR1: Hash of the Linux kernel and initial RAM data (initramfs)
	KernelHash string `json:"1"`

	// PCR2: Hash of user applications, excluding the boot ramfs
	ApplicationHash string `json:"2"`

	// PCR3: Hash of the IAM role assigned to the parent instance
	IAMRoleHash string `json:"3"`

	// PCR4: Hash of the parent instance's ID
	InstanceIDHash string `json:"4"`

	// PCR8: Hash of the enclave image file's signing certificate
	SigningCertHash string `json:"8,omitempty"`
}

// AttestationDoc represents the base structured attestation data from AWS Nitro Enclaves
type AttestationDoc struct {
	ModuleID        string    `json:"module_id"`
	Timestamp       time.Time `json:"timestamp"`
	DigestAlgorithm string    `json:"digest"`
	PCRs            PCRs      `json:"pcrs"`

	// Certificate and CABundle are base64-encoded DER
	Certificate string   `json:"certificate"`
	CABundle    []string `json:"cabundle"`

	PublicKey string `json:"public_key"`
	Nonce     string `json:"nonce"`
}

// SettlementAttestationDoc represents attestation of a finalized auction
type SettlementAttestationDoc struct {
	AttestationDoc
	UserData *SettlementAttestationUserData `json:"user_data"`
}

// SettlementAttestationUserData is the settlement data embedded in the attestation.
// EventLogHash and EventCount commit to the full published event log at finalization.
type SettlementAttestationUserData struct {
	AuctionID    string          `json:"auction_id"`
	Beneficiary  core.Identity   `json:"beneficiary"`
	Winner       core.Identity   `json:"winner,omitempty"`
	WinningBid   decimal.Decimal `json:"winning_bid"`
	Commission   decimal.Decimal `json:"commission"`
	Payout       decimal.Decimal `json:"payout"`
	Deadline     time.Time       `json:"deadline"`
	EventCount   int             `json:"event_count"`
	EventLogHash string          `json:"event_log_hash"`
	Nonce        string          `json:"nonce"`
	Timestamp    time.Time       `json:"timestamp"`
}

// EnclaveRequest is the single request format accepted by the auction enclave.
// Caller is the acting identity; for deposit and get_balance it is the account.
type EnclaveRequest struct {
	Type   string          `json:"type"`
	Caller core.Identity   `json:"caller,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Since  uint64          `json:"since,omitempty"` // get_events: return events after this sequence
}

// Winner is the current leader and leading bid
type Winner struct {
	Bidder core.Identity   `json:"bidder"`
	Amount decimal.Decimal `json:"amount"`
}

// EnclaveResponse is returned for every request; only the fields relevant to the request type are set
type EnclaveResponse struct {
	Type      string `json:"type"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`

	Details       *core.AuctionDetails `json:"details,omitempty"`
	Phase         core.Phase           `json:"phase,omitempty"`
	Winner        *Winner              `json:"winner,omitempty"`
	Bid           *core.BidResult      `json:"bid,omitempty"`
	Settlement    *core.Settlement     `json:"settlement,omitempty"`
	Withdrawn     *decimal.Decimal     `json:"withdrawn,omitempty"`
	Balance       *decimal.Decimal     `json:"balance,omitempty"`
	PendingReturn *decimal.Decimal     `json:"pending_return,omitempty"`
	Events        []core.Event         `json:"events,omitempty"`

	// Set on finalize: the settlement attestation, or why it could not be produced
	AttestationCOSEBase64 AttestationCOSEBase64 `json:"attestation_cose_base64,omitempty"`
	AttestationError      string                `json:"attestation_error,omitempty"`

	ProcessingTime int64 `json:"processing_time_ms"`
}
