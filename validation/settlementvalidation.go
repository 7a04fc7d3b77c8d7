package validation

import (
	"fmt"

	"github.com/cloudx-io/escrowauction/core"
	enclaveapi "github.com/cloudx-io/escrowauction/enclaveapi"
)

// SettlementValidationInput contains all inputs needed for settlement attestation validation.
// Exactly one of AttestationCOSEBase64 (finalize response) and AttestationCOSEGzip must be set.
type SettlementValidationInput struct {
	AttestationCOSEBase64 enclaveapi.AttestationCOSEBase64
	AttestationCOSEGzip   enclaveapi.AttestationCOSEGzip

	// Events is the published event log from sequence 1, as returned by get_events.
	// It may extend past the attested head.
	Events []core.Event

	// ExpectedWinner is checked against the attested winner when set
	ExpectedWinner core.Identity

	// KnownPCRs overrides pcrs.json
	KnownPCRs []PCRSet

	// AllowDebugPCRs accepts attestations from debug-mode enclaves (all-zero PCRs).
	// Only for development: a debug enclave's code is not what its PCRs say.
	AllowDebugPCRs bool
}

// ValidateSettlementAttestation validates a settlement attestation and verifies:
// - The published event log hashes to the attested head
// - The AuctionEnded event and final bid match the attested winner and winning bid
// - Commission and payout follow from the winning bid
// - The winner is the expected one, if given
//
// Returns an error only if validation cannot be performed (malformed input, missing config).
func ValidateSettlementAttestation(input *SettlementValidationInput) (*SettlementValidationResult, error) {
	coseBytes, err := input.decode()
	if err != nil {
		return nil, err
	}

	baseResult, err := validateCommonAttestation(coseBytes, input.KnownPCRs, input.AllowDebugPCRs)
	if err != nil {
		return nil, err
	}

	attestation, err := coseBytes.ParseSettlementAttestation()
	if err != nil {
		return nil, fmt.Errorf("parse settlement attestation: %w", err)
	}

	result := &SettlementValidationResult{
		BaseValidationResult: *baseResult,
	}

	userData := attestation.UserData
	if userData == nil {
		result.ValidationDetails = append(result.ValidationDetails, "Attestation user data missing")
		return result, nil
	}

	result.EventChainValid = validateEventChain(input.Events, userData, result)
	result.AuctionEndedValid = result.EventChainValid && validateAuctionEnded(input.Events[:userData.EventCount], userData, result)
	result.SettlementMathValid = validateSettlementMath(userData, result)
	result.WinnerValid = validateWinner(input.ExpectedWinner, userData, result)

	return result, nil
}

func (input *SettlementValidationInput) decode() (enclaveapi.AttestationCOSE, error) {
	switch {
	case input.AttestationCOSEBase64 != "" && input.AttestationCOSEGzip != "":
		return nil, fmt.Errorf("both base64 and gzip attestations given")
	case input.AttestationCOSEBase64 != "":
		coseBytes, err := input.AttestationCOSEBase64.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode attestation: %w", err)
		}
		return coseBytes, nil
	case input.AttestationCOSEGzip != "":
		coseBytes, err := input.AttestationCOSEGzip.Decompress()
		if err != nil {
			return nil, fmt.Errorf("decompress attestation: %w", err)
		}
		return coseBytes, nil
	}
	return nil, fmt.Errorf("no attestation given")
}

func validateEventChain(events []core.Event, userData *enclaveapi.SettlementAttestationUserData, result *SettlementValidationResult) bool {
	count, _, err := core.VerifyEventChain(events)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Event chain invalid: %v", err))
		return false
	}
	if userData.EventCount <= 0 || userData.EventCount > count {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Event log has %d events, attestation covers %d", count, userData.EventCount))
		return false
	}

	head := events[userData.EventCount-1].Hash
	if head != userData.EventLogHash {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Event log head mismatch at #%d: computed %s, attested %s", userData.EventCount, head, userData.EventLogHash))
		return false
	}

	result.ValidationDetails = append(result.ValidationDetails,
		fmt.Sprintf("Event chain verified: %d events, head %s", userData.EventCount, head))
	return true
}

// validateAuctionEnded checks the attested prefix of the log. Withdrawals may
// follow AuctionEnded within it; bids may not.
func validateAuctionEnded(events []core.Event, userData *enclaveapi.SettlementAttestationUserData, result *SettlementValidationResult) bool {
	var ended *core.Event
	var lastBid *core.Event
	for i := range events {
		e := &events[i]
		switch e.Type {
		case core.EventAuctionEnded:
			if ended != nil {
				result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Duplicate AuctionEnded event #%d", e.Sequence))
				return false
			}
			ended = e
		case core.EventNewBid:
			if ended != nil {
				result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid #%d recorded after AuctionEnded", e.Sequence))
				return false
			}
			lastBid = e
		}
	}

	if ended == nil {
		result.ValidationDetails = append(result.ValidationDetails, "No AuctionEnded event in attested log")
		return false
	}
	if ended.Account != userData.Winner || !ended.Amount.Equal(userData.WinningBid) {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("AuctionEnded mismatch: log %q/%s, attested %q/%s", ended.Account, ended.Amount, userData.Winner, userData.WinningBid))
		return false
	}

	if lastBid == nil {
		if userData.Winner != core.NoIdentity || !userData.WinningBid.IsZero() {
			result.ValidationDetails = append(result.ValidationDetails, "Winner attested but no bids in log")
			return false
		}
		result.ValidationDetails = append(result.ValidationDetails, "AuctionEnded matches: no bids")
		return true
	}
	if lastBid.Account != userData.Winner || !lastBid.Amount.Equal(userData.WinningBid) {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Final bid mismatch: log %q/%s, attested %q/%s", lastBid.Account, lastBid.Amount, userData.Winner, userData.WinningBid))
		return false
	}

	result.ValidationDetails = append(result.ValidationDetails,
		fmt.Sprintf("AuctionEnded matches final bid: %s won with %s", userData.Winner, userData.WinningBid))
	return true
}

func validateSettlementMath(userData *enclaveapi.SettlementAttestationUserData, result *SettlementValidationResult) bool {
	commission := core.Commission(userData.WinningBid)
	payout := core.Payout(userData.WinningBid)

	if !commission.Equal(userData.Commission) || !payout.Equal(userData.Payout) {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Settlement mismatch: expected commission %s payout %s, attested commission %s payout %s",
				commission, payout, userData.Commission, userData.Payout))
		return false
	}

	result.ValidationDetails = append(result.ValidationDetails,
		fmt.Sprintf("Settlement verified: payout %s, commission %s", payout, commission))
	return true
}

func validateWinner(expected core.Identity, userData *enclaveapi.SettlementAttestationUserData, result *SettlementValidationResult) bool {
	if expected == core.NoIdentity {
		return true
	}
	if expected != userData.Winner {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Winner mismatch: expected %s, attested %q", expected, userData.Winner))
		return false
	}
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner matches: %s", expected))
	return true
}
