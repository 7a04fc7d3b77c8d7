package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"

	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/enclaveapi"
)

// EnclaveAttester interface for dependency injection and testing
type EnclaveAttester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// generateSecureRandomBytes reads from crypto/rand, which inside the enclave is
// backed by the NSM-seeded kernel entropy pool
func generateSecureRandomBytes(length int) ([]byte, error) {
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("entropy generation failed: %w", err)
	}
	return randomBytes, nil
}

func generateNonce() (string, error) {
	randomBytes, err := generateSecureRandomBytes(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate secure nonce - %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

// BuildSettlementUserData commits the settlement to the event log head at finalization
func BuildSettlementUserData(details core.AuctionDetails, settlement *core.Settlement, events *core.EventLog) *enclaveapi.SettlementAttestationUserData {
	count, head := events.Head()
	return &enclaveapi.SettlementAttestationUserData{
		AuctionID:    details.ID,
		Beneficiary:  details.Beneficiary,
		Winner:       settlement.Winner,
		WinningBid:   settlement.WinningBid,
		Commission:   settlement.Commission,
		Payout:       settlement.Payout,
		Deadline:     details.Deadline,
		EventCount:   count,
		EventLogHash: head,
	}
}

// GenerateSettlementAttestation asks the NSM to sign userData. Nonce and
// Timestamp are filled in here.
func GenerateSettlementAttestation(attester EnclaveAttester, userData *enclaveapi.SettlementAttestationUserData) (enclaveapi.AttestationCOSE, error) {
	if attester == nil {
		return nil, fmt.Errorf("enclave attester is nil")
	}

	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate settlement nonce: %w", err)
	}
	userData.Nonce = nonce
	userData.Timestamp = time.Now().UTC()

	userDataBytes, err := json.Marshal(userData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user data: %w", err)
	}

	attestationNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(attestationNonce),
	})
	if err != nil {
		log.Printf("ERROR: NSM attestation failed: %v", err)
		return nil, fmt.Errorf("NSM attestation failed: %w", err)
	}

	log.Printf("INFO: Settlement attestation generated for auction %s: %d bytes", userData.AuctionID, len(attestationCBOR))

	return enclaveapi.AttestationCOSE(attestationCBOR), nil
}
