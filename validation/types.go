package validation

// BaseValidationResult contains common validation results for all attestation types
type BaseValidationResult struct {
	PCRsValid         bool
	CertificateValid  bool
	SignatureValid    bool
	ValidationDetails []string
}

// SettlementValidationResult contains validation results for a settlement attestation
type SettlementValidationResult struct {
	BaseValidationResult

	// EventChainValid: the published log rehashes to the attested head and count
	EventChainValid bool

	// AuctionEndedValid: the log's AuctionEnded event and final bid match the attested winner and bid
	AuctionEndedValid bool

	// SettlementMathValid: commission and payout recompute from the winning bid
	SettlementMathValid bool

	// WinnerValid is true when no winner was expected or the attested winner matches
	WinnerValid bool
}

// IsValid returns true if all settlement validation checks passed
func (r *SettlementValidationResult) IsValid() bool {
	return r.PCRsValid && r.CertificateValid && r.SignatureValid &&
		r.EventChainValid && r.AuctionEndedValid && r.SettlementMathValid && r.WinnerValid
}

// PCRSet represents a known-good set of PCR measurements
type PCRSet struct {
	PCR0       string `json:"pcr0"`
	PCR1       string `json:"pcr1"`
	PCR2       string `json:"pcr2"`
	CommitHash string `json:"commit_hash"` // repo commit used to build the enclave image
}

// PCRConfig represents the PCR configuration file structure
type PCRConfig struct {
	PCRSets []PCRSet `json:"pcr_sets"`
}
