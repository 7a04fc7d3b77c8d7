package validation

import (
	"fmt"

	enclaveapi "github.com/cloudx-io/escrowauction/enclaveapi"
)

// validateCommonAttestation validates PCRs, the certificate chain and the COSE signature.
// knownPCRs defaults to the sets in pcrs.json when nil. Debug-mode measurements
// are rejected unless allowDebug is set, even when listed in knownPCRs.
func validateCommonAttestation(coseBytes enclaveapi.AttestationCOSE, knownPCRs []PCRSet, allowDebug bool) (*BaseValidationResult, error) {
	attestationDoc, _, err := coseBytes.ParseAttestationDoc()
	if err != nil {
		return nil, fmt.Errorf("parse attestation document: %w", err)
	}

	if knownPCRs == nil {
		knownPCRs, err = LoadPCRsFromFile(DefaultPCRConfigPath())
		if err != nil {
			return nil, fmt.Errorf("failed to load PCR configuration: %w", err)
		}
	}

	result := &BaseValidationResult{
		ValidationDetails: []string{},
	}

	pcrMatch, matchedSet := ValidatePCRs(attestationDoc.PCRs, knownPCRs)
	result.PCRsValid = pcrMatch
	if IsDebugPCRs(attestationDoc.PCRs) && !allowDebug {
		result.PCRsValid = false
		result.ValidationDetails = append(result.ValidationDetails, "PCRs are all zero: debug-mode enclave rejected")
	} else if !pcrMatch {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("PCR0: %s (no match)", attestationDoc.PCRs.ImageFileHash),
			fmt.Sprintf("PCR1: %s (no match)", attestationDoc.PCRs.KernelHash),
			fmt.Sprintf("PCR2: %s (no match)", attestationDoc.PCRs.ApplicationHash))
	} else {
		result.ValidationDetails = append(result.ValidationDetails,
			"PCR measurements valid",
			fmt.Sprintf("Matched PCR set: #%d (commit: %s)", matchedSet, knownPCRs[matchedSet].CommitHash))
	}

	switch {
	case attestationDoc.Certificate == "":
		result.ValidationDetails = append(result.ValidationDetails, "Missing certificate")
	case len(attestationDoc.CABundle) == 0:
		result.ValidationDetails = append(result.ValidationDetails, "Missing CA bundle")
	default:
		err = ValidateCertificateChain(attestationDoc.Certificate, attestationDoc.CABundle, attestationDoc.Timestamp)
		if err != nil {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Certificate chain validation failed: %v", err))
		} else {
			result.CertificateValid = true
			result.ValidationDetails = append(result.ValidationDetails, "Certificate chain verified")
		}
	}

	if err := VerifyCOSESignature(coseBytes, attestationDoc.Certificate); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("COSE signature verification failed: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "COSE signature verified")
	}

	return result, nil
}
