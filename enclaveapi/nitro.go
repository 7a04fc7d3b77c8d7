package enclaveapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// NitroAttestationDocument represents the raw CBOR structure from AWS Nitro Enclaves
type NitroAttestationDocument struct {
	ModuleID    string            `cbor:"module_id"`
	Digest      string            `cbor:"digest"`
	Timestamp   uint64            `cbor:"timestamp"` // milliseconds since the Unix epoch
	PCRs        map[uint64][]byte `cbor:"pcrs"`
	Certificate []byte            `cbor:"certificate"`
	CABundle    [][]byte          `cbor:"cabundle"`
	PublicKey   []byte            `cbor:"public_key"`
	UserData    []byte            `cbor:"user_data"`
	Nonce       []byte            `cbor:"nonce"`
}

// ExtractCOSEPayload extracts the payload from a COSE_Sign1 4-element array
// COSE_Sign1 structure: [protected, unprotected, payload, signature]
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	var coseArray []any
	if err := cbor.Unmarshal(coseBytes, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}

	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}

	return payload, nil
}

// ParseAttestationDoc decodes the Nitro attestation document carried in the COSE payload.
// Returns the document and the raw user data bytes.
func (c AttestationCOSE) ParseAttestationDoc() (AttestationDoc, []byte, error) {
	payload, err := ExtractCOSEPayload(c)
	if err != nil {
		return AttestationDoc{}, nil, err
	}

	var raw NitroAttestationDocument
	if err := cbor.Unmarshal(payload, &raw); err != nil {
		return AttestationDoc{}, nil, fmt.Errorf("parse attestation document: %w", err)
	}

	doc := AttestationDoc{
		ModuleID:        raw.ModuleID,
		Timestamp:       time.UnixMilli(int64(raw.Timestamp)).UTC(),
		DigestAlgorithm: raw.Digest,
		PCRs:            ExtractPCRs(raw.PCRs),
		CABundle:        EncodeCertificateBundle(raw.CABundle),
		Nonce:           string(raw.Nonce),
	}
	if len(raw.Certificate) > 0 {
		doc.Certificate = base64.StdEncoding.EncodeToString(raw.Certificate)
	}
	if len(raw.PublicKey) > 0 {
		doc.PublicKey = base64.StdEncoding.EncodeToString(raw.PublicKey)
	}

	return doc, raw.UserData, nil
}

// ParseSettlementAttestation parses the attestation document and its settlement user data
func (c AttestationCOSE) ParseSettlementAttestation() (*SettlementAttestationDoc, error) {
	doc, userDataBytes, err := c.ParseAttestationDoc()
	if err != nil {
		return nil, err
	}

	result := &SettlementAttestationDoc{AttestationDoc: doc}
	if len(userDataBytes) == 0 {
		return result, nil
	}

	var userData SettlementAttestationUserData
	if err := json.Unmarshal(userDataBytes, &userData); err != nil {
		return nil, fmt.Errorf("parse user data: %w", err)
	}
	result.UserData = &userData
	return result, nil
}

// FormatPCR formats PCR bytes as hex string
func FormatPCR(pcrData []byte) string {
	if len(pcrData) == 0 {
		return ""
	}
	return fmt.Sprintf("%x", pcrData)
}

// EncodeCertificateBundle converts certificate bundle to base64 strings
func EncodeCertificateBundle(bundle [][]byte) []string {
	result := make([]string, len(bundle))
	for i, cert := range bundle {
		result[i] = base64.StdEncoding.EncodeToString(cert)
	}
	return result
}

// ExtractPCRs extracts and formats PCR values from the raw CBOR PCR map
func ExtractPCRs(rawPCRs map[uint64][]byte) PCRs {
	return PCRs{
		ImageFileHash:   FormatPCR(rawPCRs[0]),
		KernelHash:      FormatPCR(rawPCRs[1]),
		ApplicationHash: FormatPCR(rawPCRs[2]),
		IAMRoleHash:     FormatPCR(rawPCRs[3]),
		InstanceIDHash:  FormatPCR(rawPCRs[4]),
		SigningCertHash: FormatPCR(rawPCRs[8]),
	}
}
