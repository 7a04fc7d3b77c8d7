package main

import (
	"bytes"
	"fmt"
	"testing"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/escrowauction/enclaveapi"
)

// MockEnclaveHandle implements the Attest method for testing
type MockEnclaveHandle struct {
	AttestFunc func(options enclave.AttestationOptions) ([]byte, error)
}

func (m *MockEnclaveHandle) Attest(options enclave.AttestationOptions) ([]byte, error) {
	if m.AttestFunc != nil {
		return m.AttestFunc(options)
	}
	return nil, fmt.Errorf("mock not configured")
}

// CreateMockEnclave returns a handle producing unsigned Nitro-shaped COSE documents
// that embed the requested user data and nonce
func CreateMockEnclave(t *testing.T) *MockEnclaveHandle {
	t.Helper()
	return &MockEnclaveHandle{
		AttestFunc: func(options enclave.AttestationOptions) ([]byte, error) {
			nestedDoc := map[string]any{
				"module_id": "test-enclave-12345",
				"digest":    "SHA384",
				"timestamp": uint64(1717243200000),
				"pcrs": map[uint64][]byte{
					0: bytes.Repeat([]byte{0x3b}, 48),
					1: bytes.Repeat([]byte{0x4b}, 48),
					2: bytes.Repeat([]byte{0x2b}, 48),
				},
				"certificate": []byte("test-certificate-data"),
				"cabundle":    [][]byte{[]byte("test-ca-cert")},
				"user_data":   options.UserData,
				"nonce":       options.Nonce,
			}
			nestedBytes, err := cbor.Marshal(nestedDoc)
			if err != nil {
				return nil, err
			}

			// [protected header, unprotected header, payload, signature]
			return cbor.Marshal([]any{
				[]byte{0x01, 0x02, 0x03},
				map[string]any{},
				nestedBytes,
				[]byte{0x04, 0x05, 0x06},
			})
		},
	}
}

// parseSettlementFromCOSE decodes the base64 COSE returned on finalize
func parseSettlementFromCOSE(t *testing.T, encoded enclaveapi.AttestationCOSEBase64) *enclaveapi.SettlementAttestationDoc {
	t.Helper()

	coseBytes, err := encoded.Decode()
	if err != nil {
		t.Fatalf("Failed to decode attestation: %v", err)
	}
	doc, err := coseBytes.ParseSettlementAttestation()
	if err != nil {
		t.Fatalf("Failed to parse attestation: %v", err)
	}
	return doc
}
