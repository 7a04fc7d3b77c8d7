package validation

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	enclaveapi "github.com/cloudx-io/escrowauction/enclaveapi"
)

// coseSign1 is the untagged COSE_Sign1 array returned by the NSM
type coseSign1 struct {
	Protected []byte
	Payload   []byte
	Signature []byte
}

func splitCOSESign1(coseBytes []byte) (*coseSign1, error) {
	var coseArray []any
	if err := cbor.Unmarshal(coseBytes, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}
	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	protected, ok := coseArray[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid protected headers")
	}
	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload")
	}
	signature, ok := coseArray[3].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid signature")
	}
	return &coseSign1{Protected: protected, Payload: payload, Signature: signature}, nil
}

// sigStructure builds the COSE_Sign1 Sig_structure:
// ["Signature1", protected, external_aad, payload], external_aad empty for attestations
func sigStructure(msg *coseSign1) ([]byte, error) {
	data, err := cbor.Marshal([]any{"Signature1", msg.Protected, []byte{}, msg.Payload})
	if err != nil {
		return nil, fmt.Errorf("marshal Sig_structure: %w", err)
	}
	return data, nil
}

// VerifyCOSESignature verifies the ES384 signature of a COSE_Sign1 document
// against the public key of the base64 DER signing certificate
func VerifyCOSESignature(coseBytes enclaveapi.AttestationCOSE, certB64 string) error {
	certDER, err := base64.StdEncoding.DecodeString(certB64)
	if err != nil {
		return fmt.Errorf("decode certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return fmt.Errorf("parse certificate: %w", err)
	}
	ecdsaKey, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("certificate public key is not ECDSA")
	}

	msg, err := splitCOSESign1(coseBytes)
	if err != nil {
		return err
	}
	content, err := sigStructure(msg)
	if err != nil {
		return err
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES384, ecdsaKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}
	if err := verifier.Verify(content, msg.Signature); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return nil
}
