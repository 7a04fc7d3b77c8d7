package validation

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/escrowauction/core"
	enclaveapi "github.com/cloudx-io/escrowauction/enclaveapi"
)

var attestedAt = time.Date(2024, 6, 1, 13, 5, 0, 0, time.UTC)

// testPCR fills every measurement of a test attestation; zero would be a debug-mode enclave
const testPCR byte = 0x3b

// knownPCRs trusts the measurements attest produces for pcr
func knownPCRs(pcr byte) []PCRSet {
	measurement := hex.EncodeToString(bytes.Repeat([]byte{pcr}, 48))
	return []PCRSet{{PCR0: measurement, PCR1: measurement, PCR2: measurement, CommitHash: "test-build"}}
}

// testSigner is a self-signed P-384 key standing in for a Nitro signing certificate
type testSigner struct {
	key     *ecdsa.PrivateKey
	certDER []byte
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test-enclave"},
		NotBefore:    attestedAt.Add(-time.Hour),
		NotAfter:     attestedAt.Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	assert.NoError(t, err)
	return &testSigner{key: key, certDER: certDER}
}

// attest builds and signs a Nitro-shaped COSE_Sign1 document embedding userData
func (s *testSigner) attest(t *testing.T, userData *enclaveapi.SettlementAttestationUserData, pcr byte) enclaveapi.AttestationCOSE {
	t.Helper()
	userDataBytes, err := json.Marshal(userData)
	assert.NoError(t, err)

	payload, err := cbor.Marshal(map[string]any{
		"module_id": "test-enclave-12345",
		"digest":    "SHA384",
		"timestamp": uint64(attestedAt.UnixMilli()),
		"pcrs": map[uint64][]byte{
			0: bytes.Repeat([]byte{pcr}, 48),
			1: bytes.Repeat([]byte{pcr}, 48),
			2: bytes.Repeat([]byte{pcr}, 48),
		},
		"certificate": s.certDER,
		"cabundle":    [][]byte{s.certDER},
		"user_data":   userDataBytes,
		"nonce":       []byte("test-nonce"),
	})
	assert.NoError(t, err)

	protected, err := cbor.Marshal(map[int]int{1: int(cose.AlgorithmES384)})
	assert.NoError(t, err)

	msg := &coseSign1{Protected: protected, Payload: payload}
	content, err := sigStructure(msg)
	assert.NoError(t, err)

	signer, err := cose.NewSigner(cose.AlgorithmES384, s.key)
	assert.NoError(t, err)
	signature, err := signer.Sign(rand.Reader, content)
	assert.NoError(t, err)

	coseBytes, err := cbor.Marshal([]any{protected, map[string]any{}, payload, signature})
	assert.NoError(t, err)
	return enclaveapi.AttestationCOSE(coseBytes)
}

// settledAuction returns the event log of an auction alice won with 700 after
// outbidding bob, plus bob's later withdrawal, and the matching user data
func settledAuction(t *testing.T) ([]core.Event, *enclaveapi.SettlementAttestationUserData) {
	t.Helper()
	log := core.NewEventLog()
	at := attestedAt.Add(-2 * time.Hour)
	emit := func(eventType core.EventType, account core.Identity, amount int64) {
		at = at.Add(time.Minute)
		log.Emit(core.Event{Type: eventType, Account: account, Amount: decimal.NewFromInt(amount), Timestamp: at})
	}

	emit(core.EventNewBid, "0xalice", 500)
	emit(core.EventNewBid, "0xbob", 600)
	emit(core.EventNewBid, "0xalice", 700)
	emit(core.EventAuctionEnded, "0xalice", 700)
	count, head := log.Head()
	emit(core.EventWithdrawal, "0xbob", 600)

	return log.Since(0), &enclaveapi.SettlementAttestationUserData{
		AuctionID:    "auction-1",
		Beneficiary:  "0xbeneficiary",
		Winner:       "0xalice",
		WinningBid:   decimal.NewFromInt(700),
		Commission:   decimal.NewFromInt(14),
		Payout:       decimal.NewFromInt(686),
		EventCount:   count,
		EventLogHash: head,
	}
}

// jsonRoundTrip mimics events fetched from the enclave
func jsonRoundTrip(t *testing.T, events []core.Event) []core.Event {
	t.Helper()
	data, err := json.Marshal(events)
	assert.NoError(t, err)
	var out []core.Event
	assert.NoError(t, json.Unmarshal(data, &out))
	return out
}

func encodeDER(der []byte) string {
	return base64.StdEncoding.EncodeToString(der)
}
