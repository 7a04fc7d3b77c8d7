package core

import (
	"crypto/sha256"
	"fmt"
)

// ComputeEventHash computes the chained hash of an event log entry.
// This is used by the event log (to chain entries) and validation (to verify a published log).
//
// Formula: SHA256(prev_hash + "|" + sequence + "|" + type + "|" + len(account) + ":" + account + "|" + amount + "|" + unix_nanos)
//
// Identities are free-form, so the account is length-prefixed to keep a "|" inside it
// from shifting the field boundaries. The amount is formatted with no fractional digits;
// amounts are whole base units.
func ComputeEventHash(prevHash string, e Event) string {
	data := fmt.Sprintf("%s|%d|%s|%d:%s|%s|%d",
		prevHash, e.Sequence, e.Type, len(e.Account), e.Account, e.Amount.StringFixed(0), e.Timestamp.UnixNano())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// VerifyEventChain recomputes the hash chain over events, which must start at sequence 1.
// Returns the number of events and the head hash ("" for an empty log).
func VerifyEventChain(events []Event) (int, string, error) {
	head := ""
	for i, e := range events {
		if e.Sequence != uint64(i+1) {
			return 0, "", fmt.Errorf("event %d: expected sequence %d, got %d", i, i+1, e.Sequence)
		}
		if e.PrevHash != head {
			return 0, "", fmt.Errorf("event %d: prev hash %s does not match %s", e.Sequence, e.PrevHash, head)
		}
		computed := ComputeEventHash(head, e)
		if computed != e.Hash {
			return 0, "", fmt.Errorf("event %d: hash mismatch: computed %s, got %s", e.Sequence, computed, e.Hash)
		}
		head = computed
	}
	return len(events), head, nil
}
