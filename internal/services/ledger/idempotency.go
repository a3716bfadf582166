package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
)

// Each key source has its own prefix in the shared unique index.
const (
	clientKeyPrefix   = "req:"
	providerKeyPrefix = "provider:"
	checkoutKeyPrefix = "checkout:"
)

// ClientKey scopes a caller-supplied idempotency key to actorID. An empty
// key stays empty.
func ClientKey(actorID, key string) string {
	if key == "" {
		return ""
	}

	return clientKeyPrefix + actorID + ":" + key
}

// ProviderKey is the idempotency key of a deposit reported by the payment
// provider under providerTxID.
func ProviderKey(providerTxID string) string { return providerKeyPrefix + providerTxID }

// CheckoutKey is the idempotency key of the deposit opened for a checkout.
func CheckoutKey(checkoutID string) string { return checkoutKeyPrefix + checkoutID }

type legFingerprint struct {
	Key          balances.Key
	Delta        int64
	Kind         ledgerrepo.EntryKind
	FromReserved bool
}

// requestHash fingerprints what p was asked to do. Postings built from a
// caller request hash that request; the rest hash their header and legs.
func requestHash(p Posting) string {
	var payload any = p.Request
	if payload == nil {
		legs := make([]legFingerprint, len(p.Legs))
		for i, l := range p.Legs {
			legs[i] = legFingerprint(l)
		}

		payload = map[string]any{
			"source": p.Header.Source,
			"dest":   p.Header.Dest,
			"gross":  p.Header.Gross,
			"note":   p.Header.Note,
			"legs":   legs,
		}
	}

	b, err := json.Marshal(map[string]any{"op": p.Header.Type, "request": payload})
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(b)

	return hex.EncodeToString(sum[:])
}
