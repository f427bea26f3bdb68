// Package nostrtest builds signed events for tests.
package nostrtest

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"kind4-archive/domain/nostr"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/require"
)

// Signer holds a freshly generated key pair.
type Signer struct {
	t       testing.TB
	private *btcec.PrivateKey
}

func NewSigner(t testing.TB) Signer {
	t.Helper()
	private, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return Signer{t: t, private: private}
}

// PubKey is the lowercase hex x-only public key.
func (s Signer) PubKey() string {
	return hex.EncodeToString(schnorr.SerializePubKey(s.private.PubKey()))
}

// NPub is the canonical encoding of PubKey.
func (s Signer) NPub() nostr.NPub {
	s.t.Helper()
	npub, err := nostr.EncodePubKey(s.PubKey())
	require.NoError(s.t, err)
	return npub
}

// Event returns a signed event with the given fields.
func (s Signer) Event(kind int, createdAt int64, tags nostr.Tags, content string) nostr.Event {
	s.t.Helper()
	if tags == nil {
		tags = nostr.Tags{}
	}
	event := nostr.Event{
		PubKey:    s.PubKey(),
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
	hash := event.Hash()
	event.ID = hex.EncodeToString(hash[:])
	sig, err := schnorr.Sign(s.private, hash[:])
	require.NoError(s.t, err)
	event.Sig = hex.EncodeToString(sig.Serialize())
	return event
}

// DirectMessage returns a signed kind 4 event addressed to receiver.
func (s Signer) DirectMessage(receiver Signer, createdAt int64) nostr.Event {
	return s.Event(nostr.KindEncryptedDirectMessage, createdAt,
		nostr.Tags{{"p", receiver.PubKey()}}, "ciphertext?iv=aXY=")
}

// Marshal renders an event in its wire JSON form.
func Marshal(t testing.TB, event nostr.Event) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":         event.ID,
		"pubkey":     event.PubKey,
		"created_at": event.CreatedAt,
		"kind":       event.Kind,
		"tags":       event.Tags,
		"content":    event.Content,
		"sig":        event.Sig,
	})
	require.NoError(t, err)
	return raw
}
