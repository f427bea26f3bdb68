package nostr

import (
	"encoding/hex"
	"fmt"

	"kind4-archive/errors"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

const npubHRP = "npub"

// NPub is the NIP-19 bech32 form of a public key. Every NPub is 63 characters long and
// uses only the bech32 alphabet, so it never contains ':'.
type NPub string

func (n NPub) String() string {
	return string(n)
}

// EncodePubKey canonicalizes a hex x-only public key into its npub form.
// It fails with errors.ErrEncoding for anything that is not a 32 byte key on the curve.
func EncodePubKey(rawHex string) (NPub, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEncoding, err)
	}
	if len(raw) != schnorr.PubKeyBytesLen {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", errors.ErrEncoding, schnorr.PubKeyBytesLen, len(raw))
	}
	if _, err = schnorr.ParsePubKey(raw); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEncoding, err)
	}
	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEncoding, err)
	}
	encoded, err := bech32.Encode(npubHRP, converted)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEncoding, err)
	}
	return NPub(encoded), nil
}

// DecodeNPub returns the hex public key behind an npub.
func DecodeNPub(npub string) (string, error) {
	hrp, data, err := bech32.Decode(npub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEncoding, err)
	}
	if hrp != npubHRP {
		return "", fmt.Errorf("%w: unexpected prefix %q", errors.ErrEncoding, hrp)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrEncoding, err)
	}
	if len(raw) != schnorr.PubKeyBytesLen {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", errors.ErrEncoding, schnorr.PubKeyBytesLen, len(raw))
	}
	return hex.EncodeToString(raw), nil
}
