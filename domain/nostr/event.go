// Package nostr holds the parts of the nostr event format the archive relies on:
// the signed event itself and the npub encoding of public keys.
package nostr

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"kind4-archive/errors"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/go-playground/validator/v10"
)

// KindEncryptedDirectMessage is the NIP-04 encrypted direct message kind.
const KindEncryptedDirectMessage = 4

var lowerHex = regexp.MustCompile(`^[0-9a-f]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("lowerhex", func(fl validator.FieldLevel) bool {
		return lowerHex.MatchString(fl.Field().String())
	})
	return v
}

// Tag is an ordered tuple of strings attached to an event, e.g. ["p", "<hex pubkey>"].
type Tag []string

type Tags []Tag

// FirstValue returns the second element of the first tag named name. It returns "" when
// no tag matches or when that first match has no value; later tags are never consulted.
func (t Tags) FirstValue(name string) string {
	for _, tag := range t {
		if len(tag) == 0 || tag[0] != name {
			continue
		}
		if len(tag) < 2 {
			return ""
		}
		return tag[1]
	}
	return ""
}

// Event is a signed nostr event whose id and signature have been checked.
// It can only be obtained through ParseEvent.
type Event struct {
	ID        string
	PubKey    string
	CreatedAt int64
	Kind      int
	Tags      Tags
	Content   string
	Sig       string
}

// wireEvent is the untrusted JSON shape. Pointers tell a missing field from a zero value.
type wireEvent struct {
	ID        string  `json:"id" validate:"required,len=64,lowerhex"`
	PubKey    string  `json:"pubkey" validate:"required,len=64,lowerhex"`
	CreatedAt *int64  `json:"created_at" validate:"required,gte=0"`
	Kind      *int    `json:"kind" validate:"required,gte=0,lte=65535"`
	Tags      Tags    `json:"tags" validate:"required"`
	Content   *string `json:"content" validate:"required"`
	Sig       string  `json:"sig" validate:"required,len=128,lowerhex"`
}

// ParseEvent decodes raw JSON into an Event. It fails with errors.ErrValidation when the
// shape is wrong, the id does not match the event content or the signature does not verify.
func ParseEvent(raw []byte) (Event, error) {
	if err := checkFieldNames(raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	var wire wireEvent
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if err := decoder.Decode(&wire); err != nil {
		return Event{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if decoder.More() {
		return Event{}, fmt.Errorf("%w: trailing data after event", errors.ErrValidation)
	}
	if err := validate.Struct(wire); err != nil {
		return Event{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	event := Event{
		ID:        wire.ID,
		PubKey:    wire.PubKey,
		CreatedAt: *wire.CreatedAt,
		Kind:      *wire.Kind,
		Tags:      wire.Tags,
		Content:   *wire.Content,
		Sig:       wire.Sig,
	}
	if err := event.verify(); err != nil {
		return Event{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return event, nil
}

// eventFields are the wire names of the signed event fields.
var eventFields = map[string]struct{}{
	"id": {}, "pubkey": {}, "created_at": {}, "kind": {}, "tags": {}, "content": {}, "sig": {},
}

// checkFieldNames rejects objects a case sensitive reader would see differently from
// encoding/json, which matches keys case-insensitively and keeps the last duplicate.
// Every event field must be spelled exactly and appear once.
func checkFieldNames(raw []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("event is not a JSON object")
	}
	seen := make(map[string]struct{})
	for decoder.More() {
		token, err = decoder.Token()
		if err != nil {
			return err
		}
		name, _ := token.(string)
		folded := strings.ToLower(name)
		if _, known := eventFields[folded]; known && folded != name {
			return fmt.Errorf("field %q must be spelled %q", name, folded)
		}
		if _, duplicate := seen[folded]; duplicate {
			return fmt.Errorf("duplicate field %q", name)
		}
		seen[folded] = struct{}{}

		var value json.RawMessage
		if err = decoder.Decode(&value); err != nil {
			return err
		}
	}
	return nil
}

// IsDirectMessage reports whether the event carries the encrypted direct message kind.
func (e Event) IsDirectMessage() bool {
	return e.Kind == KindEncryptedDirectMessage
}

// Receiver is the raw hex key of the first "p" tag, or "" when the event addresses nobody.
func (e Event) Receiver() string {
	return e.Tags.FirstValue("p")
}

// Hash is the sha256 of the NIP-01 serialization, which is what the id and signature commit to.
func (e Event) Hash() [32]byte {
	return sha256.Sum256(e.Serialize())
}

// Serialize renders [0,pubkey,created_at,kind,tags,content] the way NIP-01 requires:
// no whitespace, and only the minimal JSON string escapes.
func (e Event) Serialize() []byte {
	dst := make([]byte, 0, 128+len(e.Content))
	dst = append(dst, `[0,"`...)
	dst = append(dst, e.PubKey...)
	dst = append(dst, `",`...)
	dst = strconv.AppendInt(dst, e.CreatedAt, 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(e.Kind), 10)
	dst = append(dst, ",["...)
	for i, tag := range e.Tags {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for j, value := range tag {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = appendJSONString(dst, value)
		}
		dst = append(dst, ']')
	}
	dst = append(dst, "],"...)
	dst = appendJSONString(dst, e.Content)
	return append(dst, ']')
}

func (e Event) verify() error {
	hash := e.Hash()
	if hex.EncodeToString(hash[:]) != e.ID {
		return fmt.Errorf("id does not match event content")
	}
	pubKeyBytes, err := hex.DecodeString(e.PubKey)
	if err != nil {
		return fmt.Errorf("pubkey: %w", err)
	}
	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return fmt.Errorf("pubkey: %w", err)
	}
	sigBytes, err := hex.DecodeString(e.Sig)
	if err != nil {
		return fmt.Errorf("sig: %w", err)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("sig: %w", err)
	}
	if !sig.Verify(hash[:], pubKey) {
		return fmt.Errorf("signature does not verify")
	}
	return nil
}

func appendJSONString(dst []byte, s string) []byte {
	const hexDigits = "0123456789abcdef"
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		default:
			if c < 0x20 {
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
				continue
			}
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}
