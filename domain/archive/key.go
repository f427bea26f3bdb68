// Package archive defines how archived direct messages are keyed and queried.
//
// A message is stored under "{sender npub}:{receiver npub}:{created_at}". The key is the
// only index: listing a sender prefix yields every conversation of that sender, listing a
// sender:receiver prefix yields one conversation. Timestamps are written as plain decimal,
// so the store's lexicographic order is chronological only while created_at keeps the same
// number of digits.
package archive

import (
	"fmt"
	"strconv"
	"strings"

	"kind4-archive/domain/nostr"
	"kind4-archive/errors"
)

const Separator = ":"

// MessageKey identifies one archived message. Two messages between the same pair
// sharing a created_at map to the same key and the last write wins.
type MessageKey struct {
	Sender    nostr.NPub
	Receiver  nostr.NPub
	CreatedAt int64
}

// NewMessageKey derives the key of a validated event: the author is the sender,
// the first "p" tag is the receiver. An event without a "p" tag fails with errors.ErrEncoding.
func NewMessageKey(event nostr.Event) (MessageKey, error) {
	sender, err := nostr.EncodePubKey(event.PubKey)
	if err != nil {
		return MessageKey{}, fmt.Errorf("sender: %w", err)
	}
	receiver, err := nostr.EncodePubKey(event.Receiver())
	if err != nil {
		return MessageKey{}, fmt.Errorf("receiver: %w", err)
	}
	return MessageKey{Sender: sender, Receiver: receiver, CreatedAt: event.CreatedAt}, nil
}

func (k MessageKey) String() string {
	return k.Sender.String() + Separator + k.Receiver.String() + Separator + strconv.FormatInt(k.CreatedAt, 10)
}

// ParseKey splits a stored key back into its parts. Only the third segment is numeric.
func ParseKey(key string) (MessageKey, error) {
	parts := strings.Split(key, Separator)
	if len(parts) != 3 {
		return MessageKey{}, fmt.Errorf("%w: %q has %d segments", errors.ErrMalformedKey, key, len(parts))
	}
	createdAt, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return MessageKey{}, fmt.Errorf("%w: %q: %v", errors.ErrMalformedKey, key, err)
	}
	return MessageKey{
		Sender:    nostr.NPub(parts[0]),
		Receiver:  nostr.NPub(parts[1]),
		CreatedAt: createdAt,
	}, nil
}

// SenderPrefix selects every key written by sender. The trailing separator keeps a
// sender from matching another identifier it happens to be a prefix of.
func SenderPrefix(sender string) string {
	return sender + Separator
}

// ConversationPrefix selects every key from sender to receiver.
func ConversationPrefix(sender, receiver string) string {
	return sender + Separator + receiver + Separator
}
