package archive

import (
	"github.com/samber/lo"
)

// ConversationQuery lists the keys of one sender/receiver pair.
type ConversationQuery struct {
	Sender   string `validate:"required"`
	Receiver string `validate:"required"`
}

func (q ConversationQuery) Prefix() string {
	return ConversationPrefix(q.Sender, q.Receiver)
}

// CountQuery counts a sender's messages per receiver, optionally narrowed to one
// receiver and to messages created at or after Since.
type CountQuery struct {
	Sender   string `validate:"required"`
	Receiver *string
	Since    *int64
}

func (q CountQuery) Prefix() string {
	return SenderPrefix(q.Sender)
}

// Matches reports whether a parsed key survives the receiver and since filters.
func (q CountQuery) Matches(key MessageKey) bool {
	if key.Sender.String() != q.Sender {
		return false
	}
	if q.Receiver != nil && key.Receiver.String() != *q.Receiver {
		return false
	}
	if q.Since != nil && key.CreatedAt < *q.Since {
		return false
	}
	return true
}

// CountByReceiver filters keys with q and counts the survivors per receiver.
// Keys that do not parse are skipped and returned so the caller can report them.
func CountByReceiver(keys []string, q CountQuery) (map[string]int, []string) {
	var malformed []string
	matching := lo.FilterMap(keys, func(raw string, _ int) (MessageKey, bool) {
		key, err := ParseKey(raw)
		if err != nil {
			malformed = append(malformed, raw)
			return MessageKey{}, false
		}
		return key, q.Matches(key)
	})
	counts := lo.CountValuesBy(matching, func(key MessageKey) string {
		return key.Receiver.String()
	})
	return counts, malformed
}
