//go:generate go run go.uber.org/mock/mockgen -source=archive_service.go -destination=../mocks/mock_archive_service.go -package=mocks
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"kind4-archive/domain/archive"
	"kind4-archive/domain/nostr"
	"kind4-archive/errors"
	"kind4-archive/observability"
	"kind4-archive/repositories"

	"github.com/go-playground/validator/v10"
)

type IArchiveService interface {
	Archive(ctx context.Context, body []byte) (archive.MessageKey, error)
	ListConversation(ctx context.Context, query archive.ConversationQuery) ([]string, error)
	CountConversations(ctx context.Context, query archive.CountQuery) (map[string]int, error)
}

type ArchiveService struct {
	repository repositories.IArchiveRepository
	metrics    *observability.ArchiveMetrics
	validate   *validator.Validate
	log        *slog.Logger
}

func NewArchiveService(repository repositories.IArchiveRepository, metrics *observability.ArchiveMetrics, log *slog.Logger) *ArchiveService {
	return &ArchiveService{
		repository: repository,
		metrics:    metrics,
		validate:   validator.New(),
		log:        log,
	}
}

// Archive validates a raw event and stores it under its message key.
// Nothing is written unless the event is a correctly signed kind 4 with an encodable
// author and receiver.
func (s *ArchiveService) Archive(ctx context.Context, body []byte) (archive.MessageKey, error) {
	// 1. Schema, id and signature
	event, err := nostr.ParseEvent(body)
	if err != nil {
		s.metrics.Rejected(ctx, "invalid_event")
		return archive.MessageKey{}, err
	}

	// 2. Kind policy, kept apart from validation so a well formed event of another kind
	// is reported as such
	if !event.IsDirectMessage() {
		s.metrics.Rejected(ctx, "wrong_kind")
		return archive.MessageKey{}, fmt.Errorf("%w: got kind %d", errors.ErrWrongKind, event.Kind)
	}

	// 3. Canonical identifiers
	key, err := archive.NewMessageKey(event)
	if err != nil {
		s.metrics.Rejected(ctx, "encoding")
		return archive.MessageKey{}, err
	}

	// 4. Store the event as received, minus insignificant whitespace
	var value bytes.Buffer
	if err = json.Compact(&value, body); err != nil {
		return archive.MessageKey{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if err = s.repository.Put(ctx, key.String(), value.Bytes()); err != nil {
		return archive.MessageKey{}, fmt.Errorf("failed to archive %s: %w", key, err)
	}
	s.metrics.Archived(ctx)
	s.log.Debug("Archived direct message", "key", key.String(), "event_id", event.ID)
	return key, nil
}

// ListConversation returns every key from sender to receiver in store order.
func (s *ArchiveService) ListConversation(ctx context.Context, query archive.ConversationQuery) ([]string, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, fmt.Errorf("%w: both sender and receiver must be provided", errors.ErrMissingParameter)
	}
	keys, err := s.repository.List(ctx, query.Prefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	s.metrics.Queried(ctx, "conversation")
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// CountConversations counts a sender's archived messages per receiver.
func (s *ArchiveService) CountConversations(ctx context.Context, query archive.CountQuery) (map[string]int, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, fmt.Errorf("%w: sender must be provided", errors.ErrMissingParameter)
	}
	keys, err := s.repository.List(ctx, query.Prefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list sender keys: %w", err)
	}
	counts, malformed := archive.CountByReceiver(keys, query)
	if len(malformed) > 0 {
		s.log.Warn("Skipped malformed archive keys", "sender", query.Sender, "keys", malformed)
	}
	s.metrics.Queried(ctx, "counts")
	return counts, nil
}
