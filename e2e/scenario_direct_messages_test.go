package e2e

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"kind4-archive/client"
	"kind4-archive/domain/nostr/nostrtest"

	"github.com/stretchr/testify/suite"
)

type testDirectMessagesSuite struct {
	BaseHTTPSuite
}

func TestDirectMessagesSuite(t *testing.T) {
	suite.Run(t, &testDirectMessagesSuite{})
}

func (s *testDirectMessagesSuite) TestArchiveThenQuery() {
	t := s.T()
	alice := nostrtest.NewSigner(t)
	bob := nostrtest.NewSigner(t)
	clara := nostrtest.NewSigner(t)
	now := time.Now().Unix()

	s.WithArchive("Archive direct messages", func(ctx context.Context, archive *client.Client) {
		s.Require().NoError(archive.PutEvent(ctx, nostrtest.Marshal(t, alice.DirectMessage(bob, now-120))))
		s.Require().NoError(archive.PutEvent(ctx, nostrtest.Marshal(t, alice.DirectMessage(bob, now-60))))
		s.Require().NoError(archive.PutEvent(ctx, nostrtest.Marshal(t, alice.DirectMessage(clara, now-30))))
	})

	s.WithArchive("Reject a public note", func(ctx context.Context, archive *client.Client) {
		err := archive.PutEvent(ctx, nostrtest.Marshal(t, alice.Event(1, now, nil, "hello")))
		var apiErr *client.APIError
		s.Require().True(errors.As(err, &apiErr))
		s.Equal(http.StatusBadRequest, apiErr.StatusCode)
		s.Equal("Event is not kind 4", apiErr.Message)
	})

	s.WithArchive("List the conversation", func(ctx context.Context, archive *client.Client) {
		keys, err := archive.ListConversation(ctx, alice.NPub().String(), bob.NPub().String())
		s.Require().NoError(err)
		s.Len(keys, 2)
	})

	s.WithArchive("Count per receiver", func(ctx context.Context, archive *client.Client) {
		since := now - 90
		counts, err := archive.Counts(ctx, alice.NPub().String(), nil, &since)
		s.Require().NoError(err)
		s.Equal(map[string]int{bob.NPub().String(): 1, clara.NPub().String(): 1}, counts)
	})
}
