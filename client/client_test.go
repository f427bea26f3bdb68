package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"kind4-archive/client"
	"kind4-archive/domain/nostr/nostrtest"
	"kind4-archive/infrastructure/http/server"
	"kind4-archive/observability"
	"kind4-archive/repositories"
	"kind4-archive/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newArchive(t *testing.T) *client.Client {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	metrics, err := observability.NewArchiveMetrics(nil)
	require.NoError(t, err)
	service := services.NewArchiveService(repositories.NewArchiveRepository(db, log), metrics, log)
	httpServer := httptest.NewServer(server.NewArchiveServer(log, service, 64*1024))
	t.Cleanup(httpServer.Close)

	return client.New(httpServer.URL+"/", client.WithHTTPClient(httpServer.Client()))
}

func Test_Client_Put_List_And_Count(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	archive := newArchive(t)
	alice := nostrtest.NewSigner(t)
	bob := nostrtest.NewSigner(t)
	clara := nostrtest.NewSigner(t)

	req.NoError(archive.PutEvent(ctx, nostrtest.Marshal(t, alice.DirectMessage(bob, 100))))
	req.NoError(archive.PutEvent(ctx, nostrtest.Marshal(t, alice.DirectMessage(bob, 200))))
	req.NoError(archive.PutEvent(ctx, nostrtest.Marshal(t, alice.DirectMessage(clara, 300))))

	keys, err := archive.ListConversation(ctx, alice.NPub().String(), bob.NPub().String())
	req.NoError(err)
	req.Equal([]string{
		alice.NPub().String() + ":" + bob.NPub().String() + ":100",
		alice.NPub().String() + ":" + bob.NPub().String() + ":200",
	}, keys)

	counts, err := archive.Counts(ctx, alice.NPub().String(), nil, nil)
	req.NoError(err)
	req.Equal(map[string]int{bob.NPub().String(): 2, clara.NPub().String(): 1}, counts)

	counts, err = archive.Counts(ctx, alice.NPub().String(), lo.ToPtr(bob.NPub().String()), lo.ToPtr(int64(150)))
	req.NoError(err)
	req.Equal(map[string]int{bob.NPub().String(): 1}, counts)
}

func Test_Client_Surfaces_API_Errors(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	archive := newArchive(t)
	alice := nostrtest.NewSigner(t)

	err := archive.PutEvent(ctx, nostrtest.Marshal(t, alice.Event(1, 100, nil, "note")))
	var apiErr *client.APIError
	req.True(errors.As(err, &apiErr))
	req.Equal(http.StatusBadRequest, apiErr.StatusCode)
	req.Equal("Event is not kind 4", apiErr.Message)

	_, err = archive.ListConversation(ctx, alice.NPub().String(), "")
	req.True(errors.As(err, &apiErr))
	req.Equal("missing required parameter: both sender and receiver must be provided", apiErr.Message)
}
