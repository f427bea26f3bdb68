package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kind4-archive/domain/archive"
	"kind4-archive/domain/nostr"
	"kind4-archive/domain/nostr/nostrtest"
	"kind4-archive/mocks"
	"kind4-archive/observability"
	"kind4-archive/repositories"
	"kind4-archive/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testMaxBodySize = 64 * 1024

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// archiveFixture wires the real service to a temporary Badger store.
type archiveFixture struct {
	db      *badger.DB
	handler http.Handler
}

func newArchiveFixture(t *testing.T) archiveFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	metrics, err := observability.NewArchiveMetrics(nil)
	require.NoError(t, err)
	repository := repositories.NewArchiveRepository(db, discardLogger)
	service := services.NewArchiveService(repository, metrics, discardLogger)
	return archiveFixture{
		db:      db,
		handler: LoggingMiddleware(discardLogger, NewArchiveServer(discardLogger, service, testMaxBodySize)),
	}
}

func (f archiveFixture) do(method, target string, body []byte) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, httptest.NewRequest(method, target, reader))
	return recorder
}

func (f archiveFixture) storedKeys(t *testing.T) []string {
	t.Helper()
	var keys []string
	err := f.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	require.NoError(t, err)
	return keys
}

func (f archiveFixture) storedValue(t *testing.T, key string) []byte {
	t.Helper()
	var value []byte
	err := f.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	require.NoError(t, err)
	return value
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body.Error
}

func Test_Put_Then_List_Conversation(t *testing.T) {
	req := require.New(t)
	fixture := newArchiveFixture(t)
	alice := nostrtest.NewSigner(t)
	bob := nostrtest.NewSigner(t)
	event := alice.DirectMessage(bob, 1700000000)
	body := nostrtest.Marshal(t, event)

	put := fixture.do(http.MethodPut, "/", body)
	req.Equal(http.StatusOK, put.Code)
	req.Empty(put.Body.String())
	req.NotEmpty(put.Header().Get(requestIDHeader))

	target := fmt.Sprintf("/?sender=%s&receiver=%s", alice.NPub(), bob.NPub())
	get := fixture.do(http.MethodGet, target, nil)
	req.Equal(http.StatusOK, get.Code)
	req.Equal("application/json", get.Header().Get("Content-Type"))

	var keys []string
	req.NoError(json.Unmarshal(get.Body.Bytes(), &keys))
	req.Len(keys, 1)
	parsed, err := archive.ParseKey(keys[0])
	req.NoError(err)
	req.Equal(event.CreatedAt, parsed.CreatedAt)
	req.Equal(body, fixture.storedValue(t, keys[0]))
}

func Test_Put_Rejections_Store_Nothing(t *testing.T) {
	fixture := newArchiveFixture(t)
	alice := nostrtest.NewSigner(t)
	bob := nostrtest.NewSigner(t)
	tampered := alice.DirectMessage(bob, 1700000000)
	tampered.Content = "changed after signing"

	tests := []struct {
		name    string
		body    []byte
		message string
	}{
		{"empty body", nil, "Body is not a valid nostr event"},
		{"plain text", []byte("hello there"), "Body is not a valid nostr event"},
		{"missing fields", []byte(`{"kind":4,"tags":[]}`), "Body is not a valid nostr event"},
		{"bad signature", nostrtest.Marshal(t, tampered), "Body is not a valid nostr event"},
		{"wrong kind", nostrtest.Marshal(t, alice.Event(1, 1700000000, nil, "note")), "Event is not kind 4"},
		{"no p tag", nostrtest.Marshal(t, alice.Event(4, 1700000000, nil, "x")), "Unable to npub encode sender or receiver"},
		{"malformed p tag", nostrtest.Marshal(t, alice.Event(4, 1700000000, nostr.Tags{{"p", "xyz"}}, "x")), "Unable to npub encode sender or receiver"},
		{"valueless first p tag", nostrtest.Marshal(t, alice.Event(4, 1700000000, nostr.Tags{{"p"}, {"p", bob.PubKey()}}, "x")), "Unable to npub encode sender or receiver"},
		{"case variant field", bytes.Replace(nostrtest.Marshal(t, alice.DirectMessage(bob, 1700000000)), []byte(`"kind":4`), []byte(`"kind":1,"Kind":4`), 1), "Body is not a valid nostr event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			recorder := fixture.do(http.MethodPut, "/", tt.body)
			req.Equal(http.StatusBadRequest, recorder.Code)
			req.Equal(tt.message, decodeError(t, recorder))
		})
	}
	require.Empty(t, fixture.storedKeys(t))
}

func Test_Put_Body_Too_Large(t *testing.T) {
	req := require.New(t)
	fixture := newArchiveFixture(t)
	alice := nostrtest.NewSigner(t)
	bob := nostrtest.NewSigner(t)
	event := alice.Event(4, 1700000000, nostr.Tags{{"p", bob.PubKey()}}, strings.Repeat("a", testMaxBodySize))

	recorder := fixture.do(http.MethodPut, "/", nostrtest.Marshal(t, event))

	req.Equal(http.StatusBadRequest, recorder.Code)
	req.Empty(fixture.storedKeys(t))
}

func Test_Put_Same_Second_Collapses_To_One_Entry(t *testing.T) {
	req := require.New(t)
	fixture := newArchiveFixture(t)
	alice := nostrtest.NewSigner(t)
	bob := nostrtest.NewSigner(t)
	first := alice.Event(4, 1700000000, nostr.Tags{{"p", bob.PubKey()}}, "first")
	second := alice.Event(4, 1700000000, nostr.Tags{{"p", bob.PubKey()}}, "second")

	req.Equal(http.StatusOK, fixture.do(http.MethodPut, "/", nostrtest.Marshal(t, first)).Code)
	req.Equal(http.StatusOK, fixture.do(http.MethodPut, "/", nostrtest.Marshal(t, second)).Code)

	keys := fixture.storedKeys(t)
	req.Len(keys, 1)
	req.Equal(nostrtest.Marshal(t, second), fixture.storedValue(t, keys[0]))
}

func Test_Counts(t *testing.T) {
	req := require.New(t)
	fixture := newArchiveFixture(t)
	alice := nostrtest.NewSigner(t)
	bob := nostrtest.NewSigner(t)
	clara := nostrtest.NewSigner(t)
	events := []struct {
		from, to  nostrtest.Signer
		createdAt int64
	}{
		{alice, bob, 100},
		{alice, bob, 200},
		{alice, clara, 150},
		{bob, alice, 300},
	}
	for _, e := range events {
		recorder := fixture.do(http.MethodPut, "/", nostrtest.Marshal(t, e.from.DirectMessage(e.to, e.createdAt)))
		req.Equal(http.StatusOK, recorder.Code)
	}

	counts := func(query string) map[string]int {
		recorder := fixture.do(http.MethodGet, "/counts?sender="+alice.NPub().String()+query, nil)
		req.Equal(http.StatusOK, recorder.Code)
		var result map[string]int
		req.NoError(json.Unmarshal(recorder.Body.Bytes(), &result))
		return result
	}
	b, c := bob.NPub().String(), clara.NPub().String()

	req.Equal(map[string]int{b: 2, c: 1}, counts(""))
	req.Equal(map[string]int{b: 1, c: 1}, counts("&since=150"))
	req.Equal(map[string]int{b: 2}, counts("&receiver="+b))
	req.Equal(map[string]int{}, counts("&since=1000"))
}

func Test_Query_Parameter_Errors_Never_Reach_The_Store(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIArchiveRepository(ctrl)
	mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).Times(0)
	metrics, err := observability.NewArchiveMetrics(nil)
	require.NoError(t, err)
	handler := NewArchiveServer(discardLogger, services.NewArchiveService(mockRepo, metrics, discardLogger), testMaxBodySize)

	tests := []struct {
		name    string
		target  string
		message string
	}{
		{"listing without receiver", "/?sender=A", "missing required parameter: both sender and receiver must be provided"},
		{"listing without sender", "/?receiver=B", "missing required parameter: both sender and receiver must be provided"},
		{"listing without parameters", "/", "missing required parameter: both sender and receiver must be provided"},
		{"counts without sender", "/counts?receiver=B", "missing required parameter: sender must be provided"},
		{"counts with bad since", "/counts?sender=A&since=yesterday", `invalid parameter: since must be an integer, got "yesterday"`},
		{"unknown route", "/messages?sender=A", "Invalid route"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.target, nil))
			req.Equal(http.StatusBadRequest, recorder.Code)
			req.Equal(tt.message, decodeError(t, recorder))
		})
	}
}

func Test_Options_And_Unsupported_Methods(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	handler := NewArchiveServer(discardLogger, mocks.NewMockIArchiveService(ctrl), testMaxBodySize)

	t.Run("options", func(t *testing.T) {
		req := require.New(t)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/anything", nil))
		req.Equal(http.StatusOK, recorder.Code)
		req.Equal("OPTIONS, GET, PUT", recorder.Header().Get("Allow"))
		req.Empty(recorder.Body.String())
	})

	for _, method := range []string{http.MethodPost, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			req := require.New(t)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(method, "/", nil))
			req.Equal(http.StatusMethodNotAllowed, recorder.Code)
			req.Empty(recorder.Body.String())
		})
	}
}

func Test_Store_Failure_Is_An_Internal_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockIArchiveService(ctrl)
	mockService.EXPECT().
		CountConversations(gomock.Any(), archive.CountQuery{Sender: "A", Since: lo.ToPtr(int64(10))}).
		Return(nil, fmt.Errorf("badger: closed")).
		Times(1)
	handler := NewArchiveServer(discardLogger, mockService, testMaxBodySize)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/counts?sender=A&since=10", nil).
		WithContext(context.Background()))

	req.Equal(http.StatusInternalServerError, recorder.Code)
	req.Empty(recorder.Body.String())
}
