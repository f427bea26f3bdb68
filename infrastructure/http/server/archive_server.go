package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"kind4-archive/domain/archive"
	"kind4-archive/errors"
	"kind4-archive/services"

	"github.com/gabriel-vasile/mimetype"
)

const (
	conversationRoute = "/"
	countsRoute       = "/counts"
	allowedMethods    = "OPTIONS, GET, PUT"
)

// ArchiveServer exposes the archive over HTTP:
//
//	OPTIONS *        allowed methods
//	PUT *            archive the kind 4 event in the body
//	GET /            keys of one conversation (sender, receiver)
//	GET /counts      messages per receiver (sender, optional receiver and since)
type ArchiveServer struct {
	archiveService services.IArchiveService
	log            *slog.Logger
	maxBodySize    int64
}

func NewArchiveServer(log *slog.Logger, archiveService services.IArchiveService, maxBodySize int64) *ArchiveServer {
	return &ArchiveServer{archiveService: archiveService, log: log, maxBodySize: maxBodySize}
}

func (s *ArchiveServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Allow", allowedMethods)
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		s.putEvent(w, r)
	case http.MethodGet:
		s.get(w, r)
	default:
		s.writeError(w, r, fmt.Errorf("%w: %s", errors.ErrMethodNotAllowed, r.Method))
	}
}

func (s *ArchiveServer) putEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBodySize+1))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errors.ErrValidation, err))
		return
	}
	if int64(len(body)) > s.maxBodySize {
		s.writeError(w, r, fmt.Errorf("%w: body larger than %d bytes", errors.ErrValidation, s.maxBodySize))
		return
	}
	if detected := mimetype.Detect(body); !isJSON(detected) {
		s.writeError(w, r, fmt.Errorf("%w: body is %s", errors.ErrValidation, detected.String()))
		return
	}

	key, err := s.archiveService.Archive(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("Event archived", "key", key.String())
	w.WriteHeader(http.StatusOK)
}

func (s *ArchiveServer) get(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	switch r.URL.Path {
	case conversationRoute, "":
		s.listConversation(w, r, params)
	case countsRoute:
		s.countConversations(w, r, params)
	default:
		s.writeError(w, r, fmt.Errorf("%w: %s", errors.ErrRouteNotFound, r.URL.Path))
	}
}

func (s *ArchiveServer) listConversation(w http.ResponseWriter, r *http.Request, params url.Values) {
	keys, err := s.archiveService.ListConversation(r.Context(), archive.ConversationQuery{
		Sender:   params.Get("sender"),
		Receiver: params.Get("receiver"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, keys)
}

func (s *ArchiveServer) countConversations(w http.ResponseWriter, r *http.Request, params url.Values) {
	query, err := toCountQuery(params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	counts, err := s.archiveService.CountConversations(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, counts)
}

// toCountQuery reads the optional filters; an empty value means the filter is not set.
func toCountQuery(params url.Values) (archive.CountQuery, error) {
	query := archive.CountQuery{Sender: params.Get("sender")}
	if receiver := params.Get("receiver"); receiver != "" {
		query.Receiver = &receiver
	}
	if raw := params.Get("since"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return archive.CountQuery{}, fmt.Errorf("%w: since must be an integer, got %q", errors.ErrInvalidParameter, raw)
		}
		query.Since = &since
	}
	return query, nil
}

// isJSON also accepts the JSON based formats mimetype reports as children of application/json.
func isJSON(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("application/json") {
			return true
		}
	}
	return false
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *ArchiveServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errors.MapToHTTPError(err)
	switch {
	case status >= http.StatusInternalServerError:
		s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		w.WriteHeader(status)
	case status == http.StatusMethodNotAllowed:
		w.WriteHeader(status)
	default:
		s.log.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeJSON(w, status, errorResponse{Error: message})
	}
}

func (s *ArchiveServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write response", "error", err)
	}
}
