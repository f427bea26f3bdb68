package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kind4-archive/client"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration and skips when no archive is running.
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ArchiveAddr == "" {
		s.T().Skip("ARCHIVE_ADDR not set")
	}
}

// WithArchive runs fn as a named step with a client whose requests are logged.
func (s *BaseHTTPSuite) WithArchive(name string, fn func(ctx context.Context, archive *client.Client)) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: &loggingTransport{suite: s, next: http.DefaultTransport},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fn(ctx, client.New(s.Config.ArchiveAddr, client.WithHTTPClient(httpClient)))
}

type loggingTransport struct {
	suite *BaseHTTPSuite
	next  http.RoundTripper
}

func (t *loggingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	var requestBody []byte
	if t.suite.Config.DebugJSON && request.Body != nil {
		requestBody, _ = io.ReadAll(request.Body)
		_ = request.Body.Close()
		request.Body = io.NopCloser(bytes.NewReader(requestBody))
	}

	start := time.Now()
	response, err := t.next.RoundTrip(request)

	logBuilder := strings.Builder{}
	if err != nil {
		fmt.Fprintf(&logBuilder, "HTTP %s %s failed in %v: %v", request.Method, request.URL.RequestURI(), time.Since(start), err)
		t.suite.T().Log(logBuilder.String())
		return nil, err
	}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", request.Method, request.URL.RequestURI(), response.StatusCode, time.Since(start))

	if t.suite.Config.DebugJSON {
		responseBody, _ := io.ReadAll(response.Body)
		_ = response.Body.Close()
		response.Body = io.NopCloser(bytes.NewReader(responseBody))
		fmt.Fprintln(&logBuilder, "\nREQUEST:")
		fmt.Fprintln(&logBuilder, string(requestBody))
		fmt.Fprintln(&logBuilder, "RESPONSE:")
		fmt.Fprintln(&logBuilder, string(responseBody))
	}
	t.suite.T().Log(logBuilder.String())
	return response, nil
}
