//go:build acceptance
// +build acceptance

package acceptance

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/networkteam/pagecheck/internal/stubapp"
)

// TestApp serves the stub builder on a local port.
type TestApp struct {
	Server *httptest.Server
	Stub   *stubapp.App
	// BaseURL is the origin the checks navigate to.
	BaseURL string
	// PreviewHosts matches the host previews are opened on.
	PreviewHosts []string
	Logger       *slog.Logger
}

// NewTestApp starts the stub builder. Extra options are applied after the
// defaults of a short form delay and a debug logger.
func NewTestApp(t *testing.T, opts ...stubapp.Option) *TestApp {
	t.Helper()

	level := slog.LevelWarn
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	stub := stubapp.New(append([]stubapp.Option{
		stubapp.WithLogger(logger.With(slog.String("component", "stub"))),
		stubapp.WithFormDelay(300 * time.Millisecond),
	}, opts...)...)
	server := httptest.NewServer(stub)

	return &TestApp{
		Server:       server,
		Stub:         stub,
		BaseURL:      server.URL,
		PreviewHosts: []string{`^127\.0\.0\.1(:\d+)?$`},
		Logger:       logger,
	}
}

// Close shuts down the stub builder.
func (ta *TestApp) Close() {
	ta.Server.Close()
}
