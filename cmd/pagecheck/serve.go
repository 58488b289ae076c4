package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/networkteam/pagecheck/dashboard"
)

// serve runs srv on ln until ctx ends, then shuts it down.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *slog.Logger) error {
	errs := make(chan error, 1)
	go func() {
		errs <- srv.Serve(ln)
	}()
	logger.Info("Listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	logger.Info("Shutting down", slog.String("addr", ln.Addr().String()))
	return srv.Shutdown(shutdownCtx)
}

func regexpHost(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return `^` + regexp.QuoteMeta(tcp.IP.String()) + `(:\d+)?$`
	}
	return regexp.QuoteMeta(addr.String())
}

// startDashboard serves the live dashboard of journal on addr until ctx ends.
// The returned channel yields the result of serving.
func startDashboard(ctx context.Context, addr string, journal dashboard.Journal, title string, logger *slog.Logger) (net.Addr, <-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           dashboard.NewHandler(journal, dashboard.WithTitle(title)),
		ReadHeaderTimeout: 5 * time.Second,
		// Request contexts end with ctx so open event streams do not block Shutdown.
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errs := make(chan error, 1)
	go func() {
		errs <- serve(ctx, srv, ln, logger)
	}()
	return ln.Addr(), errs, nil
}
