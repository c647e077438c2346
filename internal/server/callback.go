package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/fmbridge/internal/shared"
)

const shutdownTimeout = 5 * time.Second

// Listener serves an [OAuthHandler] on a bound local address.
type Listener struct {
	addr    string
	handler *OAuthHandler
	ln      net.Listener
	srv     *http.Server
	errs    chan error
	logger  *log.Logger
}

// Listen binds addr and starts serving handler. The returned listener is accepting
// connections, so the browser can be opened right away.
func Listen(addr string, handler *OAuthHandler, logger *log.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback address %s: %w", addr, err)
	}

	router := NewBasicRouter()
	router.Use(LogRequests(logger))
	router.Handler(handler)

	l := &Listener{
		addr:    addr,
		handler: handler,
		ln:      ln,
		srv:     &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		errs:    make(chan error, 1),
		logger:  logger,
	}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.errs <- err
		}
	}()
	logger.Info("waiting for OAuth callback", "addr", l.Addr())
	return l, nil
}

// Addr is the bound address, useful when addr had port 0.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// RedirectURL is the callback URL. It keeps the requested host name so it matches the URL
// registered for the client, falling back to the bound address for port 0.
func (l *Listener) RedirectURL() string {
	host := l.addr
	if _, port, err := net.SplitHostPort(l.addr); err != nil || port == "0" {
		host = l.Addr()
	}
	return "http://" + host + CallbackPath
}

// Wait blocks until the callback delivers a result, the server fails, or ctx ends. The server
// is shut down before returning.
func (l *Listener) Wait(ctx context.Context) (*oauth2.Token, error) {
	defer l.shutdown()

	select {
	case result := <-l.handler.Result():
		if err := result.Error(); err != nil {
			return nil, err
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case err := <-l.errs:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no authorization received", shared.ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

func (l *Listener) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.srv.Shutdown(ctx); err != nil {
		l.logger.Warn("error shutting down callback server", "error", err)
	}
}
