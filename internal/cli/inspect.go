package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/sesame"
	sesamehttp "github.com/aretw0/sesame/pkg/adapters/http"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

// inspector serves the HTTP inspection API next to a run.
type inspector struct {
	srv    *sesamehttp.Server
	hooks  domain.LifecycleHooks
	http   *http.Server
	logger *slog.Logger
}

// newInspector prepares the server and its hooks. The experiment is bound
// later by serve, since the hooks must exist before the engine does.
func newInspector(logger *slog.Logger) (*inspector, error) {
	m, err := observability.NewMetrics(nil)
	if err != nil {
		return nil, err
	}
	srv := sesamehttp.NewServer(nil, nil,
		sesamehttp.WithMetrics(m.Handler()),
		sesamehttp.WithLogger(logger),
		sesamehttp.WithVersion(sesame.Version),
	)
	return &inspector{
		srv:    srv,
		hooks:  m.Hooks().Merge(srv.Hooks()),
		logger: logger,
	}, nil
}

// serve binds exp and starts listening on addr. The returned address is
// the one actually bound.
func (in *inspector) serve(addr string, exp *sesame.Experiment) (string, error) {
	in.srv.Experiment = exp
	in.srv.Controller = exp

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	in.http = &http.Server{
		Handler:           in.srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := in.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			in.logger.Error("Inspector stopped", "err", err)
		}
	}()
	in.logger.Info("Inspector listening", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

// shutdown gives outstanding requests a deadline for completion.
func (in *inspector) shutdown() {
	if in.http == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := in.http.Shutdown(ctx); err != nil {
		in.logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
		if err := in.http.Close(); err != nil {
			in.logger.Error("Error killing server", "err", err)
		}
	}
}
