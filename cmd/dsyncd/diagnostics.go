package main

import (
	"context"
	"net/http"
	"time"

	"github.com/beesaferoot/diff-sync/internal/diagnostics"
	"github.com/beesaferoot/diff-sync/internal/syncserver"
)

// diagHTTPServer wraps the small debug HTTP surface (/healthz, /stats)
// behind a plain net/http server so main can start and stop it alongside
// the transport server.
type diagHTTPServer struct {
	httpServer *http.Server
}

func startDiagnostics(addr, version string, core *syncserver.Core) *diagHTTPServer {
	collector := diagnostics.NewCollector(version, core)
	httpServer := &http.Server{Addr: addr, Handler: collector.Handler()}

	go func() {
		_ = httpServer.ListenAndServe()
	}()

	return &diagHTTPServer{httpServer: httpServer}
}

func (d *diagHTTPServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.httpServer.Shutdown(ctx)
}
