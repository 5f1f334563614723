package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/middleware"
)

// StartServer serves /metrics and the health probes on port until the
// returned shutdown function is called.
func StartServer(port int, m *Metrics, checker *health.Checker) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><h1>pagesearch</h1><p><a href="/metrics">/metrics</a> <a href="/health/ready">/health/ready</a></p></body></html>`)
	})

	var chain http.Handler = mux
	chain = middleware.Timeout(8*time.Second)(chain)
	chain = middleware.Instrument(m.HTTPRequestsTotal, m.HTTPRequestDuration, "/", "/metrics", "/health/live", "/health/ready")(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      chain,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
