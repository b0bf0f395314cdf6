package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rillwm/rill/internal/logger"
	"github.com/rillwm/rill/pkg/metrics"
)

// Serve exposes the metrics registry over HTTP. It runs outside the
// compositor's loop goroutine and touches no core state.
func Serve(addr string) {
	reg := metrics.GetRegistry()
	if reg == nil {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics endpoint listening", "address", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics endpoint failed", "address", addr, "error", err)
		}
	}()
}
