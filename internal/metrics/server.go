package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer builds an *http.Server exposing the registered collectors on
// /metrics at addr, matching the teacher's internal/metrics server shape
// (a bare promhttp.Handler mux, no TLS).
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
