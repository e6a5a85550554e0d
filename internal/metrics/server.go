package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// StartServer serves this instance's /metrics endpoint on addr in the
// background and returns a shutdown function.
func (m *Metrics) StartServer(addr string, log zerolog.Logger) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	return server.Shutdown
}
