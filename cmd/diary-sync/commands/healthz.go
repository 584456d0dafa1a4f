package commands

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

func newRouter(metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return r
}

func healthz(addr string, metricsHandler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: newRouter(metricsHandler),
	}

	go func() {
		logger.Printf("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
		}
	}()

	return srv
}
