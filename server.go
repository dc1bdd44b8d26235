package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/9seconds/tracemap/tracelib"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serverShutdownTimeout = 10 * time.Second
	serverRequestTimeout  = 90 * time.Second
)

func makeRouter(conf *config, handler http.Handler, gatherer prometheus.Gatherer) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.Recoverer)
	router.Use(middleware.RealIP)
	router.Use(middleware.Timeout(serverRequestTimeout))

	if conf.BasicAuth.Enabled() {
		router.Use(basicAuth(conf.BasicAuth.User, conf.BasicAuth.Password))
	}

	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.Mount("/", handler)

	return router
}

func runServe(ctx context.Context, conf *config, tracer *tracelib.RouteTracer,
	resolver *tracelib.GeoResolver, gatherer prometheus.Gatherer, defaultTimeout time.Duration) error {
	srv := &http.Server{
		Addr:    conf.GetListen(),
		Handler: makeRouter(conf, tracelib.NewHTTPHandler(tracer, resolver, defaultTimeout), gatherer),
	}

	return serve(ctx, srv, srv.ListenAndServe)
}

// serve returns only when the server has stopped accepting requests
// and all active requests are finished (or shutdown timeout expired).
func serve(ctx context.Context, srv *http.Server, listen func() error) error {
	shutdownDone := make(chan struct{})
	serveCtx, cancel := context.WithCancel(ctx)

	defer cancel()

	go func() {
		defer close(shutdownDone)

		<-serveCtx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer shutdownCancel()

		srv.Shutdown(shutdownCtx) // nolint: errcheck
	}()

	err := listen()

	cancel()
	<-shutdownDone

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server has failed: %w", err)
	}

	return nil
}
