package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"

	"github.com/9seconds/tracemap/prober"
	"github.com/9seconds/tracemap/providers"
	"github.com/9seconds/tracemap/tracelib"
	"github.com/spf13/afero"
)

func makeRootContext() (context.Context, context.CancelFunc) {
	rootCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)

	go func() {
		for range sigChan {
			cancel()
		}
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	return rootCtx, cancel
}

func makeProvider(fs afero.Fs, conf configProvider) (tracelib.Provider, error) {
	params := conf.GetSpecificParameters()

	switch conf.GetName() {
	case providers.NameGeolocationDB:
		return providers.NewGeolocationDB(makeNewHTTPClient(conf), params), nil
	case providers.NameIPInfo:
		return providers.NewIPInfo(makeNewHTTPClient(conf), params), nil
	case providers.NameMaxmind:
		prov, err := providers.NewMaxmind(fs, params)
		if err != nil {
			return nil, fmt.Errorf("cannot create maxmind provider: %w", err)
		}

		return prov, nil
	}

	return nil, fmt.Errorf("unsupported provider name: %s", conf.GetName())
}

func makeNewHTTPClient(conf configProvider) tracelib.HTTPClient {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}

	httpClient := &http.Client{
		Timeout: conf.GetHTTPTimeout(),
		Jar:     jar,
	}

	return tracelib.NewHTTPClient(httpClient,
		"tracemap/"+version,
		conf.GetRateLimitInterval(),
		conf.GetRateLimitBurst(),
		conf.GetCircuitBreakerOpenThreshold(),
		conf.GetCircuitBreakerHalfOpenTimeout(),
		conf.GetCircuitBreakerResetFailuresTimeout())
}

func makeTracer(conf *config, resolver *tracelib.GeoResolver,
	logger tracelib.Logger, metrics *tracelib.Metrics) *tracelib.RouteTracer {
	hostnames := tracelib.NewCachingHostnameResolver(tracelib.NewHostnameResolver(nil),
		conf.HostnameCache.GetSize(),
		conf.HostnameCache.GetTTL())

	return tracelib.NewRouteTracer(tracelib.RouteTracerOpts{
		Prober:    prober.NewUDPProber(0),
		Resolver:  resolver,
		Hostnames: hostnames,
		Logger:    logger,
		Metrics:   metrics,
		MaxHops:   conf.Probe.GetMaxHops(),
		Port:      conf.Probe.GetPort(),
	})
}
