package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/9seconds/tracemap/tracelib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var version = "dev"

var (
	app = kingpin.New(
		"tracemap",
		"Trace routes to IP addresses and put each hop on a map")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("TRACEMAP_DEBUG").
		Bool()
	configPath = app.Flag("config", "Path to the config.").
			Short('c').
			Envar("TRACEMAP_CONFIG").
			ExistingFile()

	traceCommand = app.Command("trace", "Trace routes and print them as JSON.")
	traceHits    = traceCommand.Flag("hits", "Number of packets seen for this destination.").
			Default("1").
			Int64()
	traceBytes = traceCommand.Flag("bytes", "Number of bytes seen for this destination.").
			Default("1").
			Int64()
	traceTimeout = traceCommand.Flag("timeout", "How long to wait for probe replies.").
			Default("2s").
			Duration()
	traceDisplayNames = traceCommand.Flag("display-names", "Show hop addresses and hostnames.").
				Bool()
	traceOutput = traceCommand.Flag("output", "Write JSON into this file instead of stdout.").
			Short('o').
			String()
	traceDestinations = traceCommand.Arg("ip", "Destination IP addresses.").
				Required().
				IPList()

	serveCommand = app.Command("serve", "Run HTTP API.")
	serveTimeout = serveCommand.Flag("timeout", "Default timeout of probe replies.").
			Default("2s").
			Duration()
)

func init() {
	app.Version(version)
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	app.FatalIfError(run(command), "")
}

func run(command string) error {
	conf, err := parseConfig(*configPath)
	if err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}

	ctx, cancel := makeRootContext()
	defer cancel()

	fs := afero.NewOsFs()
	logger := newLogger(os.Stderr, *debug)
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	metrics := tracelib.NewMetrics(registry)

	provider, err := makeProvider(fs, conf.Provider)
	if err != nil {
		return fmt.Errorf("cannot create a provider: %w", err)
	}

	if closer, ok := provider.(interface{ Shutdown() }); ok {
		defer closer.Shutdown()
	}

	resolver := tracelib.NewGeoResolver(provider,
		tracelib.NewFileStore(fs, conf.GetCachePath()),
		logger,
		metrics)
	tracer := makeTracer(conf, resolver, logger, metrics)

	resolver.Load()
	defer resolver.Save()

	switch command {
	case traceCommand.FullCommand():
		return runTrace(ctx, fs, tracer)
	case serveCommand.FullCommand():
		return runServe(ctx, conf, tracer, resolver, registry, *serveTimeout)
	}

	return fmt.Errorf("unknown command %s", command)
}

func runTrace(ctx context.Context, fs afero.Fs, tracer *tracelib.RouteTracer) error {
	requests := make([]tracelib.TraceRequest, 0, len(*traceDestinations))

	for _, v := range *traceDestinations {
		requests = append(requests, tracelib.TraceRequest{
			Destination:  v,
			Hits:         *traceHits,
			ByteCount:    *traceBytes,
			Timeout:      *traceTimeout,
			DisplayNames: *traceDisplayNames,
		})
	}

	records, traceErr := traceAll(ctx, tracer, requests)

	if err := writeRecords(fs, *traceOutput, records); err != nil {
		return err
	}

	return traceErr
}

// traceAll traces every destination even if some of them fail. The
// returned error wraps the first failure.
func traceAll(ctx context.Context, tracer *tracelib.RouteTracer,
	requests []tracelib.TraceRequest) ([]tracelib.RouteRecord, error) {
	records := make([]tracelib.RouteRecord, 0, len(requests))

	var (
		firstErr error
		failed   int
	)

	for _, req := range requests {
		record, err := tracer.Trace(ctx, req)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}

			failed++

			continue
		}

		records = append(records, record)
	}

	if firstErr != nil {
		return records, fmt.Errorf("cannot trace %d of %d routes: %w", failed, len(requests), firstErr)
	}

	return records, nil
}

func writeRecords(fs afero.Fs, path string, records []tracelib.RouteRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot serialize routes: %w", err)
	}

	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)

		return err
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("cannot write routes into %s: %w", path, err)
	}

	return nil
}
