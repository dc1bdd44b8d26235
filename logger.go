package main

import (
	"io"
	"net"

	"github.com/9seconds/tracemap/tracelib"
	"github.com/rs/zerolog"
)

type logger struct {
	lookupLog   zerolog.Logger
	cacheLog    zerolog.Logger
	hostnameLog zerolog.Logger
	routeLog    zerolog.Logger
}

func (l *logger) LookupError(ip net.IP, name string, err error) {
	l.lookupLog.Warn().Str("provider", name).Stringer("ip", ip).Err(err).Msg("")
}

func (l *logger) CacheError(operation string, err error) {
	l.cacheLog.Error().Str("operation", operation).Err(err).Msg("")
}

func (l *logger) HostnameError(ip net.IP, err error) {
	l.hostnameLog.Warn().Stringer("ip", ip).Err(err).Msg("")
}

func (l *logger) RouteInfo(destination net.IP, msg string) {
	l.routeLog.Info().Stringer("destination", destination).Msg(msg)
}

func newLogger(w io.Writer, debug bool) tracelib.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	makeLogger := func(eventName string) zerolog.Logger {
		return zerolog.New(w).Level(level).With().Timestamp().Str("event_name", eventName).Logger()
	}

	return &logger{
		lookupLog:   makeLogger("lookup"),
		cacheLog:    makeLogger("cache"),
		hostnameLog: makeLogger("hostname"),
		routeLog:    makeLogger("route"),
	}
}
