package tracelib_test

import (
	"context"
	"net"

	"github.com/9seconds/tracemap/tracelib"
	"github.com/stretchr/testify/mock"
)

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) Lookup(ctx context.Context, ip net.IP) (tracelib.ProviderLookupResult, error) {
	args := m.Called(ctx, ip.String())

	return args.Get(0).(tracelib.ProviderLookupResult), args.Error(1)
}

func (m *ProviderMock) Name() string {
	return m.Called().String(0)
}

type ProberMock struct {
	mock.Mock
}

func (m *ProberMock) Probe(ctx context.Context, req tracelib.ProbeRequest) ([]tracelib.ProbeReply, error) {
	args := m.Called(ctx, req)

	return args.Get(0).([]tracelib.ProbeReply), args.Error(1)
}

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Load() (map[string]tracelib.Coordinate, error) {
	args := m.Called()

	rv, _ := args.Get(0).(map[string]tracelib.Coordinate)

	return rv, args.Error(1)
}

func (m *StoreMock) Save(locations map[string]tracelib.Coordinate) error {
	return m.Called(locations).Error(0)
}

type HostnameResolverMock struct {
	mock.Mock
}

func (m *HostnameResolverMock) LookupHostname(ctx context.Context, ip net.IP) (string, error) {
	args := m.Called(ctx, ip.String())

	return args.String(0), args.Error(1)
}

type LoggerMock struct {
	mock.Mock
}

func (m *LoggerMock) LookupError(ip net.IP, name string, err error) {
	m.Called(ip.String(), name, err)
}

func (m *LoggerMock) CacheError(operation string, err error) {
	m.Called(operation, err)
}

func (m *LoggerMock) HostnameError(ip net.IP, err error) {
	m.Called(ip.String(), err)
}

func (m *LoggerMock) RouteInfo(destination net.IP, msg string) {
	m.Called(destination.String(), msg)
}

func lookupResult(lat, lon float64) tracelib.ProviderLookupResult {
	return tracelib.ProviderLookupResult{
		Coordinate: tracelib.Coordinate{
			Latitude:  lat,
			Longitude: lon,
		},
	}
}
