package tracelib_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/9seconds/tracemap/tracelib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type GeoResolverTestSuite struct {
	suite.Suite

	ctx          context.Context
	providerMock *ProviderMock
	storeMock    *StoreMock
	loggerMock   *LoggerMock
	metrics      *tracelib.Metrics
	r            *tracelib.GeoResolver
}

func (suite *GeoResolverTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.providerMock = &ProviderMock{}
	suite.storeMock = &StoreMock{}
	suite.loggerMock = &LoggerMock{}
	suite.metrics = tracelib.NewMetrics(prometheus.NewRegistry())

	suite.providerMock.On("Name").Return("providerMock").Maybe()

	suite.r = tracelib.NewGeoResolver(suite.providerMock,
		suite.storeMock,
		suite.loggerMock,
		suite.metrics)
}

func (suite *GeoResolverTestSuite) TearDownTest() {
	suite.providerMock.AssertExpectations(suite.T())
	suite.storeMock.AssertExpectations(suite.T())
	suite.loggerMock.AssertExpectations(suite.T())
}

func (suite *GeoResolverTestSuite) Lookups(outcome string) int {
	return int(testutil.ToFloat64(suite.metrics.Lookups.WithLabelValues(outcome)))
}

func (suite *GeoResolverTestSuite) TestResolveCached() {
	suite.providerMock.On("Lookup", mock.Anything, "10.0.0.1").
		Return(lookupResult(40, -74), nil).
		Once()

	coord1, ok := suite.r.Resolve(suite.ctx, net.ParseIP("10.0.0.1"))

	suite.True(ok)
	suite.Equal(tracelib.Coordinate{Latitude: 40, Longitude: -74}, coord1)

	coord2, ok := suite.r.Resolve(suite.ctx, net.ParseIP("10.0.0.1"))

	suite.True(ok)
	suite.Equal(coord1, coord2)
	suite.Equal(1, suite.Lookups(tracelib.LookupOutcomeSuccess))
	suite.Equal(1, suite.Lookups(tracelib.LookupOutcomeCacheHit))
	suite.EqualValues(1, testutil.ToFloat64(suite.metrics.CachedLocations))
}

func (suite *GeoResolverTestSuite) TestResolveNotFoundIsBlacklisted() {
	suite.providerMock.On("Lookup", mock.Anything, "10.0.0.2").
		Return(tracelib.ProviderLookupResult{}, fmt.Errorf("null fields: %w", tracelib.ErrLocationNotFound)).
		Once()

	_, ok := suite.r.Resolve(suite.ctx, net.ParseIP("10.0.0.2"))

	suite.False(ok)
	suite.True(suite.r.Blacklisted(net.ParseIP("10.0.0.2")))

	for i := 0; i < 3; i++ {
		_, ok = suite.r.Resolve(suite.ctx, net.ParseIP("10.0.0.2"))

		suite.False(ok)
	}

	suite.Equal(1, suite.Lookups(tracelib.LookupOutcomeNotFound))
	suite.Equal(3, suite.Lookups(tracelib.LookupOutcomeBlacklisted))
	suite.NotContains(suite.r.Locations(), "10.0.0.2")
}

func (suite *GeoResolverTestSuite) TestResolveErrorIsRetried() {
	suite.providerMock.On("Lookup", mock.Anything, "10.0.0.3").
		Return(tracelib.ProviderLookupResult{}, io.ErrUnexpectedEOF).
		Once()
	suite.providerMock.On("Lookup", mock.Anything, "10.0.0.3").
		Return(lookupResult(1, 2), nil).
		Once()
	suite.loggerMock.On("LookupError", "10.0.0.3", "providerMock", io.ErrUnexpectedEOF).Once()

	_, ok := suite.r.Resolve(suite.ctx, net.ParseIP("10.0.0.3"))

	suite.False(ok)
	suite.False(suite.r.Blacklisted(net.ParseIP("10.0.0.3")))

	coord, ok := suite.r.Resolve(suite.ctx, net.ParseIP("10.0.0.3"))

	suite.True(ok)
	suite.Equal(tracelib.Coordinate{Latitude: 1, Longitude: 2}, coord)
	suite.Equal(1, suite.Lookups(tracelib.LookupOutcomeError))
}

func (suite *GeoResolverTestSuite) TestFirstResolutionWins() {
	suite.storeMock.On("Load").Return(map[string]tracelib.Coordinate{
		"10.0.0.1": {Latitude: 40, Longitude: -74},
	}, nil).Once()

	suite.r.Load()

	coord, ok := suite.r.Resolve(suite.ctx, net.ParseIP("10.0.0.1"))

	suite.True(ok)
	suite.Equal(tracelib.Coordinate{Latitude: 40, Longitude: -74}, coord)
}

func (suite *GeoResolverTestSuite) TestLoadFailure() {
	suite.storeMock.On("Load").Return(nil, io.ErrUnexpectedEOF).Once()
	suite.loggerMock.On("CacheError", "load", io.ErrUnexpectedEOF).Once()

	suite.r.Load()

	suite.Empty(suite.r.Locations())
	suite.NotNil(suite.r.Locations())
}

func (suite *GeoResolverTestSuite) TestSaveFailure() {
	err := errors.New("read-only file system")

	suite.storeMock.On("Save", map[string]tracelib.Coordinate{}).Return(err).Once()
	suite.loggerMock.On("CacheError", "save", err).Once()

	suite.NotPanics(func() {
		suite.r.Save()
	})
}

func (suite *GeoResolverTestSuite) TestUsageStats() {
	suite.providerMock.On("Lookup", mock.Anything, "10.0.0.1").
		Return(lookupResult(40, -74), nil).
		Once()

	suite.r.Resolve(suite.ctx, net.ParseIP("10.0.0.1"))

	suite.Equal("providerMock", suite.r.UsageStats().Name)
}

func TestGeoResolver(t *testing.T) {
	suite.Run(t, &GeoResolverTestSuite{})
}

type GeoResolverPersistenceTestSuite struct {
	suite.Suite

	fs           afero.Fs
	providerMock *ProviderMock
	loggerMock   *LoggerMock
}

func (suite *GeoResolverPersistenceTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
	suite.providerMock = &ProviderMock{}
	suite.loggerMock = &LoggerMock{}

	suite.providerMock.On("Name").Return("providerMock").Maybe()
	suite.NoError(suite.fs.MkdirAll("/cache", 0755))
}

func (suite *GeoResolverPersistenceTestSuite) TearDownTest() {
	suite.providerMock.AssertExpectations(suite.T())
	suite.loggerMock.AssertExpectations(suite.T())
}

func (suite *GeoResolverPersistenceTestSuite) NewResolver() *tracelib.GeoResolver {
	r := tracelib.NewGeoResolver(suite.providerMock,
		tracelib.NewFileStore(suite.fs, storeTestPath),
		suite.loggerMock,
		nil)

	r.Load()

	return r
}

func (suite *GeoResolverPersistenceTestSuite) TestRoundTrip() {
	ctx := context.Background()

	suite.providerMock.On("Lookup", mock.Anything, "10.0.0.1").
		Return(lookupResult(40, -74), nil).
		Once()
	suite.providerMock.On("Lookup", mock.Anything, "10.0.0.2").
		Return(tracelib.ProviderLookupResult{}, tracelib.ErrLocationNotFound).
		Once()

	r := suite.NewResolver()

	r.Resolve(ctx, net.ParseIP("10.0.0.1"))
	r.Resolve(ctx, net.ParseIP("10.0.0.2"))
	r.Save()

	fresh := suite.NewResolver()

	suite.Equal(r.Locations(), fresh.Locations())
	suite.False(fresh.Blacklisted(net.ParseIP("10.0.0.2")))

	coord, ok := fresh.Resolve(ctx, net.ParseIP("10.0.0.1"))

	suite.True(ok)
	suite.Equal(tracelib.Coordinate{Latitude: 40, Longitude: -74}, coord)
}

func (suite *GeoResolverPersistenceTestSuite) TestCorruptedCache() {
	suite.NoError(afero.WriteFile(suite.fs,
		storeTestPath,
		[]byte("ip,latitude,longitude\n10.0.0.1, 40.0, -74.0\ngarbage\n"),
		0644))
	suite.loggerMock.On("CacheError", "load", mock.Anything).Once()

	r := suite.NewResolver()

	suite.Empty(r.Locations())
}

func (suite *GeoResolverPersistenceTestSuite) TestSaveDuringTrace() {
	destination := net.ParseIP("10.0.1.64")
	replies := make([]tracelib.ProbeReply, 0, 64)

	for i := 1; i <= 64; i++ {
		replies = append(replies, tracelib.ProbeReply{
			TTL:         i,
			Destination: destination,
			Source:      net.IPv4(10, 0, 1, byte(i)),
		})
	}

	proberMock := &ProberMock{}
	proberMock.On("Probe", mock.Anything, mock.Anything).Return(replies, nil).Once()
	suite.providerMock.On("Lookup", mock.Anything, mock.Anything).Return(lookupResult(40, -74), nil)
	suite.loggerMock.On("RouteInfo", "10.0.1.64", mock.Anything).Once()

	r := suite.NewResolver()
	tracer := tracelib.NewRouteTracer(tracelib.RouteTracerOpts{
		Prober:   proberMock,
		Resolver: r,
		Logger:   suite.loggerMock,
	})

	var (
		record   tracelib.RouteRecord
		traceErr error
	)

	done := make(chan struct{})

	go func() {
		defer close(done)

		record, traceErr = tracer.Trace(context.Background(), tracelib.TraceRequest{
			Destination: destination,
			Hits:        1,
			ByteCount:   1,
		})
	}()

	for tracing := true; tracing; {
		select {
		case <-done:
			tracing = false
		default:
			r.Save()
		}
	}

	r.Save()

	suite.NoError(traceErr)
	suite.Len(record.Hops, 64)
	suite.Len(suite.NewResolver().Locations(), 64)
	proberMock.AssertExpectations(suite.T())
}

func TestGeoResolverPersistence(t *testing.T) {
	suite.Run(t, &GeoResolverPersistenceTestSuite{})
}
