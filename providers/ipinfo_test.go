package providers_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/9seconds/tracemap/providers"
	"github.com/9seconds/tracemap/tracelib"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/suite"
)

type MockedIPInfoTestSuite struct {
	MockedProviderTestSuite

	prov tracelib.Provider
}

func (suite *MockedIPInfoTestSuite) SetupTest() {
	suite.MockedProviderTestSuite.SetupTest()

	suite.prov = providers.NewIPInfo(suite.http, map[string]string{
		"auth_token": "token",
	})
}

func (suite *MockedIPInfoTestSuite) TestName() {
	suite.Equal(providers.NameIPInfo, suite.prov.Name())
}

func (suite *MockedIPInfoTestSuite) TestLookupClosedContext() {
	ctx, cancel := context.WithCancel(context.Background())

	cancel()

	_, err := suite.prov.Lookup(ctx, net.ParseIP("23.22.13.113"))

	suite.Error(err)
}

func (suite *MockedIPInfoTestSuite) TestLookupFailed() {
	httpmock.RegisterResponder("GET",
		"https://ipinfo.io/23.22.13.113",
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	_, err := suite.prov.Lookup(context.Background(),
		net.ParseIP("23.22.13.113"))

	suite.Error(err)
	suite.False(errors.Is(err, tracelib.ErrLocationNotFound))
}

func (suite *MockedIPInfoTestSuite) TestLookupBadJSON() {
	httpmock.RegisterResponder("GET",
		"https://ipinfo.io/23.22.13.113",
		httpmock.NewStringResponder(http.StatusOK, `{[`))

	_, err := suite.prov.Lookup(context.Background(),
		net.ParseIP("23.22.13.113"))

	suite.Error(err)
}

func (suite *MockedIPInfoTestSuite) TestLookupBadLocation() {
	httpmock.RegisterResponder("GET",
		"https://ipinfo.io/23.22.13.113",
		httpmock.NewStringResponder(http.StatusOK, `{"loc": "hello"}`))

	_, err := suite.prov.Lookup(context.Background(),
		net.ParseIP("23.22.13.113"))

	suite.Error(err)
	suite.False(errors.Is(err, tracelib.ErrLocationNotFound))
}

func (suite *MockedIPInfoTestSuite) TestLookupBogon() {
	httpmock.RegisterResponder("GET",
		"https://ipinfo.io/10.0.0.1",
		httpmock.NewStringResponder(http.StatusOK, `{"ip": "10.0.0.1", "bogon": true}`))

	_, err := suite.prov.Lookup(context.Background(),
		net.ParseIP("10.0.0.1"))

	suite.True(errors.Is(err, tracelib.ErrLocationNotFound))
}

func (suite *MockedIPInfoTestSuite) TestLookupNoLocation() {
	httpmock.RegisterResponder("GET",
		"https://ipinfo.io/23.22.13.113",
		httpmock.NewStringResponder(http.StatusOK, `{"ip": "23.22.13.113"}`))

	_, err := suite.prov.Lookup(context.Background(),
		net.ParseIP("23.22.13.113"))

	suite.True(errors.Is(err, tracelib.ErrLocationNotFound))
}

func (suite *MockedIPInfoTestSuite) TestLookupOk() {
	httpmock.RegisterResponder("GET",
		"https://ipinfo.io/23.22.13.113",
		func(req *http.Request) (*http.Response, error) {
			suite.Equal("Bearer token", req.Header.Get("Authorization"))

			return httpmock.NewStringResponse(http.StatusOK, `{
  "ip": "23.22.13.113",
  "hostname": "ec2-23-22-13-113.compute-1.amazonaws.com",
  "city": "Virginia Beach",
  "region": "Virginia",
  "country": "US",
  "loc": "36.7957,-76.0126",
  "org": "AS14618 Amazon.com, Inc.",
  "postal": "23479",
  "timezone": "America/New_York"
}`), nil
		})

	result, err := suite.prov.Lookup(context.Background(),
		net.ParseIP("23.22.13.113"))

	suite.NoError(err)
	suite.InDelta(36.7957, result.Latitude, 1e-6)
	suite.InDelta(-76.0126, result.Longitude, 1e-6)
}

type IntegrationIPInfoTestSuite struct {
	ProviderTestSuite

	prov tracelib.Provider
}

func (suite *IntegrationIPInfoTestSuite) SetupTest() {
	suite.ProviderTestSuite.SetupTest()

	suite.prov = providers.NewIPInfo(suite.http, map[string]string{})
}

func (suite *IntegrationIPInfoTestSuite) TestLookup() {
	result, err := suite.prov.Lookup(context.Background(),
		net.ParseIP("23.22.13.113"))

	suite.NoError(err)
	suite.NotZero(result.Latitude)
}

func TestIPInfo(t *testing.T) {
	suite.Run(t, &MockedIPInfoTestSuite{})
}

func TestIntegrationIPInfo(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipped because of the short mode")
		return
	}

	suite.Run(t, &IntegrationIPInfoTestSuite{})
}
