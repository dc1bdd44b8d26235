package providers_test

import (
	"net/http"
	"time"

	"github.com/9seconds/tracemap/tracelib"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/suite"
)

type ProviderTestSuite struct {
	suite.Suite

	http tracelib.HTTPClient
}

func (suite *ProviderTestSuite) SetupTest() {
	suite.http = tracelib.NewHTTPClient(&http.Client{},
		"test-agent",
		time.Millisecond,
		100,
		5,
		time.Minute,
		time.Minute)
}

type MockedProviderTestSuite struct {
	ProviderTestSuite
}

func (suite *MockedProviderTestSuite) SetupSuite() {
	httpmock.Activate()
}

func (suite *MockedProviderTestSuite) TearDownSuite() {
	httpmock.DeactivateAndReset()
}

func (suite *MockedProviderTestSuite) TearDownTest() {
	httpmock.Reset()
}
