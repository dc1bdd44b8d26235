package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

type RouterTestSuite struct {
	suite.Suite

	conf     *config
	registry *prometheus.Registry
	handler  http.Handler
	resp     *httptest.ResponseRecorder
}

func (suite *RouterTestSuite) SetupTest() {
	conf, err := parseConfig("")
	if err != nil {
		panic(err)
	}

	suite.conf = conf
	suite.registry = prometheus.NewRegistry()
	suite.handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	suite.resp = httptest.NewRecorder()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracemap_test_total",
		Help: "Test counter.",
	})

	counter.Inc()
	suite.registry.MustRegister(counter)
}

func (suite *RouterTestSuite) TestMetrics() {
	router := makeRouter(suite.conf, suite.handler, suite.registry)

	router.ServeHTTP(suite.resp, httptest.NewRequest("GET", "/metrics", nil))

	suite.Equal(http.StatusOK, suite.resp.Code)
	suite.Contains(suite.resp.Body.String(), "tracemap_test_total 1")
}

func (suite *RouterTestSuite) TestMounted() {
	router := makeRouter(suite.conf, suite.handler, suite.registry)

	router.ServeHTTP(suite.resp, httptest.NewRequest("POST", "/", nil))
	suite.Equal(http.StatusTeapot, suite.resp.Code)

	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, httptest.NewRequest("GET", "/stats/", nil))
	suite.Equal(http.StatusTeapot, resp.Code)
}

func (suite *RouterTestSuite) TestBasicAuthRequired() {
	suite.conf.BasicAuth = configBasicAuth{
		User:     "user",
		Password: "password",
	}
	router := makeRouter(suite.conf, suite.handler, suite.registry)

	router.ServeHTTP(suite.resp, httptest.NewRequest("GET", "/metrics", nil))

	suite.Equal(http.StatusUnauthorized, suite.resp.Code)
	suite.NotEmpty(suite.resp.Header().Get("WWW-Authenticate"))
}

func (suite *RouterTestSuite) TestBasicAuthIncorrect() {
	suite.conf.BasicAuth = configBasicAuth{
		User:     "user",
		Password: "password",
	}
	router := makeRouter(suite.conf, suite.handler, suite.registry)
	req := httptest.NewRequest("POST", "/", nil)

	req.SetBasicAuth("user", "passwor")
	router.ServeHTTP(suite.resp, req)

	suite.Equal(http.StatusUnauthorized, suite.resp.Code)
}

func (suite *RouterTestSuite) TestBasicAuthOk() {
	suite.conf.BasicAuth = configBasicAuth{
		User:     "user",
		Password: "password",
	}
	router := makeRouter(suite.conf, suite.handler, suite.registry)
	req := httptest.NewRequest("POST", "/", nil)

	req.SetBasicAuth("user", "password")
	router.ServeHTTP(suite.resp, req)

	suite.Equal(http.StatusTeapot, suite.resp.Code)
}

func TestRouter(t *testing.T) {
	suite.Run(t, &RouterTestSuite{})
}

type ServeTestSuite struct {
	suite.Suite
}

func (suite *ServeTestSuite) TestWaitsForActiveRequests() {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	suite.Require().NoError(err)

	started := make(chan struct{})
	finished := int32(0)
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			close(started)
			time.Sleep(200 * time.Millisecond)
			atomic.StoreInt32(&finished, 1)
			w.WriteHeader(http.StatusNoContent)
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	respErr := make(chan error, 1)

	go func() {
		serveErr <- serve(ctx, srv, func() error {
			return srv.Serve(listener)
		})
	}()

	go func() {
		resp, err := http.Get("http://" + listener.Addr().String() + "/")
		if err == nil {
			resp.Body.Close()
		}

		respErr <- err
	}()

	<-started
	cancel()

	suite.NoError(<-serveErr)
	suite.EqualValues(1, atomic.LoadInt32(&finished))
	suite.NoError(<-respErr)
}

func (suite *ServeTestSuite) TestClosed() {
	srv := &http.Server{}

	suite.NoError(serve(context.Background(), srv, func() error {
		return http.ErrServerClosed
	}))
}

func (suite *ServeTestSuite) TestListenFailed() {
	srv := &http.Server{}
	err := serve(context.Background(), srv, func() error {
		return errors.New("address already in use")
	})

	suite.EqualError(err, "server has failed: address already in use")
}

func TestServe(t *testing.T) {
	suite.Run(t, &ServeTestSuite{})
}
