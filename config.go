package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net"
	"path/filepath"
	"time"

	"github.com/9seconds/tracemap/providers"
	"github.com/9seconds/tracemap/tracelib"
	"github.com/hjson/hjson-go"
)

const (
	DefaultListen                            = "127.0.0.1:8080"
	DefaultCachePath                         = "ip_lat_lon_cache.csv"
	DefaultProviderName                      = providers.NameGeolocationDB
	DefaultHTTPTimeout                       = 10 * time.Second
	DefaultRateLimitInterval                 = 100 * time.Millisecond
	DefaultRateLimitBurst                    = 10
	DefaultCircuitBreakerOpenThreshold       = 5
	DefaultCircuitBreakerHalfOpenTimeout     = time.Minute
	DefaultCircuitBreakerResetFailuresTimout = 20 * time.Second
	DefaultHostnameCacheSize                 = 1024
	DefaultHostnameCacheTTL                  = time.Hour
)

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var v interface{}

	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("cannot unmarshal duration: %w", err)
	}

	vv, ok := v.(string)
	if !ok {
		return fmt.Errorf("incorrect duration: %v", v)
	}

	dur, err := time.ParseDuration(vv)
	if err != nil {
		return fmt.Errorf("cannot parse duration: %w", err)
	}

	d.Duration = dur

	return nil
}

type config struct {
	Listen        string              `json:"listen"`
	CachePath     string              `json:"cache_path"`
	BasicAuth     configBasicAuth     `json:"basic_auth"`
	Provider      configProvider      `json:"provider"`
	Probe         configProbe         `json:"probe"`
	HostnameCache configHostnameCache `json:"hostname_cache"`
}

func (c config) GetListen() string {
	if c.Listen != "" {
		return c.Listen
	}

	return DefaultListen
}

func (c config) GetCachePath() string {
	if c.CachePath != "" {
		return c.CachePath
	}

	return DefaultCachePath
}

type configBasicAuth struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func (c configBasicAuth) Enabled() bool {
	return c.User != "" || c.Password != ""
}

type configProvider struct {
	Name                               string            `json:"name"`
	HTTPTimeout                        duration          `json:"http_timeout"`
	RateLimitInterval                  duration          `json:"rate_limit_interval"`
	RateLimitBurst                     uint              `json:"rate_limit_burst"`
	CircuitBreakerOpenThreshold        uint32            `json:"circuit_breaker_open_threshold"`
	CircuitBreakerHalfOpenTimeout      duration          `json:"circuit_breaker_half_open_timeout"`
	CircuitBreakerResetFailuresTimeout duration          `json:"circuit_breaker_reset_failures_timeout"`
	SpecificParameters                 map[string]string `json:"specific_parameters"`
}

func (c configProvider) GetName() string {
	if c.Name != "" {
		return c.Name
	}

	return DefaultProviderName
}

func (c configProvider) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout.Duration == 0 {
		return DefaultHTTPTimeout
	}

	return c.HTTPTimeout.Duration
}

func (c configProvider) GetRateLimitInterval() time.Duration {
	if c.RateLimitInterval.Duration == 0 {
		return DefaultRateLimitInterval
	}

	return c.RateLimitInterval.Duration
}

func (c configProvider) GetRateLimitBurst() int {
	if c.RateLimitBurst == 0 {
		return DefaultRateLimitBurst
	}

	return int(c.RateLimitBurst)
}

func (c configProvider) GetCircuitBreakerOpenThreshold() uint32 {
	if c.CircuitBreakerOpenThreshold == 0 {
		return DefaultCircuitBreakerOpenThreshold
	}

	return c.CircuitBreakerOpenThreshold
}

func (c configProvider) GetCircuitBreakerHalfOpenTimeout() time.Duration {
	if c.CircuitBreakerHalfOpenTimeout.Duration == 0 {
		return DefaultCircuitBreakerHalfOpenTimeout
	}

	return c.CircuitBreakerHalfOpenTimeout.Duration
}

func (c configProvider) GetCircuitBreakerResetFailuresTimeout() time.Duration {
	if c.CircuitBreakerResetFailuresTimeout.Duration == 0 {
		return DefaultCircuitBreakerResetFailuresTimout
	}

	return c.CircuitBreakerResetFailuresTimeout.Duration
}

func (c configProvider) GetSpecificParameters() map[string]string {
	if c.SpecificParameters == nil {
		return map[string]string{}
	}

	return c.SpecificParameters
}

type configProbe struct {
	MaxHops uint `json:"max_hops"`
	Port    uint `json:"port"`
}

func (c configProbe) GetMaxHops() int {
	if c.MaxHops == 0 {
		return tracelib.DefaultMaxHops
	}

	return int(c.MaxHops)
}

func (c configProbe) GetPort() int {
	if c.Port == 0 {
		return tracelib.DefaultProbePort
	}

	return int(c.Port)
}

type configHostnameCache struct {
	Size uint     `json:"size"`
	TTL  duration `json:"ttl"`
}

func (c configHostnameCache) GetSize() uint {
	if c.Size == 0 {
		return DefaultHostnameCacheSize
	}

	return c.Size
}

func (c configHostnameCache) GetTTL() time.Duration {
	if c.TTL.Duration == 0 {
		return DefaultHostnameCacheTTL
	}

	return c.TTL.Duration
}

// parseConfig reads a config file. Empty path means default config.
func parseConfig(path string) (*config, error) {
	conf := config{}

	if path != "" {
		content, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read file: %w", err)
		}

		if err := unmarshalConfig(content, &conf); err != nil {
			return nil, err
		}
	}

	if err := validateConfig(&conf); err != nil {
		return nil, err
	}

	return &conf, nil
}

func unmarshalConfig(content []byte, conf *config) error {
	rawMap := map[string]interface{}{}

	if err := hjson.Unmarshal(content, &rawMap); err != nil {
		return fmt.Errorf("cannot parse json: %w", err)
	}

	rawBytes, _ := json.Marshal(rawMap)

	if err := json.Unmarshal(rawBytes, conf); err != nil {
		return fmt.Errorf("incorrect config structure: %w", err)
	}

	return nil
}

func validateConfig(conf *config) error {
	if _, _, err := net.SplitHostPort(conf.GetListen()); err != nil {
		return fmt.Errorf("incorrect host:port for listen: %w", err)
	}

	cachePath, err := filepath.Abs(conf.GetCachePath())
	if err != nil {
		return fmt.Errorf("incorrect cache path: %w", err)
	}

	conf.CachePath = cachePath

	if conf.Probe.GetPort() > 65535 {
		return fmt.Errorf("incorrect probe port %d", conf.Probe.GetPort())
	}

	if conf.Probe.GetMaxHops() > 255 {
		return fmt.Errorf("incorrect max hops %d", conf.Probe.GetMaxHops())
	}

	switch conf.Provider.GetName() {
	case providers.NameGeolocationDB, providers.NameIPInfo:
	case providers.NameMaxmind:
		if conf.Provider.GetSpecificParameters()["path"] == "" {
			return fmt.Errorf("maxmind provider requires a path: %w", providers.ErrDatabasePathIsRequired)
		}
	default:
		return fmt.Errorf("unsupported provider name: %s", conf.Provider.GetName())
	}

	return nil
}
