package providers

import (
	"context"
	"fmt"
	"net"

	"github.com/9seconds/tracemap/tracelib"
)

type geolocationDBResponse struct {
	Latitude  interface{} `json:"latitude"`
	Longitude interface{} `json:"longitude"`
}

type geolocationDBProvider struct {
	baseURL string
	client  tracelib.HTTPClient
}

func (g geolocationDBProvider) Name() string {
	return NameGeolocationDB
}

// Lookup returns tracelib.ErrLocationNotFound if coordinates are
// missing, null or "Not found".
func (g geolocationDBProvider) Lookup(ctx context.Context, ip net.IP) (tracelib.ProviderLookupResult, error) {
	result := tracelib.ProviderLookupResult{}
	jsonResponse := geolocationDBResponse{}

	if err := getJSON(ctx, g.client, g.baseURL+ip.String(), nil, &jsonResponse); err != nil {
		return result, err
	}

	lat, err := parseDegrees(jsonResponse.Latitude)
	if err != nil {
		return result, fmt.Errorf("incorrect latitude: %w", err)
	}

	lon, err := parseDegrees(jsonResponse.Longitude)
	if err != nil {
		return result, fmt.Errorf("incorrect longitude: %w", err)
	}

	result.Latitude = lat
	result.Longitude = lon

	return result, nil
}

// NewGeolocationDB makes a provider for https://geolocation-db.com.
// Free tier needs no key. base_url parameter overrides the default
// endpoint.
func NewGeolocationDB(client tracelib.HTTPClient, parameters map[string]string) tracelib.Provider {
	baseURL := parameters["base_url"]
	if baseURL == "" {
		baseURL = "https://geolocation-db.com/json/"
	}

	return geolocationDBProvider{
		baseURL: baseURL,
		client:  client,
	}
}
