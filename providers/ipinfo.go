package providers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/9seconds/tracemap/tracelib"
)

type ipinfoResponse struct {
	Bogon bool   `json:"bogon"`
	Loc   string `json:"loc"`
}

type ipinfoProvider struct {
	authToken string
	client    tracelib.HTTPClient
}

func (i ipinfoProvider) Name() string {
	return NameIPInfo
}

func (i ipinfoProvider) Lookup(ctx context.Context, ip net.IP) (tracelib.ProviderLookupResult, error) {
	result := tracelib.ProviderLookupResult{}
	headers := map[string]string{}

	if i.authToken != "" {
		headers["Authorization"] = "Bearer " + i.authToken
	}

	jsonResponse := ipinfoResponse{}

	if err := getJSON(ctx, i.client, "https://ipinfo.io/"+ip.String(), headers, &jsonResponse); err != nil {
		return result, err
	}

	if jsonResponse.Bogon || jsonResponse.Loc == "" {
		return result, tracelib.ErrLocationNotFound
	}

	chunks := strings.SplitN(jsonResponse.Loc, ",", 2)
	if len(chunks) != 2 {
		return result, fmt.Errorf("incorrect location %s", jsonResponse.Loc)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(chunks[0]), 64)
	if err != nil {
		return result, fmt.Errorf("incorrect latitude: %w", err)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(chunks[1]), 64)
	if err != nil {
		return result, fmt.Errorf("incorrect longitude: %w", err)
	}

	result.Latitude = lat
	result.Longitude = lon

	return result, nil
}

func NewIPInfo(client tracelib.HTTPClient, parameters map[string]string) tracelib.Provider {
	return ipinfoProvider{
		authToken: parameters["auth_token"],
		client:    client,
	}
}
