package providers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"

	"github.com/9seconds/tracemap/tracelib"
)

func flushResponse(resp io.ReadCloser) {
	io.Copy(ioutil.Discard, resp) // nolint: errcheck
	resp.Close()
}

// getJSON sends GET request and decodes JSON response into a target.
func getJSON(ctx context.Context, client tracelib.HTTPClient, url string,
	headers map[string]string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("cannot build a request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot send a request: %w", err)
	}

	defer flushResponse(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	jsonDecoder := json.NewDecoder(bufio.NewReader(resp.Body))

	if err := jsonDecoder.Decode(target); err != nil {
		return fmt.Errorf("cannot parse a response: %w", err)
	}

	return nil
}

// parseDegrees accepts a number or a string with a number. Only null,
// missing value or "Not found" mean there is no location; anything else
// is a broken response.
func parseDegrees(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, tracelib.ErrLocationNotFound
	case float64:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "Not found") {
			return 0, tracelib.ErrLocationNotFound
		}

		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("incorrect value %q: %w", v, err)
		}

		return parsed, nil
	}

	return 0, fmt.Errorf("incorrect value %v", value)
}
