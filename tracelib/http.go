package tracelib

import (
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/qri-io/jsonschema"
)

var handleTraceRequestJSONSchema = func() *jsonschema.Schema {
	data := `{
        "type": "object",
        "required": [
            "ip"
        ],
        "additionalProperties": false,
        "properties": {
            "ip": {
                "anyOf": [
                    {
                        "type": "string",
                        "format": "ipv4",
                        "minLength": 7,
                        "maxLength": 15
                    },
                    {
                        "type": "string",
                        "format": "ipv6",
                        "minLength": 2,
                        "maxLength": 39
                    }
                ]
            },
            "hits": {
                "type": "integer",
                "minimum": 0
            },
            "bytes": {
                "type": "integer",
                "minimum": 0
            },
            "timeout": {
                "type": "number",
                "exclusiveMinimum": 0,
                "maximum": 60
            },
            "display_names": {
                "type": "boolean"
            }
        }
    }`

	rv := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(data), rv); err != nil {
		panic(err)
	}

	return rv
}()

type handleTraceRequest struct {
	IP           net.IP  `json:"ip"`
	Hits         int64   `json:"hits"`
	ByteCount    int64   `json:"bytes"`
	Timeout      float64 `json:"timeout"`
	DisplayNames bool    `json:"display_names"`
}

type handleTraceResponse struct {
	Result RouteRecord `json:"result"`
}

// httpHandler runs traces one by one: probes of concurrent traces
// would compete for the same hops and the provider rate limit.
type httpHandler struct {
	tracer         *RouteTracer
	resolver       *GeoResolver
	mutex          *sync.Mutex
	defaultTimeout time.Duration
}

func (h httpHandler) handleRoot(w http.ResponseWriter, req *http.Request) {
	switch {
	case req.URL.Path != "/":
		h.sendError(w, nil, "Unknown path", http.StatusNotFound)
	case req.Method != http.MethodPost:
		h.sendError(w, nil, "This HTTP method is not allowed", http.StatusMethodNotAllowed)
	default:
		h.handleTrace(w, req)
	}
}

func (h httpHandler) handleTrace(w http.ResponseWriter, req *http.Request) {
	if !strings.Contains(req.Header.Get("Content-Type"), "application/json") {
		h.sendError(w, nil, "Incorrect content type", http.StatusUnsupportedMediaType)

		return
	}

	bodyBytes, err := ioutil.ReadAll(req.Body)

	req.Body.Close()

	if err != nil {
		h.sendError(w, err, "Cannot read request body", http.StatusBadRequest)

		return
	}

	errs, err := handleTraceRequestJSONSchema.ValidateBytes(req.Context(), bodyBytes)
	if err != nil {
		h.sendError(w, err, "Cannot validate body", http.StatusInternalServerError)

		return
	}

	if len(errs) > 0 {
		h.sendError(w, errs[0], "Request body is not valid", http.StatusBadRequest)

		return
	}

	parsedRequest := handleTraceRequest{}
	if err := json.Unmarshal(bodyBytes, &parsedRequest); err != nil {
		h.sendError(w, err, "Cannot parse request JSON", http.StatusBadRequest)

		return
	}

	traceRequest := TraceRequest{
		Destination:  parsedRequest.IP,
		Hits:         parsedRequest.Hits,
		ByteCount:    parsedRequest.ByteCount,
		Timeout:      h.defaultTimeout,
		DisplayNames: parsedRequest.DisplayNames,
	}

	if parsedRequest.Timeout > 0 {
		traceRequest.Timeout = time.Duration(parsedRequest.Timeout * float64(time.Second))
	}

	h.mutex.Lock()
	record, err := h.tracer.Trace(req.Context(), traceRequest)
	h.mutex.Unlock()

	if err != nil {
		h.sendError(w, err, "Cannot trace a route", http.StatusBadGateway)

		return
	}

	h.encodeJSON(w, handleTraceResponse{
		Result: record,
	})
}

func (h httpHandler) handleStats(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		h.sendError(w, nil, "This HTTP method is not allowed", http.StatusMethodNotAllowed)

		return
	}

	response := struct {
		Results []*UsageStats `json:"results"`
	}{
		Results: []*UsageStats{h.resolver.UsageStats()},
	}

	h.encodeJSON(w, response)
}

func (h httpHandler) encodeJSON(w http.ResponseWriter, data interface{}) {
	encoder := json.NewEncoder(w)

	w.Header().Add("Content-Type", "application/json")
	encoder.SetEscapeHTML(false)
	encoder.Encode(data) // nolint: errcheck
}

func (h httpHandler) sendError(w http.ResponseWriter, err error, message string, statusCode int) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(newErrorResponse(message, err)) // nolint: errcheck
}

// NewHTTPHandler returns a handler with 2 endpoints:
//
//     POST /        - trace a route to the IP from a JSON body
//     GET  /stats/  - usage stats of the geolocation provider
//
// defaultTimeout is used if request has no timeout.
func NewHTTPHandler(tracer *RouteTracer, resolver *GeoResolver, defaultTimeout time.Duration) http.Handler {
	handler := httpHandler{
		tracer:         tracer,
		resolver:       resolver,
		mutex:          &sync.Mutex{},
		defaultTimeout: defaultTimeout,
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/", handler.handleRoot)
	mux.HandleFunc("/stats/", handler.handleStats)

	return mux
}
