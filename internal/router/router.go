package router

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/onebiot/onebiot/internal/deviceconfig"
	"github.com/onebiot/onebiot/internal/platform"
	"github.com/onebiot/onebiot/internal/radio"
	"github.com/onebiot/onebiot/internal/storage"
)

const (
	// SecureValue replaces secrets in option read-back.
	SecureValue = "<secure_value>"
	// UnknownValue is returned for options outside the allow-list.
	UnknownValue = "<unknown_value>"

	// MaxNetworks caps the WiFi list response.
	MaxNetworks = 5

	optionPrefix = "/cmd/option/"
)

// Envelope is the body of every control API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Request is a transport-independent control API request.
type Request struct {
	Method string
	Path   string
	// Form holds the query and form values; presence of a key matters.
	Form url.Values

	// Basic auth credentials; HasAuth is false when no header was sent.
	User     string
	Password string
	HasAuth  bool
}

// Response is the outcome of a dispatched request.
type Response struct {
	Status   int
	Envelope Envelope
	// Route is the matched route pattern, for metrics and logs.
	Route string
}

// StatsProvider reports device and storage statistics.
type StatsProvider interface {
	DeviceStats() platform.DeviceStats
	StorageStats() (storage.Stats, error)
}

// RestartRequester accepts a restart request to be honored later.
type RestartRequester interface {
	RequestRestart(reason string)
}

// RestartFunc adapts a function to RestartRequester.
type RestartFunc func(reason string)

func (f RestartFunc) RequestRestart(reason string) { f(reason) }

type handlerFunc func(*Router, Request) Response

type route struct {
	method string
	path   string
	prefix bool
	auth   bool
	handle handlerFunc
}

// Router maps control API requests onto the settings store and the radio.
type Router struct {
	store   *deviceconfig.Store
	radio   radio.Driver
	stats   StatsProvider
	restart RestartRequester
	routes  []route
}

// New creates a router with the fixed route table.
func New(store *deviceconfig.Store, drv radio.Driver, stats StatsProvider, restart RestartRequester) *Router {
	r := &Router{
		store:   store,
		radio:   drv,
		stats:   stats,
		restart: restart,
	}
	r.routes = []route{
		{method: http.MethodGet, path: "/cmd/wifi/list", auth: true, handle: (*Router).wifiList},
		{method: http.MethodGet, path: "/cmd/stats", auth: true, handle: (*Router).allStats},
		{method: http.MethodGet, path: "/cmd/stats/esp", auth: true, handle: (*Router).deviceStats},
		{method: http.MethodGet, path: "/cmd/stats/spiffs", auth: true, handle: (*Router).storageStats},
		{method: http.MethodPost, path: "/cmd/credentials", auth: true, handle: (*Router).updateCredentials},
		{method: http.MethodGet, path: optionPrefix, prefix: true, handle: (*Router).option},
		{method: http.MethodGet, path: "/cmd/wifi", auth: true, handle: (*Router).wifiStatus},
		{method: http.MethodPost, path: "/cmd/wifi", auth: true, handle: (*Router).updateWiFi},
		{method: http.MethodGet, path: "/cmd/ap", auth: true, handle: (*Router).apStatus},
		{method: http.MethodPost, path: "/cmd/ap", auth: true, handle: (*Router).updateAP},
		{method: http.MethodGet, path: "/cmd/dns", auth: true, handle: (*Router).dnsStatus},
		{method: http.MethodPost, path: "/cmd/dns", auth: true, handle: (*Router).updateDNS},
		{method: http.MethodPost, path: "/cmd/reset", auth: true, handle: (*Router).reset},
	}
	return r
}

// Match reports whether method and path name a route.
func (r *Router) Match(method, path string) bool {
	_, ok := r.lookup(method, path)
	return ok
}

func (r *Router) lookup(method, path string) (route, bool) {
	path = strings.TrimSuffix(path, "/")
	for _, rt := range r.routes {
		if rt.method != method {
			continue
		}
		if rt.prefix {
			if strings.HasPrefix(path, rt.path) && len(path) > len(rt.path) {
				return rt, true
			}
			continue
		}
		if path == rt.path {
			return rt, true
		}
	}
	return route{}, false
}

// Dispatch runs the route matching req. The second result is false when no
// route matches; nothing is executed then.
func (r *Router) Dispatch(req Request) (Response, bool) {
	rt, ok := r.lookup(req.Method, req.Path)
	if !ok {
		return Response{}, false
	}

	pattern := rt.path
	if rt.prefix {
		pattern += "{name}"
	}

	if rt.auth {
		if err := r.authenticate(req); err != nil {
			resp := unauthorized()
			resp.Route = pattern
			return resp, true
		}
	}

	resp := rt.handle(r, req)
	resp.Route = pattern
	return resp, true
}

// Options returns every readable option keyed by name, secrets redacted.
// Pages served through the template renderer use it as their token table.
func (r *Router) Options() map[string]string {
	out := make(map[string]string, len(optionNames))
	for _, name := range optionNames {
		value, _ := r.optionValue(name)
		out[name] = value
	}
	return out
}

func ok(message string, data any) Response {
	return Response{Status: http.StatusOK, Envelope: Envelope{Success: true, Message: message, Data: data}}
}

func fail(status int, message string) Response {
	return Response{Status: status, Envelope: Envelope{Success: false, Message: message}}
}

func unauthorized() Response {
	return fail(http.StatusUnauthorized, "Unauthorized")
}
