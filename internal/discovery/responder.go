package discovery

import (
	"fmt"
	"slices"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/logging"
)

// server is the part of *zeroconf.Server the responder uses.
type server interface {
	SetText(text []string)
	Shutdown()
}

// registerFunc publishes a service. host and ips are empty when the
// responder should fall back to the machine hostname.
type registerFunc func(instance string, port int, host string, ips, text []string) (server, error)

func zeroconfRegister(instance string, port int, host string, ips, text []string) (server, error) {
	if host != "" && len(ips) > 0 {
		return zeroconf.RegisterProxy(instance, ServiceType, ServiceDomain, port, host, ips, text, nil)
	}
	return zeroconf.Register(instance, ServiceType, ServiceDomain, port, text, nil)
}

// Responder advertises the control API over mDNS.
type Responder struct {
	// Addrs returns the addresses to publish for the host name. When empty
	// the machine hostname and all interfaces are used.
	Addrs func() []string
	// Text returns extra TXT records. It is re-read by Poll.
	Text func() []string

	register registerFunc

	mu     sync.Mutex
	srv    server
	name   string
	text   []string
	active bool
}

// NewResponder creates a responder backed by zeroconf.
func NewResponder() *Responder {
	return &Responder{register: zeroconfRegister}
}

// Start registers name on the local network for port. A running
// registration is replaced.
func (r *Responder) Start(name string, port int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.srv != nil {
		r.srv.Shutdown()
		r.srv = nil
		r.active = false
	}

	var ips []string
	if r.Addrs != nil {
		ips = r.Addrs()
	}
	host := ""
	if len(ips) > 0 {
		host = name
	}
	text := r.currentText()

	srv, err := r.register(name, port, host, ips, text)
	if err != nil {
		return faults.NewDiscoveryError(fmt.Sprintf("failed to register %s.local", name), err)
	}

	r.srv = srv
	r.name = name
	r.text = text
	r.active = true

	logging.LogStage(logging.StageDiscovery, "responder registered", false,
		zap.String("name", name),
		zap.Int("port", port),
		zap.Strings("addrs", ips))
	return nil
}

// Poll republishes the TXT records when they changed since the last
// announcement.
func (r *Responder) Poll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.srv == nil {
		return
	}
	text := r.currentText()
	if slices.Equal(text, r.text) {
		return
	}
	r.srv.SetText(text)
	r.text = text
	logging.Debug("mDNS TXT records updated", zap.Strings("text", text))
}

// Stop withdraws the registration.
func (r *Responder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.srv != nil {
		r.srv.Shutdown()
		r.srv = nil
	}
	r.active = false
}

// Active reports whether a registration is published.
func (r *Responder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Name returns the registered instance name.
func (r *Responder) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// caller holds r.mu.
func (r *Responder) currentText() []string {
	text := []string{deviceMarker, "path=/"}
	if r.Text != nil {
		text = append(text, r.Text()...)
	}
	return text
}
