package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/onebiot/onebiot/internal/deviceconfig"
	"github.com/onebiot/onebiot/internal/logging"
	"github.com/onebiot/onebiot/internal/radio"
	"github.com/onebiot/onebiot/internal/storage"
)

// ErrRestarted is returned by Bootstrap, Tick and Run once a restart has
// been handed to the Restarter.
var ErrRestarted = errors.New("device restarting")

const (
	DefaultConnectTimeout    = 20 * time.Second
	DefaultReconnectInterval = 10 * time.Second
	DefaultLinkCheckInterval = time.Second
	DefaultTickInterval      = 50 * time.Millisecond
	DefaultMaxJobsPerTick    = 4
	DefaultPort              = 80
)

// Discovery advertises the device on the local network.
type Discovery interface {
	Start(name string, port int) error
	// Poll does periodic housekeeping. Called from Tick.
	Poll()
	Stop()
}

// ControlAPI is the HTTP control surface. Requests are queued by the
// transport and executed by Process on the loop goroutine.
type ControlAPI interface {
	Start() error
	// Process runs at most max queued requests and returns how many ran
	Process(ctx context.Context, max int) int
	Stop(ctx context.Context) error
}

// Restarter restarts the device. In production it does not return.
type Restarter interface {
	Restart(reason string)
}

// TimeSource synchronizes the wall clock.
type TimeSource interface {
	Sync(ctx context.Context) (time.Time, error)
	Now() time.Time
}

// Config holds the orchestrator tunables.
type Config struct {
	// Port is the control API port advertised over mDNS.
	Port int
	// ConnectTimeout bounds a single WiFi connect.
	ConnectTimeout time.Duration
	// ReconnectInterval is the minimum time between reconnect attempts.
	ReconnectInterval time.Duration
	// LinkCheckInterval is the minimum time between radio status queries.
	// Status can be an external process, so it is not asked every tick.
	LinkCheckInterval time.Duration
	// TickInterval is how often Run calls Tick.
	TickInterval time.Duration
	// MaxJobsPerTick bounds the control API requests run per tick.
	MaxJobsPerTick int
}

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	if c.LinkCheckInterval <= 0 {
		c.LinkCheckInterval = DefaultLinkCheckInterval
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.MaxJobsPerTick <= 0 {
		c.MaxJobsPerTick = DefaultMaxJobsPerTick
	}
	return c
}

// Deps are the collaborators the orchestrator drives. Storage, Store and
// Radio are required; the rest may be nil.
type Deps struct {
	Storage   storage.FS
	Store     *deviceconfig.Store
	Radio     radio.Driver
	Discovery Discovery
	API       ControlAPI
	Restarter Restarter
	Time      TimeSource
	Observer  Observer
	Clock     clockwork.Clock
}

// Orchestrator brings the device's connectivity up and keeps it up.
type Orchestrator struct {
	cfg       Config
	fs        storage.FS
	store     *deviceconfig.Store
	radio     radio.Driver
	discovery Discovery
	api       ControlAPI
	restarter Restarter
	time      TimeSource
	observer  Observer
	clock     clockwork.Clock
	reconnect *rate.Limiter
	linkCheck *rate.Limiter

	mu              sync.Mutex
	state           State
	wifiEstablished bool
	timeSynced      bool
	restartReason   string
	restarted       bool
}

// New creates an orchestrator in the COLD phase.
func New(deps Deps, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()

	o := &Orchestrator{
		cfg:       cfg,
		fs:        deps.Storage,
		store:     deps.Store,
		radio:     deps.Radio,
		discovery: deps.Discovery,
		api:       deps.API,
		restarter: deps.Restarter,
		time:      deps.Time,
		observer:  deps.Observer,
		clock:     deps.Clock,
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	o.reconnect = rate.NewLimiter(rate.Every(cfg.ReconnectInterval), 1)
	o.linkCheck = rate.NewLimiter(rate.Every(cfg.LinkCheckInterval), 1)
	return o
}

// State returns a copy of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) update(fn func(*State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.state)
}

// RequestRestart asks for a restart at the end of the current tick. The
// first reason wins.
func (o *Orchestrator) RequestRestart(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.restartReason == "" {
		o.restartReason = reason
	}
}

// RestartPending reports whether a restart has been requested.
func (o *Orchestrator) RestartPending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.restartReason != ""
}

// restart notifies the observer and hands over to the Restarter. It is
// always the last thing a caller does.
func (o *Orchestrator) restart(reason string) error {
	o.mu.Lock()
	o.restarted = true
	o.restartReason = ""
	o.mu.Unlock()

	o.observer.Restarting(reason)
	if o.restarter != nil {
		o.restarter.Restart(reason)
	}
	return ErrRestarted
}

// Tick runs one pass of the cooperative loop: reconnect policy, queued
// control API requests, discovery housekeeping and finally any pending
// restart.
func (o *Orchestrator) Tick(ctx context.Context) error {
	o.maybeReconnect(ctx)

	st := o.State()
	if st.ControlAPIActive && o.api != nil {
		o.api.Process(ctx, o.cfg.MaxJobsPerTick)
	}
	if st.DiscoveryActive && o.discovery != nil {
		o.discovery.Poll()
	}

	o.mu.Lock()
	reason := o.restartReason
	o.mu.Unlock()
	if reason != "" {
		return o.restart(reason)
	}
	return nil
}

// maybeReconnect re-runs the WiFi connect when a link that was up once has
// dropped. The link is checked at most once per LinkCheckInterval and
// reconnected at most once per ReconnectInterval.
func (o *Orchestrator) maybeReconnect(ctx context.Context) {
	if !o.store.Record().WiFiEstablish {
		return
	}

	o.mu.Lock()
	established := o.wifiEstablished
	o.mu.Unlock()
	if !established {
		return
	}

	now := o.clock.Now()
	if !o.linkCheck.AllowN(now, 1) {
		return
	}
	status := o.radio.Status()
	if status == radio.StatusConnected {
		o.update(func(s *State) { s.WiFiConnected = true })
		return
	}
	o.update(func(s *State) { s.WiFiConnected = false })

	if !o.reconnect.AllowN(now, 1) {
		return
	}
	logging.Debug("WiFi link lost, reconnecting", zap.Stringer("status", status))
	if err := o.ConnectWiFi(ctx); err == nil {
		o.syncTimeOnce(ctx)
	}
}

// syncTimeOnce runs SyncTime on the loop until it has succeeded once.
func (o *Orchestrator) syncTimeOnce(ctx context.Context) {
	o.mu.Lock()
	synced := o.timeSynced
	o.mu.Unlock()
	if synced || o.time == nil {
		return
	}
	_ = o.SyncTime(ctx)
}

// Run bootstraps and then ticks until ctx ends or a restart is issued.
func (o *Orchestrator) Run(ctx context.Context, enforceRestartOnError bool) error {
	if err := o.Bootstrap(ctx, enforceRestartOnError); err != nil {
		return err
	}

	if o.State().WiFiConnected {
		o.syncTimeOnce(ctx)
	}

	ticker := o.clock.NewTicker(o.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.Shutdown()
			return nil
		case <-ticker.Chan():
			if err := o.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// Shutdown stops the control API and withdraws the mDNS registration.
func (o *Orchestrator) Shutdown() {
	if o.State().ControlAPIActive && o.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.api.Stop(ctx); err != nil {
			logging.Warn("Control API did not stop cleanly", zap.Error(err))
		}
	}
	if o.discovery != nil {
		o.discovery.Stop()
	}
	o.update(func(s *State) {
		s.ControlAPIActive = false
		s.DiscoveryActive = false
	})
}
