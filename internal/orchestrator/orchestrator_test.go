package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onebiot/onebiot/internal/deviceconfig"
	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/radio"
	"github.com/onebiot/onebiot/internal/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) StorageMounted() { r.add("storage mounted") }
func (r *recorder) StorageFailed(error) { r.add("storage failed") }
func (r *recorder) SettingsLoaded() { r.add("settings loaded") }
func (r *recorder) SettingsLoadFailed(error) { r.add("settings load failed") }
func (r *recorder) WiFiConnected(ssid string) { r.add("wifi connected %s", ssid) }
func (r *recorder) WiFiFailed(err error) { r.add("wifi failed: %s", faults.ShortMessage(err)) }
func (r *recorder) APStarted(ssid string) { r.add("ap started %s", ssid) }
func (r *recorder) APFailed(err error) { r.add("ap failed: %s", faults.ShortMessage(err)) }
func (r *recorder) DiscoveryStarted(name string) { r.add("discovery started %s", name) }
func (r *recorder) DiscoveryFailed(error) { r.add("discovery failed") }
func (r *recorder) APIFailed(error) { r.add("api failed") }
func (r *recorder) TimeSynced(time.Time) { r.add("time synced") }
func (r *recorder) Restarting(reason string) { r.add("restarting: %s", reason) }

type fakeDiscovery struct {
	err   error
	name  string
	port  int
	polls int
}

func (f *fakeDiscovery) Start(name string, port int) error {
	if f.err != nil {
		return faults.NewDiscoveryError("register failed", f.err)
	}
	f.name, f.port = name, port
	return nil
}
func (f *fakeDiscovery) Poll() { f.polls++ }
func (f *fakeDiscovery) Stop() {}

type fakeAPI struct {
	startErr  error
	started   bool
	processed []int
}

func (f *fakeAPI) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}
func (f *fakeAPI) Process(_ context.Context, max int) int {
	f.processed = append(f.processed, max)
	return 0
}
func (f *fakeAPI) Stop(context.Context) error { f.started = false; return nil }

type fakeRestarter struct{ reasons []string }

func (f *fakeRestarter) Restart(reason string) { f.reasons = append(f.reasons, reason) }

type fakeTime struct {
	now   time.Time
	err   error
	syncs int
}

func (f *fakeTime) Sync(context.Context) (time.Time, error) {
	f.syncs++
	if f.err != nil {
		return time.Time{}, f.err
	}
	return f.now, nil
}
func (f *fakeTime) Now() time.Time { return f.now }

type fixture struct {
	fs        *storage.MemFS
	store     *deviceconfig.Store
	radio     *radio.Simulator
	discovery *fakeDiscovery
	api       *fakeAPI
	restarter *fakeRestarter
	time      *fakeTime
	observer  *recorder
	clock     *clockwork.FakeClock
	orch      *Orchestrator
}

func newFixture(t *testing.T, rec *deviceconfig.Record) *fixture {
	t.Helper()
	f := &fixture{
		fs:        storage.NewMemFS(),
		radio:     radio.NewSimulator(),
		discovery: &fakeDiscovery{},
		api:       &fakeAPI{},
		restarter: &fakeRestarter{},
		observer:  &recorder{},
		clock:     clockwork.NewFakeClockAt(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)),
	}
	f.time = &fakeTime{now: f.clock.Now()}
	f.store = deviceconfig.NewStore(f.fs, deviceconfig.DefaultPath, deviceconfig.WithClientSuffix("01"))

	if rec != nil {
		data, err := deviceconfig.EncodeRecord(*rec)
		require.NoError(t, err)
		require.NoError(t, f.fs.Mount())
		require.NoError(t, f.fs.WriteFile(deviceconfig.DefaultPath, data))
	}

	f.orch = New(Deps{
		Storage:   f.fs,
		Store:     f.store,
		Radio:     f.radio,
		Discovery: f.discovery,
		API:       f.api,
		Restarter: f.restarter,
		Time:      f.time,
		Observer:  f.observer,
		Clock:     f.clock,
	}, Config{Port: 8080, ReconnectInterval: 10 * time.Second, MaxJobsPerTick: 3})
	return f
}

func TestBootstrap_NoRecord(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.orch.Bootstrap(context.Background(), true))

	st := f.orch.State()
	assert.True(t, st.StorageReady)
	assert.False(t, st.WiFiConnected)
	assert.False(t, st.APActive)
	assert.False(t, st.ControlAPIActive)
	assert.Equal(t, PhaseBothDown, st.Phase)
	assert.Zero(t, f.radio.ConnectCalls())
	assert.Empty(t, f.restarter.reasons)
	assert.Equal(t, []string{"storage mounted"}, f.observer.list())
}

func TestBootstrap_WiFiUp(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{
		WiFiSSID:      "home",
		WiFiPassword:  "secret1",
		WiFiEstablish: true,
		DNSEstablish:  true,
		DNSName:       "kitchen",
	})
	f.radio.Networks["home"] = "secret1"

	require.NoError(t, f.orch.Bootstrap(context.Background(), true))

	st := f.orch.State()
	assert.True(t, st.WiFiConnected)
	assert.True(t, st.DiscoveryActive)
	assert.True(t, st.ControlAPIActive)
	assert.Equal(t, PhaseAPIUp, st.Phase)
	assert.Equal(t, "kitchen", f.discovery.name)
	assert.Equal(t, 8080, f.discovery.port)
	assert.True(t, f.api.started)
	assert.Equal(t, []string{
		"storage mounted",
		"settings loaded",
		"wifi connected home",
		"discovery started kitchen",
	}, f.observer.list())
}

func TestBootstrap_EmptySSIDNeverConnects(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{WiFiEstablish: true, APEstablish: true})

	require.NoError(t, f.orch.Bootstrap(context.Background(), true))

	assert.Zero(t, f.radio.ConnectCalls())
	assert.Contains(t, f.observer.list(), "wifi failed: No SSID is available")
	st := f.orch.State()
	assert.True(t, st.APActive)
	assert.Equal(t, PhaseAPIUp, st.Phase)
	assert.Empty(t, f.restarter.reasons)
}

func TestBootstrap_WiFiFailsFallsBackToAP(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{
		WiFiSSID:      "home",
		WiFiPassword:  "wrong",
		WiFiEstablish: true,
		APEstablish:   true,
	})
	f.radio.Networks["home"] = "secret1"

	require.NoError(t, f.orch.Bootstrap(context.Background(), true))

	st := f.orch.State()
	assert.False(t, st.WiFiConnected)
	assert.True(t, st.APActive)
	assert.True(t, f.radio.APActive())
	assert.Contains(t, f.observer.list(), "wifi failed: Connecting error: #4")
	assert.Contains(t, f.observer.list(), "ap started ONEBIOT.local")
	assert.Empty(t, f.restarter.reasons)
}

func TestBootstrap_WiFiFailureRestartsWithoutFallback(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{WiFiSSID: "gone", WiFiEstablish: true})

	err := f.orch.Bootstrap(context.Background(), true)
	assert.ErrorIs(t, err, ErrRestarted)
	assert.Equal(t, []string{"wifi connect failed"}, f.restarter.reasons)

	events := f.observer.list()
	require.Len(t, events, 4)
	assert.Equal(t, "wifi failed: Connecting error: #1", events[2])
	assert.Equal(t, "restarting: wifi connect failed", events[3], "failure is reported before the restart")
	assert.False(t, f.api.started)
}

func TestBootstrap_WiFiFailureDegradedWithoutEnforcement(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{WiFiSSID: "gone", WiFiEstablish: true})

	require.NoError(t, f.orch.Bootstrap(context.Background(), false))
	assert.Empty(t, f.restarter.reasons)
	assert.Equal(t, PhaseBothDown, f.orch.State().Phase)
}

func TestBootstrap_StorageFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.fs.MountErr = errors.New("no flash")

	assert.ErrorIs(t, f.orch.Bootstrap(context.Background(), true), ErrRestarted)
	assert.Equal(t, []string{"storage failed", "restarting: storage mount failed"}, f.observer.list())

	g := newFixture(t, nil)
	g.fs.MountErr = errors.New("no flash")
	require.NoError(t, g.orch.Bootstrap(context.Background(), false))
	assert.False(t, g.orch.State().StorageReady)
	assert.True(t, faults.IsIOError(g.store.Save()), "a degraded store fails consistently")
}

func TestBootstrap_CorruptSettingsAreAdvisory(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.fs.Mount())
	require.NoError(t, f.fs.WriteFile(deviceconfig.DefaultPath, []byte("{")))

	require.NoError(t, f.orch.Bootstrap(context.Background(), true))
	assert.Contains(t, f.observer.list(), "settings load failed")
	assert.Empty(t, f.restarter.reasons)
}

func TestBootstrap_DiscoveryFailureKeepsNetwork(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{APEstablish: true, DNSEstablish: true})
	f.discovery.err = errors.New("no multicast")

	require.NoError(t, f.orch.Bootstrap(context.Background(), false))
	st := f.orch.State()
	assert.True(t, st.APActive)
	assert.False(t, st.DiscoveryActive)
	assert.True(t, st.ControlAPIActive)
	assert.Contains(t, f.observer.list(), "discovery failed")

	g := newFixture(t, &deviceconfig.Record{APEstablish: true, DNSEstablish: true})
	g.discovery.err = errors.New("no multicast")
	assert.ErrorIs(t, g.orch.Bootstrap(context.Background(), true), ErrRestarted)
	assert.Equal(t, []string{"discovery failed"}, g.restarter.reasons)
}

func TestStartAP_DisconnectsWiFiFirst(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{
		WiFiSSID:      "home",
		WiFiEstablish: true,
		APEstablish:   true,
		APSSID:        "box",
	})
	f.radio.Networks["home"] = ""
	require.NoError(t, f.orch.Bootstrap(context.Background(), false))
	require.True(t, f.orch.State().WiFiConnected)
	require.False(t, f.radio.APActive())

	require.NoError(t, f.orch.StartAP())
	assert.Equal(t, 1, f.radio.DisconnectCalls())
	assert.Equal(t, radio.StatusDisconnected, f.radio.Status())
	st := f.orch.State()
	assert.False(t, st.WiFiConnected)
	assert.True(t, st.APActive)
}

func TestStartAP_Off(t *testing.T) {
	f := newFixture(t, nil)
	err := f.orch.StartAP()
	assert.True(t, faults.IsRadioError(err))
	assert.Equal(t, "Creating AP is off", faults.ShortMessage(err))
	assert.False(t, f.orch.State().APActive)

	f.store.SetAPEstablish(true)
	f.radio.APErr = errors.New("busy")
	err = f.orch.StartAP()
	assert.Equal(t, "Creating AP failed", faults.ShortMessage(err))
}

func TestConnectWiFi_Off(t *testing.T) {
	f := newFixture(t, nil)
	err := f.orch.ConnectWiFi(context.Background())
	assert.Equal(t, "WiFi is off", faults.ShortMessage(err))
	assert.Zero(t, f.radio.ConnectCalls())
}

func TestTick_ReconnectThrottled(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{WiFiSSID: "home", WiFiEstablish: true})
	f.radio.Networks["home"] = ""
	ctx := context.Background()
	require.NoError(t, f.orch.Bootstrap(ctx, false))
	require.Equal(t, 1, f.radio.ConnectCalls())

	// the link stays down: the network vanished
	delete(f.radio.Networks, "home")
	f.radio.DropLink()

	require.NoError(t, f.orch.Tick(ctx))
	assert.Equal(t, 2, f.radio.ConnectCalls(), "first reconnect is immediate")
	assert.False(t, f.orch.State().WiFiConnected)

	require.NoError(t, f.orch.Tick(ctx))
	require.NoError(t, f.orch.Tick(ctx))
	assert.Equal(t, 2, f.radio.ConnectCalls(), "throttled within the interval")

	f.clock.Advance(10 * time.Second)
	f.radio.Networks["home"] = ""
	require.NoError(t, f.orch.Tick(ctx))
	assert.Equal(t, 3, f.radio.ConnectCalls())
	assert.True(t, f.orch.State().WiFiConnected)
}

// countingNMCLI answers nmcli as a healthy link and counts status queries.
type countingNMCLI struct {
	mu       sync.Mutex
	statuses int
}

func (c *countingNMCLI) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	if strings.Contains(strings.Join(args, " "), "GENERAL.STATE") {
		c.mu.Lock()
		c.statuses++
		c.mu.Unlock()
		return []byte("GENERAL.STATE:100 (connected)\n"), nil
	}
	return nil, nil
}

func (c *countingNMCLI) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statuses
}

func TestTick_LinkStatusCheckedAtBoundedRate(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{WiFiSSID: "home", WiFiEstablish: true})
	runner := &countingNMCLI{}
	orch := New(Deps{
		Storage: f.fs,
		Store:   f.store,
		Radio:   radio.NewNMCLI("wlan0", runner.run),
		Clock:   f.clock,
	}, Config{LinkCheckInterval: time.Second, TickInterval: 50 * time.Millisecond})

	ctx := context.Background()
	require.NoError(t, orch.Bootstrap(ctx, false))
	require.True(t, orch.State().WiFiConnected)
	before := runner.count()

	// 100 ticks at 50ms are five seconds of a healthy link
	for i := 0; i < 100; i++ {
		require.NoError(t, orch.Tick(ctx))
		f.clock.Advance(50 * time.Millisecond)
	}
	checks := runner.count() - before
	assert.GreaterOrEqual(t, checks, 4)
	assert.LessOrEqual(t, checks, 6)
	assert.True(t, orch.State().WiFiConnected)
}

func TestTick_SyncsTimeAfterReconnect(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{WiFiSSID: "home", WiFiEstablish: true})
	f.radio.Networks["home"] = ""
	ctx := context.Background()
	require.NoError(t, f.orch.Bootstrap(ctx, false))
	assert.Zero(t, f.time.syncs, "bootstrap leaves time sync to the loop")

	f.radio.DropLink()
	require.NoError(t, f.orch.Tick(ctx))
	assert.True(t, f.orch.State().WiFiConnected)
	assert.Equal(t, 1, f.time.syncs)
	assert.Contains(t, f.observer.list(), "time synced")

	f.clock.Advance(10 * time.Second)
	f.radio.DropLink()
	require.NoError(t, f.orch.Tick(ctx))
	assert.Equal(t, 1, f.time.syncs, "a synced clock is not queried again")
}

func TestTick_RetriesTimeSyncOnLaterReconnect(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{WiFiSSID: "home", WiFiEstablish: true})
	f.radio.Networks["home"] = ""
	f.time.err = errors.New("no route to pool.ntp.org")
	ctx := context.Background()
	require.NoError(t, f.orch.Bootstrap(ctx, false))

	f.radio.DropLink()
	require.NoError(t, f.orch.Tick(ctx))
	assert.Equal(t, 1, f.time.syncs)
	assert.True(t, f.orch.State().Timestamp.IsZero())

	f.time.err = nil
	f.clock.Advance(10 * time.Second)
	f.radio.DropLink()
	require.NoError(t, f.orch.Tick(ctx))
	assert.Equal(t, 2, f.time.syncs)
	assert.False(t, f.orch.State().Timestamp.IsZero())
}

func TestTick_NoReconnectWhenNeverEstablished(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{WiFiSSID: "home", WiFiEstablish: true, APEstablish: true})
	ctx := context.Background()
	require.NoError(t, f.orch.Bootstrap(ctx, false))
	calls := f.radio.ConnectCalls()

	f.clock.Advance(time.Minute)
	require.NoError(t, f.orch.Tick(ctx))
	assert.Equal(t, calls, f.radio.ConnectCalls())
}

func TestBootstrap_APIFailureIsReported(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{APEstablish: true})
	f.api.startErr = errors.New("address already in use")

	require.NoError(t, f.orch.Bootstrap(context.Background(), true))
	st := f.orch.State()
	assert.False(t, st.ControlAPIActive)
	assert.Equal(t, PhaseAPUp, st.Phase)
	assert.Equal(t, "api failed", f.observer.list()[len(f.observer.list())-1])
}

func TestTick_PumpsAPIAndDiscovery(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{APEstablish: true, DNSEstablish: true})
	ctx := context.Background()
	require.NoError(t, f.orch.Bootstrap(ctx, false))

	require.NoError(t, f.orch.Tick(ctx))
	require.NoError(t, f.orch.Tick(ctx))
	assert.Equal(t, []int{3, 3}, f.api.processed)
	assert.Equal(t, 2, f.discovery.polls)
}

func TestTick_RestartIsLastAction(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{APEstablish: true})
	ctx := context.Background()
	require.NoError(t, f.orch.Bootstrap(ctx, false))

	f.orch.RequestRestart("reset requested")
	f.orch.RequestRestart("second")
	assert.True(t, f.orch.RestartPending())

	err := f.orch.Tick(ctx)
	assert.ErrorIs(t, err, ErrRestarted)
	assert.Len(t, f.api.processed, 1, "queued requests run before the restart")
	assert.Equal(t, []string{"reset requested"}, f.restarter.reasons)
	assert.True(t, f.orch.Restarted())
	assert.False(t, f.orch.RestartPending())
}

func TestSyncTime(t *testing.T) {
	f := newFixture(t, nil)
	assert.True(t, f.orch.State().Timestamp.IsZero())

	require.NoError(t, f.orch.SyncTime(context.Background()))
	assert.Equal(t, f.clock.Now(), f.orch.State().Timestamp)
	assert.Equal(t, f.clock.Now(), f.orch.UpdateTime())
	assert.Contains(t, f.observer.list(), "time synced")
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{APEstablish: true})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.orch.Run(ctx, false) }()

	blockCtx, blockCancel := context.WithTimeout(context.Background(), time.Second)
	defer blockCancel()
	require.NoError(t, f.clock.BlockUntilContext(blockCtx, 1))
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, f.api.started)
	assert.False(t, f.orch.State().ControlAPIActive)
}

func TestRun_SyncsTimeBeforeTicking(t *testing.T) {
	f := newFixture(t, &deviceconfig.Record{WiFiSSID: "home", WiFiEstablish: true})
	f.radio.Networks["home"] = ""
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.orch.Run(ctx, false) }()

	blockCtx, blockCancel := context.WithTimeout(context.Background(), time.Second)
	defer blockCancel()
	require.NoError(t, f.clock.BlockUntilContext(blockCtx, 1))
	assert.Contains(t, f.observer.list(), "time synced")

	cancel()
	require.NoError(t, <-done)
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	obs := Observers{a, NopObserver{}, b, LoggingObserver{}}
	obs.APStarted("x")
	obs.Restarting("y")
	assert.Equal(t, []string{"ap started x", "restarting: y"}, a.list())
	assert.Equal(t, a.list(), b.list())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "WIFI_UP", PhaseWiFiUp.String())
	assert.Equal(t, "Phase(99)", Phase(99).String())
}
