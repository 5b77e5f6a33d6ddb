package timesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/logging"
)

// EpochThreshold is the Unix time the clock must exceed before it is
// considered set.
const EpochThreshold = 1000000000

const (
	DefaultAttempts = 20
	DefaultInterval = 500 * time.Millisecond
	DefaultTimeout  = 15 * time.Second
)

// DefaultServers are queried in order.
var DefaultServers = []string{"pool.ntp.org", "time.nist.gov"}

// Querier asks a time server for the local clock offset.
type Querier interface {
	Query(ctx context.Context, server string) (time.Duration, error)
}

// NTPQuerier queries servers with beevik/ntp.
type NTPQuerier struct {
	Timeout time.Duration
}

// Query implements Querier.
func (q NTPQuerier) Query(ctx context.Context, server string) (time.Duration, error) {
	opts := ntp.QueryOptions{Timeout: q.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); opts.Timeout == 0 || left < opts.Timeout {
			opts.Timeout = left
		}
	}
	if opts.Timeout <= 0 {
		return 0, context.DeadlineExceeded
	}

	resp, err := ntp.QueryWithOptions(server, opts)
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("invalid response from %s: %w", server, err)
	}
	return resp.ClockOffset, nil
}

// Options configures a Syncer.
type Options struct {
	Servers  []string
	Attempts int
	Interval time.Duration
	Timeout  time.Duration
	Clock    clockwork.Clock
	Querier  Querier
}

// Syncer keeps the agent's notion of wall clock time.
type Syncer struct {
	servers  []string
	attempts int
	interval time.Duration
	timeout  time.Duration
	clock    clockwork.Clock
	querier  Querier

	mu     sync.Mutex
	offset time.Duration
	synced bool
}

// New creates a Syncer; zero options take the defaults.
func New(opts Options) *Syncer {
	s := &Syncer{
		servers:  opts.Servers,
		attempts: opts.Attempts,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		clock:    opts.Clock,
		querier:  opts.Querier,
	}
	if len(s.servers) == 0 {
		s.servers = DefaultServers
	}
	if s.attempts <= 0 {
		s.attempts = DefaultAttempts
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.querier == nil {
		s.querier = NTPQuerier{Timeout: 5 * time.Second}
	}
	return s
}

// Sync queries the servers until the corrected clock reads past
// EpochThreshold. It gives up after the configured attempts or timeout,
// or when ctx ends, and never blocks past those bounds.
func (s *Syncer) Sync(ctx context.Context) (time.Time, error) {
	deadline := s.clock.Now().Add(s.timeout)
	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return time.Time{}, faults.NewTimeoutError("timesync", "time sync cancelled", err)
		}

		offset, err := s.queryAny(ctx)
		if err == nil {
			now := s.clock.Now().Add(offset)
			if now.Unix() > EpochThreshold {
				s.mu.Lock()
				s.offset = offset
				s.synced = true
				s.mu.Unlock()

				logging.LogStage(logging.StageTime, "clock synchronized", false,
					zap.Duration("offset", offset),
					zap.Int("attempt", attempt),
					zap.Time("now", now))
				return now, nil
			}
			err = fmt.Errorf("clock still unset at %s", now.UTC().Format(time.RFC3339))
		}
		lastErr = err
		logging.Debug("Time sync attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if attempt == s.attempts {
			break
		}
		if !s.clock.Now().Add(s.interval).Before(deadline) {
			return time.Time{}, faults.NewTimeoutError("timesync",
				fmt.Sprintf("clock not set within %s", s.timeout), lastErr)
		}
		select {
		case <-ctx.Done():
			return time.Time{}, faults.NewTimeoutError("timesync", "time sync cancelled", ctx.Err())
		case <-s.clock.After(s.interval):
		}
	}

	return time.Time{}, faults.NewTimeoutError("timesync",
		fmt.Sprintf("clock not set after %d attempts", s.attempts), lastErr)
}

func (s *Syncer) queryAny(ctx context.Context) (time.Duration, error) {
	var errs []error
	for _, server := range s.servers {
		offset, err := s.querier.Query(ctx, server)
		if err == nil {
			return offset, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", server, err))
	}
	return 0, errors.Join(errs...)
}

// Now returns the corrected current time, or the zero time before the
// first successful Sync.
func (s *Syncer) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.synced {
		return time.Time{}
	}
	return s.clock.Now().Add(s.offset)
}

// Synced reports whether a Sync has succeeded.
func (s *Syncer) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}
