package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/logging"
	"github.com/onebiot/onebiot/internal/metrics"
	"github.com/onebiot/onebiot/internal/router"
	"github.com/onebiot/onebiot/internal/storage"
)

const (
	// NotFoundText is the body of every 404 response.
	NotFoundText = "The content you are looking for was not found."

	// IndexPath is the storage file served at /.
	IndexPath = "/index.html"

	DefaultRequestTimeout = 5 * time.Second
	DefaultQueueSize      = 16
)

// Config holds the HTTP transport configuration.
type Config struct {
	Host string
	Port int
	// RequestsPerSecond limits /cmd requests; zero disables the limit.
	RequestsPerSecond float64
	Burst             int
	// RequestTimeout bounds how long a request waits for the loop.
	RequestTimeout time.Duration
	QueueSize      int
	// Hidden lists storage files never served, such as the settings record.
	Hidden []string
}

type job struct {
	ctx  context.Context
	run  func()
	done chan struct{}
}

// Server is the HTTP control API. Handlers run on echo's goroutines but
// never touch the router directly: each command is queued as a job and run
// by Process on the loop goroutine.
type Server struct {
	config  Config
	echo    *echo.Echo
	router  *router.Router
	fs      storage.FS
	limiter *rate.Limiter
	jobs    chan *job
	hidden  map[string]bool

	mu      sync.Mutex
	running bool
	serveWG sync.WaitGroup
}

// New creates the transport for r. Static pages are read from fsys.
func New(config Config, r *router.Router, fsys storage.FS) *Server {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}

	s := &Server{
		config:  config,
		echo:    e,
		router:  r,
		fs:      fsys,
		limiter: rate.NewLimiter(limit, config.Burst),
		jobs:    make(chan *job, config.QueueSize),
		hidden:  make(map[string]bool, len(config.Hidden)),
	}
	for _, name := range config.Hidden {
		s.hidden[path.Clean("/"+name)] = true
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(s.logRequests)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: []string{"*"}}))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.Any("/cmd/*", s.handleCommand, s.rateLimit)
	s.echo.GET("/*", s.handleStatic)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.echo.ListenerAddr()
}

// Start binds the listener and serves in the background. Bind errors are
// returned synchronously.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return faults.NewIOError("listen", fmt.Sprintf("cannot listen on %s", addr), err)
	}
	s.echo.Listener = ln
	s.running = true

	logging.Info("Control API listening", zap.String("addr", ln.Addr().String()))

	s.serveWG.Add(1)
	go func() {
		defer s.serveWG.Done()
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Control API stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the HTTP server down and fails every queued job.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := s.running
	s.running = false
	s.mu.Unlock()
	if !running {
		return nil
	}

	err := s.echo.Shutdown(ctx)
	s.serveWG.Wait()
	s.drain()
	logging.Info("Control API stopped")
	return err
}

// Process runs at most max queued jobs without blocking and returns how
// many ran. Jobs whose request already gave up are skipped.
func (s *Server) Process(ctx context.Context, max int) int {
	ran := 0
	for ran < max {
		if ctx.Err() != nil {
			break
		}
		select {
		case j := <-s.jobs:
			if j.ctx.Err() == nil {
				j.run()
				ran++
			}
			close(j.done)
		default:
			metrics.QueueDepth.Set(float64(len(s.jobs)))
			return ran
		}
	}
	metrics.QueueDepth.Set(float64(len(s.jobs)))
	return ran
}

func (s *Server) drain() {
	for {
		select {
		case j := <-s.jobs:
			close(j.done)
		default:
			metrics.QueueDepth.Set(0)
			return
		}
	}
}

// submit queues run for the loop and waits until it has finished or ctx
// ends. A job already picked up when ctx ends still runs; its result is
// discarded.
func (s *Server) submit(ctx context.Context, run func()) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	ran := false
	j := &job{ctx: ctx, run: func() { run(); ran = true }, done: make(chan struct{})}

	select {
	case s.jobs <- j:
		metrics.QueueDepth.Set(float64(len(s.jobs)))
	case <-ctx.Done():
		return faults.NewTimeoutError("submit", "control queue is full", ctx.Err())
	}

	select {
	case <-j.done:
		if !ran {
			return faults.NewTimeoutError("submit", "request expired before it ran", context.DeadlineExceeded)
		}
		return nil
	case <-ctx.Done():
		return faults.NewTimeoutError("submit", "loop did not answer in time", ctx.Err())
	}
}
