package server

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/logging"
	"github.com/onebiot/onebiot/internal/metrics"
	"github.com/onebiot/onebiot/internal/router"
	"github.com/onebiot/onebiot/internal/template"
)

const authRealm = `Basic realm="onebiot"`

func (s *Server) handleCommand(c echo.Context) error {
	r := c.Request()
	if !s.router.Match(r.Method, r.URL.Path) {
		return echo.ErrNotFound
	}

	form, err := c.FormParams()
	if err != nil {
		return c.JSON(http.StatusBadRequest, router.Envelope{Success: false, Message: "Malformed form data"})
	}

	req := router.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Form:   form,
	}
	req.User, req.Password, req.HasAuth = r.BasicAuth()

	start := time.Now()
	var (
		resp  router.Response
		found bool
	)
	if err := s.submit(r.Context(), func() { resp, found = s.router.Dispatch(req) }); err != nil {
		logging.Warn("Command not executed",
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return c.JSON(http.StatusServiceUnavailable, router.Envelope{Success: false, Message: faults.ShortMessage(err)})
	}
	if !found {
		return echo.ErrNotFound
	}

	metrics.CommandsTotal.WithLabelValues(resp.Route, metrics.Result(resp.Envelope.Success)).Inc()
	metrics.CommandDuration.WithLabelValues(resp.Route).Observe(time.Since(start).Seconds())

	if resp.Status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, authRealm)
	}
	return c.JSON(resp.Status, resp.Envelope)
}

// handleStatic serves files from storage. HTML pages are rendered through
// the template engine with the option table as tokens.
func (s *Server) handleStatic(c echo.Context) error {
	name := path.Clean("/" + c.Request().URL.Path)
	if name == "/" {
		name = IndexPath
	}
	if s.hidden[name] || !s.fs.Mounted() || !s.fs.Exists(name) {
		return echo.ErrNotFound
	}

	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return echo.ErrNotFound
		}
		return err
	}
	defer func() { _ = f.Close() }()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	if !strings.HasSuffix(name, ".html") {
		return c.Stream(http.StatusOK, contentType, f)
	}

	// options are read on the loop, the page is streamed here
	var opts map[string]string
	if err := s.submit(c.Request().Context(), func() { opts = s.router.Options() }); err != nil {
		return c.JSON(http.StatusServiceUnavailable, router.Envelope{Success: false, Message: faults.ShortMessage(err)})
	}

	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	if err := template.Render(c.Response(), f, func(key string) string { return opts[key] }); err != nil {
		logging.Error("Page rendering aborted",
			zap.String("path", name),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && (he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed) {
		if err := c.String(http.StatusNotFound, NotFoundText); err != nil {
			logging.Debug("Failed to write not found response", zap.Error(err))
		}
		return
	}
	s.echo.DefaultHTTPErrorHandler(err, c)
}

func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiter.Allow() {
			metrics.RateLimitedTotal.Inc()
			return c.JSON(http.StatusTooManyRequests, router.Envelope{Success: false, Message: "Too many requests"})
		}
		return next(c)
	}
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		r := c.Request()
		logging.LogHTTPRequest(id, c.RealIP(), r.Method, r.URL.Path)

		if err := next(c); err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		logging.LogHTTPResponse(id, c.RealIP(), status, status < http.StatusBadRequest)
		return nil
	}
}
