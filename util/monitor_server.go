package util

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// MonitorServer serves the status and control API. The router survives
// restarts so routes only need adding once.
type MonitorServer struct {
	running *sync.Mutex
	srv     *http.Server
	srvMu   sync.RWMutex // protects srv field
	router  *echo.Echo
	addr    func() string
}

func NewMonitorServer() *MonitorServer {
	var s MonitorServer
	s.running = &sync.Mutex{}
	s.srv = &http.Server{}
	s.router = newRouter()
	s.addr = func() string { return fmt.Sprintf(":%d", Config.GetInt("details_port")) }
	return &s
}

func newRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			Logger.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	return e
}

func (s *MonitorServer) Router() *echo.Echo {
	return s.router
}

func (s *MonitorServer) Start() error {
	if !s.running.TryLock() {
		return fmt.Errorf("already running")
	} else {
		s.running.Unlock()
	}
	go func() {
		s.running.Lock()

		newSrv := &http.Server{Addr: s.addr(), Handler: s.router}
		s.srvMu.Lock()
		s.srv = newSrv
		s.srvMu.Unlock()

		if err := newSrv.ListenAndServe(); err != http.ErrServerClosed {
			Logger.Warn().Msgf("Problem loading monitor server: %v", err)
		}
		Logger.Debug().Msg("monitor server shutdown")
		s.running.Unlock()
	}()
	return nil
}

func (s *MonitorServer) AddHandler(method, path string, handler echo.HandlerFunc) {
	s.router.Add(method, path, handler)
}

func (s *MonitorServer) AddRawHandler(path string, handler http.Handler) {
	s.router.Any(path, echo.WrapHandler(handler))
}

// Shutdown stops the listener and waits for the serve loop to exit.
func (s *MonitorServer) Shutdown(ctx context.Context) error {
	var err error
	if !s.running.TryLock() {
		s.srvMu.RLock()
		currentSrv := s.srv
		s.srvMu.RUnlock()
		if currentSrv != nil {
			err = currentSrv.Shutdown(ctx)
		}
		s.running.Lock() // released by the serve goroutine
	}
	s.running.Unlock()
	return err
}

func (s *MonitorServer) Restart() {
	Logger.Debug().Msg("restarting monitor server")
	if err := s.Shutdown(context.TODO()); err != nil {
		Logger.Error().Msgf("Error shutting down monitor server: %v", err)
	}
	Logger.Debug().Msg("http not running - good for startup")
	if err := s.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
}
