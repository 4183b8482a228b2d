// Package daemon wires the sidechain node together and runs it under the service manager,
// with health and prometheus endpoints on a side HTTP server.
package daemon

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/services/mainchain"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/servicemanager"
	"github.com/bitnames/bitnames/util/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Daemon struct {
	Ctx           context.Context
	doneCh        chan struct{}
	closeDoneOnce sync.Once

	stopCh        chan struct{} // closed when all services have stopped
	closeStopOnce sync.Once

	serverMu       sync.Mutex
	server         *http.Server
	healthAddress  string
	ServiceManager *servicemanager.ServiceManager
	loggerFactory  func(serviceName string) ulogger.Logger

	// injected by options, built from settings otherwise
	utxoStore utxo.Store
	mainchain mainchain.Interface

	closers []func() error
}

func New(opts ...Option) *Daemon {
	d := &Daemon{
		Ctx:    context.Background(),
		doneCh: make(chan struct{}),
		stopCh: make(chan struct{}),
		loggerFactory: func(serviceName string) ulogger.Logger {
			return ulogger.New(serviceName)
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	d.ServiceManager = servicemanager.NewServiceManager(d.Ctx, d.loggerFactory("ServiceManager"))

	return d
}

// Start builds the node and blocks until the services stop or Stop is called. readyCh is
// closed once every service is ready.
func (d *Daemon) Start(logger ulogger.Logger, tSettings *settings.Settings, readyCh ...chan struct{}) {
	sm := d.ServiceManager

	if tSettings.TracingEnabled {
		logger.Infof("Starting tracer")

		if err := tracing.InitTracer(tSettings); err != nil {
			logger.Warnf("failed to initialize tracer: %v", err)
		}
	}

	if err := d.startServices(sm.Ctx, logger, tSettings, sm); err != nil {
		logger.Errorf("error starting services: %v", err)
		sm.ForceShutdown()
		d.closeDoneOnce.Do(func() { close(d.doneCh) })
	}

	server := d.startHTTPServer(logger, tSettings, sm)

	if len(readyCh) > 0 && readyCh[0] != nil {
		go func() {
			if err := sm.WaitForServiceToBeReady(sm.Ctx); err != nil {
				logger.Warnf("services not ready: %v", err)
				return
			}

			close(readyCh[0])
		}()
	}

	waitErr := make(chan error, 1)

	go func() {
		waitErr <- sm.Wait()
	}()

	select {
	case err := <-waitErr:
		if err != nil {
			logger.Errorf("services failed: %v", err)
		}

		d.shutdownHTTPServer(logger, server)
	case <-d.doneCh:
		logger.Infof("daemon shutdown requested")

		d.shutdownHTTPServer(logger, server)

		sm.ForceShutdown()

		logger.Infof("daemon shutdown waiting for services to finish")

		if err := <-waitErr; err != nil {
			logger.Errorf("error during service shutdown: %v", err)
		}
	}

	d.close(logger)

	if tSettings.TracingEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracing.ShutdownTracer(ctx); err != nil {
			logger.Warnf("failed to shut down tracer: %v", err)
		}
		cancel()
	}

	logger.Infof("daemon shutdown completed")

	d.closeStopOnce.Do(func() { close(d.stopCh) })
}

// Stop asks Start to shut down and waits up to timeout, 10 seconds by default, for it to finish.
func (d *Daemon) Stop(timeout ...time.Duration) error {
	d.closeDoneOnce.Do(func() { close(d.doneCh) })

	shutdownTimeout := 10 * time.Second
	if len(timeout) > 0 {
		shutdownTimeout = timeout[0]
	}

	select {
	case <-d.stopCh:
		return nil
	case <-time.After(shutdownTimeout):
		return errors.NewProcessingError("timeout waiting for services to stop after %v", shutdownTimeout)
	}
}

func (d *Daemon) startHTTPServer(logger ulogger.Logger, tSettings *settings.Settings, sm *servicemanager.ServiceManager) *http.Server {
	address := tSettings.HealthCheckHTTPListenAddress
	if address == "" {
		return nil
	}

	mux := http.NewServeMux()

	healthFunc := func(liveness bool) func(http.ResponseWriter, *http.Request) {
		return func(w http.ResponseWriter, r *http.Request) {
			status, details, err := sm.HealthHandler(r.Context(), liveness)
			if err != nil {
				status = http.StatusServiceUnavailable
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(details))
		}
	}

	mux.HandleFunc("/health", healthFunc(false))
	mux.HandleFunc("/health/readiness", healthFunc(false))
	mux.HandleFunc("/health/liveness", healthFunc(true))

	if tSettings.PrometheusEndpoint != "" {
		mux.Handle(tSettings.PrometheusEndpoint, promhttp.Handler())
	}

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	lis, err := net.Listen("tcp", address)
	if err != nil {
		logger.Errorf("health check endpoint failed to listen on %s: %v", address, err)
		return nil
	}

	d.serverMu.Lock()
	d.server = server
	d.healthAddress = lis.Addr().String()
	d.serverMu.Unlock()

	go func() {
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("health check endpoint failed: %v", err)
		}
	}()

	logger.Infof("Health check endpoint listening on http://%s/health", lis.Addr())

	return server
}

func (d *Daemon) shutdownHTTPServer(logger ulogger.Logger, server *http.Server) {
	if server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warnf("error shutting down health check server: %v", err)
	}
}

// HealthAddress returns the address the health endpoint listens on, or "" when disabled.
func (d *Daemon) HealthAddress() string {
	d.serverMu.Lock()
	defer d.serverMu.Unlock()

	return d.healthAddress
}

func (d *Daemon) close(logger ulogger.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.Warnf("error closing resource: %v", err)
		}
	}

	d.closers = nil
}
