// Package httpimpl serves the read only asset API: unspent outputs by address, the BitName
// registry and the sidechain tip.
package httpimpl

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/services/asset/repository"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ordishs/gocore"
)

var AssetStat = gocore.NewStat("Asset")

type HTTP struct {
	logger     ulogger.Logger
	settings   *settings.Settings
	repository repository.Interface
	e          *echo.Echo
	startTime  time.Time
}

// New registers the routes:
//
//	GET /alive
//	GET /health
//	GET /api/v1/tip[/json]
//	GET /api/v1/utxos/:address[/json|/csv]
//	GET /api/v1/bitname/:key[/json]
//	GET /api/v1/bitnames[/json|/csv]?offset=&limit=
func New(logger ulogger.Logger, tSettings *settings.Settings, repo repository.Interface) (*HTTP, error) {
	initPrometheusMetrics()

	if repo == nil {
		return nil, errors.NewConfigurationError("[Asset_http] repository is required")
	}

	e := echo.New()
	e.Debug = tSettings.Asset.EchoDebug
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.OPTIONS},
	}))

	e.Use(middleware.Gzip())

	if e.Debug {
		e.Use(requestLoggerMiddleware(logger))
	}

	h := &HTTP{
		logger:     logger,
		settings:   tSettings,
		repository: repo,
		e:          e,
		startTime:  time.Now(),
	}

	e.GET("/alive", h.alive)
	e.GET("/health", h.health)

	apiGroup := e.Group("/api/v1")

	apiGroup.GET("/tip", h.GetTip(JSON))
	apiGroup.GET("/tip/json", h.GetTip(JSON))

	apiGroup.GET("/utxos/:address", h.GetUtxosByAddress(JSON))
	apiGroup.GET("/utxos/:address/json", h.GetUtxosByAddress(JSON))
	apiGroup.GET("/utxos/:address/csv", h.GetUtxosByAddress(CSV))

	apiGroup.GET("/bitname/:key", h.GetBitName(JSON))
	apiGroup.GET("/bitname/:key/json", h.GetBitName(JSON))

	apiGroup.GET("/bitnames", h.ListBitNames(JSON))
	apiGroup.GET("/bitnames/json", h.ListBitNames(JSON))
	apiGroup.GET("/bitnames/csv", h.ListBitNames(CSV))

	return h, nil
}

func (h *HTTP) Init(_ context.Context) error {
	return nil
}

// Start listens on addr, closes readyCh once the listener is bound and serves until ctx is done.
func (h *HTTP) Start(ctx context.Context, addr string, readyCh chan<- struct{}) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.NewServiceError("[Asset_http] failed to listen on %s", addr, err)
	}

	h.e.Listener = lis

	h.logger.Infof("[Asset_http] HTTP service listening on %s", lis.Addr())

	if readyCh != nil {
		close(readyCh)
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Infof("[Asset_http] HTTP service shutting down")

		if err := h.e.Shutdown(shutdownCtx); err != nil {
			h.logger.Errorf("[Asset_http] HTTP service shutdown error: %s", err)
		}
	}()

	if err = h.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.NewServiceError("[Asset_http] HTTP service failed", err)
	}

	return nil
}

func (h *HTTP) Stop(ctx context.Context) error {
	return h.e.Shutdown(ctx)
}

// Addr returns the bound address once Start has been called.
func (h *HTTP) Addr() string {
	if h.e.Listener == nil {
		return ""
	}

	return h.e.Listener.Addr().String()
}

func (h *HTTP) alive(c echo.Context) error {
	return c.String(http.StatusOK, "Asset service is alive. Uptime: "+time.Since(h.startTime).Round(time.Second).String())
}

func (h *HTTP) health(c echo.Context) error {
	status, details, err := h.repository.Health(c.Request().Context(), false)
	if err != nil {
		return sendError(c, http.StatusServiceUnavailable, err)
	}

	return c.String(status, details)
}

func requestLoggerMiddleware(logger ulogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Debugf("[Asset_http] %s %s %d in %s", c.Request().Method, c.Request().URL.Path, c.Response().Status, time.Since(start))

			return err
		}
	}
}
