// Package asset serves a read only HTTP view of the sidechain: balances by address, the
// BitName registry and the tip.
package asset

import (
	"context"
	"net/http"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/services/asset/httpimpl"
	"github.com/bitnames/bitnames/services/asset/repository"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/health"
)

type Server struct {
	logger     ulogger.Logger
	settings   *settings.Settings
	utxoStore  utxo.Store
	tipper     repository.Tipper
	httpServer *httpimpl.HTTP
}

func New(logger ulogger.Logger, tSettings *settings.Settings, utxoStore utxo.Store, tipper repository.Tipper) *Server {
	return &Server{
		logger:    logger,
		settings:  tSettings,
		utxoStore: utxoStore,
		tipper:    tipper,
	}
}

func (s *Server) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "UTXOStore", Check: s.utxoStore.Health},
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

func (s *Server) Init(ctx context.Context) error {
	repo, err := repository.NewRepository(s.logger, s.utxoStore, s.tipper)
	if err != nil {
		return errors.NewServiceError("[Asset] error creating repository", err)
	}

	s.httpServer, err = httpimpl.New(s.logger, s.settings, repo)
	if err != nil {
		return errors.NewServiceError("[Asset] error creating http server", err)
	}

	return s.httpServer.Init(ctx)
}

// Start serves the HTTP API on asset_httpListenAddress until ctx is done.
func (s *Server) Start(ctx context.Context, readyCh chan<- struct{}) error {
	if s.httpServer == nil {
		return errors.NewServiceError("[Asset] Start called before Init")
	}

	return s.httpServer.Start(ctx, s.settings.Asset.HTTPListenAddress, readyCh)
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Stop(ctx)
}

// Addr returns the address the HTTP server is bound to.
func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}

	return s.httpServer.Addr()
}
