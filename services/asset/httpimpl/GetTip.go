package httpimpl

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type TipResponse struct {
	Hash   string `json:"hash"`
	Height uint32 `json:"height"`
}

// GetTip returns the last connected sidechain block. Only JSON is served.
func (h *HTTP) GetTip(mode ReadMode) func(c echo.Context) error {
	return func(c echo.Context) error {
		hash, height := h.repository.GetTip()

		prometheusAssetHTTPGetTip.WithLabelValues(mode.String(), "200").Inc()

		return c.JSONPretty(http.StatusOK, &TipResponse{Hash: hash.String(), Height: height}, "  ")
	}
}
