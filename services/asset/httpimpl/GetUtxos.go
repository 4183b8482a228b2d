package httpimpl

import (
	"net/http"
	"strconv"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/util/tracing"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
)

// UTXOItem is the JSON and CSV form of an unspent output.
type UTXOItem struct {
	TxID         string `json:"txid" csv:"txid"`
	Vout         uint32 `json:"vout" csv:"vout"`
	Address      string `json:"address" csv:"address"`
	Value        uint64 `json:"value" csv:"value"`
	BitNameKey   string `json:"bitnameKey,omitempty" csv:"bitname_key"`
	BitNameValue string `json:"bitnameValue,omitempty" csv:"bitname_value"`
}

func newUTXOItem(u *model.Utxo) *UTXOItem {
	item := &UTXOItem{
		TxID:    u.OutPoint.TxID.String(),
		Vout:    u.OutPoint.Vout,
		Address: u.Output.Address.String(),
		Value:   u.Output.Value,
	}

	if u.Output.IsBitName() {
		item.BitNameKey = u.Output.BitName.Key.String()
		item.BitNameValue = u.Output.BitName.Value.String()
	}

	return item
}

// GetUtxosByAddress returns the unspent outputs of a base58 address, sorted by outpoint.
// Provisionally spent outputs are left out.
func (h *HTTP) GetUtxosByAddress(mode ReadMode) func(c echo.Context) error {
	return func(c echo.Context) error {
		addressStr := c.Param("address")

		ctx, _, deferFn := tracing.Tracer("asset").Start(c.Request().Context(), "GetUtxosByAddress_http",
			tracing.WithParentStat(AssetStat),
			tracing.WithHistogram(prometheusAssetHTTPRequestTime),
		)
		defer deferFn()

		address, err := model.NewAddressFromString(addressStr)
		if err != nil {
			prometheusAssetHTTPGetUtxos.WithLabelValues(mode.String(), "400").Inc()
			return sendError(c, http.StatusBadRequest, err)
		}

		utxos, err := h.repository.GetUtxosByAddress(ctx, address)
		if err != nil {
			h.logger.Errorf("[Asset_http][%s] GetUtxosByAddress error: %v", address, err)

			status := errorStatus(err)
			prometheusAssetHTTPGetUtxos.WithLabelValues(mode.String(), strconv.Itoa(status)).Inc()

			return sendError(c, status, err)
		}

		items := make([]*UTXOItem, 0, len(utxos))
		for _, u := range utxos {
			items = append(items, newUTXOItem(u))
		}

		prometheusAssetHTTPGetUtxos.WithLabelValues(mode.String(), "200").Inc()

		return respond(c, mode, items)
	}
}

// respond renders items as JSON or CSV. items must be a slice for CSV.
func respond(c echo.Context, mode ReadMode, items interface{}) error {
	switch mode {
	case JSON:
		return c.JSONPretty(http.StatusOK, items, "  ")
	case CSV:
		b, err := gocsv.MarshalBytes(items)
		if err != nil {
			return sendError(c, http.StatusInternalServerError, errors.NewProcessingError("failed to encode csv", err))
		}

		return c.Blob(http.StatusOK, "text/csv; charset=UTF-8", b)
	default:
		return sendError(c, http.StatusBadRequest, errors.NewInvalidArgumentError("bad read mode %s", mode))
	}
}
