package httpimpl

import (
	"net/http"
	"strconv"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/util/tracing"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/labstack/echo/v4"
)

type BitNameItem struct {
	Key   string `json:"key" csv:"key"`
	Value string `json:"value" csv:"value"`
}

func newBitNameItem(name model.BitName) *BitNameItem {
	return &BitNameItem{Key: name.Key.String(), Value: name.Value.String()}
}

// GetBitName looks up a registered key, given as a 64 character hex hash.
func (h *HTTP) GetBitName(mode ReadMode) func(c echo.Context) error {
	return func(c echo.Context) error {
		keyStr := c.Param("key")

		ctx, _, deferFn := tracing.Tracer("asset").Start(c.Request().Context(), "GetBitName_http",
			tracing.WithParentStat(AssetStat),
			tracing.WithHistogram(prometheusAssetHTTPRequestTime),
		)
		defer deferFn()

		if len(keyStr) != 2*chainhash.HashSize {
			prometheusAssetHTTPGetBitName.WithLabelValues(mode.String(), "400").Inc()
			return sendError(c, http.StatusBadRequest, errors.NewInvalidArgumentError("invalid bitname key length"))
		}

		key, err := chainhash.NewHashFromStr(keyStr)
		if err != nil {
			prometheusAssetHTTPGetBitName.WithLabelValues(mode.String(), "400").Inc()
			return sendError(c, http.StatusBadRequest, errors.NewInvalidArgumentError("invalid bitname key format", err))
		}

		name, err := h.repository.GetBitName(ctx, *key)
		if err != nil {
			status := errorStatus(err)
			prometheusAssetHTTPGetBitName.WithLabelValues(mode.String(), strconv.Itoa(status)).Inc()

			return sendError(c, status, err)
		}

		prometheusAssetHTTPGetBitName.WithLabelValues(mode.String(), "200").Inc()

		return respond(c, mode, newBitNameItem(*name))
	}
}

// ListBitNames pages through the registry in key order.
func (h *HTTP) ListBitNames(mode ReadMode) func(c echo.Context) error {
	return func(c echo.Context) error {
		ctx, _, deferFn := tracing.Tracer("asset").Start(c.Request().Context(), "ListBitNames_http",
			tracing.WithParentStat(AssetStat),
			tracing.WithHistogram(prometheusAssetHTTPRequestTime),
		)
		defer deferFn()

		offset, limit, err := getLimitOffset(c)
		if err != nil {
			prometheusAssetHTTPListNames.WithLabelValues(mode.String(), "400").Inc()
			return sendError(c, http.StatusBadRequest, err)
		}

		names, total, err := h.repository.ListBitNames(ctx, offset, limit)
		if err != nil {
			status := errorStatus(err)
			prometheusAssetHTTPListNames.WithLabelValues(mode.String(), strconv.Itoa(status)).Inc()

			return sendError(c, status, err)
		}

		items := make([]*BitNameItem, 0, len(names))
		for _, name := range names {
			items = append(items, newBitNameItem(name))
		}

		prometheusAssetHTTPListNames.WithLabelValues(mode.String(), "200").Inc()

		if mode == CSV {
			return respond(c, mode, items)
		}

		return c.JSONPretty(http.StatusOK, &ExtendedResponse{
			Data: items,
			Pagination: Pagination{
				Offset:       offset,
				Limit:        limit,
				TotalRecords: total,
			},
		}, "  ")
	}
}
