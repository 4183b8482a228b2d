package httpimpl

import (
	"strconv"

	"github.com/bitnames/bitnames/errors"
	"github.com/labstack/echo/v4"
)

const (
	defaultLimit = 20
	maxLimit     = 1000
)

type Pagination struct {
	Offset       int `json:"offset"`
	Limit        int `json:"limit"`
	TotalRecords int `json:"totalRecords"`
}

type ExtendedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// getLimitOffset reads the offset and limit query parameters. Limit defaults to 20 and is
// capped at 1000.
func getLimitOffset(c echo.Context) (int, int, error) {
	offset := 0

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		var err error

		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, errors.NewInvalidArgumentError("invalid offset %q", offsetStr)
		}
	}

	limit := defaultLimit

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		var err error

		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return 0, 0, errors.NewInvalidArgumentError("invalid limit %q", limitStr)
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return offset, limit, nil
}
