package httpimpl

import (
	"net/http"

	"github.com/bitnames/bitnames/errors"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Status int    `json:"status"`
	Code   string `json:"code"`
	Err    string `json:"error"`
}

// sendError writes err as JSON. A zero status is derived from the error code.
func sendError(c echo.Context, status int, err error) error {
	code := "UNKNOWN"

	var tErr *errors.Error
	if errors.As(err, &tErr) {
		code = tErr.Code().String()
	}

	if status == 0 {
		status = errorStatus(err)
	}

	return c.JSON(status, &errorResponse{
		Status: status,
		Code:   code,
		Err:    err.Error(),
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidArgument), errors.Is(err, errors.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrStorageUnavailable), errors.Is(err, errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
