package health_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/util/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(context.Context, bool) (int, string, error) {
	return http.StatusOK, "fine", nil
}

func nestedCheck(context.Context, bool) (int, string, error) {
	return http.StatusOK, `{"resource": "inner"}`, nil
}

func failingCheck(context.Context, bool) (int, string, error) {
	return http.StatusServiceUnavailable, "down", errors.NewStorageUnavailableError("db down")
}

func TestCheckAll(t *testing.T) {
	status, body, err := health.CheckAll(context.Background(), false, []health.Check{
		{Name: "ok", Check: okCheck},
		{Name: "nested", Check: nestedCheck},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"message": "fine"`)
	assert.Contains(t, body, `"dependencies": [{"resource": "inner"}]`)

	status, body, err = health.CheckAll(context.Background(), true, []health.Check{
		{Name: "ok", Check: okCheck},
		{Name: "db", Check: failingCheck},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "db down")
}

func TestCheckAllEmpty(t *testing.T) {
	status, body, err := health.CheckAll(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"status":"200", "dependencies":[]}`, body)
}
