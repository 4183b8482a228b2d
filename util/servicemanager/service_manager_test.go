package servicemanager

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mu        sync.Mutex
	name      string
	startErr  error
	initErr   error
	healthy   bool
	started   bool
	stopped   bool
	stopOrder *[]string
}

func (m *mockService) Health(_ context.Context, _ bool) (int, string, error) {
	if m.healthy {
		return http.StatusOK, `{"resource": "mock"}`, nil
	}

	return http.StatusServiceUnavailable, "", errors.NewServiceUnavailableError("down")
}

func (m *mockService) Init(_ context.Context) error {
	return m.initErr
}

func (m *mockService) Start(ctx context.Context, readyCh chan<- struct{}) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()

	if m.startErr != nil {
		return m.startErr
	}

	close(readyCh)

	<-ctx.Done()

	return nil
}

func (m *mockService) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true

	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}

	return nil
}

func TestServiceManager_StartAndStop(t *testing.T) {
	sm := NewServiceManager(context.Background(), ulogger.TestLogger{})

	var order []string

	first := &mockService{name: "first", healthy: true, stopOrder: &order}
	second := &mockService{name: "second", healthy: true, stopOrder: &order}

	require.NoError(t, sm.AddService("first", first))
	require.NoError(t, sm.AddService("second", second))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, sm.WaitForServiceToBeReady(ctx))
	assert.Empty(t, sm.ServicesNotReady())

	status, body, err := sm.HealthHandler(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"service": "first"`)

	sm.ForceShutdown()
	require.NoError(t, sm.Wait())

	assert.True(t, first.stopped)
	assert.True(t, second.stopped)
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestServiceManager_StartError(t *testing.T) {
	sm := NewServiceManager(context.Background(), ulogger.TestLogger{})

	failing := &mockService{name: "failing", startErr: errors.NewServiceError("cannot start")}
	require.NoError(t, sm.AddService("failing", failing))

	err := sm.Wait()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceError))
	assert.True(t, failing.stopped)
}

func TestServiceManager_InitError(t *testing.T) {
	sm := NewServiceManager(context.Background(), ulogger.TestLogger{})
	defer sm.ForceShutdown()

	err := sm.AddService("broken", &mockService{initErr: errors.NewConfigurationError("bad config")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestServiceManager_UnhealthyService(t *testing.T) {
	sm := NewServiceManager(context.Background(), ulogger.TestLogger{})

	require.NoError(t, sm.AddService("healthy", &mockService{healthy: true}))
	require.NoError(t, sm.AddService("sick", &mockService{healthy: false}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, sm.WaitForServiceToBeReady(ctx))

	status, body, err := sm.HealthHandler(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, `"service": "sick"`)

	sm.ForceShutdown()
	require.NoError(t, sm.Wait())
}
