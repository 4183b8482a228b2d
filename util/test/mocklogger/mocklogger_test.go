package mocklogger

import (
	"sync"
	"testing"

	"github.com/bitnames/bitnames/ulogger"
	"github.com/stretchr/testify/assert"
)

func TestCountsCalls(t *testing.T) {
	logger := NewTestLogger()

	logger.Infof("one")
	logger.Infof("two %d", 2)
	logger.Warnf("careful")

	logger.AssertNumberOfCalls(t, "Infof", 2)
	logger.AssertNumberOfCalls(t, "Warnf", 1)
	logger.AssertNumberOfCalls(t, "Errorf", 0)

	assert.True(t, logger.Contains("Infof", "two 2"))
	assert.False(t, logger.Contains("Warnf", "two"))

	logger.Reset()
	logger.AssertNumberOfCalls(t, "Infof", 0)
}

func TestChildLoggersShareCounts(t *testing.T) {
	logger := NewTestLogger()

	child := logger.New("child", ulogger.WithLevel("debug"))
	child.Errorf("from child")

	assert.Same(t, logger, logger.Duplicate())
	logger.AssertNumberOfCalls(t, "Errorf", 1)
}

func TestConcurrentLogging(t *testing.T) {
	logger := NewTestLogger()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			logger.Debugf("concurrent")
		}()
	}

	wg.Wait()

	logger.AssertNumberOfCalls(t, "Debugf", 50)
}
