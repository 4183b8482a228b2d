package kafka

import (
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/bitnames/bitnames/errors"
	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSyncProducer implements sarama.SyncProducer for testing
type MockSyncProducer struct {
	mu       sync.Mutex
	messages []sarama.ProducerMessage
	batches  int
	closed   bool
	sendErr  error
	failKey  string
}

func (m *MockSyncProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.send(msg)
}

func (m *MockSyncProducer) send(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	if m.sendErr != nil {
		return 0, 0, m.sendErr
	}

	m.messages = append(m.messages, *msg)

	return msg.Partition, int64(len(m.messages)), nil
}

func (m *MockSyncProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches++

	if m.sendErr != nil {
		return m.sendErr
	}

	var errs sarama.ProducerErrors

	for _, msg := range msgs {
		if key, _ := msg.Key.Encode(); m.failKey != "" && string(key) == m.failKey {
			errs = append(errs, &sarama.ProducerError{Msg: msg, Err: sarama.ErrMessageSizeTooLarge})
			continue
		}

		_, _, _ = m.send(msg)
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (m *MockSyncProducer) Close() error {
	m.closed = true
	return nil
}

func (m *MockSyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnFlagReady
}

func (m *MockSyncProducer) IsTransactional() bool { return false }
func (m *MockSyncProducer) BeginTxn() error       { return nil }
func (m *MockSyncProducer) CommitTxn() error      { return nil }
func (m *MockSyncProducer) AbortTxn() error       { return nil }

func (m *MockSyncProducer) AddOffsetsToTxn(map[string][]*sarama.PartitionOffsetMetadata, string) error {
	return nil
}

func (m *MockSyncProducer) AddMessageToTxn(*sarama.ConsumerMessage, string, *string) error {
	return nil
}

func TestSyncKafkaProducerSend(t *testing.T) {
	mockProducer := &MockSyncProducer{}
	producer := &SyncKafkaProducer{
		Producer:   mockProducer,
		Topic:      "bitnames-txs",
		Partitions: 4,
	}

	key := []byte{0x01, 0x02, 0x03, 0x04}

	require.NoError(t, producer.Send(key, []byte("tx-1")))
	require.NoError(t, producer.Send(key, []byte("tx-2")))

	require.Len(t, mockProducer.messages, 2)

	first := mockProducer.messages[0]
	assert.Equal(t, "bitnames-txs", first.Topic)
	assert.Equal(t, sarama.ByteEncoder(key), first.Key)
	assert.Equal(t, sarama.ByteEncoder("tx-1"), first.Value)
	assert.GreaterOrEqual(t, first.Partition, int32(0))
	assert.Less(t, first.Partition, int32(4))

	// same key, same partition
	assert.Equal(t, first.Partition, mockProducer.messages[1].Partition)
}

func TestSyncKafkaProducerSendNoPartitions(t *testing.T) {
	mockProducer := &MockSyncProducer{}
	producer := &SyncKafkaProducer{Producer: mockProducer, Topic: "t"}

	require.NoError(t, producer.Send([]byte("k"), []byte("v")))
	assert.Equal(t, int32(0), mockProducer.messages[0].Partition)
}

func TestSyncKafkaProducerSendError(t *testing.T) {
	mockProducer := &MockSyncProducer{sendErr: sarama.ErrOutOfBrokers}
	producer := &SyncKafkaProducer{Producer: mockProducer, Topic: "t", Partitions: 1, Metrics: metrics.NewRegistry()}

	err := producer.Send([]byte("k"), []byte("v"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceError))

	sent, failed := producer.Stats()
	assert.Equal(t, int64(0), sent)
	assert.Equal(t, int64(1), failed)
}

func TestSyncKafkaProducerStats(t *testing.T) {
	producer := &SyncKafkaProducer{Producer: &MockSyncProducer{}, Topic: "t", Partitions: 1}

	// without a registry nothing is counted
	require.NoError(t, producer.Send([]byte("k"), []byte("v")))
	sent, failed := producer.Stats()
	assert.Zero(t, sent)
	assert.Zero(t, failed)

	producer.Metrics = metrics.NewRegistry()

	require.NoError(t, producer.Send([]byte("k"), []byte("v")))
	require.NoError(t, producer.Send([]byte("k"), []byte("w")))

	sent, _ = producer.Stats()
	assert.Equal(t, int64(2), sent)
}

func TestBatchedKafkaProducer(t *testing.T) {
	mockProducer := &MockSyncProducer{}
	producer := NewBatchedKafkaProducer(&SyncKafkaProducer{
		Producer:   mockProducer,
		Topic:      "bitnames-txs",
		Partitions: 2,
		Metrics:    metrics.NewRegistry(),
	}, 4, 5*time.Millisecond)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			assert.NoError(t, producer.Send([]byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("tx-%d", i))))
		}(i)
	}

	wg.Wait()

	mockProducer.mu.Lock()
	assert.Len(t, mockProducer.messages, 8)
	assert.Less(t, mockProducer.batches, 8)
	mockProducer.mu.Unlock()

	sent, failed := producer.producer.Stats()
	assert.Equal(t, int64(8), sent)
	assert.Zero(t, failed)

	require.NoError(t, producer.Close())
	assert.True(t, mockProducer.closed)
}

func TestBatchedKafkaProducerErrors(t *testing.T) {
	t.Run("one message fails", func(t *testing.T) {
		mockProducer := &MockSyncProducer{failKey: "bad"}
		producer := NewBatchedKafkaProducer(&SyncKafkaProducer{Producer: mockProducer, Topic: "t", Metrics: metrics.NewRegistry()}, 2, 5*time.Millisecond)

		var (
			wg      sync.WaitGroup
			goodErr error
			badErr  error
		)

		wg.Add(2)

		go func() {
			defer wg.Done()
			goodErr = producer.Send([]byte("good"), []byte("v"))
		}()

		go func() {
			defer wg.Done()
			badErr = producer.Send([]byte("bad"), []byte("v"))
		}()

		wg.Wait()

		require.NoError(t, goodErr)
		require.Error(t, badErr)
		assert.True(t, errors.Is(badErr, errors.ErrServiceError))

		sent, failed := producer.producer.Stats()
		assert.Equal(t, int64(1), sent)
		assert.Equal(t, int64(1), failed)
	})

	t.Run("whole batch fails", func(t *testing.T) {
		mockProducer := &MockSyncProducer{sendErr: sarama.ErrOutOfBrokers}
		producer := NewBatchedKafkaProducer(&SyncKafkaProducer{Producer: mockProducer, Topic: "t"}, 2, 5*time.Millisecond)

		err := producer.Send([]byte("k"), []byte("v"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrServiceError))
	})
}

func TestSyncKafkaProducerClose(t *testing.T) {
	mockProducer := &MockSyncProducer{}
	producer := &SyncKafkaProducer{Producer: mockProducer, Topic: "t", Partitions: 1}

	require.NoError(t, producer.Close())
	assert.True(t, mockProducer.closed)
}

func TestNewKafkaProducerNoBroker(t *testing.T) {
	u, err := url.Parse("kafka://localhost:1")
	require.NoError(t, err)

	// no broker is listening, so the cluster admin fails first
	_, _, err = NewKafkaProducer(u)
	require.Error(t, err)
}
