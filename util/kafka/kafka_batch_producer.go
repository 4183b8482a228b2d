package kafka

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/bitnames/bitnames/errors"
	"github.com/bsv-blockchain/go-batcher"
)

type batcherIfc[T any] interface {
	Put(item *T, payloadSize ...int)
	Trigger()
}

type batchMessage struct {
	msg  *sarama.ProducerMessage
	done chan error
}

// BatchedKafkaProducer collects concurrent sends into one SendMessages call. Send still
// blocks until its own message is acknowledged or failed.
type BatchedKafkaProducer struct {
	producer *SyncKafkaProducer
	batcher  batcherIfc[batchMessage]
}

func NewBatchedKafkaProducer(producer *SyncKafkaProducer, size int, duration time.Duration) *BatchedKafkaProducer {
	b := &BatchedKafkaProducer{producer: producer}
	b.batcher = batcher.New[batchMessage](size, duration, b.sendBatch, true)

	return b
}

func (b *BatchedKafkaProducer) Send(key []byte, data []byte) error {
	done := make(chan error, 1)

	b.batcher.Put(&batchMessage{
		msg:  b.producer.message(key, data),
		done: done,
	})

	return <-done
}

func (b *BatchedKafkaProducer) Close() error {
	return b.producer.Close()
}

func (b *BatchedKafkaProducer) sendBatch(batch []*batchMessage) {
	if len(batch) == 0 {
		return
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(batch))
	for _, item := range batch {
		msgs = append(msgs, item.msg)
	}

	err := b.producer.Producer.SendMessages(msgs)
	if err == nil {
		b.producer.count(metricMessagesSent, len(batch))

		for _, item := range batch {
			item.done <- nil
		}

		return
	}

	// failed messages are reported one by one, the others went through
	failed := make(map[*sarama.ProducerMessage]error)

	var producerErrs sarama.ProducerErrors
	if errors.As(err, &producerErrs) {
		for _, pErr := range producerErrs {
			failed[pErr.Msg] = pErr.Err
		}
	}

	sent := 0

	for _, item := range batch {
		msgErr, ok := failed[item.msg]

		switch {
		case ok:
			item.done <- errors.NewServiceError("failed to send message to kafka topic %s", b.producer.Topic, msgErr)
		case len(failed) == 0:
			item.done <- errors.NewServiceError("failed to send batch to kafka topic %s", b.producer.Topic, err)
		default:
			sent++
			item.done <- nil
		}
	}

	b.producer.count(metricMessagesSent, sent)
	b.producer.count(metricSendErrors, len(batch)-sent)
}

// Stats returns the number of messages sent and of failed sends.
func (b *BatchedKafkaProducer) Stats() (sent, failed int64) {
	return b.producer.Stats()
}
