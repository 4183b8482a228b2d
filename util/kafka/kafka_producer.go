// Package kafka publishes accepted transactions to a Kafka topic for relay to other nodes.
package kafka

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/util"
	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
	"github.com/cespare/xxhash"
	"github.com/rcrowley/go-metrics"
)

const (
	metricMessagesSent = "bitnames-relay-messages-sent"
	metricSendErrors   = "bitnames-relay-send-errors"
)

type KafkaProducerI interface {
	Send(key []byte, data []byte) error
	Close() error
}

type SyncKafkaProducer struct {
	Producer   sarama.SyncProducer
	Topic      string
	Partitions int32

	// Metrics is shared with the sarama client, which reports its own producer metrics to it.
	// Nil disables the relay counters.
	Metrics metrics.Registry
}

// Stats returns the number of messages sent and of failed sends.
func (k *SyncKafkaProducer) Stats() (sent, failed int64) {
	if k.Metrics == nil {
		return 0, 0
	}

	return metrics.GetOrRegisterCounter(metricMessagesSent, k.Metrics).Count(),
		metrics.GetOrRegisterCounter(metricSendErrors, k.Metrics).Count()
}

func (k *SyncKafkaProducer) count(name string, n int) {
	if k.Metrics == nil || n == 0 {
		return
	}

	metrics.GetOrRegisterCounter(name, k.Metrics).Inc(int64(n))
}

func (k *SyncKafkaProducer) message(key []byte, data []byte) *sarama.ProducerMessage {
	partitions := k.Partitions
	if partitions <= 0 {
		partitions = 1
	}

	partition := xxhash.Sum64(key) % uint64(partitions)

	return &sarama.ProducerMessage{
		Topic:     k.Topic,
		Key:       sarama.ByteEncoder(key),
		Value:     sarama.ByteEncoder(data),
		Partition: int32(partition), //nolint:gosec // bounded by partitions
	}
}

func (k *SyncKafkaProducer) Close() error {
	if err := k.Producer.Close(); err != nil {
		return errors.NewServiceError("failed to close Kafka producer", err)
	}

	return nil
}

// Send publishes data keyed by key. Messages with the same key always land on the same partition.
func (k *SyncKafkaProducer) Send(key []byte, data []byte) error {
	if _, _, err := k.Producer.SendMessage(k.message(key, data)); err != nil {
		k.count(metricSendErrors, 1)
		return errors.NewServiceError("failed to send message to kafka topic %s", k.Topic, err)
	}

	k.count(metricMessagesSent, 1)

	return nil
}

// NewKafkaProducer creates the topic described by kafkaURL if needed and connects a sync
// producer to it. The URL has the form kafka://host1,host2/topic?partitions=4&replication=1.
func NewKafkaProducer(kafkaURL *url.URL) (sarama.ClusterAdmin, KafkaProducerI, error) {
	brokersURL := strings.Split(kafkaURL.Host, ",")

	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0

	clusterAdmin, err := sarama.NewClusterAdmin(brokersURL, config)
	if err != nil {
		return nil, nil, errors.NewServiceError("error while creating cluster admin", err)
	}

	partitions := util.GetQueryParamInt(kafkaURL, "partitions", 1)
	replicationFactor := util.GetQueryParamInt(kafkaURL, "replication", 1)
	retentionPeriod := util.GetQueryParam(kafkaURL, "retention", "600000")

	partitionsU32, err := safeconversion.IntToUint32(partitions)
	if err != nil {
		return nil, nil, errors.NewConfigurationError("invalid partitions", err)
	}

	partitions32, err := safeconversion.Uint32ToInt32(partitionsU32)
	if err != nil {
		return nil, nil, errors.NewConfigurationError("invalid partitions", err)
	}

	if replicationFactor < 1 || replicationFactor > math.MaxInt16 {
		return nil, nil, errors.NewConfigurationError("invalid replication factor %d", replicationFactor)
	}

	topic := strings.TrimPrefix(kafkaURL.Path, "/")
	if topic == "" {
		return nil, nil, errors.NewConfigurationError("kafka url %s has no topic", kafkaURL.String())
	}

	if err = clusterAdmin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     partitions32,
		ReplicationFactor: int16(replicationFactor),
		ConfigEntries: map[string]*string{
			"retention.ms": &retentionPeriod,
		},
	}, false); err != nil {
		if !errors.Is(err, sarama.ErrTopicAlreadyExists) {
			_ = clusterAdmin.Close()
			return nil, nil, errors.NewServiceError("failed to create topic %s", topic, err)
		}
	}

	producer, err := ConnectProducer(brokersURL, topic, partitions32, util.GetQueryParamInt(kafkaURL, "flush_bytes", 1024))
	if err != nil {
		_ = clusterAdmin.Close()
		return nil, nil, errors.NewServiceError("unable to connect to kafka", err)
	}

	if batchSize := util.GetQueryParamInt(kafkaURL, "batch_size", 0); batchSize > 1 {
		batchDuration := time.Duration(util.GetQueryParamInt(kafkaURL, "batch_duration_ms", 10)) * time.Millisecond
		return clusterAdmin, NewBatchedKafkaProducer(producer, batchSize, batchDuration), nil
	}

	return clusterAdmin, producer, nil
}

func ConnectProducer(brokersURL []string, topic string, partitions int32, flushBytes int) (*SyncKafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Partitioner = sarama.NewManualPartitioner
	config.Producer.Flush.Bytes = flushBytes
	config.MetricRegistry = metrics.NewRegistry()

	conn, err := sarama.NewSyncProducer(brokersURL, config)
	if err != nil {
		return nil, err
	}

	return &SyncKafkaProducer{
		Producer:   conn,
		Partitions: partitions,
		Topic:      topic,
		Metrics:    config.MetricRegistry,
	}, nil
}
