package daemon

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/kafka"
	"github.com/bitnames/bitnames/util/retry"
)

type kafkaRelay struct {
	logger   ulogger.Logger
	admin    sarama.ClusterAdmin
	producer kafka.KafkaProducerI
}

type relayStats interface {
	Stats() (sent, failed int64)
}

func (k *kafkaRelay) Close() error {
	var err error

	if k.producer != nil {
		if stats, ok := k.producer.(relayStats); ok && k.logger != nil {
			sent, failed := stats.Stats()
			k.logger.Infof("[Kafka] closing transaction relay, %d messages sent, %d failed", sent, failed)
		}

		err = k.producer.Close()
	}

	if k.admin != nil {
		if adminErr := k.admin.Close(); adminErr != nil && err == nil {
			err = errors.NewServiceError("failed to close kafka cluster admin", adminErr)
		}
	}

	return err
}

// getKafkaRelayProducer connects the producer relaying accepted transactions, retrying while
// the brokers are not reachable yet.
func getKafkaRelayProducer(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings) (*kafkaRelay, error) {
	kafkaURL, err := relayURL(tSettings.Kafka)
	if err != nil {
		return nil, err
	}

	logger.Infof("[Kafka] connecting transaction relay to %s", kafkaURL.Redacted())

	return retry.Retry(ctx, logger, func() (*kafkaRelay, error) {
		admin, producer, err := kafka.NewKafkaProducer(kafkaURL)
		if err != nil {
			return nil, err
		}

		return &kafkaRelay{logger: logger, admin: admin, producer: producer}, nil
	},
		retry.WithMessage("[Kafka] error starting transaction relay producer"),
		retry.WithRetryCount(5),
		retry.WithExponentialBackoff(),
		retry.WithBackoffDurationType(500*time.Millisecond),
		retry.WithMaxBackoff(10*time.Second),
	)
}

const relayTopic = "bitnames-txs"

// relayURL returns kafka_validatorTxsConfig, or a URL for the default relay topic built from
// KAFKA_HOSTS, KAFKA_PARTITIONS and KAFKA_REPLICATION_FACTOR when it is not set.
func relayURL(kafkaSettings settings.KafkaSettings) (*url.URL, error) {
	if kafkaSettings.ValidatorTxsConfig != nil {
		return kafkaSettings.ValidatorTxsConfig, nil
	}

	if len(kafkaSettings.Hosts) == 0 {
		return nil, errors.NewConfigurationError("missing Kafka URL for the transaction relay - kafka_validatorTxsConfig or KAFKA_HOSTS")
	}

	query := url.Values{}
	query.Set("partitions", strconv.Itoa(max(kafkaSettings.Partitions, 1)))
	query.Set("replication", strconv.Itoa(max(kafkaSettings.ReplicationFactor, 1)))

	return &url.URL{
		Scheme:   "kafka",
		Host:     strings.Join(kafkaSettings.Hosts, ","),
		Path:     "/" + relayTopic,
		RawQuery: query.Encode(),
	}, nil
}
