package daemon

import (
	"net/url"
	"testing"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayURL(t *testing.T) {
	t.Run("explicit config wins", func(t *testing.T) {
		configured, err := url.Parse("kafka://broker:9092/txs?partitions=8")
		require.NoError(t, err)

		u, err := relayURL(settings.KafkaSettings{ValidatorTxsConfig: configured, Hosts: []string{"other:9092"}})
		require.NoError(t, err)
		assert.Equal(t, configured, u)
	})

	t.Run("built from hosts", func(t *testing.T) {
		u, err := relayURL(settings.KafkaSettings{
			Hosts:             []string{"k1:9092", "k2:9092"},
			Partitions:        4,
			ReplicationFactor: 2,
		})
		require.NoError(t, err)

		assert.Equal(t, "kafka", u.Scheme)
		assert.Equal(t, "k1:9092,k2:9092", u.Host)
		assert.Equal(t, "/"+relayTopic, u.Path)
		assert.Equal(t, "4", u.Query().Get("partitions"))
		assert.Equal(t, "2", u.Query().Get("replication"))
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := relayURL(settings.KafkaSettings{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})
}
