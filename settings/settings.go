package settings

import (
	"time"
)

// NewSettings reads every setting from the gocore configuration (settings.conf,
// settings_local.conf and the environment), falling back to development defaults.
func NewSettings() *Settings {
	return &Settings{
		ServiceName:                  getString("SERVICE_NAME", "bitnames"),
		ClientName:                   getString("clientName", "bitnames"),
		DataFolder:                   getString("dataFolder", "data"),
		LogLevel:                     getString("logLevel", "INFO"),
		LoggerType:                   getString("logger", "zerolog"),
		PrettyLogs:                   getBool("PRETTY_LOGS", true),
		SecurityLevelGRPC:            getInt("securityLevelGRPC", 0),
		ServerCertFile:               getString("server_certFile", ""),
		ServerKeyFile:                getString("server_keyFile", ""),
		CaCertFile:                   getString("server_caCertFile", ""),
		UsePrometheusGRPCMetrics:     getBool("use_prometheus_grpc_metrics", true),
		TracingEnabled:               getBool("tracing_enabled", false),
		TracingSampleRate:            getFloat64("tracing_SampleRate", 0.01),
		TracingCollectorURL:          getURL("tracing_collector_url", "http://localhost:4318"),
		HealthCheckHTTPListenAddress: getString("health_check_httpListenAddress", ":8000"),
		PrometheusEndpoint:           getString("prometheusEndpoint", "/metrics"),
		Gateway: GatewaySettings{
			GRPCListenAddress: getString("gateway_grpcListenAddress", ":2020"),
			GRPCAddress:       getString("gateway_grpcAddress", "localhost:2020"),
			GRPCMaxRetries:    getInt("gateway_grpcMaxRetries", 3),
			GRPCRetryBackoff:  getDuration("gateway_grpcRetryBackoff", 100*time.Millisecond),
			SubmitRateLimit:   getFloat64("gateway_submitRateLimit", 0),
			SubmitRateBurst:   getInt("gateway_submitRateBurst", 100),
			MaxMessageSize:    getInt("gateway_maxMessageSize", 32*1024*1024),
		},
		Asset: AssetSettings{
			HTTPListenAddress: getString("asset_httpListenAddress", ":8090"),
			EchoDebug:         getBool("ECHO_DEBUG", false),
		},
		UtxoStore: UtxoStoreSettings{
			StoreURL:             getURL("utxostore", "sqlite:///utxo"),
			DBTimeout:            getDuration("utxostore_dbTimeout", 5*time.Second),
			PostgresMaxIdleConns: getInt("utxostore_postgresMaxIdleConns", 10),
			PostgresMaxOpenConns: getInt("utxostore_postgresMaxOpenConns", 80),
		},
		Validator: ValidatorSettings{
			RejectCacheTTL:  getDuration("validator_rejectCacheTTL", 10*time.Minute),
			RejectCacheSize: getUint64("validator_rejectCacheSize", 100_000),
			RelayTxs:        getBool("validator_relayTxs", false),
		},
		BlockAssembly: BlockAssemblySettings{
			MaxBlockTransactions: getInt("blockassembly_maxBlockTransactions", 10_000),
		},
		BMM: BMMSettings{
			MinimumAmount:    getUint64("bmm_minimumAmount", 1000),
			BroadcastTimeout: getDuration("bmm_broadcastTimeout", 30*time.Second),
			ConfirmTimeout:   getDuration("bmm_confirmTimeout", 10*time.Minute),
			SidechainSlot:    getInt("bmm_sidechainSlot", 2),
		},
		Mainchain: MainchainSettings{
			RPCURL:         getURL("mainchain_rpcURL", "http://localhost:18443"),
			RPCUser:        getString("mainchain_rpcUser", "user"),
			RPCPassword:    getString("mainchain_rpcPassword", "password"),
			RequestTimeout: getDuration("mainchain_requestTimeout", 10*time.Second),
			MaxRetries:     getInt("mainchain_maxRetries", 3),
			RetryBackoff:   getDuration("mainchain_retryBackoff", 500*time.Millisecond),
		},
		Kafka: KafkaSettings{
			ValidatorTxsConfig: getURL("kafka_validatorTxsConfig", ""),
			Hosts:              getMultiString("KAFKA_HOSTS", "|"),
			Partitions:         getInt("KAFKA_PARTITIONS", 1),
			ReplicationFactor:  getInt("KAFKA_REPLICATION_FACTOR", 1),
		},
	}
}
