package settings

import (
	"net/url"
	"time"
)

type GatewaySettings struct {
	GRPCListenAddress string
	GRPCAddress       string
	GRPCMaxRetries    int
	GRPCRetryBackoff  time.Duration
	// SubmitRateLimit is the number of SubmitTransaction calls per second, 0 disables the limiter
	SubmitRateLimit float64
	SubmitRateBurst int
	MaxMessageSize  int
}

type AssetSettings struct {
	// HTTPListenAddress of the read only HTTP API, empty disables it
	HTTPListenAddress string
	EchoDebug         bool
}

type UtxoStoreSettings struct {
	StoreURL             *url.URL
	DBTimeout            time.Duration
	PostgresMaxIdleConns int
	PostgresMaxOpenConns int
}

type ValidatorSettings struct {
	RejectCacheTTL  time.Duration
	RejectCacheSize uint64
	// RelayTxs publishes accepted transactions on the Kafka relay topic
	RelayTxs bool
}

type BlockAssemblySettings struct {
	MaxBlockTransactions int
}

type BMMSettings struct {
	MinimumAmount    uint64
	BroadcastTimeout time.Duration
	ConfirmTimeout   time.Duration
	SidechainSlot    int
}

type MainchainSettings struct {
	RPCURL         *url.URL
	RPCUser        string
	RPCPassword    string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

type KafkaSettings struct {
	ValidatorTxsConfig *url.URL
	Hosts              []string
	Partitions         int
	ReplicationFactor  int
}

type Settings struct {
	ServiceName                  string
	ClientName                   string
	DataFolder                   string
	LogLevel                     string
	LoggerType                   string
	PrettyLogs                   bool
	SecurityLevelGRPC            int
	ServerCertFile               string
	ServerKeyFile                string
	CaCertFile                   string
	UsePrometheusGRPCMetrics     bool
	TracingEnabled               bool
	TracingSampleRate            float64
	TracingCollectorURL          *url.URL
	HealthCheckHTTPListenAddress string
	PrometheusEndpoint           string
	Gateway                      GatewaySettings
	Asset                        AssetSettings
	UtxoStore                    UtxoStoreSettings
	Validator                    ValidatorSettings
	BlockAssembly                BlockAssemblySettings
	BMM                          BMMSettings
	Mainchain                    MainchainSettings
	Kafka                        KafkaSettings
}
