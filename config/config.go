package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// ListeningPortKey is the port where the HTTP interface will listen on
	ListeningPortKey = "LISTENING_PORT"
	// LedgerEndpointKey is the endpoint of the compressed-ledger RPC service
	LedgerEndpointKey = "LEDGER_ENDPOINT"
	// LedgerWSEndpointKey is the optional websocket endpoint of the ledger used for push notifications
	LedgerWSEndpointKey = "LEDGER_WS_ENDPOINT"
	// LedgerRequestTimeoutKey are the milliseconds to wait for ledger HTTP responses before timeouts
	LedgerRequestTimeoutKey = "LEDGER_REQUEST_TIMEOUT"
	// RelayEndpointKey is the base endpoint of the gasless relay service
	RelayEndpointKey = "RELAY_ENDPOINT"
	// AggregatorEndpointKey is the base endpoint of the swap aggregator API
	AggregatorEndpointKey = "AGGREGATOR_ENDPOINT"
	// AggregatorRateLimitKey is the number of aggregator requests per second
	AggregatorRateLimitKey = "AGGREGATOR_RATE_LIMIT"
	// AnalyticsEndpointKey is the endpoint of the analytics sink. Empty disables tracking
	AnalyticsEndpointKey = "ANALYTICS_ENDPOINT"
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATA_DIR_PATH"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// BalanceCacheTTLKey is the duration in seconds a cached balance is considered fresh
	BalanceCacheTTLKey = "BALANCE_CACHE_TTL"
	// TokenCacheTTLKey is the duration in seconds cached token metadata is considered fresh
	TokenCacheTTLKey = "TOKEN_CACHE_TTL"
	// ConfirmTimeoutKey is the duration in seconds to wait for a transaction confirmation
	ConfirmTimeoutKey = "CONFIRM_TIMEOUT"
	// SignerKeyPathKey is the path of the local signer key file
	SignerKeyPathKey = "SIGNER_KEY_PATH"
	// EnableProfilerKey enables profiler that can be used to investigate performance issues
	EnableProfilerKey = "ENABLE_PROFILER"

	DbLocation       = "db"
	ProfilerLocation = "stats"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("veil-daemon", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("VEIL")
	vip.AutomaticEnv()

	vip.SetDefault(ListeningPortKey, 9947)
	vip.SetDefault(LedgerEndpointKey, "https://ledger.veil.network/api")
	vip.SetDefault(LedgerWSEndpointKey, "")
	vip.SetDefault(LedgerRequestTimeoutKey, 15000)
	vip.SetDefault(RelayEndpointKey, "https://relay.veil.network/api")
	vip.SetDefault(AggregatorEndpointKey, "https://quote-api.jup.ag/v6")
	vip.SetDefault(AggregatorRateLimitKey, 10)
	vip.SetDefault(AnalyticsEndpointKey, "")
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(BalanceCacheTTLKey, 30)
	vip.SetDefault(TokenCacheTTLKey, 600)
	vip.SetDefault(ConfirmTimeoutKey, 60)
	vip.SetDefault(SignerKeyPathKey, filepath.Join(defaultDatadir, "signer.key"))
	vip.SetDefault(EnableProfilerKey, false)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetDuration returns the value of the given key in seconds
func GetDuration(key string) time.Duration {
	return time.Duration(vip.GetInt(key)) * time.Second
}

//GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

// GetDatadir returns the base data directory of the daemon
func GetDatadir() string {
	return GetString(DatadirKey)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	for _, key := range []string{
		LedgerEndpointKey, RelayEndpointKey, AggregatorEndpointKey,
	} {
		endpoint := GetString(key)
		if _, err := url.Parse(endpoint); err != nil {
			return fmt.Errorf("%s is not a valid url: %s", key, err)
		}
	}

	if endpoint := GetString(AnalyticsEndpointKey); endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return fmt.Errorf("analytics endpoint is not a valid url: %s", err)
		}
	}

	if limit := GetInt(AggregatorRateLimitKey); limit <= 0 {
		return fmt.Errorf("aggregator rate limit must be a positive number")
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	if GetBool(EnableProfilerKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
