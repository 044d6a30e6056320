package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/paywatch/paywatch/pkg/logger"
)

type Config struct {
	Server        ServerConfig                 `yaml:"server"`
	Database      DatabaseConfig               `yaml:"database"`
	Solana        SolanaConfig                 `yaml:"solana"`
	Monitor       MonitorConfig                `yaml:"monitor"`
	BasePay       BasePayConfig                `yaml:"basepay"`
	WebSocket     WebSocketConfig              `yaml:"websocket"`
	Security      SecurityConfig               `yaml:"security"`
	Logging       logger.Config                `yaml:"logging"`
	MintAddresses map[string]map[string]string `yaml:"mint_addresses"` // cluster -> token_code -> mint_address
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type SolanaConfig struct {
	Cluster     string        `yaml:"cluster"`  // devnet | testnet | mainnet-beta
	RPCURLs     map[string]string `yaml:"rpc_urls"` // cluster -> endpoint
	Commitment  string        `yaml:"commitment"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

type MonitorConfig struct {
	PollingInterval int    `yaml:"polling_interval"` // seconds between scans
	SignatureLimit  int    `yaml:"signature_limit"`  // max signatures fetched per reference per tick
	Label           string `yaml:"label"`            // merchant label embedded in payment URLs
	RedirectBaseURL string `yaml:"redirect_base_url"`
}

type BasePayConfig struct {
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoffBase time.Duration `yaml:"retry_backoff_base"`
	Testnet          bool          `yaml:"testnet"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	CheckOrigin     bool          `yaml:"check_origin"`
	PingPeriod      time.Duration `yaml:"ping_period"`
}

type SecurityConfig struct {
	APIKey string `yaml:"api_key"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(configData))), &config); err != nil {
		return nil, err
	}

	return &config, nil
}
