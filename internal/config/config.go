// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	RPCList          []string      `mapstructure:"rpc_list"`
	Storage          string        `mapstructure:"storage"`
	DataDir          string        `mapstructure:"data_dir"`
	PostgresURL      string        `mapstructure:"postgres_url"`
	JournalPath      string        `mapstructure:"journal_path"`
	KeyringPath      string        `mapstructure:"keyring_path"`
	FeePayer         string        `mapstructure:"fee_payer"`
	Gateway          string        `mapstructure:"gateway"`
	TimeUnit         time.Duration `mapstructure:"time_unit"`
	ConfirmTimeout   time.Duration `mapstructure:"confirm_timeout"`
	BlockhashRetries int           `mapstructure:"blockhash_retries"`
	AuditSchedule    string        `mapstructure:"audit_schedule"`
	LogFile          string        `mapstructure:"log_file"`
	DebugLogging     bool          `mapstructure:"debug_logging"`
}

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"

	GatewaySPL    = "spl"
	GatewayMemory = "memory"

	DefaultRPC              = "https://api.devnet.solana.com"
	DefaultDataDir          = "./data/pools"
	DefaultJournalPath      = "./data/journal.db"
	DefaultKeyringPath      = "./configs/keyring.csv"
	DefaultTimeUnit         = 24 * time.Hour
	DefaultConfirmTimeout   = 2 * time.Minute
	DefaultBlockhashRetries = 3
	DefaultAuditSchedule    = "@every 1h"
	DefaultLogFile          = "solstake.log"
)

// EnvPrefix namespaces environment overrides, e.g. SOLSTAKE_STORAGE.
const EnvPrefix = "SOLSTAKE"

// LoadConfig merges defaults, the config file (if any), environment variables
// and flags, in increasing priority.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_list":          []string{DefaultRPC},
		"storage":           StorageFile,
		"data_dir":          DefaultDataDir,
		"postgres_url":      "",
		"journal_path":      DefaultJournalPath,
		"keyring_path":      DefaultKeyringPath,
		"fee_payer":         "",
		"gateway":           GatewaySPL,
		"time_unit":         DefaultTimeUnit,
		"confirm_timeout":   DefaultConfirmTimeout,
		"blockhash_retries": DefaultBlockhashRetries,
		"audit_schedule":    DefaultAuditSchedule,
		"log_file":          DefaultLogFile,
		"debug_logging":     false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.RPCList = cleanList(v.Get("rpc_list"))

	return &cfg, validateConfig(&cfg)
}

// bindFlags maps flag names like "data-dir" onto keys like "data_dir".
// Only flags the user actually set override lower layers.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if _, known := fieldKeys[key]; !known {
			return
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

var fieldKeys = map[string]struct{}{
	"rpc_list": {}, "storage": {}, "data_dir": {}, "postgres_url": {},
	"journal_path": {}, "keyring_path": {}, "fee_payer": {}, "gateway": {},
	"time_unit": {}, "confirm_timeout": {}, "blockhash_retries": {},
	"audit_schedule": {}, "log_file": {}, "debug_logging": {},
}

func validateConfig(cfg *Config) error {
	switch cfg.Storage {
	case StorageFile:
		if cfg.DataDir == "" {
			return errors.New("data_dir is required for file storage")
		}
	case StoragePostgres:
		if cfg.PostgresURL == "" {
			return errors.New("postgres_url is required for postgres storage")
		}
		if err := validateURLWithCache(cfg.PostgresURL, "postgres"); err != nil {
			return errors.New("invalid postgres_url")
		}
	default:
		return fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	switch cfg.Gateway {
	case GatewayMemory:
	case GatewaySPL:
		if len(cfg.RPCList) == 0 {
			return errors.New("rpc_list is empty")
		}
		for _, rpcURL := range cfg.RPCList {
			if err := validateURLWithCache(rpcURL, "http"); err != nil {
				return errors.New("invalid RPC URL protocol")
			}
		}
	default:
		return fmt.Errorf("unknown gateway %q", cfg.Gateway)
	}

	if cfg.FeePayer != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.FeePayer); err != nil {
			return fmt.Errorf("invalid fee_payer: %w", err)
		}
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.AuditSchedule != "" {
		if _, err := cron.ParseStandard(cfg.AuditSchedule); err != nil {
			return fmt.Errorf("invalid audit_schedule: %w", err)
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.TimeUnit <= 0 {
		return errors.New("invalid time_unit")
	}
	if cfg.ConfirmTimeout <= 0 {
		return errors.New("invalid confirm_timeout")
	}
	if cfg.BlockhashRetries < 0 {
		return errors.New("invalid blockhash_retries")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// cleanList accepts a YAML list, a []string from flags, or a comma-separated
// env value.
func cleanList(val interface{}) []string {
	var items []string
	switch typed := val.(type) {
	case []string:
		items = typed
	case string:
		items = strings.Split(typed, ",")
	case []interface{}:
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
