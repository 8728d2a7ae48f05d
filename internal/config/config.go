package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Journal           string
	Out               string
	Snapshot          string
	Checkpoint        string
	CheckpointEnabled bool
	PgDSN             string
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string

	// Deployment parameters used when no snapshot exists yet.
	OwnerPubkey     string
	OwnerAddress    string
	ContractAddress string
	Coordinator     string
	FeeBps          uint32
	InitialSeqno    uint32

	// Loopback coordinator simulation.
	WithCoordinator   bool
	CoordinatorSecret string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LOTTOD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out", "./data/outbound.jsonl")
	v.SetDefault("snapshot", "./data/state.json")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	v.SetDefault("coordinator-secret", "12345")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Journal:           v.GetString("journal"),
		Out:               v.GetString("out"),
		Snapshot:          v.GetString("snapshot"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PgDSN:             v.GetString("pg-dsn"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
		OwnerPubkey:       v.GetString("owner-pubkey"),
		OwnerAddress:      v.GetString("owner-address"),
		ContractAddress:   v.GetString("contract-address"),
		Coordinator:       v.GetString("coordinator"),
		FeeBps:            v.GetUint32("fee-bps"),
		InitialSeqno:      v.GetUint32("initial-seqno"),
		WithCoordinator:   v.GetBool("with-coordinator"),
		CoordinatorSecret: v.GetString("coordinator-secret"),
	}

	return cfg, nil
}
