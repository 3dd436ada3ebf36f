package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Roster    RosterConfig    `yaml:"roster" mapstructure:"roster"`
	Inventory InventoryConfig `yaml:"inventory" mapstructure:"inventory"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Assign    AssignConfig    `yaml:"assign" mapstructure:"assign"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// LedgerConfig locates the purchase ledger and its outputs.
type LedgerConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	RaidsPath  string `yaml:"raids_path" mapstructure:"raids_path"`
	OutPath    string `yaml:"out_path" mapstructure:"out_path"`
	CountsPath string `yaml:"counts_path" mapstructure:"counts_path"`
}

// RosterConfig locates the ownership directory inputs.
type RosterConfig struct {
	CharacterAccountPath string `yaml:"character_account_path" mapstructure:"character_account_path"`
	CharactersPath       string `yaml:"characters_path" mapstructure:"characters_path"`
	SnapshotCharsPath    string `yaml:"snapshot_chars_path" mapstructure:"snapshot_chars_path"`
}

// InventoryConfig locates the point-in-time inventory snapshot.
type InventoryConfig struct {
	SnapshotPath string `yaml:"snapshot_path" mapstructure:"snapshot_path"`
}

// CatalogConfig locates the convertible-item reference data. All of it is
// optional: a missing catalog degrades matching to exact names only.
type CatalogConfig struct {
	Path             string   `yaml:"path" mapstructure:"path"`
	TablesPath       string   `yaml:"tables_path" mapstructure:"tables_path"`
	ExtraConvertible []string `yaml:"extra_convertible" mapstructure:"extra_convertible"`
}

// AssignConfig configures the allocation pass.
type AssignConfig struct {
	Mode               string `yaml:"mode" mapstructure:"mode"`
	AccountConcurrency int    `yaml:"account_concurrency" mapstructure:"account_concurrency"`
}

// StoreConfig configures the Postgres ledger store and local run history.
type StoreConfig struct {
	DatabaseURL  string  `yaml:"database_url" mapstructure:"database_url"`
	HistoryPath  string  `yaml:"history_path" mapstructure:"history_path"`
	PushBatch    int     `yaml:"push_batch" mapstructure:"push_batch"`
	PushRatePerS float64 `yaml:"push_rate_per_s" mapstructure:"push_rate_per_s"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOOTLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ledger.path", "data/raid_loot.csv")
	v.SetDefault("ledger.raids_path", "data/raids.csv")
	v.SetDefault("ledger.out_path", "data/raid_loot.csv")
	v.SetDefault("ledger.counts_path", "data/character_loot_assignment_counts.csv")
	v.SetDefault("roster.character_account_path", "data/character_account.csv")
	v.SetDefault("roster.characters_path", "data/characters.csv")
	v.SetDefault("roster.snapshot_chars_path", "snapshot/characters.txt")
	v.SetDefault("inventory.snapshot_path", "snapshot/character_inventory.txt")
	v.SetDefault("catalog.path", "data/convertible_items.json")
	v.SetDefault("catalog.tables_path", "")
	v.SetDefault("assign.mode", "incremental")
	v.SetDefault("assign.account_concurrency", 4)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.history_path", "lootledger.db")
	v.SetDefault("store.push_batch", 1000)
	v.SetDefault("store.push_rate_per_s", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
