// Package config resolves application settings from viper.
package config

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/service"
	"github.com/quantfold/commentary-annotator/internal/storage"
)

// Storage backends.
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
)

// UI modes.
const (
	UIPlain = "plain"
	UITUI   = "tui"
)

// Config holds the resolved application configuration.
type Config struct {
	CorpusDir     string
	CompaniesPath string
	ResultsDir    string
	Backend       string
	DatabasePath  string
	UIMode        string
}

// SetDefaults registers the default configuration values with viper.
func SetDefaults() {
	viper.SetDefault("corpus.dir", "corpus")
	viper.SetDefault("companies.path", "companies.csv")
	viper.SetDefault("results.dir", "results")
	viper.SetDefault("storage.backend", BackendFiles)
	viper.SetDefault("storage.database", "results/annotations.db")
	viper.SetDefault("ui.mode", UIPlain)
}

// FromViper reads and validates the configuration.
func FromViper() (Config, error) {
	cfg := Config{
		CorpusDir:     viper.GetString("corpus.dir"),
		CompaniesPath: viper.GetString("companies.path"),
		ResultsDir:    viper.GetString("results.dir"),
		Backend:       viper.GetString("storage.backend"),
		DatabasePath:  viper.GetString("storage.database"),
		UIMode:        viper.GetString("ui.mode"),
	}

	if cfg.CorpusDir == "" {
		return Config{}, fmt.Errorf("%w: corpus.dir", common.ErrMissingConfig)
	}
	if cfg.ResultsDir == "" {
		return Config{}, fmt.Errorf("%w: results.dir", common.ErrMissingConfig)
	}

	switch cfg.Backend {
	case BackendFiles, BackendSQLite:
	default:
		return Config{}, fmt.Errorf("%w: unknown storage backend %q", common.ErrInvalidConfig, cfg.Backend)
	}

	switch cfg.UIMode {
	case UIPlain, UITUI:
	default:
		return Config{}, fmt.Errorf("%w: unknown ui mode %q", common.ErrInvalidConfig, cfg.UIMode)
	}

	if cfg.Backend == BackendSQLite && cfg.DatabasePath == "" {
		return Config{}, fmt.Errorf("%w: storage.database", common.ErrMissingConfig)
	}

	return cfg, nil
}

// OpenStore opens the configured results store.
func (c Config) OpenStore(ctx context.Context) (service.Store, error) {
	switch c.Backend {
	case BackendSQLite:
		store, err := storage.NewSQLiteStore(c.DatabasePath)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return storage.NewFileStore(c.ResultsDir)
	}
}
