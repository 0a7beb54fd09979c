package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the resolved configuration: defaults < config file < INSIGHT_* env < flags.
type Config struct {
	ExtractContent   bool          `mapstructure:"extract_content"`
	ShowStats        bool          `mapstructure:"show_stats"`
	MaxFileSize      int64         `mapstructure:"max_file_size"`
	Workers          int           `mapstructure:"workers"`
	RespectGitignore bool          `mapstructure:"respect_gitignore"`
	LanguagesFile    string        `mapstructure:"languages_file"`
	LexerFallback    bool          `mapstructure:"lexer_fallback"`
	Tokens           bool          `mapstructure:"tokens"`
	LinkDepth        int           `mapstructure:"link_depth"`
	WatchDebounce    time.Duration `mapstructure:"watch_debounce"`

	Log       LogConfig       `mapstructure:",squash"`
	Tokenizer TokenizerConfig `mapstructure:",squash"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("extract_content", true)
	v.SetDefault("show_stats", false)
	v.SetDefault("max_file_size", maxFileSize)
	v.SetDefault("workers", 1)
	v.SetDefault("respect_gitignore", false)
	v.SetDefault("languages_file", "")
	v.SetDefault("lexer_fallback", false)
	v.SetDefault("tokens", false)
	v.SetDefault("tokenizer", "tiktoken")
	v.SetDefault("tokenizer_model", "")
	v.SetDefault("tokenizer_file", "")
	v.SetDefault("link_depth", 0)
	v.SetDefault("watch_debounce", 500*time.Millisecond)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)
}

// initConfig reads the config file and environment into v. A missing config
// file is not an error.
func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appName))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	v.SetEnvPrefix("INSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// loadConfig decodes and validates the merged configuration.
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = maxFileSize
	}
	if cfg.LinkDepth < 0 {
		return Config{}, fmt.Errorf("link_depth must not be negative, got %d", cfg.LinkDepth)
	}
	return cfg, nil
}

// buildOptions maps the configuration onto a tree build.
func (c Config) buildOptions(progress ProgressFunc) BuildOptions {
	return BuildOptions{
		ExtractContent: c.ExtractContent,
		MaxFileSize:    c.MaxFileSize,
		Workers:        c.Workers,
		ShowStats:      c.ShowStats,
		Progress:       progress,
	}
}

// languageClassifier builds the classifier, applying the override file when configured.
func (c Config) languageClassifier(logger *zap.Logger) *LanguageClassifier {
	var overrides LanguageMap
	if c.LanguagesFile != "" {
		loaded, err := loadLanguageFile(c.LanguagesFile)
		if err != nil {
			logger.Warn("could not load language overrides", zap.Error(err))
		} else {
			logger.Debug("loaded language overrides", zap.String("file", c.LanguagesFile), zap.Int("languages", len(loaded)))
			overrides = loaded
		}
	}
	lc := newLanguageClassifier(overrides)
	if c.LexerFallback {
		lc.withLexerFallback()
	}
	return lc
}
