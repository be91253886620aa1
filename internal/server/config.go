package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is everything saged needs to run. Values are read by viper from
// an optional YAML file and from SAGED_* environment variables; env wins.
type Config struct {
	Listen string       `mapstructure:"listen"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Search SearchConfig `mapstructure:"search"`
	Fetch  FetchConfig  `mapstructure:"fetch"`
	Corpus CorpusConfig `mapstructure:"corpus"`
}

// OpenAIConfig selects the model behind the answer pipeline.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// SearchConfig bounds the source discovery step.
type SearchConfig struct {
	// MaxSources caps how many result pages one question may pull in.
	MaxSources int `mapstructure:"max_sources"`
	// BaseURL overrides the public search API origin; tests point it at a
	// local server.
	BaseURL string `mapstructure:"base_url"`
}

// FetchConfig bounds the page scraping both /chat and /preview perform.
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxPageBytes int64         `mapstructure:"max_page_bytes"`
}

// CorpusConfig bounds the source text handed to the explanation prompt.
type CorpusConfig struct {
	TokenBudget int `mapstructure:"token_budget"`
}

// LoadConfig reads configuration from configPath, or from a config.yaml
// found next to the binary when the path is empty. A missing file is fine;
// defaults and environment variables fill the gaps.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("listen", ":8000")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("search.max_sources", 5)
	v.SetDefault("search.base_url", "")
	v.SetDefault("fetch.timeout", "5s")
	v.SetDefault("fetch.max_page_bytes", 2<<20)
	v.SetDefault("corpus.token_budget", 6000)

	// openai.api_key becomes SAGED_OPENAI_API_KEY and so on.
	v.SetEnvPrefix("saged")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
