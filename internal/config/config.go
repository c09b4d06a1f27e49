// Package config loads engine configuration from environment variables
// (prefixed GRAPH_RAG_OPENAI__, with __ as the nested-key delimiter) and an
// optional .env fallback, via viper.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// envPrefix carries one trailing underscore; viper joins prefix and key with
// another, so variables read as GRAPH_RAG_OPENAI__<KEY>.
const envPrefix = "GRAPH_RAG_OPENAI_"

// Config is the top-level typed configuration for the composition root.
type Config struct {
	Server      ServerConfig
	GraphStore  GraphStoreConfig
	VectorStore VectorStoreConfig
	Chat        ChatConfig
	Embedding   EmbeddingConfig
	Search      SearchConfig
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	Prefix     string `mapstructure:"prefix"`
	APIKeys    []string `mapstructure:"api_keys"`
	ClientIPHeader string `mapstructure:"client_ip_header"`
}

type GraphStoreConfig struct {
	Directory string `mapstructure:"directory"`
}

type VectorStoreConfig struct {
	URI            string `mapstructure:"uri"`
	CollectionName string `mapstructure:"collection_name"`
}

type ChatConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Provider string `mapstructure:"provider"`
}

type EmbeddingConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type SearchConfig struct {
	CommunityLevelLocal  int `mapstructure:"community_level_local"`
	CommunityLevelGlobal int `mapstructure:"community_level_global"`
	ConcurrentCalls      int `mapstructure:"concurrent_calls"`
}

// Load reads configuration from environment variables (and, if present,
// a .env file in the working directory) into a Config.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional; absence is not an error

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.prefix", "/api/v1")
	v.SetDefault("vectorstore.collection_name", "entity_description_embedding")
	v.SetDefault("embedding.max_tokens", 8191)
	v.SetDefault("search.community_level_local", 2)
	v.SetDefault("search.community_level_global", 1)
	v.SetDefault("search.concurrent_calls", 16)
}
