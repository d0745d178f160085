package model

import (
	"path/filepath"
	"runtime"
	"time"
)

// Config is the complete fiscalia configuration
type Config struct {
	Data         DataConfig      `mapstructure:"data" yaml:"data"`
	Batch        BatchConfig     `mapstructure:"batch" yaml:"batch"`
	Store        StoreConfig     `mapstructure:"store" yaml:"store"`
	HTTP         HTTPConfig      `mapstructure:"http" yaml:"http"`
	Cache        CacheConfig     `mapstructure:"cache" yaml:"cache"`
	RateLimiting RateLimitConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	LLM          LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Logging      LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Output       OutputConfig    `mapstructure:"output" yaml:"output"`
}

// DataConfig locates the reference dataset and rule files.
// Relative file names are resolved against Dir.
type DataConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Reference   string `mapstructure:"reference" yaml:"reference"`       // CFOP table, .csv or .json
	Sectors     string `mapstructure:"sectors" yaml:"sectors"`           // ramos_atividade.json
	CostCenters string `mapstructure:"cost_centers" yaml:"cost_centers"` // centros_custo.json
	IndustryMap string `mapstructure:"industry_map" yaml:"industry_map"` // cnae_ramos.json
	Rules       string `mapstructure:"rules" yaml:"rules"`               // Optional alert rule overrides
}

// Path resolves a data file name against Dir. Empty names stay empty.
func (d DataConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) || d.Dir == "" {
		return name
	}
	return filepath.Join(d.Dir, name)
}

// BatchConfig controls folder processing
type BatchConfig struct {
	InputDir  string        `mapstructure:"input_dir" yaml:"input_dir"`
	OutputDir string        `mapstructure:"output_dir" yaml:"output_dir"`
	Workers   int           `mapstructure:"workers" yaml:"workers"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// StoreConfig controls the classification history database
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // Empty means $HOME/.fiscalia/history.db
}

// HTTPConfig is used by the reference data fetcher
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	InsecureTLS   bool          `mapstructure:"insecure_tls" yaml:"insecure_tls"`
	RespectRobots bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy       string        `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// CacheConfig controls the fetched page cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir"` // Empty means $HOME/.fiscalia/cache
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// RateLimitConfig limits requests per host
type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int           `mapstructure:"burst_size" yaml:"burst_size"`
	Delay             time.Duration `mapstructure:"delay" yaml:"delay"` // Extra pause between pages
}

// LLMConfig configures the optional narrative summary
type LLMConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"` // "", openai, groq, ollama
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout   int    `mapstructure:"timeout" yaml:"timeout"` // seconds
	Strict    bool   `mapstructure:"strict" yaml:"strict"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
	Dir     string `mapstructure:"dir" yaml:"dir"` // refdata fetch output
	Color   bool   `mapstructure:"color" yaml:"color"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:         "data",
			Reference:   "cfop.csv",
			Sectors:     "ramos_atividade.json",
			CostCenters: "centros_custo.json",
			IndustryMap: "cnae_ramos.json",
			Rules:       "regras_setoriais.yaml",
		},
		Batch: BatchConfig{
			InputDir:  "entrada",
			OutputDir: "output",
			Workers:   runtime.NumCPU(),
			Timeout:   10 * time.Minute,
		},
		Store: StoreConfig{
			Enabled: true,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Fiscalia/0.1 (+https://github.com/ppiankov/fiscalia)",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         1,
			Delay:             2 * time.Second,
		},
		LLM: LLMConfig{
			Timeout:   30,
			Strict:    true,
			MaxTokens: 800,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Dir:   ".",
			Color: true,
		},
	}
}
