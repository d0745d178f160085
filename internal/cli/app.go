package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fiscalia/internal/logging"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/pipeline"
	"github.com/ppiankov/fiscalia/internal/store"
)

// registerDefaults makes every key of model.DefaultConfig known to viper so
// that FISCALIA_* variables resolve even without a config file
func registerDefaults() {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaults("", tree)

	// Keys omitted from the YAML when empty
	for _, key := range []string{"http.http_proxy", "http.https_proxy", "http.no_proxy", "llm.api_key", "llm.base_url"} {
		_ = viper.BindEnv(key)
	}
}

func setDefaults(prefix string, tree map[string]any) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaults(full, sub)
			continue
		}
		viper.SetDefault(full, value)
	}
}

// loadConfig returns the effective configuration: defaults, then the config
// file, then FISCALIA_* variables, then bound flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if noColor {
		cfg.Output.Color = false
	}
	resolveLLMCredentials(&cfg.LLM)
	return cfg, nil
}

// resolveLLMCredentials fills the API key and base URL from the provider's
// conventional environment variables when the config leaves them empty
func resolveLLMCredentials(c *model.LLMConfig) {
	switch strings.ToLower(c.Provider) {
	case "openai":
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "groq":
		if c.APIKey == "" {
			c.APIKey = os.Getenv("GROQ_API_KEY")
		}
	case "ollama":
		if c.BaseURL == "" {
			if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
				c.BaseURL = strings.TrimSuffix(base, "/") + "/v1"
			}
		}
	}
}

// applyLLMFlags enables the summary from --llm flags. Without --llm the
// provider is cleared so no client is created.
func applyLLMFlags(cmd *cobra.Command, cfg *model.Config) {
	if !llmEnabled {
		cfg.LLM.Provider = ""
		return
	}
	if cmd.Flags().Changed("llm-provider") || cfg.LLM.Provider == "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	resolveLLMCredentials(&cfg.LLM)
}

// buildPipeline loads reference data and rules and wires the pipeline
func buildPipeline(cfg *model.Config) (*pipeline.Pipeline, *pipeline.Resources, error) {
	res, err := pipeline.LoadResources(cfg)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.Build(cfg, res), res, nil
}

// openStore opens the history database, or returns nil when persistence is
// disabled. A store that cannot be opened only disables persistence.
func openStore(ctx context.Context, cfg *model.Config, disabled bool) *store.Store {
	if disabled || !cfg.Store.Enabled {
		return nil
	}

	path := cfg.Store.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logging.New("store").Warn("history disabled", "error", err)
			return nil
		}
		path = store.DefaultPath(home)
	}

	s, err := store.Open(ctx, path)
	if err != nil {
		logging.New("store").Warn("history disabled", "path", path, "error", err)
		return nil
	}
	return s
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
