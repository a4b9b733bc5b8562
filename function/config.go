package function

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hupe1980/skillmesh/core"
	"github.com/hupe1980/skillmesh/model"
	"gopkg.in/yaml.v3"
)

// PromptTemplateConfig is the per-function configuration stored next to a
// prompt file (config.json, config.yaml or config.toml).
type PromptTemplateConfig struct {
	Schema          int                      `json:"schema" yaml:"schema" toml:"schema"`
	Type            string                   `json:"type" yaml:"type" toml:"type"`
	Description     string                   `json:"description" yaml:"description" toml:"description"`
	Completion      model.CompletionSettings `json:"completion" yaml:"completion" toml:"completion"`
	DefaultBackends []string                 `json:"default_backends" yaml:"default_backends" toml:"default_backends"`
	Input           InputConfig              `json:"input" yaml:"input" toml:"input"`
}

// InputConfig lists the declared parameters of a prompt.
type InputConfig struct {
	Parameters []InputParameter `json:"parameters" yaml:"parameters" toml:"parameters"`
}

// InputParameter declares one template variable.
type InputParameter struct {
	Name         string `json:"name" yaml:"name" toml:"name"`
	Description  string `json:"description" yaml:"description" toml:"description"`
	DefaultValue string `json:"defaultValue" yaml:"defaultValue" toml:"defaultValue"`
}

// DefaultPromptTemplateConfig returns the configuration used when a prompt
// comes without one.
func DefaultPromptTemplateConfig() *PromptTemplateConfig {
	return &PromptTemplateConfig{
		Schema:     1,
		Type:       "completion",
		Completion: model.DefaultCompletionSettings(),
	}
}

// ParameterViews converts the declared inputs.
func (c *PromptTemplateConfig) ParameterViews() []core.ParameterView {
	if len(c.Input.Parameters) == 0 {
		return nil
	}
	out := make([]core.ParameterView, len(c.Input.Parameters))
	for i, p := range c.Input.Parameters {
		out[i] = core.ParameterView{Name: p.Name, Description: p.Description, DefaultValue: p.DefaultValue}
	}
	return out
}

// ParsePromptTemplateConfig decodes data in the given format ("json",
// "yaml"/"yml" or "toml"). Fields missing from data keep the defaults of
// DefaultPromptTemplateConfig.
func ParsePromptTemplateConfig(data []byte, format string) (*PromptTemplateConfig, error) {
	cfg := DefaultPromptTemplateConfig()

	var err error
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(cfg)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, cfg)
	case "toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		return nil, core.Errorf(core.KindInvalidFunctionDescription, "unsupported prompt config format %q", format)
	}
	if err != nil {
		return nil, core.NewError(core.KindInvalidFunctionDescription, fmt.Sprintf("invalid %s prompt config", format), err)
	}

	if cfg.Type == "" {
		cfg.Type = "completion"
	}
	for _, p := range cfg.Input.Parameters {
		if err := ValidateName("parameter", p.Name); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// configFiles lists the accepted config file names in lookup order.
var configFiles = []string{"config.json", "config.yaml", "config.yml", "config.toml"}

// LoadPromptTemplateConfig reads the first config file found in dir. When
// none exists the default configuration is returned.
func LoadPromptTemplateConfig(dir string) (*PromptTemplateConfig, error) {
	for _, name := range configFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		return ParsePromptTemplateConfig(data, filepath.Ext(name))
	}
	return DefaultPromptTemplateConfig(), nil
}
