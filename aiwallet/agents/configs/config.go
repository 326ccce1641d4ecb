package configs

import (
	"aiwallet/aiwallet/utils/logging"
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Menu names used by the dispatcher.
const (
	MenuInitial         = "initial"
	MenuRetry           = "retry"
	MenuWallet          = "wallet"
	MenuNoWallet        = "no_wallet"
	MenuExplain         = "explain"
	MenuConfirmCreate   = "confirm_create"
	MenuBackup          = "backup"
	MenuConfirmTransfer = "confirm_transfer"
)

type AgentConfig struct {
	AgentName        string              `yaml:"agent_name"`
	Temperature      float64             `yaml:"temperature"`
	MaxTokens        int                 `yaml:"max_tokens"`
	ClassifierSystem string              `yaml:"classifier_system"`
	ClassifierUser   string              `yaml:"classifier_user"`
	Menus            map[string][]string `yaml:"menus"`

	userTmpl *template.Template
}

// LoadConfig reads the embedded prompts and overlays the file at path when given.
// A broken override is logged and the embedded defaults are kept.
func LoadConfig(path string) *AgentConfig {
	cfg, err := parse(defaultPrompts, nil)
	if err != nil {
		// embedded file is part of the build; this only fires on a bad edit
		panic(fmt.Sprintf("embedded prompts invalid: %v", err))
	}
	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logging.AppLogger.Error("Prompt config load error", zap.String("path", path), zap.Error(err))
		return cfg
	}
	override, err := parse(data, cfg)
	if err != nil {
		logging.AppLogger.Error("Prompt config parse error", zap.String("path", path), zap.Error(err))
		return cfg
	}
	return override
}

func parse(data []byte, base *AgentConfig) (*AgentConfig, error) {
	cfg := &AgentConfig{}
	if base != nil {
		*cfg = *base
		cfg.Menus = make(map[string][]string, len(base.Menus))
		for k, v := range base.Menus {
			cfg.Menus[k] = v
		}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	tmpl, err := template.New("classifier_user").Parse(cfg.ClassifierUser)
	if err != nil {
		return nil, fmt.Errorf("classifier_user template: %w", err)
	}
	cfg.userTmpl = tmpl
	return cfg, nil
}

// Menu returns a copy of the named option list.
func (c *AgentConfig) Menu(name string) []string {
	opts := c.Menus[name]
	out := make([]string, len(opts))
	copy(out, opts)
	return out
}

// RenderUser fills the classifier user template with data.
func (c *AgentConfig) RenderUser(data any) (string, error) {
	var buf bytes.Buffer
	if err := c.userTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
