package agents

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PersonaConfig defines an agent's behavior declaratively. New specialists can
// be added with a YAML file instead of code.
type PersonaConfig struct {
	// Identity
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Emoji       string `json:"emoji" yaml:"emoji"`
	Description string `json:"description" yaml:"description"`

	// Prompts
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`

	// Capabilities
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Intents      []string `json:"intents" yaml:"intents"`

	// Generation
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float32 `json:"temperature" yaml:"temperature"`
}

// Validate checks the minimum fields a persona needs.
func (p *PersonaConfig) Validate() error {
	if p.ID == "" {
		return errors.New("persona: id is required")
	}
	if p.SystemPrompt == "" {
		return errors.Errorf("persona %s: system_prompt is required", p.ID)
	}
	return nil
}

// LoadPersonaDir loads all persona YAML files from dir. Files override the
// compiled-in defaults when IDs collide; unknown IDs add new specialists.
func LoadPersonaDir(dir string) ([]PersonaConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read persona dir %s", dir)
	}

	var out []PersonaConfig
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read persona file %s", path)
		}
		var cfg PersonaConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "unmarshal persona file %s", path)
		}
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrapf(err, "persona file %s", path)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// MergePersonas overlays loaded personas on top of base, keyed by ID.
// Order of base is preserved; new personas append in load order.
func MergePersonas(base, loaded []PersonaConfig) []PersonaConfig {
	index := make(map[string]int, len(base))
	out := make([]PersonaConfig, len(base))
	copy(out, base)
	for i, p := range out {
		index[p.ID] = i
	}
	for _, p := range loaded {
		if i, ok := index[p.ID]; ok {
			out[i] = p
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}
