package lint

import (
	"bytes"
	"fmt"
	"os"

	"github.com/gnolang/symex/internal/checks"
	"github.com/gnolang/symex/internal/se/walker"
	tt "github.com/gnolang/symex/internal/types"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the CLI looks for a configuration file.
const DefaultConfigPath = ".symex.yaml"

// Config represents the overall configuration: the rules and the limits
// of the engine.
type Config struct {
	Name   string                   `yaml:"name"`
	Rules  map[string]tt.ConfigRule `yaml:"rules"`
	Engine EngineConfig             `yaml:"engine"`
}

type EngineConfig struct {
	// MaxSteps is the number of exploded-graph nodes one function may
	// expand.
	MaxSteps int `yaml:"max_steps"`
	// MaxExecProgramPoint is how often one path may enter the same block.
	MaxExecProgramPoint int `yaml:"max_exec_program_point"`
	// Workers bounds the functions walked at once; zero means one per CPU.
	Workers int `yaml:"workers"`
	// CacheDir enables the issue cache when set.
	CacheDir string `yaml:"cache_dir"`
}

func (c EngineConfig) walker() walker.Config {
	return walker.Config{
		MaxSteps:            c.MaxSteps,
		MaxExecProgramPoint: c.MaxExecProgramPoint,
	}
}

// DefaultConfig lists every rule with its default severity.
func DefaultConfig() Config {
	rules := make(map[string]tt.ConfigRule, len(checks.All))
	for _, r := range checks.All {
		rules[r.Name] = tt.ConfigRule{Severity: r.Severity}
	}
	return Config{
		Name:  "symex",
		Rules: rules,
		Engine: EngineConfig{
			MaxSteps:            walker.DefaultMaxSteps,
			MaxExecProgramPoint: walker.DefaultMaxExecProgramPoint,
		},
	}
}

// LoadConfig reads a configuration file. Settings the file leaves out
// keep their default.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := parseConfig(data, &config); err != nil {
		return config, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return config, nil
}

func parseConfig(data []byte, config *Config) error {
	rules := config.Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil {
		return err
	}
	if config.Rules == nil {
		config.Rules = make(map[string]tt.ConfigRule, len(rules))
	}
	for name, r := range rules {
		if _, ok := config.Rules[name]; !ok {
			config.Rules[name] = r
		}
	}
	for name := range config.Rules {
		if !knownRule(name) {
			return fmt.Errorf("unknown rule %q", name)
		}
	}
	return nil
}

func knownRule(name string) bool {
	for _, r := range checks.All {
		if r.Name == name {
			return true
		}
	}
	return false
}

// WriteConfig writes config to path. It refuses to overwrite an existing
// file.
func WriteConfig(path string, config Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshalling config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
