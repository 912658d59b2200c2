package coherence

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Constraint forbids one module from depending on another, evaluated
// against BELONGS_TO and READS edges.
type Constraint struct {
	From string `yaml:"from"` // module that must not depend
	To   string `yaml:"to"`   // on this module
}

// Config controls the configurable checks. Zero value gives sensible
// defaults: snake_case functions, PascalCase classes, pattern consistency
// enabled, no architectural constraints.
type Config struct {
	// Naming maps artifact kind to the regular expression its public
	// names must match.
	Naming map[string]string `yaml:"naming"`

	// PatternConsistency toggles the heuristic shape comparison.
	PatternConsistency *bool `yaml:"pattern_consistency"`

	// Constraints are module dependency prohibitions.
	Constraints []Constraint `yaml:"constraints"`

	// RulesFile names a Mangle datalog file whose derived violation/1
	// facts become coherence errors.
	RulesFile string `yaml:"rules_file"`

	naming map[string]*regexp.Regexp
}

var defaultNaming = map[string]string{
	"function":  `^_{0,2}[a-z][a-z0-9_]*_{0,2}$`,
	"class":     `^_?[A-Z][A-Za-z0-9]*$`,
	"attribute": `^_{0,2}[A-Za-z][A-Za-z0-9_]*$`,
}

// LoadConfig reads a coherence config from a YAML file. A missing file
// yields the default config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg.finish()
			}
			return nil, fmt.Errorf("read coherence config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse coherence config: %w", err)
		}
	}
	return cfg.finish()
}

func (c *Config) finish() (*Config, error) {
	c.naming = make(map[string]*regexp.Regexp)
	for kind, pattern := range defaultNaming {
		if override, ok := c.Naming[kind]; ok {
			pattern = override
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("naming rule for %s: %w", kind, err)
		}
		c.naming[kind] = re
	}
	for kind, pattern := range c.Naming {
		if _, done := c.naming[kind]; done {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("naming rule for %s: %w", kind, err)
		}
		c.naming[kind] = re
	}
	return c, nil
}

func (c *Config) patternConsistency() bool {
	if c.PatternConsistency == nil {
		return true
	}
	return *c.PatternConsistency
}
