// services/rproc/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is supplied on the "config/rproc" bus topic, or loaded from a
// deployment YAML file.
type Config struct {
	Subsystems []Subsystem `json:"subsystems" yaml:"subsystems"`
}

// Subsystem describes one remote processor instance to be registered.
type Subsystem struct {
	ID         int      `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Shape      string   `json:"shape" yaml:"shape"` // "single_core" | "dual_core"
	ResetLines []string `json:"reset_lines" yaml:"reset_lines"`
	Timers     []Timer  `json:"timers,omitempty" yaml:"timers,omitempty"`
	Firmware   string   `json:"firmware,omitempty" yaml:"firmware,omitempty"`
	Mailbox    string   `json:"mailbox,omitempty" yaml:"mailbox,omitempty"`
	Module     string   `json:"module" yaml:"module"`
	ModuleOpt  string   `json:"module_opt,omitempty" yaml:"module_opt,omitempty"`
	IOMMU      string   `json:"iommu,omitempty" yaml:"iommu,omitempty"`
	Mem        Mem      `json:"mem,omitempty" yaml:"mem,omitempty"`
}

// Timer is one hardware-timer requirement.
type Timer struct {
	Cap        string `json:"cap" yaml:"cap"`
	FallbackID int    `json:"fallback_id" yaml:"fallback_id"`
}

// Mem is the fixed contiguous reservation of an instance.
type Mem struct {
	Base uint64 `json:"base" yaml:"base"`
	Size uint64 `json:"size" yaml:"size"`
}

// Load reads a deployment config from a YAML file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML config bytes.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Decode converts a bus payload into a Config. Payloads arrive either as a
// typed Config (in-process publishers) or as a generic JSON-like map, which
// goes through a JSON round-trip.
func Decode(payload any) (Config, error) {
	switch v := payload.(type) {
	case Config:
		return v, nil
	case *Config:
		return *v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		var cfg Config
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		return cfg, nil
	}
}
