package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DetectionConfig is the tunable detection policy stored in
// .papergraph/detection.yml. A missing file means defaults; a present file
// only overrides the fields it sets.
type DetectionConfig struct {
	// DefaultThreshold applies to relationship types with no per-type entry.
	DefaultThreshold float64 `yaml:"default_threshold"`

	// Thresholds maps relationship type to its minimum confidence.
	Thresholds map[string]float64 `yaml:"thresholds,omitempty"`

	// MaxCallsPerMinute caps classifier calls in any rolling 60s window.
	MaxCallsPerMinute int `yaml:"max_calls_per_minute"`

	// Workers is the number of concurrent classification workers.
	Workers int `yaml:"workers"`

	// TopK is how many similar papers the filtered selector keeps.
	TopK int `yaml:"top_k"`

	// SimilarityFloor is the minimum cosine similarity for the filtered
	// selector.
	SimilarityFloor float64 `yaml:"similarity_floor"`
}

// DefaultDetectionConfig returns the built-in policy.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		DefaultThreshold: 0.6,
		Thresholds: map[string]float64{
			"contradicts": 0.7,
			"extends":     0.5,
			"supports":    0.5,
		},
		MaxCallsPerMinute: 50,
		Workers:           10,
		TopK:              20,
		SimilarityFloor:   0.6,
	}
}

// LoadDetectionConfig reads detection.yml from the repository at root,
// merged over the defaults. A missing file is not an error.
func LoadDetectionConfig(root string) (DetectionConfig, error) {
	cfg := DefaultDetectionConfig()

	data, err := os.ReadFile(DetectionPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading detection config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing detection config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid detection config: %w", err)
	}
	return cfg, nil
}

// Save writes the detection policy to the repository at root.
func (c DetectionConfig) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding detection config: %w", err)
	}
	if err := os.WriteFile(DetectionPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing detection config: %w", err)
	}
	return nil
}

// Validate checks ranges. Thresholds live in [0,1]; counts must be positive.
func (c DetectionConfig) Validate() error {
	if c.DefaultThreshold < 0 || c.DefaultThreshold > 1 {
		return fmt.Errorf("default_threshold %v out of range [0,1]", c.DefaultThreshold)
	}
	for relType, v := range c.Thresholds {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold for %q (%v) out of range [0,1]", relType, v)
		}
	}
	if c.MaxCallsPerMinute <= 0 {
		return fmt.Errorf("max_calls_per_minute must be positive, got %d", c.MaxCallsPerMinute)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.SimilarityFloor < 0 || c.SimilarityFloor > 1 {
		return fmt.Errorf("similarity_floor %v out of range [0,1]", c.SimilarityFloor)
	}
	return nil
}
