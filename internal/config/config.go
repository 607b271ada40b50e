// Package config handles repository configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents repository configuration stored in .papergraph/config.json.
type Config struct {
	PDFRoot      string `json:"pdf_root,omitempty"`      // Absolute path to the PDF folder
	DefaultModel string `json:"default_model,omitempty"` // Classifier model override
}

const (
	PapergraphDir = ".papergraph"
	ConfigFile    = "config.json"
	DetectionFile = "detection.yml"
	BackupFile    = "relationships.jsonl"
	CacheDir      = "cache"
	DBFile        = "papers.db"
	IndexFile     = "semantic.idx"
)

// PapergraphPath returns the path to the .papergraph directory from a root path.
func PapergraphPath(root string) string {
	return filepath.Join(root, PapergraphDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, PapergraphDir, ConfigFile)
}

// DetectionPath returns the path to detection.yml from a root path.
func DetectionPath(root string) string {
	return filepath.Join(root, PapergraphDir, DetectionFile)
}

// BackupPath returns the path to the relationships backup file from a root path.
func BackupPath(root string) string {
	return filepath.Join(root, PapergraphDir, BackupFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, PapergraphDir, CacheDir)
}

// DBPath returns the path to papers.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, PapergraphDir, CacheDir, DBFile)
}

// IndexPath returns the path to the semantic index from a root path.
func IndexPath(root string) string {
	return filepath.Join(root, PapergraphDir, CacheDir, IndexFile)
}

// IsRepository checks if the given path contains a papergraph repository.
func IsRepository(root string) bool {
	info, err := os.Stat(PapergraphPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a papergraph repository.
// Returns the repository root path or an error if not found.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a papergraph repository (no .papergraph directory found)")
		}
		abs = parent
	}
}

// Load reads configuration from the repository at the given root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ValidatePDFRoot checks that the PDF root path exists and is a directory.
func ValidatePDFRoot(path string) error {
	if path == "" {
		return nil // Empty is allowed (not yet configured)
	}

	expandedPath := ExpandPath(path)

	info, err := os.Stat(expandedPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", expandedPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", expandedPath)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
