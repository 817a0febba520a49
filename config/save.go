package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveGlobal writes a key-value pair to ~/.config/planflow/config.yaml,
// creating the file if needed.
func SaveGlobal(key, value string) error {
	if !contains(GlobalKeys(), key) {
		return fmt.Errorf("unknown global config key: %s\n\nValid keys: %s",
			key, strings.Join(GlobalKeys(), ", "))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(home, ".config", globalConfigDir, "config.yaml")

	return saveKey(configPath, key, value, 0o600)
}

// SaveLocal writes a key-value pair to .planflow.yaml in projectDir.
func SaveLocal(projectDir, key, value string) error {
	if projectDir == "" {
		return fmt.Errorf("project directory not set")
	}
	if !contains(LocalKeys(), key) {
		return fmt.Errorf("unknown local config key: %s\n\nValid keys: %s",
			key, strings.Join(LocalKeys(), ", "))
	}

	// Local config is shared and should be readable
	return saveKey(filepath.Join(projectDir, LocalConfigName), key, value, 0o644)
}

// DeleteGlobalKey removes a key from the global config file.
// Deleting a key that is not set is not an error.
func DeleteGlobalKey(key string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(home, ".config", globalConfigDir, "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil // nothing to delete
	}

	var existing map[string]any
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil
	}

	delete(existing, key)

	data, err = yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o600)
}

func saveKey(configPath, key, value string, perm os.FileMode) error {
	var existing map[string]any
	if data, readErr := os.ReadFile(configPath); readErr == nil {
		_ = yaml.Unmarshal(data, &existing)
	}
	if existing == nil {
		existing = make(map[string]any)
	}

	existing[key] = parseValue(value)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, perm)
}

// parseValue converts string values to appropriate types for YAML.
func parseValue(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
