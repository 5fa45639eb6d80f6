// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir  = ".callweave"
	defaultConfigFile = "project.yaml"
	configVersion     = "1"
)

// Config represents the .callweave/project.yaml configuration file.
type Config struct {
	Version   string         `yaml:"version"`
	ProjectID string         `yaml:"project_id"`
	Resolve   ResolveConfig  `yaml:"resolve"`
	Watch     WatchConfig    `yaml:"watch,omitempty"`
}

// ResolveConfig mirrors the fields of resolve.Options that a project wants
// to pin in its config file rather than pass as flags every run.
type ResolveConfig struct {
	BuiltinModules  []string `yaml:"builtin_modules"`
	Include         []string `yaml:"include"`          // glob patterns, relative to the project root
	Exclude         []string `yaml:"exclude"`           // glob patterns, relative to the project root
	ParseWorkers    int      `yaml:"parse_workers"`
	ForceSecondPass bool     `yaml:"force_second_pass,omitempty"`
}

// WatchConfig configures the watch subcommand's debounce behavior.
type WatchConfig struct {
	DebounceSeconds int `yaml:"debounce_seconds,omitempty"`
}

// DefaultConfig returns a config with sensible defaults for local development.
func DefaultConfig(projectID string) *Config {
	return &Config{
		Version:   configVersion,
		ProjectID: projectID,
		Resolve: ResolveConfig{
			BuiltinModules: []string{"fs", "path", "http", "os", "crypto", "util"},
			Include:        []string{"**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx"},
			Exclude: []string{
				".git/**",
				"node_modules/**",
				"vendor/**",
				"dist/**",
				"build/**",
				".callweave/**",
			},
			ParseWorkers: 4,
		},
		Watch: WatchConfig{
			DebounceSeconds: 2,
		},
	}
}

// LoadConfig loads configuration from the specified path or finds it
// automatically. If configPath is empty it checks CALLWEAVE_CONFIG_PATH,
// then searches the current directory and its parents for
// .callweave/project.yaml.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("CALLWEAVE_CONFIG_PATH")
	}
	if configPath == "" {
		var err error
		configPath, err = findConfigFile()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // G304: path comes from user config or discovery
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}

	if cfg.Version != configVersion {
		return nil, fmt.Errorf("config %s: unsupported version %q (expected %q)", configPath, cfg.Version, configVersion)
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}

// SaveConfig writes cfg to configPath as YAML, creating the parent
// directory if needed.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create config dir %s: %w", dir, err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("write config %s: %w", configPath, err)
	}
	return nil
}

// ConfigPath returns <dir>/.callweave/project.yaml.
func ConfigPath(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

// ConfigDir returns <dir>/.callweave.
func ConfigDir(dir string) string {
	return filepath.Join(dir, defaultConfigDir)
}

// findConfigFile searches the current directory and its parents for
// .callweave/project.yaml.
func findConfigFile() (string, error) {
	if configPath := os.Getenv("CALLWEAVE_CONFIG_PATH"); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
		return "", fmt.Errorf("CALLWEAVE_CONFIG_PATH=%s does not exist", configPath)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		configPath := ConfigPath(dir)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no %s/%s found in %s or any parent directory", defaultConfigDir, defaultConfigFile, dir)
}

// applyEnvOverrides lets CALLWEAVE_PROJECT_ID win over the file value,
// matching the teacher's precedence for CIE_PROJECT_ID.
func (c *Config) applyEnvOverrides() {
	if id := os.Getenv("CALLWEAVE_PROJECT_ID"); id != "" {
		c.ProjectID = id
	}
}
