// Package valoconfig loads kernel configuration the way the teacher's
// own CLI config layer does: JSONC (via hujson) parsed through a fixed
// precedence chain of defaults, global user config, project config, and
// finally explicit CLI overrides.
package valoconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds everything needed to open a kernel against files on disk.
type Config struct {
	Dim        int    `json:"dim"`
	MaxRecords int    `json:"max_records"` //nolint:tagliatelle // snake_case is the wire/file contract
	MaxNodes   int    `json:"max_nodes"`   //nolint:tagliatelle
	MaxEdges   int    `json:"max_edges"`   //nolint:tagliatelle

	SnapshotPath   string `json:"snapshot_path,omitempty"`   //nolint:tagliatelle
	LogPath        string `json:"log_path,omitempty"`        //nolint:tagliatelle
	CheckpointPath string `json:"checkpoint_path,omitempty"` //nolint:tagliatelle

	// DefaultEF is the HNSW search candidate-list size used when a
	// caller does not specify one explicitly.
	DefaultEF int `json:"default_ef,omitempty"` //nolint:tagliatelle

	// StabilityWindow is the number of consecutive proof mismatches
	// pkg/replication.DivergenceChecker requires before confirming a
	// follower has diverged (spec §4.12).
	StabilityWindow int `json:"stability_window,omitempty"` //nolint:tagliatelle
}

// Sources tracks which config files were actually loaded, for
// diagnostics (spec §2: "where did this setting come from").
type Sources struct {
	Global  string
	Project string
}

// ConfigFileName is the default project-local config file name.
const ConfigFileName = ".valo.json"

var (
	errConfigFileNotFound = errors.New("valoconfig: config file not found")
	errConfigFileRead     = errors.New("valoconfig: failed to read config file")
	errConfigInvalid      = errors.New("valoconfig: invalid config")
	errDimInvalid         = errors.New("valoconfig: dim must be positive")
)

// DefaultConfig returns the built-in defaults, sufficient to run
// entirely in a scratch directory with no config file at all.
func DefaultConfig() Config {
	return Config{
		Dim:             8,
		MaxRecords:      1 << 16,
		MaxNodes:        1 << 16,
		MaxEdges:        1 << 18,
		SnapshotPath:    "valo.snapshot",
		LogPath:         "valo.log",
		CheckpointPath:  "valo.checkpoint",
		DefaultEF:       64,
		StabilityWindow: 3,
	}
}

// Load resolves configuration with the following precedence (highest
// wins): 1. defaults, 2. global user config
// (~/.config/valo/config.json or $XDG_CONFIG_HOME/valo/config.json),
// 3. project config (workDir/.valo.json, or configPath if non-empty),
// 4. cliOverrides (applied field-by-field, zero value means "not set").
func Load(workDir, configPath string, cliOverrides Config) (Config, Sources, error) {
	cfg := DefaultConfig()
	var sources Sources

	globalCfg, globalPath, err := loadGlobalConfig()
	if err != nil {
		return Config{}, Sources{}, err
	}
	sources.Global = globalPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, configPath)
	if err != nil {
		return Config{}, Sources{}, err
	}
	sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	cfg = merge(cfg, cliOverrides)

	if err := validate(cfg); err != nil {
		return Config{}, Sources{}, err
	}
	return cfg, sources, nil
}

func loadGlobalConfig() (Config, string, error) {
	path := globalConfigPath()
	if path == "" {
		return Config{}, "", nil
	}
	return loadOptionalConfigFile(path)
}

func globalConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "valo", "config.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "valo", "config.json")
}

func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	if configPath != "" {
		path := configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return Config{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, configPath)
		}
		cfg, err := loadConfigFile(path)
		return cfg, path, err
	}

	path := filepath.Join(workDir, ConfigFileName)
	return loadOptionalConfigFile(path)
}

func loadOptionalConfigFile(path string) (Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, "", nil
		}
		return Config{}, "", fmt.Errorf("%w: %s", errConfigFileRead, path)
	}
	cfg, err := parse(data)
	if err != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return cfg, path, nil
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", errConfigFileRead, path)
	}
	cfg, err := parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.Dim != 0 {
		base.Dim = overlay.Dim
	}
	if overlay.MaxRecords != 0 {
		base.MaxRecords = overlay.MaxRecords
	}
	if overlay.MaxNodes != 0 {
		base.MaxNodes = overlay.MaxNodes
	}
	if overlay.MaxEdges != 0 {
		base.MaxEdges = overlay.MaxEdges
	}
	if overlay.SnapshotPath != "" {
		base.SnapshotPath = overlay.SnapshotPath
	}
	if overlay.LogPath != "" {
		base.LogPath = overlay.LogPath
	}
	if overlay.CheckpointPath != "" {
		base.CheckpointPath = overlay.CheckpointPath
	}
	if overlay.DefaultEF != 0 {
		base.DefaultEF = overlay.DefaultEF
	}
	if overlay.StabilityWindow != 0 {
		base.StabilityWindow = overlay.StabilityWindow
	}
	return base
}

func validate(cfg Config) error {
	if cfg.Dim <= 0 {
		return errDimInvalid
	}
	if strings.TrimSpace(cfg.SnapshotPath) == "" || strings.TrimSpace(cfg.LogPath) == "" {
		return fmt.Errorf("%w: snapshot_path and log_path must be set", errConfigInvalid)
	}
	return nil
}

// FormatConfig returns cfg as indented JSON, for `valo-verify --print-config`-style diagnostics.
func FormatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("valoconfig: format: %w", err)
	}
	return string(data), nil
}

// parse standardizes JSONC to JSON via hujson and unmarshals into Config.
func parse(data []byte) (Config, error) {
	return parseHuJSON(data)
}
