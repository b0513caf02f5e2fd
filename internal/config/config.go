// Package config resolves blkcheck's configuration.
//
// Config files hold DEFAULTS only: the device path is always an explicit
// command-line argument, so a stray config file can never make a
// destructive run implicit. Files are HuJSON (JSON with comments and
// trailing commas).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"

	"blkcheck/internal/pattern"
)

// FileName is the project-local config file name.
const FileName = ".blkcheck.json"

var (
	ErrNotFound = errors.New("config file not found")
	ErrInvalid  = errors.New("invalid config file")

	errInvalidSize = errors.New("invalid size")
)

// Config holds the resolved configuration.
type Config struct {
	// From config files (serialized)
	Pattern   string `json:"pattern,omitempty"`    // default payload pattern
	BlockSize string `json:"block_size,omitempty"` // default transfer size, e.g. "64k"
	Direct    bool   `json:"direct,omitempty"`     // default O_DIRECT
	ReportDir string `json:"report_dir,omitempty"` // where unnamed reports land

	// Sources tracks which config files were loaded (diagnostics).
	Sources Sources `json:"-"`
}

// Sources tracks which config files contributed.
type Sources struct {
	Global  string
	Project string
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Pattern:   "random",
		BlockSize: "64k",
	}
}

// Input holds the inputs for Load.
type Input struct {
	WorkDir    string            // project directory; empty means os.Getwd
	ConfigPath string            // explicit --config file; empty means discovery
	Env        map[string]string // environment, for XDG_CONFIG_HOME/HOME
}

// Load resolves configuration with precedence (highest wins):
// defaults < global user config < project config < explicit --config file.
// CLI flags are applied by the caller on top.
func Load(input Input) (Config, error) {
	workDir := input.WorkDir
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if global := globalPath(input.Env); global != "" {
		if err := mergeFile(&cfg, global, false); err != nil {
			return Config{}, err
		} else if fileExists(global) {
			cfg.Sources.Global = global
		}
	}

	project := filepath.Join(workDir, FileName)
	if err := mergeFile(&cfg, project, false); err != nil {
		return Config{}, err
	} else if fileExists(project) {
		cfg.Sources.Project = project
	}

	if input.ConfigPath != "" {
		if err := mergeFile(&cfg, input.ConfigPath, true); err != nil {
			return Config{}, err
		}

		cfg.Sources.Project = input.ConfigPath
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// mergeFile layers the file at path over cfg. A missing file is only an
// error when the path was requested explicitly.
func mergeFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if required {
				return fmt.Errorf("%w: %s", ErrNotFound, path)
			}

			return nil
		}

		return fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}

	dec := json.NewDecoder(strings.NewReader(string(std)))
	dec.DisallowUnknownFields()

	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}

	return nil
}

func (c Config) validate() error {
	if c.BlockSize != "" {
		if _, err := ParseSize(c.BlockSize); err != nil {
			return fmt.Errorf("%w: block_size: %v", ErrInvalid, err)
		}
	}

	if c.Pattern != "" && !pattern.Valid(c.Pattern) {
		return fmt.Errorf("%w: pattern: unknown pattern %q", ErrInvalid, c.Pattern)
	}

	return nil
}

// globalPath returns $XDG_CONFIG_HOME/blkcheck/config.json, falling back
// to ~/.config/blkcheck/config.json. Empty if neither can be determined.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "blkcheck", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "blkcheck", "config.json")
	}

	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// Format renders cfg as indented JSON for print-config.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ParseSize converts size strings like "4k", "128k", "1m", "2g" to bytes.
// A bare number is taken as bytes.
func ParseSize(sizeStr string) (int64, error) {
	s := strings.TrimSpace(strings.ToLower(sizeStr))

	multiplier := int64(1)

	switch {
	case strings.HasSuffix(s, "k"):
		multiplier = 1 << 10
		s = strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		multiplier = 1 << 20
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "g"):
		multiplier = 1 << 30
		s = strings.TrimSuffix(s, "g")
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil || num < 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidSize, sizeStr)
	}

	return num * multiplier, nil
}
