// Package config loads the tagview configuration from JSON or YAML files.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// Config is the top level configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Templates TemplatesConfig `json:"templates" yaml:"templates"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr       string `json:"addr" yaml:"addr"`
	LiveReload bool   `json:"live_reload" yaml:"live_reload"`
	Watch      bool   `json:"watch" yaml:"watch"`
}

// TemplatesConfig describes where file views live.
type TemplatesConfig struct {
	Dir        string   `json:"dir" yaml:"dir"`
	Index      string   `json:"index" yaml:"index"`
	Extensions []string `json:"extensions" yaml:"extensions"`
	Strict     bool     `json:"strict" yaml:"strict"`

	// PongoExtension marks files rendered by pongo2.
	PongoExtension string `json:"pongo_extension" yaml:"pongo_extension"`
	// Globals are visible to every pongo2 template.
	Globals map[string]any `json:"globals,omitempty" yaml:"globals,omitempty"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:       ":8080",
			LiveReload: true,
			Watch:      true,
		},
		Templates: TemplatesConfig{
			Dir:        "views",
			Index:      "index",
			Extensions:     []string{".html", ".tpl", ".md", ".txt"},
			PongoExtension: ".tpl",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path and overlays it on Default. A missing file yields the
// defaults and no error.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := Parse(data, path, &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

// Parse decodes data into cfg, trying JSON first and YAML second.
func Parse(data []byte, source string, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("config: file %s is empty", source)
	}
	if err := json.Unmarshal(data, cfg); err == nil {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err == nil {
		return nil
	}
	return fmt.Errorf("config: parse %s: invalid JSON or YAML", source)
}

// Save writes cfg to path atomically. Files ending in .json are written as
// JSON, everything else as YAML.
func Save(path string, cfg Config) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	def := Default()
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = def.Server.Addr
	}
	if strings.TrimSpace(c.Templates.Dir) == "" {
		c.Templates.Dir = def.Templates.Dir
	}
	if strings.TrimSpace(c.Templates.Index) == "" {
		c.Templates.Index = def.Templates.Index
	}
	if len(c.Templates.Extensions) == 0 {
		c.Templates.Extensions = def.Templates.Extensions
	}

	ext := strings.TrimSpace(c.Templates.PongoExtension)
	if ext == "" {
		ext = def.Templates.PongoExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Templates.PongoExtension = ext
	if !slices.Contains(c.Templates.Extensions, ext) {
		c.Templates.Extensions = append(slices.Clone(c.Templates.Extensions), ext)
	}
}
