package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultServerURL = "http://localhost:8000"
	DefaultTimeout   = 60 * time.Second
)

const DefaultExportTemplate = `# {{{title}}}

**Session ID:** ` + "`{{id}}`" + `
**Updated:** {{updated}} ({{updated_ago}})
**Messages:** {{message_count}}

---

{{#messages}}
**{{label}}**

{{{content}}}

---

{{/messages}}
`

type Config struct {
	ServerURL      string
	Token          string
	Timeout        time.Duration
	ExportTemplate string
	// Dir is where config.toml, the export template and the log file live.
	Dir string
}

type tomlConfig struct {
	ServerURL      string `toml:"server_url"`
	Token          string `toml:"token"`
	TokenFile      string `toml:"token_file"`
	Timeout        string `toml:"timeout"`
	ExportTemplate string `toml:"export_template"`
}

// DefaultDir returns ~/.config/cfchat, or "" when there is no home directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cfchat")
}

// Load reads config from ~/.config/cfchat/
func Load() (*Config, error) {
	return LoadFrom(DefaultDir())
}

// LoadFrom reads config.toml and export_template.md from dir, then applies
// CFCHAT_SERVER and CFCHAT_TOKEN. Missing files fall back to defaults; a
// file that exists but does not parse is an error.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{
		ServerURL:      DefaultServerURL,
		Timeout:        DefaultTimeout,
		ExportTemplate: DefaultExportTemplate,
		Dir:            dir,
	}

	if dir != "" {
		if err := cfg.loadDir(dir); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("CFCHAT_SERVER")); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CFCHAT_TOKEN")); v != "" {
		cfg.Token = v
	}

	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return cfg, nil
}

func (cfg *Config) loadDir(dir string) error {
	tomlPath := filepath.Join(dir, "config.toml")
	templatePath := filepath.Join(dir, "export_template.md")

	if _, err := os.Stat(tomlPath); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(tomlPath, &tc); err != nil {
			return fmt.Errorf("parse %s: %w", tomlPath, err)
		}
		if err := cfg.apply(tc, dir); err != nil {
			return fmt.Errorf("%s: %w", tomlPath, err)
		}
	}

	// An explicit export_template wins over the conventional file
	if cfg.ExportTemplate == DefaultExportTemplate {
		if data, err := os.ReadFile(templatePath); err == nil {
			cfg.ExportTemplate = string(data)
		}
	}
	return nil
}

func (cfg *Config) apply(tc tomlConfig, dir string) error {
	if tc.ServerURL != "" {
		cfg.ServerURL = tc.ServerURL
	}
	if tc.Token != "" {
		cfg.Token = tc.Token
	}
	if tc.TokenFile != "" {
		data, err := os.ReadFile(resolve(dir, tc.TokenFile))
		if err != nil {
			return fmt.Errorf("read token_file: %w", err)
		}
		cfg.Token = strings.TrimSpace(string(data))
	}
	if tc.Timeout != "" {
		d, err := time.ParseDuration(tc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", tc.Timeout, err)
		}
		cfg.Timeout = d
	}
	if tc.ExportTemplate != "" {
		data, err := os.ReadFile(resolve(dir, tc.ExportTemplate))
		if err != nil {
			return fmt.Errorf("read export_template: %w", err)
		}
		cfg.ExportTemplate = string(data)
	}
	return nil
}

func resolve(dir, path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
