package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"verbatim/internal/daemon"
	"verbatim/internal/export"
	"verbatim/internal/follow"
)

// ExportConfig sets the defaults applied by the export keybinding.
type ExportConfig struct {
	// Dir receives exported transcripts. Defaults to ~/.verbatim/exports.
	Dir string `yaml:"dir"`
	// Format is the default export format: srt, vtt, ttml, or json.
	Format string `yaml:"format"`
	// Pending selects how in-flight provisionals are handled when
	// exporting a live session: drop or await.
	Pending string `yaml:"pending"`
}

// Config holds TUI settings, read from ~/.config/verbatim/config.yaml.
// Environment variables override file values: VERBATIM_SOCKET,
// VERBATIM_EXPORT_DIR, VERBATIM_EXPORT_FORMAT, VERBATIM_EXPORT_PENDING,
// VERBATIM_IDLE_AFTER.
type Config struct {
	// Socket is the daemon Unix socket path.
	Socket string `yaml:"socket"`
	// Locale is sent with the start command.
	Locale string `yaml:"locale"`
	// IdleAfter is the stream-silence gap before the idle indicator
	// shows, as a Go duration string ("5s", "1m").
	IdleAfter string `yaml:"idle_after"`

	Export ExportConfig `yaml:"export"`
}

// DefaultConfigPath returns ~/.config/verbatim/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "verbatim", "config.yaml")
}

// DefaultConfig returns the built-in settings used when no config file
// exists.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Socket: daemon.SocketPath(),
		Export: ExportConfig{
			Dir:     filepath.Join(home, ".verbatim", "exports"),
			Format:  string(export.FormatSRT),
			Pending: string(export.PendingDrop),
		},
	}
}

// LoadConfig reads the config file at path, falling back to defaults for
// unset fields. A missing file is not an error. Environment variables are
// applied last.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		if parsed.Socket != "" {
			cfg.Socket = parsed.Socket
		}
		if parsed.Locale != "" {
			cfg.Locale = parsed.Locale
		}
		if parsed.IdleAfter != "" {
			cfg.IdleAfter = parsed.IdleAfter
		}
		if parsed.Export.Dir != "" {
			cfg.Export.Dir = parsed.Export.Dir
		}
		if parsed.Export.Format != "" {
			cfg.Export.Format = parsed.Export.Format
		}
		if parsed.Export.Pending != "" {
			cfg.Export.Pending = parsed.Export.Pending
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if v := os.Getenv("VERBATIM_SOCKET"); v != "" {
		cfg.Socket = v
	}
	if v := os.Getenv("VERBATIM_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("VERBATIM_EXPORT_FORMAT"); v != "" {
		cfg.Export.Format = v
	}
	if v := os.Getenv("VERBATIM_EXPORT_PENDING"); v != "" {
		cfg.Export.Pending = v
	}
	if v := os.Getenv("VERBATIM_IDLE_AFTER"); v != "" {
		cfg.IdleAfter = v
	}

	return cfg, nil
}

// IdleThreshold parses IdleAfter, selecting the follow package default
// when unset or malformed.
func (c Config) IdleThreshold() time.Duration {
	if c.IdleAfter == "" {
		return follow.DefaultIdleAfter
	}
	d, err := time.ParseDuration(c.IdleAfter)
	if err != nil || d <= 0 {
		return follow.DefaultIdleAfter
	}
	return d
}

// ExportPath builds the target path for an export of the named session.
func (c Config) ExportPath(name string, f export.Format) string {
	if name == "" {
		name = time.Now().Format("20060102-150405")
	}
	return filepath.Join(c.Export.Dir, name+f.Extension())
}
