/*
Package config loads and validates kiln.toml, the per-project build
configuration. A missing file is not an error; the defaults describe a
conventional project layout (assets in ./assets, cooked output in
./cooked).
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/kiln/pipeline/imagecodec"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
)

// DefaultFileName is the config file kiln looks for in the project root.
const DefaultFileName = "kiln.toml"

// Source configures where the uncooked asset tree lives.
type Source struct {
	Root string `toml:"root"`
}

// Output configures where cooked containers are written.
type Output struct {
	Root           string `toml:"root"`
	ContentVersion int    `toml:"content_version"`
}

// Textures configures how imported images are encoded.
type Textures struct {
	GenerateMips bool   `toml:"generate_mips"`
	Compression  string `toml:"compression"`
	MaxDimension int    `toml:"max_dimension"`
	SRGB         bool   `toml:"srgb"`
}

// Watch configures the source watcher.
type Watch struct {
	DebounceMillis int `toml:"debounce_ms"`
}

// Logging configures log output.
type Logging struct {
	Level string `toml:"level"`
}

// Config encapsulates all configuration values for a kiln project.
type Config struct {
	Source   Source   `toml:"source"`
	Output   Output   `toml:"output"`
	Textures Textures `toml:"textures"`
	Watch    Watch    `toml:"watch"`
	Logging  Logging  `toml:"logging"`
}

// Load reads and validates the configuration at path. An empty path means
// DefaultFileName in the working directory; a file that does not exist
// yields the defaults. The returned config has its roots expanded to
// absolute paths.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved := path
	if resolved == "" {
		resolved = DefaultFileName
	}
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if path != "" {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", resolved, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TextureOptions translates the texture section into image codec options.
func (c *Config) TextureOptions() imagecodec.Options {
	opts := imagecodec.Options{
		GenerateMips: c.Textures.GenerateMips,
		MaxDimension: uint32(c.Textures.MaxDimension),
		SRGB:         c.Textures.SRGB,
	}
	if c.Textures.Compression == compressionZstd {
		opts.Compression = metadata.TextureCompressionZstd
	}
	return opts
}

// DebounceInterval returns the watch debounce as a duration.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}

func (c *Config) normalize() error {
	var err error
	if c.Source.Root, err = expandPath(c.Source.Root); err != nil {
		return fmt.Errorf("source.root: %w", err)
	}
	if c.Output.Root, err = expandPath(c.Output.Root); err != nil {
		return fmt.Errorf("output.root: %w", err)
	}
	if strings.TrimSpace(c.Textures.Compression) == "" {
		c.Textures.Compression = compressionNone
	}
	if c.Watch.DebounceMillis == 0 {
		c.Watch.DebounceMillis = defaultDebounceMillis
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
