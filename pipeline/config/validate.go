package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRoots(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateTextures(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRoots() error {
	if c.Source.Root == "" {
		return errors.New("source.root must be set")
	}
	if c.Output.Root == "" {
		return errors.New("output.root must be set")
	}
	if c.Source.Root == c.Output.Root {
		return errors.New("source.root and output.root must differ")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.ContentVersion < 0 || c.Output.ContentVersion > 0xFFFF {
		return fmt.Errorf("output.content_version %d outside [0, 65535]", c.Output.ContentVersion)
	}
	return nil
}

func (c *Config) validateTextures() error {
	switch c.Textures.Compression {
	case compressionNone, compressionZstd:
	default:
		return fmt.Errorf("textures.compression %q must be %q or %q", c.Textures.Compression, compressionNone, compressionZstd)
	}
	if c.Textures.MaxDimension < 0 || c.Textures.MaxDimension > 0xFFFF {
		return fmt.Errorf("textures.max_dimension %d outside [0, 65535]", c.Textures.MaxDimension)
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.DebounceMillis < 0 {
		return errors.New("watch.debounce_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}
