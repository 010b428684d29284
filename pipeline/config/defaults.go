package config

const (
	defaultSourceRoot     = "assets"
	defaultOutputRoot     = "cooked"
	defaultMaxDimension   = 4096
	defaultDebounceMillis = 300
	defaultLogLevel       = "info"

	compressionNone = "none"
	compressionZstd = "zstd"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Source: Source{
			Root: defaultSourceRoot,
		},
		Output: Output{
			Root:           defaultOutputRoot,
			ContentVersion: 0,
		},
		Textures: Textures{
			GenerateMips: true,
			Compression:  compressionNone,
			MaxDimension: defaultMaxDimension,
			SRGB:         true,
		},
		Watch: Watch{
			DebounceMillis: defaultDebounceMillis,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
