package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// configSearchPaths are tried in order when no explicit config file is
// given, covering runs from the repo root, the binary directory, and
// an installed layout.
var configSearchPaths = []string{
	"./cmd/livescribe/config.yml",
	"./config.yml",
	"./config/config.yml",
	"../cmd/livescribe/config.yml",
}

var envSearchPaths = []string{
	".env.livescribe",
	".env",
	"./cmd/livescribe/.env",
}

type loader struct {
	configFile string
	envFile    string
}

// Option adjusts how Load resolves its input files.
type Option func(*loader)

// WithConfigFile pins the YAML config file instead of searching for one.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.configFile = path }
}

// WithEnvFile pins the .env file instead of searching for one.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

// Load assembles the service configuration from config.yml, an
// optional .env file and the process environment, applies defaults,
// and validates the result. Explicit options win over the
// LIVESCRIBE_CONFIG variable, which wins over the search paths.
func Load(opts ...Option) (*Config, error) {
	var l loader
	for _, opt := range opts {
		opt(&l)
	}
	if l.configFile == "" {
		l.configFile = os.Getenv("LIVESCRIBE_CONFIG")
	}
	if l.configFile == "" {
		l.configFile = firstExisting(configSearchPaths)
	}
	if l.envFile == "" {
		l.envFile = firstExisting(envSearchPaths)
	}

	v := viper.New()

	if fileExists(l.configFile) {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", l.configFile, err)
		}
	}

	v.AutomaticEnv()
	bindEnvVariants(v)

	if fileExists(l.envFile) {
		if err := godotenv.Load(l.envFile); err != nil {
			fmt.Fprintf(os.Stderr, "[config] skipping unreadable .env file %s: %v\n", l.envFile, err)
		} else {
			// Re-bind to pick up variables the .env file introduced.
			bindEnvVariants(v)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// bindEnvVariants maps every multi-segment environment variable onto
// the nested viper keys it could address, so SERVER_PORT reaches
// server.port and TRANSCRIPTION_WHISPER_URL reaches
// transcription.whisper.url. Single-segment variables (PATH, LANGUAGE)
// are skipped so ambient shell variables cannot shadow whole sections.
func bindEnvVariants(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		for _, variant := range envKeyVariants(pair[0]) {
			v.Set(variant, pair[1])
		}
	}
}

func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return nil
	}

	seen := make(map[string]bool, len(parts)+1)
	variants := make([]string, 0, len(parts)+1)
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			variants = append(variants, key)
		}
	}

	add(lower)
	add(strings.Join(parts, "."))
	// Progressive nesting: each split point between a dotted prefix and
	// an underscored tail, e.g. transcription.whisper_url.
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return variants
}
