package lib

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FILEREGRESS_EXCLUDE.
const EnvPrefix = "FILEREGRESS"

// S3Config configures s3:// roots.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Profile   string `mapstructure:"profile"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// Config is the resolved run configuration shared by every command.
type Config struct {
	BaseFolder   string        `mapstructure:"base_folder"`
	TestFolder   string        `mapstructure:"test_folder"`
	Exclude      string        `mapstructure:"exclude"`
	Hash         string        `mapstructure:"hash"`
	ChunkSize    int           `mapstructure:"chunk_size"`
	Workers      int           `mapstructure:"workers"`
	DirBatchSize int           `mapstructure:"dir_batch_size"`
	Format       string        `mapstructure:"format"`
	Quiet        bool          `mapstructure:"quiet"`
	Verbose      bool          `mapstructure:"verbose"`
	Timeout      time.Duration `mapstructure:"timeout"`
	LogLevel     string        `mapstructure:"log_level"`
	S3           S3Config      `mapstructure:"s3"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Hash:         DefaultAlgorithm,
		ChunkSize:    DefaultChunkSize,
		Workers:      runtime.NumCPU(),
		DirBatchSize: defaultDirBatchSize,
		Format:       "text",
		LogLevel:     "info",
	}
}

// Validate rejects settings no command can run with.
func (cfg *Config) Validate() error {
	var errs []error
	if !ValidAlgorithm(cfg.Hash) {
		errs = append(errs, fmt.Errorf("hash: unknown algorithm %q (want one of %s)", cfg.Hash, strings.Join(Algorithms, ", ")))
	}
	if !ValidFormat(cfg.Format) {
		errs = append(errs, fmt.Errorf("format: unknown format %q (want one of %s)", cfg.Format, strings.Join(Formats, ", ")))
	}
	if cfg.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", cfg.ChunkSize))
	}
	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", cfg.Workers))
	}
	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout))
	}
	return errors.Join(errs...)
}

// InventoryOptions projects the hashing settings of cfg.
func (cfg *Config) InventoryOptions() InventoryOptions {
	return InventoryOptions{
		Exclude:   cfg.Exclude,
		Algorithm: cfg.Hash,
		ChunkSize: cfg.ChunkSize,
		Workers:   cfg.Workers,
	}
}

// Loader resolves configuration with precedence
// defaults < config file < FILEREGRESS_* env vars < bound flags.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// SetConfigFile sets an explicit config file path; a missing explicit file is an error.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// BindFlags binds every flag in flags to the key of the same name. Flags named
// s3_<key> bind to s3.<key>.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(flag *pflag.Flag) {
		if bindErr != nil || flag.Name == "config" || flag.Name == "help" {
			return
		}
		key := flag.Name
		if strings.HasPrefix(key, "s3_") {
			key = "s3." + strings.TrimPrefix(key, "s3_")
		}
		bindErr = l.v.BindPFlag(key, flag)
	})
	return bindErr
}

// Load applies all sources and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.setupViper(cfg)
	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.BaseFolder = expandTilde(cfg.BaseFolder)
	cfg.TestFolder = expandTilde(cfg.TestFolder)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFileUsed returns the config file that was loaded, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setupViper(cfg *Config) {
	v := l.v
	v.SetConfigName("fileregress")
	v.SetConfigType("yaml")
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "fileregress"))
	}
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "fileregress"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("base_folder", cfg.BaseFolder)
	v.SetDefault("test_folder", cfg.TestFolder)
	v.SetDefault("exclude", cfg.Exclude)
	v.SetDefault("hash", cfg.Hash)
	v.SetDefault("chunk_size", cfg.ChunkSize)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("dir_batch_size", cfg.DirBatchSize)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("s3.region", cfg.S3.Region)
	v.SetDefault("s3.profile", cfg.S3.Profile)
	v.SetDefault("s3.endpoint", cfg.S3.Endpoint)
	v.SetDefault("s3.path_style", cfg.S3.PathStyle)

	v.AutomaticEnv()
}

func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && l.configFile == "" {
			return nil
		}
		return err
	}
	return nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
