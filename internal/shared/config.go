package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. FMBRIDGE_FIREFLY_TOKEN.
const EnvPrefix = "FMBRIDGE"

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Firefly  FireflyConfig  `toml:"firefly"`
	Monarch  MonarchConfig  `toml:"monarch"`
	Sync     SyncConfig     `toml:"sync"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// FireflyConfig contains the Firefly III host and personal access token.
//
// ClientID and ClientSecret identify an OAuth client created under Profile → OAuth, used by
// 'auth login' as an alternative to pasting a token.
type FireflyConfig struct {
	Host         string  `toml:"host"`
	Token        string  `toml:"token"`
	RateLimit    float64 `toml:"rate_limit"`
	PageSize     int     `toml:"page_size"`
	ClientID     string  `toml:"client_id"`
	ClientSecret string  `toml:"client_secret"`
	CallbackAddr string  `toml:"callback_addr"`
}

// MonarchConfig contains the Monarch GraphQL endpoint and session token.
type MonarchConfig struct {
	APIURL string `toml:"api_url"`
	Token  string `toml:"token"`
}

// SyncConfig contains orchestration settings.
type SyncConfig struct {
	Workers int      `toml:"workers"`
	Kinds   []string `toml:"kinds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level   string `toml:"level"`
	TUIFile string `toml:"tui_file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads the config file at path when it exists (defaults otherwise), then applies
// variables from a .env file in the working directory and the process environment.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	// A missing .env file is the common case.
	_ = godotenv.Load()

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// envOverrides lists the supported environment variables, each read as FMBRIDGE_<name>
// and falling back to the bare <name>.
type envOverrides struct {
	FireflyHost      string   `envconfig:"FIREFLY_HOST"`
	FireflyToken     string   `envconfig:"FIREFLY_TOKEN"`
	FireflyRateLimit float64  `envconfig:"FIREFLY_RATE_LIMIT"`
	FireflyPageSize  int      `envconfig:"FIREFLY_PAGE_SIZE"`
	FireflyClientID  string   `envconfig:"FIREFLY_CLIENT_ID"`
	FireflySecret    string   `envconfig:"FIREFLY_CLIENT_SECRET"`
	MonarchAPIURL    string   `envconfig:"MONARCH_API_URL"`
	MonarchToken     string   `envconfig:"MONARCH_TOKEN"`
	SyncWorkers      int      `envconfig:"SYNC_WORKERS"`
	SyncKinds        []string `envconfig:"SYNC_KINDS"`
	DatabasePath     string   `envconfig:"DATABASE_PATH"`
	LogLevel         string   `envconfig:"LOG_LEVEL"`
}

// ApplyEnv overrides config values with FMBRIDGE_* environment variables. Unset variables leave values untouched.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	setString(&c.Firefly.Host, env.FireflyHost)
	setString(&c.Firefly.Token, env.FireflyToken)
	setString(&c.Firefly.ClientID, env.FireflyClientID)
	setString(&c.Firefly.ClientSecret, env.FireflySecret)
	setString(&c.Monarch.APIURL, env.MonarchAPIURL)
	setString(&c.Monarch.Token, env.MonarchToken)
	setString(&c.Database.Path, env.DatabasePath)
	setString(&c.Log.Level, env.LogLevel)

	if env.FireflyRateLimit > 0 {
		c.Firefly.RateLimit = env.FireflyRateLimit
	}
	if env.FireflyPageSize > 0 {
		c.Firefly.PageSize = env.FireflyPageSize
	}
	if env.SyncWorkers > 0 {
		c.Sync.Workers = env.SyncWorkers
	}
	if len(env.SyncKinds) > 0 {
		c.Sync.Kinds = env.SyncKinds
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate reports missing credentials and out-of-range settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Firefly.Host == "" {
		errs = append(errs, fmt.Errorf("%w: firefly.host", ErrInvalidConfig))
	}
	if c.Firefly.Token == "" {
		errs = append(errs, fmt.Errorf("%w: firefly.token", ErrMissingCredentials))
	}
	if c.Monarch.Token == "" {
		errs = append(errs, fmt.Errorf("%w: monarch.token", ErrMissingCredentials))
	}
	if c.Sync.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: sync.workers must be at least 1", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// WriteConfigFile encodes config as TOML to path, replacing any existing file.
func WriteConfigFile(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
