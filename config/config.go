// Package config loads the Prometheus configuration file.
//
// The file lives at <user config dir>/toast_n_co/prometheus/config.toml.
// Every key can be overridden from the environment as
// PROMETHEUS_<SECTION>_<KEY>, e.g. PROMETHEUS_TOKENS_DISCORD.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/toastnco/prometheus"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PROMETHEUS"

// Durable store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Cache backends.
const (
	CacheRedis = "redis"
	CacheLocal = "local"
	CacheNone  = "none"
)

type Config struct {
	Tokens    Tokens    `toml:"tokens" mapstructure:"tokens"`
	Databases Databases `toml:"databases" mapstructure:"databases"`
	Auth      Auth      `toml:"auth" mapstructure:"auth"`
	Bot       Bot       `toml:"bot" mapstructure:"bot"`
	Telemetry Telemetry `toml:"telemetry" mapstructure:"telemetry"`

	undecoded []string
}

type Tokens struct {
	Discord string `toml:"discord" mapstructure:"discord"`
	Google  string `toml:"google" mapstructure:"google"`
	Wit     string `toml:"wit" mapstructure:"wit"`
}

type Databases struct {
	Driver           string `toml:"driver" mapstructure:"driver"`
	Cache            string `toml:"cache" mapstructure:"cache"`
	Redis            string `toml:"redis" mapstructure:"redis"`
	PostgreSQL       string `toml:"postgresql" mapstructure:"postgresql"`
	PostgreSQLDBName string `toml:"postgresql_dbname" mapstructure:"postgresql_dbname"`
	MongoDB          string `toml:"mongodb" mapstructure:"mongodb"`
	MongoDBName      string `toml:"mongodb_dbname" mapstructure:"mongodb_dbname"`
	SQLite           string `toml:"sqlite" mapstructure:"sqlite"`
}

type Auth struct {
	PostgreSQLLogin    string `toml:"postgresql_login" mapstructure:"postgresql_login"`
	PostgreSQLPassword string `toml:"postgresql_password" mapstructure:"postgresql_password"`
}

type Bot struct {
	Prefix      string `toml:"prefix" mapstructure:"prefix"`
	CacheDir    string `toml:"cache_dir" mapstructure:"cache_dir"`
	LogLevel    string `toml:"log_level" mapstructure:"log_level"`
	LogFormat   string `toml:"log_format" mapstructure:"log_format"`
	LogFile     string `toml:"log_file" mapstructure:"log_file"`
	HTTPTimeout string `toml:"http_timeout" mapstructure:"http_timeout"`
}

// Telemetry controls metric export. The OTLP endpoint and headers come from
// the standard OTEL_EXPORTER_OTLP_* environment variables.
type Telemetry struct {
	Metrics        bool   `toml:"metrics" mapstructure:"metrics"`
	ExportInterval string `toml:"export_interval" mapstructure:"export_interval"`
}

// Default returns the template written on first run. Credentials are empty.
func Default() *Config {
	return &Config{
		Databases: Databases{
			Driver:           DriverPostgres,
			Cache:            CacheRedis,
			PostgreSQLDBName: "prometheus",
			MongoDBName:      "prometheus",
		},
		Bot: Bot{
			Prefix:      prometheus.DefaultPrefix,
			LogLevel:    "info",
			LogFormat:   "text",
			HTTPTimeout: "30s",
		},
		Telemetry: Telemetry{
			ExportInterval: "60s",
		},
	}
}

// Path returns the default location of the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("prometheus/config: locate user config dir: %w", err)
	}
	return filepath.Join(dir, "toast_n_co", "prometheus", "config.toml"), nil
}

// WriteDefault writes the default template to path, creating parents.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("prometheus/config: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("prometheus/config: create %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		_ = f.Close()
		return fmt.Errorf("prometheus/config: write %s: %w", path, err)
	}
	return f.Close()
}

// Load reads path and applies environment overrides.
//
// A missing file is replaced by the default template and
// prometheus.ErrConfigCreated is returned. A configuration that still equals
// the template returns prometheus.ErrConfigUnset.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := WriteDefault(path); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", prometheus.ErrConfigCreated, path)
	} else if err != nil {
		return nil, fmt.Errorf("prometheus/config: stat %s: %w", path, err)
	}

	// Decode once on its own for precise syntax errors and unknown keys.
	var raw Config
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("prometheus/config: parse %s: %w", path, err)
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("prometheus/config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("prometheus/config: decode %s: %w", path, err)
	}

	for _, k := range md.Undecoded() {
		cfg.undecoded = append(cfg.undecoded, k.String())
	}

	if cfg.IsDefault() {
		return nil, fmt.Errorf("%w: %s", prometheus.ErrConfigUnset, path)
	}
	return cfg, nil
}

// bindEnvs registers every leaf key so AutomaticEnv sees keys absent from
// the file.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string{}, parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}

// IsDefault reports whether c still equals the first-run template.
func (c *Config) IsDefault() bool {
	d := Default()
	return c.Tokens == d.Tokens &&
		c.Databases == d.Databases &&
		c.Auth == d.Auth &&
		c.Bot == d.Bot &&
		c.Telemetry == d.Telemetry
}

// UndecodedKeys lists keys in the file that match no setting.
func (c *Config) UndecodedKeys() []string { return c.undecoded }

// Validate checks that the settings needed to run are present.
func (c *Config) Validate() error {
	var errs []error
	if c.Tokens.Discord == "" {
		errs = append(errs, errors.New("tokens.discord is empty"))
	}
	if c.Tokens.Wit == "" {
		errs = append(errs, errors.New("tokens.wit is empty"))
	}
	switch c.Databases.Driver {
	case DriverPostgres:
		if c.Databases.PostgreSQL == "" {
			errs = append(errs, errors.New("databases.postgresql is empty"))
		}
	case DriverMongo:
		if c.Databases.MongoDB == "" {
			errs = append(errs, errors.New("databases.mongodb is empty"))
		}
	case DriverSQLite:
		if c.Databases.SQLite == "" {
			errs = append(errs, errors.New("databases.sqlite is empty"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("databases.driver %q is not one of postgres, mongo, sqlite, memory", c.Databases.Driver))
	}
	switch c.Databases.Cache {
	case CacheRedis:
		if c.Databases.Redis == "" {
			errs = append(errs, errors.New("databases.redis is empty"))
		}
	case CacheLocal, CacheNone:
	default:
		errs = append(errs, fmt.Errorf("databases.cache %q is not one of redis, local, none", c.Databases.Cache))
	}
	if _, err := c.HTTPTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Telemetry.Metrics {
		if _, err := c.ExportInterval(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("prometheus/config: %w", err)
	}
	return nil
}

// HTTPTimeout parses bot.http_timeout.
func (c *Config) HTTPTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Bot.HTTPTimeout)
	if err != nil {
		return 0, fmt.Errorf("bot.http_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("bot.http_timeout must be positive, got %s", d)
	}
	return d, nil
}

// ExportInterval parses telemetry.export_interval.
func (c *Config) ExportInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Telemetry.ExportInterval)
	if err != nil {
		return 0, fmt.Errorf("telemetry.export_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("telemetry.export_interval must be positive, got %s", d)
	}
	return d, nil
}

// PostgresDSN builds a keyword/value connection string from the databases
// and auth sections. A URL in databases.postgresql is returned as is.
func (c *Config) PostgresDSN() string {
	host := c.Databases.PostgreSQL
	if strings.Contains(host, "://") {
		return host
	}
	pairs := []struct{ k, v string }{
		{"host", host},
		{"user", c.Auth.PostgreSQLLogin},
		{"password", c.Auth.PostgreSQLPassword},
		{"dbname", c.Databases.PostgreSQLDBName},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.v == "" {
			continue
		}
		parts = append(parts, p.k+"="+quoteDSN(p.v))
	}
	return strings.Join(parts, " ")
}

// CacheDir returns bot.cache_dir, defaulting to the user cache dir.
func (c *Config) CacheDir() string {
	if c.Bot.CacheDir != "" {
		return c.Bot.CacheDir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "toast_n_co", "prometheus")
	}
	return filepath.Join(os.TempDir(), "prometheus")
}

func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
