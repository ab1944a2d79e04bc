// Package config loads jsonq settings from a YAML file with JSONQ_*
// environment overrides, e.g. JSONQ_DATABASE_DSN for database.dsn.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/internal/logging"
	"github.com/erymuzuan/motorent-sub003/internal/retry"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

type Config struct {
	Database Database        `mapstructure:"database"`
	Retry    Retry           `mapstructure:"retry"`
	Cache    Cache           `mapstructure:"cache"`
	Log      logging.Options `mapstructure:"log"`
	Entities []Entity        `mapstructure:"entities"`
}

type Database struct {
	Dialect string `mapstructure:"dialect"`
	DSN     string `mapstructure:"dsn"`
}

type Retry struct {
	Attempts int           `mapstructure:"attempts"`
	Base     time.Duration `mapstructure:"base"`
}

// Cache selects the read cache. Kind is "none", "memory" or "redis".
type Cache struct {
	Kind         string        `mapstructure:"kind"`
	Size         int           `mapstructure:"size"`
	TTL          time.Duration `mapstructure:"ttl"`
	SingleFlight bool          `mapstructure:"single_flight"`
	Redis        struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
}

// Entity declares a stored entity type for tools that have no Go type
// for it. Rows of an entity with a ScopeColumn are only visible to the
// tenant whose id that column holds.
type Entity struct {
	Schema      string   `mapstructure:"schema"`
	Name        string   `mapstructure:"name"`
	SoftDelete  string   `mapstructure:"soft_delete"`
	ScopeColumn string   `mapstructure:"scope_column"`
	Columns     []Column `mapstructure:"columns"`
}

type Column struct {
	Field string `mapstructure:"field"`
	Name  string `mapstructure:"name"`
	Type  string `mapstructure:"type"`
}

var defaults = map[string]any{
	"database.dialect":     "sqlserver",
	"database.dsn":         "",
	"retry.attempts":       retry.DefaultAttempts,
	"retry.base":           retry.DefaultBase,
	"cache.kind":           "none",
	"cache.size":           1024,
	"cache.ttl":            10 * time.Minute,
	"cache.single_flight":  true,
	"cache.redis.addr":     "localhost:6379",
	"cache.redis.password": "",
	"cache.redis.db":       0,
	"log.level":            "info",
	"log.format":           "console",
	"log.file":             "",
	"log.max_size_mb":      100,
	"log.max_backups":      3,
}

// Load reads path, which may be empty to use defaults and the environment
// only.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("JSONQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := visitors.ParseDialect(c.Database.Dialect); err != nil {
		return fmt.Errorf("database.dialect: %w", err)
	}
	switch c.Cache.Kind {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.kind: unknown kind %q", c.Cache.Kind)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts: must be at least 1, got %d", c.Retry.Attempts)
	}
	for _, e := range c.Entities {
		if _, err := e.Meta(); err != nil {
			return err
		}
	}
	return nil
}

// Dialect returns the configured SQL dialect.
func (c *Config) Dialect() visitors.Dialect {
	d, _ := visitors.ParseDialect(c.Database.Dialect)
	return d
}

// RetryPolicy returns the configured retry policy for transient.
func (c *Config) RetryPolicy(transient func(error) bool) retry.Policy {
	p := retry.Default(transient)
	p.Attempts, p.Base = c.Retry.Attempts, c.Retry.Base
	return p
}

// Entity finds a declared entity by name, or by Schema.Name.
func (c *Config) Entity(name string) (*entity.Meta, error) {
	for _, e := range c.Entities {
		if e.Name == name || e.Schema+"."+e.Name == name {
			return e.Meta()
		}
	}
	return nil, fmt.Errorf("entity %q is not declared", name)
}

// ScopeColumns maps Schema.Name to the scope column of every entity that
// declares one.
func (c *Config) ScopeColumns() map[string]string {
	out := make(map[string]string)
	for _, e := range c.Entities {
		if e.ScopeColumn != "" {
			out[e.Schema+"."+e.Name] = e.ScopeColumn
		}
	}
	return out
}

// Meta converts the declaration to an entity.Meta.
func (e Entity) Meta() (*entity.Meta, error) {
	m := &entity.Meta{Schema: e.Schema, Name: e.Name, SoftDelete: e.SoftDelete}
	for _, c := range e.Columns {
		dt := entity.TypeString
		if c.Type != "" {
			var err error
			if dt, err = entity.ParseDataType(c.Type); err != nil {
				return nil, fmt.Errorf("entity %s column %s: %w", e.Name, c.Field, err)
			}
		}
		m.Columns = append(m.Columns, entity.Column{Field: c.Field, Name: c.Name, Type: dt})
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if e.ScopeColumn == "" {
		return m, nil
	}
	for _, c := range m.Columns {
		if c.ColumnName() == e.ScopeColumn {
			return m, nil
		}
	}
	return nil, fmt.Errorf("entity %s: scope column %s is not declared", e.Name, e.ScopeColumn)
}
