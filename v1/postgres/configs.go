package postgres

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the connection settings and pool sizing of a Postgres
// client.
type Config struct {
	Connection        Connection        `yaml:"connection"`
	ConnectionDetails ConnectionDetails `yaml:"connection_details"`
}

type Connection struct {
	Host     string `yaml:"host" envconfig:"POSTGRES_HOST"`
	Port     string `yaml:"port" envconfig:"POSTGRES_PORT"`
	User     string `yaml:"user" envconfig:"POSTGRES_USER"`
	Password string `yaml:"password" envconfig:"POSTGRES_PASSWORD"`
	DbName   string `yaml:"db_name" envconfig:"POSTGRES_DB"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"POSTGRES_SSL_MODE"`
}

// ConnectionDetails sizes the pool. Zero values fall back to 50 open, 25
// idle and a one minute lifetime.
type ConnectionDetails struct {
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"POSTGRES_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"POSTGRES_CONN_MAX_LIFETIME"`
}

// NewConfig reads POSTGRES_* environment variables. Port defaults to 5432
// and SSL mode to "disable".
func NewConfig() Config {
	cfg := Config{
		Connection: Connection{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     os.Getenv("POSTGRES_PORT"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DbName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  os.Getenv("POSTGRES_SSL_MODE"),
		},
	}
	if v, err := strconv.Atoi(os.Getenv("POSTGRES_MAX_OPEN_CONNS")); err == nil {
		cfg.ConnectionDetails.MaxOpenConns = v
	}
	if v, err := strconv.Atoi(os.Getenv("POSTGRES_MAX_IDLE_CONNS")); err == nil {
		cfg.ConnectionDetails.MaxIdleConns = v
	}
	if v, err := time.ParseDuration(os.Getenv("POSTGRES_CONN_MAX_LIFETIME")); err == nil {
		cfg.ConnectionDetails.ConnMaxLifetime = v
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Connection.Port == "" {
		c.Connection.Port = "5432"
	}
	if c.Connection.SSLMode == "" {
		c.Connection.SSLMode = "disable"
	}
}

// Validate checks the fields needed to open a connection.
func (c Config) Validate() error {
	if c.Connection.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Connection.User == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidConfig)
	}
	if c.Connection.DbName == "" {
		return fmt.Errorf("%w: database name is required", ErrInvalidConfig)
	}
	return nil
}

// DSN renders the key/value connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Connection.Host,
		c.Connection.Port,
		c.Connection.User,
		c.Connection.Password,
		c.Connection.DbName,
		c.Connection.SSLMode)
}
