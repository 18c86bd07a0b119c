// Package config loads the service configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/gartstein/siteledger/internal/payroll/controller"
	"github.com/gartstein/siteledger/internal/payroll/db"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the service looks for its configuration when no
// -config flag is given.
var DefaultPath = filepath.Join("internal", "payroll", "config", "config.yaml")

// Config struct for YAML configuration
type Config struct {
	GRPCPort int `yaml:"GRPC_PORT"`
	HTTPPort int `yaml:"HTTP_PORT"`

	DBDriver         string `yaml:"DB_DRIVER"`
	DBHost           string `yaml:"DB_HOST"`
	DBPort           int    `yaml:"DB_PORT"`
	DBUser           string `yaml:"DB_USER"`
	DBPassword       string `yaml:"DB_PASSWORD"`
	DBName           string `yaml:"DB_NAME"`
	DBSSLMode        string `yaml:"DB_SSLMODE"`
	DBPath           string `yaml:"DB_PATH"`
	DBConnectRetries uint64 `yaml:"DB_CONNECT_RETRIES"`
	SeedFile         string `yaml:"SEED_FILE"`

	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC"`

	JWTSecret   string   `yaml:"JWT_SECRET"`
	CORSOrigins []string `yaml:"CORS_ORIGINS"`

	DefaultHourlyRate     string `yaml:"DEFAULT_HOURLY_RATE"`
	DefaultClassification string `yaml:"DEFAULT_CLASSIFICATION"`
	Timezone              string `yaml:"TIMEZONE"`
	TopEarners            int    `yaml:"TOP_EARNERS"`
}

// Load reads, defaults and validates the configuration file.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GRPCPort == 0 {
		c.GRPCPort = 50051
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.DBDriver == "" {
		c.DBDriver = db.DriverPostgres
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.Topic == "" {
		c.Topic = "payroll.events"
	}
	if c.DefaultHourlyRate == "" {
		c.DefaultHourlyRate = "0"
	}
	if c.DefaultClassification == "" {
		c.DefaultClassification = string(models.ClassificationUTR)
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.TopEarners == 0 {
		c.TopEarners = controller.DefaultTopEarners
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.DBDriver {
	case db.DriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for postgres"))
		}
	case db.DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if rate, err := decimal.NewFromString(c.DefaultHourlyRate); err != nil || rate.IsNegative() {
		errs = append(errs, fmt.Errorf("DEFAULT_HOURLY_RATE must be a non-negative decimal, got %q", c.DefaultHourlyRate))
	}
	if _, err := models.ParseClassification(c.DefaultClassification); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_CLASSIFICATION: %w", err))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if c.TopEarners < 0 {
		errs = append(errs, errors.New("TOP_EARNERS must not be negative"))
	}
	return errors.Join(errs...)
}

// Database returns the repository configuration.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:         c.DBDriver,
		Host:           c.DBHost,
		Port:           c.DBPort,
		User:           c.DBUser,
		Password:       c.DBPassword,
		DBName:         c.DBName,
		SSLMode:        c.DBSSLMode,
		Path:           c.DBPath,
		ConnectRetries: c.DBConnectRetries,
	}
}

// Payroll returns the payroll policy. Load has validated every field.
func (c *Config) Payroll() (controller.Config, error) {
	rate, err := decimal.NewFromString(c.DefaultHourlyRate)
	if err != nil {
		return controller.Config{}, err
	}
	classification, err := models.ParseClassification(c.DefaultClassification)
	if err != nil {
		return controller.Config{}, err
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return controller.Config{}, err
	}
	return controller.Config{
		DefaultHourlyRate:     rate,
		DefaultClassification: classification,
		Location:              loc,
		TopEarners:            c.TopEarners,
	}, nil
}
