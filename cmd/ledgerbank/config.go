package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/service/sweeper"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultLockTimeout  = 5 * time.Second
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the ledger service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key to verify callers' JWT access tokens
	SecretKey string

	// Environment
	Environment string

	// RabbitMQ to publish ledger events to
	// Events are not published if empty
	AMQPURL string

	// Cron specs of credit sweeps, empty disables the sweep
	OverdueSchedule  string
	InterestSchedule string

	// How long a transaction waits for a row lock before giving up
	LockTimeout time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:         defaultLoggingLevel,
		ListenAddr:       defaultListenAddr,
		Environment:      defaultEnvironment,
		OverdueSchedule:  sweeper.DefaultOverdueSchedule,
		InterestSchedule: sweeper.DefaultInterestSchedule,
		LockTimeout:      defaultLockTimeout,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":               setString(&c.ListenAddr),
		"DATABASE_URI":              setString(&c.DatabaseDSN),
		"SECRET_KEY":                setString(&c.SecretKey),
		"LOG_LEVEL":                 setString(&c.LogLevel),
		"ENVIRONMENT":               setString(&c.Environment),
		"AMQP_URL":                  setString(&c.AMQPURL),
		"OVERDUE_SWEEP_SCHEDULE":    setString(&c.OverdueSchedule),
		"INTEREST_ACCRUAL_SCHEDULE": setString(&c.InterestSchedule),
		"LOCK_TIMEOUT":              setDuration(&c.LockTimeout),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("ledgerbank", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.AMQPURL, "amqp", "q", c.AMQPURL, "RabbitMQ URL to publish events to")
	fs.StringVar(&c.OverdueSchedule, "overdue-schedule", c.OverdueSchedule, "Cron spec of overdue credit cards freeze")
	fs.StringVar(&c.InterestSchedule, "interest-schedule", c.InterestSchedule, "Cron spec of credit cards interest accrual")
	fs.DurationVar(&c.LockTimeout, "lock-timeout", c.LockTimeout, "Max time to wait for a row lock")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	switch {
	case c.SecretKey == "":
		return errors.New("secret key is required")
	case c.DatabaseDSN == "":
		return errors.New("database connection string is required")
	case c.LockTimeout <= 0:
		return fmt.Errorf("lock timeout must be positive, got %s", c.LockTimeout)
	}
	return nil
}
