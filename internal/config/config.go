// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported storage drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds everything the API process needs at startup.
type Config struct {
	Port            string
	StoreDriver     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	DatabaseURL     string
	AMQPURL         string
	AMQPExchange    string
	Seed            bool
	LogLevel        string
	ConnectTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string { return ":" + c.Port }

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}

// LoadDotEnv reads the given .env files into the process environment. Missing
// files are ignored; a file that exists but cannot be parsed is an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load collects configuration from the environment with defaults.
func Load() Config {
	return Config{
		Port:            getenv("APP_PORT", "8080"),
		StoreDriver:     strings.ToLower(getenv("STORE_DRIVER", DriverMongo)),
		MongoURI:        getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getenv("MONGO_DATABASE", "catalog"),
		MongoCollection: getenv("MONGO_COLLECTION", "products"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		AMQPURL:         getenv("AMQP_URL", ""),
		AMQPExchange:    getenv("AMQP_EXCHANGE", "catalog.events"),
		Seed:            boolenv("SEED", true),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		ConnectTimeout:  durenvs("CONNECT_TIMEOUT", 10),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),
	}
}

// Validate reports configuration that cannot start a server.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid APP_PORT %q", c.Port)
	}
	return nil
}
