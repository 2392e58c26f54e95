package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full gateway configuration, loadable from YAML with
// environment overrides for the values that differ per deployment.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Store struct {
		// Backend selects the ledger store: memory, redis, or postgres.
		Backend string `yaml:"backend"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			Database string `yaml:"database"`
			SSLMode  string `yaml:"ssl_mode"`
		} `yaml:"postgres"`
	} `yaml:"store"`
	Payments struct {
		PayoutID        string `yaml:"payout_id"`
		DefaultMerchant string `yaml:"default_merchant"`
	} `yaml:"payments"`
	TrueMoney struct {
		Endpoint       string `yaml:"endpoint"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"truemoney"`
	SMTP struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
	Outbox struct {
		QueueSize int `yaml:"queue_size"`
		Workers   int `yaml:"workers"`
	} `yaml:"outbox"`
}

// Default returns the demo configuration: in-memory ledger, production
// provider endpoint, receipts disabled until SMTP credentials are set.
func Default() Config {
	cfg := Config{}
	cfg.Server.Address = ":3000"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Store.Backend = "memory"
	cfg.Store.Redis.Addr = "localhost:6379"
	cfg.Store.Postgres.Host = "localhost"
	cfg.Store.Postgres.Port = 5432
	cfg.Store.Postgres.User = "postgres"
	cfg.Store.Postgres.Password = "postgres"
	cfg.Store.Postgres.Database = "gateway_db"
	cfg.Store.Postgres.SSLMode = "disable"
	cfg.Payments.PayoutID = "0925384159"
	cfg.Payments.DefaultMerchant = "Unknown Shop"
	cfg.TrueMoney.Endpoint = "https://gift.truemoney.com/campaign/v1/redeem"
	cfg.TrueMoney.TimeoutSeconds = 10
	cfg.SMTP.Enabled = false
	cfg.SMTP.Host = "smtp.gmail.com"
	cfg.SMTP.Port = 587
	cfg.SMTP.From = "Bungkii Payment <noreply@bungkii.com>"
	cfg.Outbox.QueueSize = 100
	cfg.Outbox.Workers = 2
	return cfg
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. A missing file is not an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Address = ":" + port
	}
	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.Redis.Addr, "REDIS_ADDR")
	setString(&c.Store.Postgres.Host, "POSTGRES_HOST")
	setInt(&c.Store.Postgres.Port, "POSTGRES_PORT")
	setString(&c.Store.Postgres.User, "POSTGRES_USER")
	setString(&c.Store.Postgres.Password, "POSTGRES_PASSWORD")
	setString(&c.Store.Postgres.Database, "POSTGRES_DB")
	setString(&c.Payments.PayoutID, "PAYOUT_ID")
	setString(&c.TrueMoney.Endpoint, "TRUEMONEY_ENDPOINT")
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	if c.SMTP.Username != "" && c.SMTP.Password != "" {
		c.SMTP.Enabled = true
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
