package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "PRICE_TRACKER_CONFIG"

// Config holds all settings the process needs at startup.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sites     []SiteConfig    `yaml:"sites"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
}

// DSN builds a URL-encoded postgres connection string.
func (c DatabaseConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// SchedulerConfig defines how often tracked products are re-scraped.
type SchedulerConfig struct {
	IntervalHours int `yaml:"intervalHours"`
}

// Interval resolves the configured cadence, defaulting to 4 hours.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalHours <= 0 {
		return 4 * time.Hour
	}
	return time.Duration(s.IntervalHours) * time.Hour
}

// ScraperConfig bounds the page fetch.
type ScraperConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// Timeout resolves the fetch timeout, defaulting to 10 seconds.
func (s ScraperConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SiteConfig maps a source domain to the selectors that locate the
// product name and price on its pages.
type SiteConfig struct {
	Domain        string `yaml:"domain"`
	NameSelector  string `yaml:"nameSelector"`
	PriceSelector string `yaml:"priceSelector"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		c.Database.Port = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("SCRAPE_INTERVAL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.Scheduler.IntervalHours = hours
		} else {
			log.Printf("config: invalid SCRAPE_INTERVAL_HOURS %q: %v", v, err)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.User != "" {
		base.Database.User = override.Database.User
	}
	if override.Database.Password != "" {
		base.Database.Password = override.Database.Password
	}
	if override.Database.Host != "" {
		base.Database.Host = override.Database.Host
	}
	if override.Database.Port != "" {
		base.Database.Port = override.Database.Port
	}
	if override.Database.Name != "" {
		base.Database.Name = override.Database.Name
	}

	if override.Server.Port != "" {
		base.Server.Port = override.Server.Port
	}
	if override.Scheduler.IntervalHours > 0 {
		base.Scheduler.IntervalHours = override.Scheduler.IntervalHours
	}
	if override.Scraper.TimeoutSeconds > 0 {
		base.Scraper.TimeoutSeconds = override.Scraper.TimeoutSeconds
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			User: "postgres",
			Host: "localhost",
			Port: "5432",
			Name: "price_tracker",
		},
		Server:    ServerConfig{Port: "8080"},
		Scheduler: SchedulerConfig{IntervalHours: 4},
		Scraper:   ScraperConfig{TimeoutSeconds: 10},
		Logging:   LoggingConfig{Level: "info"},
		Sites: []SiteConfig{
			{
				Domain:        "www.ozon.ru",
				NameSelector:  `div[data-widget="webProductHeading"] h1`,
				PriceSelector: `div[data-widget="webPrice"] span`,
			},
		},
	}
}
