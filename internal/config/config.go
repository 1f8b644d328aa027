package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskhive/taskhive-server/internal/models"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Web      WebConfig      `yaml:"web"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Plans    PlansConfig    `yaml:"plans"`
}

// ServerConfig represents server identification
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents API listener configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WebConfig represents the SPA hosting configuration
type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents the optional audit event bus configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PlanLimits holds the per-tenant caps derived from a subscription plan
type PlanLimits struct {
	MaxUsers    int `yaml:"max_users"`
	MaxProjects int `yaml:"max_projects"`
}

// PlansConfig maps subscription plans to their default limits
type PlansConfig map[models.SubscriptionPlan]PlanLimits

// Limits resolves the limits for a plan, falling back to the free tier
// for unknown plans.
func (p PlansConfig) Limits(plan models.SubscriptionPlan) PlanLimits {
	if l, ok := p[plan]; ok {
		return l
	}
	return p[models.PlanFree]
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	if webDir := os.Getenv("WEB_DIR"); webDir != "" {
		c.Web.StaticDir = webDir
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		if host, port, err := net.SplitHostPort(addr); err == nil {
			c.API.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				c.API.Port = p
			}
		}
	}
}

// applyDefaults fills in defaults for anything the file left out
func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.JWT.TokenTTL == 0 {
		c.JWT.TokenTTL = 24 * time.Hour
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}

	if c.Plans == nil {
		c.Plans = make(PlansConfig)
	}
	if _, ok := c.Plans[models.PlanFree]; !ok {
		c.Plans[models.PlanFree] = PlanLimits{MaxUsers: 5, MaxProjects: 3}
	}
	if _, ok := c.Plans[models.PlanPro]; !ok {
		c.Plans[models.PlanPro] = PlanLimits{MaxUsers: 25, MaxProjects: 20}
	}
	if _, ok := c.Plans[models.PlanEnterprise]; !ok {
		c.Plans[models.PlanEnterprise] = PlanLimits{MaxUsers: 500, MaxProjects: 200}
	}
}
