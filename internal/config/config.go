package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/platecheck/internal/domain/results"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		Timezone    string   `yaml:"timezone"`
		CORSOrigins []string `yaml:"cors_origins"`
		RateLimit   struct {
			Capacity     int `yaml:"capacity"`
			RefillPerSec int `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"database"`

	Images struct {
		Backend string `yaml:"backend"`
		Root    string `yaml:"root"`
	} `yaml:"images"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Review struct {
		ReviewedBy results.ReviewedBy `yaml:"reviewed_by"`
	} `yaml:"review"`
}

// Load reads the optional YAML file at path, then lets environment
// variables (and a .env file, if any) override it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env only
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Server.Timezone, "TZ_NAME")
	setString(&c.Images.Backend, "IMAGE_BACKEND")
	setString(&c.Images.Root, "IMAGE_ROOT")
	setString(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Minio.BucketName, "MINIO_BUCKET")
	setString(&c.Minio.Region, "MINIO_REGION")

	if v := os.Getenv("REVIEWED_BY"); v != "" {
		c.Review.ReviewedBy = results.ReviewedBy(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	if err := setInt(&c.Server.Port, "SERVER_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.Database.Port, "DB_PORT"); err != nil {
		return err
	}
	if err := setBool(&c.Database.Migrate, "DB_MIGRATE"); err != nil {
		return err
	}
	return setBool(&c.Minio.UseSSL, "MINIO_USE_SSL")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8501
	}
	if c.Server.Timezone == "" {
		c.Server.Timezone = "Local"
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 30
	}
	if c.Server.RateLimit.RefillPerSec == 0 {
		c.Server.RateLimit.RefillPerSec = 5
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Port == 0 {
		if c.Database.Driver == "postgres" {
			c.Database.Port = 5432
		} else {
			c.Database.Port = 3306
		}
	}
	if c.Images.Backend == "" {
		c.Images.Backend = "local"
	}
	if c.Review.ReviewedBy == "" {
		c.Review.ReviewedBy = results.ReviewedByCorrection
	}
}

// Validate reports missing connection settings and unknown enum values.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.Database.User == "" {
		missing = append(missing, "DB_USER")
	}
	if c.Database.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if c.Database.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing database settings: %s", strings.Join(missing, ", "))
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Images.Backend {
	case "local":
	case "minio":
		if c.Minio.Endpoint == "" || c.Minio.BucketName == "" {
			return fmt.Errorf("minio image backend needs endpoint and bucket")
		}
	default:
		return fmt.Errorf("unsupported image backend %q", c.Images.Backend)
	}
	if !c.Review.ReviewedBy.Valid() {
		return fmt.Errorf("unsupported reviewed_by %q (correction or judgement)", c.Review.ReviewedBy)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location is the zone filter inputs are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

// MySQLDSN builds the go-sql-driver DSN for the serving pool. clientFoundRows
// makes UPDATE report matched rows, so re-saving identical values still
// counts as one row.
func (c *Config) MySQLDSN() string {
	return c.mysqlConfig().FormatDSN()
}

// MySQLMigrateDSN is MySQLDSN with multi-statement mode, for the short-lived
// migration connection only.
func (c *Config) MySQLMigrateDSN() string {
	m := c.mysqlConfig()
	m.MultiStatements = true
	return m.FormatDSN()
}

func (c *Config) mysqlConfig() *mysql.Config {
	m := mysql.NewConfig()
	m.User = c.Database.User
	m.Passwd = c.Database.Password
	m.Net = "tcp"
	m.Addr = net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port))
	m.DBName = c.Database.Name
	m.ParseTime = true
	m.ClientFoundRows = true
	if loc, err := c.Location(); err == nil {
		m.Loc = loc
	}
	m.Params = map[string]string{"charset": "utf8mb4"}
	return m
}

// PostgresDSN builds a postgres:// URL for lib/pq. url.URL does the escaping,
// so credentials may contain spaces, quotes or '@'.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": {"disable"}}.Encode(),
	}
	return u.String()
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
