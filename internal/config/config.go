package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultConfigPath = "./config/bdmon.yaml"
	envPrefix         = "BDMON"
)

// Service names understood by the harvester
const (
	HDFS      = "hdfs"
	HBase     = "hbase"
	YARN      = "yarn"
	ZooKeeper = "zookeeper"
	Hive      = "hive"
	Spark     = "spark"
)

// Service holds the endpoints and transport options of one cluster service
type Service struct {
	Endpoints  []string      `mapstructure:"endpoints"`
	Workers    []string      `mapstructure:"workers"`
	WorkerPort int           `mapstructure:"worker-port"`
	TLS        bool          `mapstructure:"tls"`
	URIPath    string        `mapstructure:"uri-path"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MinDate    string        `mapstructure:"min-date"`
}

// Scheme returns http or https depending on the TLS flag
func (s Service) Scheme() string {
	if s.TLS {
		return "https"
	}
	return "http"
}

// DB holds the relational store settings
type DB struct {
	Driver      string        `mapstructure:"driver"`
	DSN         string        `mapstructure:"dsn"`
	Retry       int           `mapstructure:"retry"`
	RetrySleep  time.Duration `mapstructure:"retry-sleep"`
	Bootstrap   bool          `mapstructure:"bootstrap"`
	SeedCatalog bool          `mapstructure:"seed-catalog"`
}

// Log holds logger settings
type Log struct {
	Level       string   `mapstructure:"level"`
	Development bool     `mapstructure:"development"`
	Outputs     []string `mapstructure:"outputs"`
}

// Security holds TLS client settings
type Security struct {
	TLSVerify bool `mapstructure:"tls-verify"`
}

// Config is the harvester configuration
type Config struct {
	Apps        []string `mapstructure:"apps"`
	HDFS        Service  `mapstructure:"hdfs"`
	HBase       Service  `mapstructure:"hbase"`
	YARN        Service  `mapstructure:"yarn"`
	ZooKeeper   Service  `mapstructure:"zookeeper"`
	Hive        Service  `mapstructure:"hive"`
	Spark       Service  `mapstructure:"spark"`
	DB          DB       `mapstructure:"db"`
	Log         Log      `mapstructure:"log"`
	Security    Security `mapstructure:"security"`
	Schedule    string   `mapstructure:"schedule"`
	MetricsAddr string   `mapstructure:"metrics-addr"`
}

// Service returns the settings of a named service
func (c *Config) Service(name string) (Service, bool) {
	switch name {
	case HDFS:
		return c.HDFS, true
	case HBase:
		return c.HBase, true
	case YARN:
		return c.YARN, true
	case ZooKeeper:
		return c.ZooKeeper, true
	case Hive:
		return c.Hive, true
	case Spark:
		return c.Spark, true
	}
	return Service{}, false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("apps", []string{HDFS})
	v.SetDefault("schedule", "")
	v.SetDefault("metrics-addr", "")

	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "bdmon.db")
	v.SetDefault("db.retry", 3)
	v.SetDefault("db.retry-sleep", 2*time.Second)
	v.SetDefault("db.bootstrap", true)
	v.SetDefault("db.seed-catalog", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.outputs", []string{"stderr"})

	v.SetDefault("security.tls-verify", true)

	services := map[string]struct {
		endpoints  []string
		workerPort int
		uriPath    string
	}{
		HDFS:      {[]string{"localhost:50070"}, 50075, "/jmx"},
		HBase:     {[]string{"localhost:16010"}, 16030, "/jmx"},
		YARN:      {[]string{"localhost:8088"}, 8042, "/jmx"},
		ZooKeeper: {[]string{"localhost:2181"}, 0, ""},
		Hive:      {[]string{"localhost:10002"}, 0, "/jmx"},
		Spark:     {[]string{"localhost:18080"}, 0, "/api/v1"},
	}
	for name, d := range services {
		v.SetDefault(name+".endpoints", d.endpoints)
		v.SetDefault(name+".workers", []string{})
		v.SetDefault(name+".worker-port", d.workerPort)
		v.SetDefault(name+".tls", false)
		v.SetDefault(name+".uri-path", d.uriPath)
		v.SetDefault(name+".timeout", time.Second)
		v.SetDefault(name+".min-date", "")
	}
}

// Load reads the configuration file at path, overlaid by BDMON_* environment
// variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	if path == "" {
		path = DefaultConfigPath
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize trims list entries so "a, b" and "a,b" are equivalent
func (c *Config) normalize() {
	c.Apps = cleanList(c.Apps)
	for _, s := range []*Service{&c.HDFS, &c.HBase, &c.YARN, &c.ZooKeeper, &c.Hive, &c.Spark} {
		s.Endpoints = cleanList(s.Endpoints)
		s.Workers = cleanList(s.Workers)
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the configuration for required values
func (c *Config) Validate() error {
	if len(c.Apps) == 0 {
		return fmt.Errorf("apps is required")
	}
	switch c.DB.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported db driver: %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db dsn is required")
	}
	if c.DB.Retry < 1 {
		return fmt.Errorf("db retry must be at least 1")
	}
	for _, app := range c.Apps {
		svc, ok := c.Service(app)
		if !ok {
			// Reported by the harvester as an unknown service
			continue
		}
		if len(svc.Endpoints) == 0 {
			return fmt.Errorf("%s endpoints are required", app)
		}
		if svc.Timeout <= 0 {
			return fmt.Errorf("%s timeout must be positive", app)
		}
	}
	return nil
}
