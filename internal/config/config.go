package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime startup configuration loaded from YAML.
// Application-level options (AI providers, S3, backup schedule) live in the
// database-backed FullConfig instead, so they can change without a restart.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	Paths          RuntimePathsConfig    `yaml:"paths"`
	LogRotateSize  *int                  `yaml:"log_rotate_size_mb"`
	LogRotateKeep  *int                  `yaml:"log_rotate_keep"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
	Cluster        bool                  `yaml:"cluster"`
	ClusterWorkers int                   `yaml:"cluster_workers"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type RuntimePathsConfig struct {
	Logs    string `yaml:"logs"`
	Backups string `yaml:"backups"`
}

// rawAppConfig tolerates the flat key spellings the MongoDB-era deployment
// used in its env files, so old configs keep loading after the migration.
type rawAppConfig struct {
	Port               int               `yaml:"port"`
	DSN                string            `yaml:"dsn"`
	DatabaseURL        string            `yaml:"database_url"`
	RedisURL           string            `yaml:"redis_url"`
	Database           rawDatabaseConfig `yaml:"database"`
	Redis              rawRedisConfig    `yaml:"redis"`
	DBHost             string            `yaml:"db_host"`
	DBPort             int               `yaml:"db_port"`
	DBUser             string            `yaml:"db_user"`
	DBPassword         string            `yaml:"db_password"`
	DBName             string            `yaml:"db_name"`
	DBCharset          string            `yaml:"db_charset"`
	DBLoc              string            `yaml:"db_loc"`
	DBParseTime        *bool             `yaml:"db_parse_time"`
	RedisHost          string            `yaml:"redis_host"`
	RedisPort          int               `yaml:"redis_port"`
	RedisUsername      string            `yaml:"redis_username"`
	RedisPassword      string            `yaml:"redis_password"`
	RedisDB            *int              `yaml:"redis_db"`
	RedisTLS           *bool             `yaml:"redis_tls"`
	Env                string            `yaml:"env"`
	NodeEnv            string            `yaml:"node_env"`
	Paths              rawPathsConfig    `yaml:"paths"`
	LogDir             string            `yaml:"log_dir"`
	LogsDir            string            `yaml:"logs_dir"`
	LogRotateSize      *int              `yaml:"log_rotate_size_mb"`
	LogRotateKeep      *int              `yaml:"log_rotate_keep"`
	BackupDir          string            `yaml:"backup_dir"`
	BackupsDir         string            `yaml:"backups_dir"`
	AllowedOrigins     []string          `yaml:"allowed_origins"`
	CORSAllowedOrigins []string          `yaml:"cors_origins"`
	JWTSecret          string            `yaml:"jwt_secret"`
	JWTSecretLegacy    string            `yaml:"jwtsecret"`
	Timezone           string            `yaml:"timezone"`
	TimeZone           string            `yaml:"time_zone"`
	TZ                 string            `yaml:"tz"`
	Cluster            *bool             `yaml:"cluster"`
	ClusterWorkers     int               `yaml:"cluster_workers"`
}

type rawDatabaseConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawPathsConfig struct {
	Logs    string `yaml:"logs"`
	Backups string `yaml:"backups"`
}

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	raw := rawAppConfig{}
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		// An empty file is a valid "all defaults" config.
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	applyRawAppConfig(&cfg, raw)
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return nil, fmt.Errorf("invalid redis.port %d in %q, expected 1-65535", cfg.Redis.Port, path)
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.NodeEnv); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogsDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.Paths.Backups); v != "" {
		cfg.Paths.Backups = v
	}
	if v := strings.TrimSpace(raw.BackupDir); v != "" {
		cfg.Paths.Backups = v
	}
	if v := strings.TrimSpace(raw.BackupsDir); v != "" {
		cfg.Paths.Backups = v
	}
	if raw.LogRotateSize != nil {
		v := *raw.LogRotateSize
		cfg.LogRotateSize = &v
	}
	if raw.LogRotateKeep != nil {
		v := *raw.LogRotateKeep
		cfg.LogRotateKeep = &v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}

	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.JWTSecretLegacy); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TimeZone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}
	if raw.Cluster != nil {
		cfg.Cluster = *raw.Cluster
	}
	if raw.ClusterWorkers > 0 {
		cfg.ClusterWorkers = raw.ClusterWorkers
	}

	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	cfg.Env = normalizeEnv(cfg.Env)
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current

	if v := strings.TrimSpace(raw.Database.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Database.URL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Database.Host); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(raw.DBHost); v != "" {
		cfg.Host = v
	}
	if raw.Database.Port != 0 {
		cfg.Port = raw.Database.Port
	}
	if raw.DBPort != 0 {
		cfg.Port = raw.DBPort
	}
	if v := strings.TrimSpace(raw.Database.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Database.Username); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.DBUser); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Database.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.DBPassword); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.Database.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Database.DBName); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.DBName); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Database.Charset); v != "" {
		cfg.Charset = v
	}
	if v := strings.TrimSpace(raw.DBCharset); v != "" {
		cfg.Charset = v
	}
	if raw.Database.ParseTime != nil {
		cfg.ParseTime = *raw.Database.ParseTime
	}
	if raw.DBParseTime != nil {
		cfg.ParseTime = *raw.DBParseTime
	}
	if v := strings.TrimSpace(raw.Database.Loc); v != "" {
		cfg.Loc = v
	}
	if v := strings.TrimSpace(raw.DBLoc); v != "" {
		cfg.Loc = v
	}
	if raw.Database.Params != nil {
		cfg.Params = copyStringMap(raw.Database.Params)
	}

	return normalizeDatabaseConfig(cfg)
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current

	if v := strings.TrimSpace(raw.Redis.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.Redis.Host); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(raw.RedisHost); v != "" {
		cfg.Host = v
	}
	if raw.Redis.Port != 0 {
		cfg.Port = raw.Redis.Port
	}
	if raw.RedisPort != 0 {
		cfg.Port = raw.RedisPort
	}
	if v := strings.TrimSpace(raw.Redis.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.RedisUsername); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.Redis.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.RedisPassword); v != "" {
		cfg.Password = v
	}
	if raw.Redis.DB != nil {
		cfg.DB = *raw.Redis.DB
	}
	if raw.RedisDB != nil {
		cfg.DB = *raw.RedisDB
	}
	if raw.Redis.TLS != nil {
		cfg.TLS = *raw.Redis.TLS
	}
	if raw.RedisTLS != nil {
		cfg.TLS = *raw.RedisTLS
	}
	if v := strings.TrimSpace(raw.Redis.Scheme); v != "" {
		cfg.Scheme = v
	}
	if raw.Redis.Params != nil {
		cfg.Params = copyStringMap(raw.Redis.Params)
	}

	return normalizeRedisConfig(cfg)
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

func (c *AppConfig) LogRotateSizeMB() (int, bool) {
	if c == nil || c.LogRotateSize == nil {
		return 0, false
	}
	return *c.LogRotateSize, true
}

func (c *AppConfig) LogRotateKeepCount() (int, bool) {
	if c == nil || c.LogRotateKeep == nil {
		return 0, false
	}
	return *c.LogRotateKeep, true
}

func (c *AppConfig) BackupDir() string {
	if c == nil {
		return ResolveRuntimePath("", "backups")
	}
	return ResolveRuntimePath(c.Paths.Backups, "backups")
}
