package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	sdk "github.com/matrixorigin/moi-go-sdk"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	RealtimeLocal    = "local"
	RealtimePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Rotation RotationConfig `yaml:"rotation"`
	Realtime RealtimeConfig `yaml:"realtime"`
	MOI      MOIConfig      `yaml:"moi"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Timezone string `yaml:"timezone"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
}

type AuthConfig struct {
	Secret        string `yaml:"secret"`
	IDPSecret     string `yaml:"idp_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type RotationConfig struct {
	DefaultDepartment string `yaml:"default_department"`
	AssignAttempts    int    `yaml:"assign_attempts"`
}

// RealtimeConfig selects where change notifications come from: "local"
// publishes from gorm callbacks in this process, "postgres" listens to
// table triggers so writes from other processes are seen too.
type RealtimeConfig struct {
	Mode    string `yaml:"mode"`
	Channel string `yaml:"channel"`
}

type MOIConfig struct {
	BaseURL            string `yaml:"base_url"`
	APIKey             string `yaml:"api_key"`
	CatalogID          int64  `yaml:"catalog_id"`
	DatabaseID         int64  `yaml:"database_id"`
	SchedulesTableID   int64  `yaml:"schedules_table_id"`
	CompletionsTableID int64  `yaml:"completions_table_id"`
	MembersTableID     int64  `yaml:"members_table_id"`
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 9871, Timezone: "Asia/Tokyo"},
		MOI:      MOIConfig{BaseURL: "https://freetier-01.cn-hangzhou.cluster.cn-dev.matrixone.tech"},
		Log:      LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Database: DatabaseConfig{Driver: DriverMySQL, Host: "127.0.0.1", Port: 3306, Name: "cleaning_duty", Path: "cleaning-duty.db"},
		Auth:     AuthConfig{Secret: "cleaning-duty-secret-2026", TokenTTLHours: 7 * 24},
		Rotation: RotationConfig{DefaultDepartment: "開発", AssignAttempts: 3},
		Realtime: RealtimeConfig{Mode: RealtimeLocal, Channel: "table_changes"},
	}
}

func Load(configFile string) *Config {
	c := Default()

	paths := []string{"etc/config-dev.yaml", "/etc/cleaning-duty/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, c); err != nil {
				fmt.Fprintf(os.Stderr, "config %s: %v\n", path, err)
			}
			break
		}
	}

	envOverride(&c.Database.Driver, "DB_DRIVER")
	envOverride(&c.Database.DSN, "DB_DSN")
	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Password, "DB_PASS")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverride(&c.Database.Path, "DB_PATH")
	envOverride(&c.Auth.Secret, "JWT_SECRET")
	envOverride(&c.Auth.IDPSecret, "IDP_SECRET")
	envOverride(&c.Server.Timezone, "TZ_NAME")
	envOverride(&c.Realtime.Mode, "REALTIME_MODE")
	envOverride(&c.Rotation.DefaultDepartment, "DEFAULT_DEPARTMENT")
	envOverride(&c.MOI.BaseURL, "MOI_BASE_URL")
	envOverride(&c.MOI.APIKey, "MOI_API_KEY")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverrideInt(&c.Database.Port, "DB_PORT")
	envOverrideInt(&c.Rotation.AssignAttempts, "ASSIGN_ATTEMPTS")

	if c.Rotation.AssignAttempts < 1 {
		c.Rotation.AssignAttempts = 1
	}
	return c
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

func (c *Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name)
}

func (c *Config) OpenGormDB() (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	switch c.Database.Driver {
	case DriverPostgres:
		return gorm.Open(postgres.Open(c.PostgresDSN()), gcfg)
	case DriverSQLite:
		sqlDB, err := sql.Open("sqlite3", c.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("ping db: %w", err)
		}
		// one writer at a time keeps "database is locked" away
		sqlDB.SetMaxOpenConns(1)
		return gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite3", Conn: sqlDB}), gcfg)
	case DriverMySQL, "":
		return c.openMySQL(gcfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
}

func (c *Config) openMySQL(gcfg *gorm.Config) (*gorm.DB, error) {
	cfg := gomysql.NewConfig()
	if c.Database.DSN != "" {
		parsed, err := gomysql.ParseDSN(c.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		cfg = parsed
	} else {
		cfg.User = c.Database.User
		cfg.Passwd = c.Database.Password
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
		cfg.DBName = c.Database.Name
	}
	cfg.ParseTime = true

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), gcfg)
}

// CatalogEnabled reports whether schedules and completions are exported to
// the MatrixOne catalog.
func (c *Config) CatalogEnabled() bool {
	return c.MOI.APIKey != "" && c.MOI.DatabaseID != 0
}

func (c *Config) NewRawClient() (*sdk.RawClient, error) {
	return sdk.NewRawClient(c.MOI.BaseURL, c.MOI.APIKey)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
