// Package config loads wars_replica.cfg.json through viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "wars_replica.cfg.json"

// EnvPrefix prefixes environment overrides: db.password is read from WARS_REPLICA_DB_PASSWORD.
const EnvPrefix = "WARS_REPLICA"

var validate = validator.New()

// MemoryConfig holds in-memory/JSON journal settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir" validate:"required"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite journal.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval" validate:"gte=0"`
}

// DBConfig holds postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host" validate:"required"`
	Port     string `json:"port" mapstructure:"port" validate:"omitempty,numeric"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database" validate:"required"`
}

// InfluxConfig holds InfluxDB v2 settings.
type InfluxConfig struct {
	URL    string `json:"url" mapstructure:"url" validate:"required,url"`
	Token  string `json:"token" mapstructure:"token"`
	Org    string `json:"org" mapstructure:"org" validate:"required"`
	Bucket string `json:"bucket" mapstructure:"bucket" validate:"required"`

	// BackupPath receives gzipped line protocol while the server is unreachable.
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// WebsocketConfig holds the spectator server the websocket journal streams to.
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url" validate:"required,url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// JournalConfig selects and configures the journal backend.
type JournalConfig struct {
	Type      string
	Memory    MemoryConfig
	SQLite    SQLiteConfig
	DB        DBConfig
	Influx    InfluxConfig
	Websocket WebsocketConfig
}

// Validate checks the section the selected backend reads. Other sections are ignored.
func (c JournalConfig) Validate() error {
	name := c.Type
	var section any
	switch c.Type {
	case "memory", "":
		name = "memory"
		section = c.Memory
	case "sqlite":
		section = c.SQLite
	case "postgres":
		section = c.DB
	case "influx":
		section = c.Influx
	case "websocket":
		section = c.Websocket
	default:
		return nil
	}
	if err := validate.Struct(section); err != nil {
		return fmt.Errorf("invalid %s journal config: %w", name, err)
	}
	return nil
}

// TransportConfig is the live session source.
type TransportConfig struct {
	URL         string
	Secret      string
	ReadTimeout time.Duration
}

// OTelConfig mirrors otel.Config minus the log writer.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// APIConfig is the archive service the journal is uploaded to.
type APIConfig struct {
	ServerURL string
	APIKey    string
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("transport.url", "")
	viper.SetDefault("transport.secret", "")
	viper.SetDefault("transport.readTimeout", "60s")

	viper.SetDefault("journal.type", "memory")
	viper.SetDefault("journal.memory.outputDir", "./journals")
	viper.SetDefault("journal.memory.compressOutput", true)
	viper.SetDefault("journal.sqlite.path", "./journals/journal.db")
	viper.SetDefault("journal.sqlite.dumpInterval", "3m")
	viper.SetDefault("journal.websocket.url", "")
	viper.SetDefault("journal.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "hexwars")

	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "hexwars")
	viper.SetDefault("influx.bucket", "replica")
	viper.SetDefault("influx.backupPath", "./journals/influx_backup.lp.gz")

	viper.SetDefault("api.serverUrl", "http://localhost:5000/api")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("replay.strict", false)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "wars-replica")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load sets defaults and reads FileName from configDir.
// A missing file is reported as viper.ConfigFileNotFoundError; defaults stay in effect.
// A .env file in configDir, when present, is loaded into the environment first; variables
// already set win.
func Load(configDir string) error {
	setDefaults()

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func GetString(key string) string {
	return viper.GetString(key)
}

func GetInt(key string) int {
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	return viper.GetBool(key)
}

func GetJournalConfig() JournalConfig {
	var c JournalConfig
	c.Type = viper.GetString("journal.type")
	c.Memory = MemoryConfig{
		OutputDir:      viper.GetString("journal.memory.outputDir"),
		CompressOutput: viper.GetBool("journal.memory.compressOutput"),
	}
	c.SQLite = SQLiteConfig{
		Path:         viper.GetString("journal.sqlite.path"),
		DumpInterval: viper.GetDuration("journal.sqlite.dumpInterval"),
	}
	c.Websocket = WebsocketConfig{
		URL:    viper.GetString("journal.websocket.url"),
		Secret: viper.GetString("journal.websocket.secret"),
	}
	c.DB = DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
	c.Influx = InfluxConfig{
		URL:        viper.GetString("influx.url"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
	return c
}

func GetTransportConfig() TransportConfig {
	return TransportConfig{
		URL:         viper.GetString("transport.url"),
		Secret:      viper.GetString("transport.secret"),
		ReadTimeout: viper.GetDuration("transport.readTimeout"),
	}
}

func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}
