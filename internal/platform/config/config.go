package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Webhooks WebhooksConfig `mapstructure:"webhooks"`
	Email    EmailConfig    `mapstructure:"email"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type EngineConfig struct {
	// ActionTimeout bounds one action execution; the stale sweep and the
	// evaluator both apply it per rule.
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
	// DefaultCron is used for time-based rules that set no expression.
	DefaultCron string `mapstructure:"default_cron"`
}

type WebhooksConfig struct {
	// DeliveryTimeout bounds one outbound POST.
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
}

type EmailConfig struct {
	Provider string     `mapstructure:"provider"` // "smtp" or "" (disabled)
	SMTP     SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Engine.ActionTimeout == 0 {
		config.Engine.ActionTimeout = 15 * time.Second
	}
	if config.Engine.DefaultCron == "" {
		config.Engine.DefaultCron = "0 9 * * *" // daily at 09:00
	}
	if config.Webhooks.DeliveryTimeout == 0 {
		config.Webhooks.DeliveryTimeout = 10 * time.Second
	}

	return &config, nil
}
