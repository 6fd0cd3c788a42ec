package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DataFile      string   `mapstructure:"DATA_FILE"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	SystemURL     string   `mapstructure:"SYSTEM_URL"`
	SMTPHost      string   `mapstructure:"SMTP_HOST"`
	SMTPPort      string   `mapstructure:"SMTP_PORT"`
	SMTPUser      string   `mapstructure:"SMTP_USER"`
	SMTPPass      string   `mapstructure:"SMTP_PASS"`
	FromAddress   string   `mapstructure:"FROM_ADDRESS"`
	HolidayAPIURL string   `mapstructure:"HOLIDAY_API_URL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3334")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATA_FILE", "db.json")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SYSTEM_URL", "http://localhost:3000")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("HOLIDAY_API_URL", "https://holidays-jp.github.io/api/v1/date.json")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATA_FILE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("SYSTEM_URL")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_USER")
	v.BindEnv("SMTP_PASS")
	v.BindEnv("FROM_ADDRESS")
	v.BindEnv("HOLIDAY_API_URL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DataFile == "" {
		return nil, fmt.Errorf("DATA_FILE must not be empty")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SMTPConfigured reports whether outbound mail can actually be delivered.
// Without it the server falls back to logging would-be mails.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.FromAddress != ""
}
