/**
 * @description
 * This file handles configuration management for the rent service. It loads
 * settings from environment variables or a local .env file, with defaults
 * for the cron schedule, escalation thresholds and timezone.
 */
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the rent service.
type Config struct {
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	ServerPort            string `mapstructure:"SERVER_PORT"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	WhatsAppAPIURL        string `mapstructure:"WHATSAPP_API_URL"`
	WhatsAppAccessToken   string `mapstructure:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppPhoneNumberID string `mapstructure:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppWebhookSecret string `mapstructure:"WHATSAPP_WEBHOOK_SECRET"`
	WhatsAppVerifyToken   string `mapstructure:"WHATSAPP_VERIFY_TOKEN"`
	DocRenderURL          string `mapstructure:"DOCRENDER_URL"`
	InteracAPIURL         string `mapstructure:"INTERAC_API_URL"`
	InteracAPIKey         string `mapstructure:"INTERAC_API_KEY"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	DailyCycleSchedule    string `mapstructure:"DAILY_CYCLE_SCHEDULE"`
	N4ThresholdDays       int    `mapstructure:"N4_THRESHOLD_DAYS"`
	L1ThresholdDays       int    `mapstructure:"L1_THRESHOLD_DAYS"`
	Timezone              string `mapstructure:"TIMEZONE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DAILY_CYCLE_SCHEDULE", "0 9 * * *") // Every day at 09:00.
	viper.SetDefault("N4_THRESHOLD_DAYS", 14)             // Ontario LTB N4 notice.
	viper.SetDefault("L1_THRESHOLD_DAYS", 15)             // LTB L1 application.
	viper.SetDefault("TIMEZONE", "America/Toronto")
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("WHATSAPP_API_URL")
	_ = viper.BindEnv("WHATSAPP_ACCESS_TOKEN")
	_ = viper.BindEnv("WHATSAPP_PHONE_NUMBER_ID")
	_ = viper.BindEnv("WHATSAPP_WEBHOOK_SECRET")
	_ = viper.BindEnv("WHATSAPP_VERIFY_TOKEN")
	_ = viper.BindEnv("DOCRENDER_URL")
	_ = viper.BindEnv("INTERAC_API_URL")
	_ = viper.BindEnv("INTERAC_API_KEY")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("DAILY_CYCLE_SCHEDULE")
	_ = viper.BindEnv("N4_THRESHOLD_DAYS")
	_ = viper.BindEnv("L1_THRESHOLD_DAYS")
	_ = viper.BindEnv("TIMEZONE")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if config.N4ThresholdDays < 1 || config.L1ThresholdDays < 1 {
		return nil, fmt.Errorf("escalation thresholds must be at least 1 day")
	}

	return &config, nil
}
