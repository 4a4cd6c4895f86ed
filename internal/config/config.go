/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the donation-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	RedisURL          string `mapstructure:"REDIS_URL"`
	RedisDedupePrefix string `mapstructure:"REDIS_DEDUPE_PREFIX"`
	WebhookDedupeTTL  int    `mapstructure:"WEBHOOK_DEDUPE_TTL_SECONDS"`

	ClerkJWKSURL string `mapstructure:"CLERK_JWKS_URL"`

	PayMongoAPIBaseURL    string `mapstructure:"PAYMONGO_API_BASE_URL"`
	PayMongoSecretKey     string `mapstructure:"PAYMONGO_SECRET_KEY"`
	PayMongoWebhookSecret string `mapstructure:"PAYMONGO_WEBHOOK_SECRET"`

	MayaAPIBaseURL    string `mapstructure:"MAYA_API_BASE_URL"`
	MayaPublicKey     string `mapstructure:"MAYA_PUBLIC_KEY"`
	MayaWebhookSecret string `mapstructure:"MAYA_WEBHOOK_SECRET"`

	CheckoutSuccessURL string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutFailureURL string `mapstructure:"CHECKOUT_FAILURE_URL"`
	CheckoutCancelURL  string `mapstructure:"CHECKOUT_CANCEL_URL"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8084")
	viper.SetDefault("REDIS_DEDUPE_PREFIX", "donation:webhook_seen")
	viper.SetDefault("WEBHOOK_DEDUPE_TTL_SECONDS", 3600)
	viper.SetDefault("PAYMONGO_API_BASE_URL", "https://api.paymongo.com")
	viper.SetDefault("MAYA_API_BASE_URL", "https://pg-sandbox.paymaya.com")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "DONATION_REDIS_URL")
	_ = viper.BindEnv("REDIS_DEDUPE_PREFIX")
	_ = viper.BindEnv("WEBHOOK_DEDUPE_TTL_SECONDS")
	_ = viper.BindEnv("CLERK_JWKS_URL")
	_ = viper.BindEnv("PAYMONGO_API_BASE_URL")
	_ = viper.BindEnv("PAYMONGO_SECRET_KEY")
	_ = viper.BindEnv("PAYMONGO_WEBHOOK_SECRET")
	_ = viper.BindEnv("MAYA_API_BASE_URL")
	_ = viper.BindEnv("MAYA_PUBLIC_KEY")
	_ = viper.BindEnv("MAYA_WEBHOOK_SECRET")
	_ = viper.BindEnv("CHECKOUT_SUCCESS_URL")
	_ = viper.BindEnv("CHECKOUT_FAILURE_URL")
	_ = viper.BindEnv("CHECKOUT_CANCEL_URL")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Platform-assigned port wins when present (Railway, Render, Heroku).
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisDedupePrefix = strings.TrimSpace(config.RedisDedupePrefix)
	if config.RedisDedupePrefix == "" {
		config.RedisDedupePrefix = "donation:webhook_seen"
	}
	if config.WebhookDedupeTTL <= 0 {
		config.WebhookDedupeTTL = 3600
	}

	return
}
