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
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the payment-review-service.
// These values are loaded from environment variables. Fee amounts are in cents.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	AdminJWKSURL             string `mapstructure:"ADMIN_JWKS_URL"`
	InternalAPIKey           string `mapstructure:"INTERNAL_API_KEY"`
	UniversityAPIBaseURL     string `mapstructure:"UNIVERSITY_API_BASE_URL"`
	UniversityAPIKey         string `mapstructure:"UNIVERSITY_API_KEY"`
	SelectionProcessFeeCents int64  `mapstructure:"SELECTION_PROCESS_FEE_CENTS"`
	I20ControlFeeCents       int64  `mapstructure:"I20_CONTROL_FEE_CENTS"`
	ScholarshipFeeCents      int64  `mapstructure:"SCHOLARSHIP_FEE_CENTS"`
	DependentSurchargeCents  int64  `mapstructure:"DEPENDENT_SURCHARGE_CENTS"`
	ReferralRewardCents      int64  `mapstructure:"REFERRAL_REWARD_CENTS"`
	NotificationTimeoutSec   int    `mapstructure:"NOTIFICATION_TIMEOUT_SECONDS"`
	GapSweepSchedule         string `mapstructure:"GAP_SWEEP_SCHEDULE"`
	GapSweepLimit            int    `mapstructure:"GAP_SWEEP_LIMIT"`
	ReviewRateLimitPerMinute int    `mapstructure:"REVIEW_RATE_LIMIT_PER_MINUTE"`
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
	viper.SetDefault("SERVER_PORT", "8086")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "studyglobal:rate_limit")
	viper.SetDefault("SELECTION_PROCESS_FEE_CENTS", 40000)
	viper.SetDefault("I20_CONTROL_FEE_CENTS", 90000)
	viper.SetDefault("SCHOLARSHIP_FEE_CENTS", 60000)
	viper.SetDefault("DEPENDENT_SURCHARGE_CENTS", 5000)
	viper.SetDefault("REFERRAL_REWARD_CENTS", 10000)
	viper.SetDefault("NOTIFICATION_TIMEOUT_SECONDS", 5)
	viper.SetDefault("GAP_SWEEP_SCHEDULE", "*/30 * * * *")
	viper.SetDefault("GAP_SWEEP_LIMIT", 100)
	viper.SetDefault("REVIEW_RATE_LIMIT_PER_MINUTE", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("ADMIN_JWKS_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "PAYMENT_REVIEW_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("UNIVERSITY_API_BASE_URL")
	_ = viper.BindEnv("UNIVERSITY_API_KEY")
	_ = viper.BindEnv("SELECTION_PROCESS_FEE_CENTS")
	_ = viper.BindEnv("I20_CONTROL_FEE_CENTS")
	_ = viper.BindEnv("SCHOLARSHIP_FEE_CENTS")
	_ = viper.BindEnv("DEPENDENT_SURCHARGE_CENTS")
	_ = viper.BindEnv("REFERRAL_REWARD_CENTS")
	_ = viper.BindEnv("NOTIFICATION_TIMEOUT_SECONDS")
	_ = viper.BindEnv("GAP_SWEEP_SCHEDULE")
	_ = viper.BindEnv("GAP_SWEEP_LIMIT")
	_ = viper.BindEnv("REVIEW_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	return config, err
}
