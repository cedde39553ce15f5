package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"ENV"`

	// Rental policy.
	MinRentalDays      int     `mapstructure:"MIN_RENTAL_DAYS"`
	MaxAdvanceDays     int     `mapstructure:"MAX_ADVANCE_DAYS"`
	SlotCapacity       int     `mapstructure:"SLOT_CAPACITY"`
	BookingPricePerDay float64 `mapstructure:"BOOKING_PRICE_PER_DAY"`
	BookingCurrency    string  `mapstructure:"BOOKING_CURRENCY"`
	// Delivery slots offered on the dates step.
	TimeSlots []string `mapstructure:"TIME_SLOTS"`

	// Availability coordinator.
	DebounceDelayMs int `mapstructure:"DEBOUNCE_DELAY_MS"`

	// Submission rate limiting.
	RateLimitWindowMin   int `mapstructure:"RATE_LIMIT_WINDOW_MIN"`
	RateLimitMaxAttempts int `mapstructure:"RATE_LIMIT_MAX_ATTEMPTS"`

	// Retry policy for network legs.
	RetryMaxAttempts int `mapstructure:"RETRY_MAX_ATTEMPTS"`
	RetryBaseDelayMs int `mapstructure:"RETRY_BASE_DELAY_MS"`
	NetworkTimeoutMs int `mapstructure:"NETWORK_TIMEOUT_MS"`

	// Remote scheduling backend.
	SchedulingBaseURL string `mapstructure:"SCHEDULING_BASE_URL"`

	// Stripe tokenization credentials.
	StripeKey       string `mapstructure:"STRIPE_KEY"`
	StripePublicKey string `mapstructure:"STRIPE_PUBLIC_KEY"`

	// Redis configuration.
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB     int    `mapstructure:"REDIS_SESSION_DB"`
	RedisRateLimitDB   int    `mapstructure:"REDIS_RATE_LIMIT_DB"`
	RedisRefundQueueDB int    `mapstructure:"REDIS_REFUND_QUEUE_DB"`

	// Allowed origin of the embedding site.
	WidgetOrigin string `mapstructure:"WIDGET_ORIGIN"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("MIN_RENTAL_DAYS", 1)
	viper.SetDefault("MAX_ADVANCE_DAYS", 180)
	viper.SetDefault("SLOT_CAPACITY", 3)
	viper.SetDefault("BOOKING_PRICE_PER_DAY", 95.0)
	viper.SetDefault("BOOKING_CURRENCY", "eur")
	viper.SetDefault("TIME_SLOTS", []string{"09:00-12:00", "12:00-15:00", "15:00-18:00"})
	viper.SetDefault("DEBOUNCE_DELAY_MS", 400)
	viper.SetDefault("RATE_LIMIT_WINDOW_MIN", 10)
	viper.SetDefault("RATE_LIMIT_MAX_ATTEMPTS", 5)
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_BASE_DELAY_MS", 500)
	viper.SetDefault("NETWORK_TIMEOUT_MS", 10000)
	viper.SetDefault("SCHEDULING_BASE_URL", "http://localhost:9090")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_RATE_LIMIT_DB", 1)
	viper.SetDefault("REDIS_REFUND_QUEUE_DB", 2)
	viper.SetDefault("WIDGET_ORIGIN", "*")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// RateLimitWindow returns the sliding window as a duration.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMin) * time.Minute
}

// DebounceDelay returns the coordinator debounce delay as a duration.
func (c Config) DebounceDelay() time.Duration {
	return time.Duration(c.DebounceDelayMs) * time.Millisecond
}

// RetryBaseDelay returns the base backoff delay as a duration.
func (c Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// NetworkTimeout returns the per-call upper bound for remote calls.
func (c Config) NetworkTimeout() time.Duration {
	return time.Duration(c.NetworkTimeoutMs) * time.Millisecond
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
