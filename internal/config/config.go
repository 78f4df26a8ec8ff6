// Package config loads service settings from environment variables, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mfigueredo/clima-alerta/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL string

	KafkaBrokers       []string
	KafkaAlertTopic    string
	KafkaFeedbackTopic string
	KafkaGroupID       string

	WeatherAPIKey  string
	Latitude       float64
	Longitude      float64
	WeatherTimeout time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ModelPath string

	MainInterval     time.Duration
	ForecastInterval time.Duration
	RetrainInterval  time.Duration

	Thresholds domain.Thresholds
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is merged in first; its
// absence is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parseDuration("WEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mainInterval, err := parseDuration("MAIN_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}
	forecastInterval, err := parseDuration("FORECAST_INTERVAL", "6h")
	if err != nil {
		return nil, err
	}
	retrainInterval, err := parseDuration("RETRAIN_INTERVAL", "168h")
	if err != nil {
		return nil, err
	}

	lat, err := parseFloat("WEATHER_LAT", "-34.6037")
	if err != nil {
		return nil, err
	}
	lon, err := parseFloat("WEATHER_LON", "-58.3816")
	if err != nil {
		return nil, err
	}

	thresholds, err := loadThresholds()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic:    envOrDefault("KAFKA_ALERT_TOPIC", "weather-alerts"),
		KafkaFeedbackTopic: envOrDefault("KAFKA_FEEDBACK_TOPIC", "alert-feedback"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "clima-alerta"),

		WeatherAPIKey:  os.Getenv("OWM_API_KEY"),
		Latitude:       lat,
		Longitude:      lon,
		WeatherTimeout: weatherTimeout,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ModelPath: envOrDefault("MODEL_PATH", "data/risk-model.json"),

		MainInterval:     mainInterval,
		ForecastInterval: forecastInterval,
		RetrainInterval:  retrainInterval,

		Thresholds: thresholds,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.WeatherAPIKey == "" {
		return nil, errors.New("OWM_API_KEY is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}
	if cfg.KafkaFeedbackTopic == "" {
		return nil, errors.New("KAFKA_FEEDBACK_TOPIC is required")
	}

	return cfg, nil
}

func loadThresholds() (domain.Thresholds, error) {
	tempMax, err := parseFloat("TEMP_MAX", "35")
	if err != nil {
		return domain.Thresholds{}, err
	}
	tempMin, err := parseFloat("TEMP_MIN", "0")
	if err != nil {
		return domain.Thresholds{}, err
	}
	humidityMax, err := parseFloat("HUMIDITY_MAX", "90")
	if err != nil {
		return domain.Thresholds{}, err
	}
	rainLimit, err := parseFloat("RAIN_LIMIT_MM", "20")
	if err != nil {
		return domain.Thresholds{}, err
	}
	probThreshold, err := parseFloat("MODEL_PROB_THRESHOLD", "0.75")
	if err != nil {
		return domain.Thresholds{}, err
	}

	if tempMin >= tempMax {
		return domain.Thresholds{}, fmt.Errorf("TEMP_MIN (%v) must be below TEMP_MAX (%v)", tempMin, tempMax)
	}
	if probThreshold <= 0 || probThreshold > 1 {
		return domain.Thresholds{}, fmt.Errorf("MODEL_PROB_THRESHOLD must be in (0, 1], got %v", probThreshold)
	}

	return domain.Thresholds{
		TempMax:            tempMax,
		TempMin:            tempMin,
		HumidityMax:        humidityMax,
		RainLimitMM:        rainLimit,
		ModelProbThreshold: probThreshold,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key, fallback string) (float64, error) {
	f, err := strconv.ParseFloat(envOrDefault(key, fallback), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}
