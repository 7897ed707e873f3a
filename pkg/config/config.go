package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"wanderly/pkg/client"
	"wanderly/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers         []string
	KafkaBookingTopic    string
	KafkaSettlementTopic string
	KafkaDLQTopic        string
	KafkaConsumerGroup   string

	HoldWindow        time.Duration
	SweepInterval     time.Duration
	SweepBatchSize    int
	SettlementTimeout time.Duration
	ChargeMaxAttempts int
	ServiceFee        decimal.Decimal
	TaxRatePercent    decimal.Decimal
	Currency          string

	CatalogBaseURL string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),

		KafkaBrokers:         splitCommaList(getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers)),
		KafkaBookingTopic:    getEnvStr(EnvKafkaBookingTopic, DefaultKafkaBookingTopic),
		KafkaSettlementTopic: getEnvStr(EnvKafkaSettlementTopic, DefaultKafkaSettlementTopic),
		KafkaDLQTopic:        getEnvStr(EnvKafkaDLQTopic, DefaultKafkaDLQTopic),
		KafkaConsumerGroup:   getEnvStr(EnvKafkaConsumerGroup, DefaultKafkaConsumerGroup),

		HoldWindow:        getEnvDuration(EnvHoldWindow, DefaultHoldWindow),
		SweepInterval:     getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		SweepBatchSize:    getEnvNum(EnvSweepBatchSize, DefaultSweepBatchSize),
		SettlementTimeout: getEnvDuration(EnvSettlementTimeout, DefaultSettlementTimeout),
		ChargeMaxAttempts: getEnvNum(EnvChargeMaxAttempts, DefaultChargeMaxAttempts),
		ServiceFee:        getEnvDecimal(EnvServiceFee, DefaultServiceFee),
		TaxRatePercent:    getEnvDecimal(EnvTaxRatePercent, DefaultTaxRatePercent),
		Currency:          getEnvStr(EnvCurrency, DefaultCurrency),

		CatalogBaseURL: getEnvStr(EnvCatalogBaseURL, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword)
}

func (cfg *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		problems = append(problems, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		problems = append(problems, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		problems = append(problems, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	// Kafka is optional: without brokers the server runs with event
	// publishing and the settlement consumer disabled.
	if len(cfg.KafkaBrokers) > 0 {
		if cfg.KafkaBookingTopic == "" {
			problems = append(problems, "KafkaBookingTopic cannot be empty when KafkaBrokers is set")
		}
		if cfg.KafkaSettlementTopic == "" {
			problems = append(problems, "KafkaSettlementTopic cannot be empty when KafkaBrokers is set")
		}
		if cfg.KafkaConsumerGroup == "" {
			problems = append(problems, "KafkaConsumerGroup cannot be empty when KafkaBrokers is set")
		}
	}

	if cfg.HoldWindow <= 0 {
		problems = append(problems, fmt.Sprintf("HoldWindow must be positive, got: %s", cfg.HoldWindow))
	}
	if cfg.SweepInterval <= 0 {
		problems = append(problems, fmt.Sprintf("SweepInterval must be positive, got: %s", cfg.SweepInterval))
	}
	if cfg.SweepBatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}
	if cfg.SettlementTimeout <= cfg.HoldWindow {
		problems = append(problems, fmt.Sprintf("SettlementTimeout (%s) must exceed HoldWindow (%s)", cfg.SettlementTimeout, cfg.HoldWindow))
	}
	if cfg.ChargeMaxAttempts < 1 {
		problems = append(problems, fmt.Sprintf("ChargeMaxAttempts must be at least 1, got: %d", cfg.ChargeMaxAttempts))
	}
	if cfg.ServiceFee.IsNegative() {
		problems = append(problems, fmt.Sprintf("ServiceFee cannot be negative, got: %s", cfg.ServiceFee))
	}
	if cfg.TaxRatePercent.IsNegative() {
		problems = append(problems, fmt.Sprintf("TaxRatePercent cannot be negative, got: %s", cfg.TaxRatePercent))
	}
	if cfg.Currency == "" {
		problems = append(problems, "Currency cannot be empty")
	}

	if cfg.RateLimitRequests <= 0 {
		problems = append(problems, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		problems = append(problems, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		problems = append(problems, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		problems = append(problems, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(problems) > 0 {
		msg := "Configuration validation failed:\n"
		for i, p := range problems {
			msg += fmt.Sprintf("  %d. %s\n", i+1, p)
		}
		return fmt.Errorf("%s", msg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"redis_addr_set", cfg.RedisAddr != "",
		"kafka_brokers", strings.Join(cfg.KafkaBrokers, ","),
		"kafka_booking_topic", cfg.KafkaBookingTopic,
		"kafka_settlement_topic", cfg.KafkaSettlementTopic,
		"hold_window", cfg.HoldWindow,
		"sweep_interval", cfg.SweepInterval,
		"sweep_batch_size", cfg.SweepBatchSize,
		"settlement_timeout", cfg.SettlementTimeout,
		"charge_max_attempts", cfg.ChargeMaxAttempts,
		"service_fee", cfg.ServiceFee,
		"tax_rate_percent", cfg.TaxRatePercent,
		"currency", cfg.Currency,
		"catalog_base_url", cfg.CatalogBaseURL,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key, fallback string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(fallback)
	return d
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
