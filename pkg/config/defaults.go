package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "wanderly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultKafkaBrokers         = "localhost:9092"
	DefaultKafkaBookingTopic    = "wanderly.bookings"
	DefaultKafkaSettlementTopic = "wanderly.settlements"
	DefaultKafkaDLQTopic        = "wanderly.bookings.dlq"
	DefaultKafkaConsumerGroup   = "wanderly-coordinator"

	// A held intent not paid within the hold window is expired by the sweep.
	DefaultHoldWindow     = 15 * time.Minute
	DefaultSweepInterval  = 60 * time.Second
	DefaultSweepBatchSize = 100

	// Bank transfers keep their capacity held far past the normal window,
	// then are force-cancelled.
	DefaultSettlementTimeout = 48 * time.Hour

	DefaultChargeMaxAttempts = 3

	// Flat fee in minor-unit-free INR, matching the storefront quote.
	DefaultServiceFee     = "2800"
	DefaultTaxRatePercent = "10"
	DefaultCurrency       = "INR"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
