package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"

	EnvKafkaBrokers         = "KAFKA_BROKERS"
	EnvKafkaBookingTopic    = "KAFKA_BOOKING_TOPIC"
	EnvKafkaSettlementTopic = "KAFKA_SETTLEMENT_TOPIC"
	EnvKafkaDLQTopic        = "KAFKA_DLQ_TOPIC"
	EnvKafkaConsumerGroup   = "KAFKA_CONSUMER_GROUP"

	EnvHoldWindow        = "HOLD_WINDOW"
	EnvSweepInterval     = "SWEEP_INTERVAL"
	EnvSweepBatchSize    = "SWEEP_BATCH_SIZE"
	EnvSettlementTimeout = "SETTLEMENT_TIMEOUT"
	EnvChargeMaxAttempts = "CHARGE_MAX_ATTEMPTS"
	EnvServiceFee        = "SERVICE_FEE"
	EnvTaxRatePercent    = "TAX_RATE_PERCENT"
	EnvCurrency          = "CURRENCY"

	EnvCatalogBaseURL = "CATALOG_BASE_URL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
