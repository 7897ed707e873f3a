package main

import (
	"context"

	bookingshandler "wanderly/internal/bookings/handler"
	bookingsrepository "wanderly/internal/bookings/repository"
	bookingsservice "wanderly/internal/bookings/service"
	catalogservice "wanderly/internal/catalog/service"
	healthhandler "wanderly/internal/health"
	intentsrepository "wanderly/internal/intents/repository"
	intentsservice "wanderly/internal/intents/service"
	inventoryrepository "wanderly/internal/inventory/repository"
	inventoryservice "wanderly/internal/inventory/service"
	paymentsrepository "wanderly/internal/payments/repository"
	paymentsservice "wanderly/internal/payments/service"
	"wanderly/internal/settlement"
	usershandler "wanderly/internal/users/handler"
	usersrepository "wanderly/internal/users/repository"
	usersservice "wanderly/internal/users/service"
	usersvalidator "wanderly/internal/users/validator"
	"wanderly/pkg/app"
	"wanderly/pkg/config"
	"wanderly/pkg/contracts"
	"wanderly/pkg/kafka"
)

const ServiceName = "wanderly-server"

func main() {
	// Load validates and logs the configuration, exiting on bad values.
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting booking coordinator service")

	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	if cfg.RedisAddr != "" {
		cfg.SetRedis()
	}

	producer := initProducer(cfg)
	if producer != nil {
		defer producer.Close()
	}

	coordinator, sweeper := initServices(cfg, producer)

	consumer, consumerCancel := initSettlementConsumer(cfg, coordinator)
	if consumer != nil {
		defer consumer.Close()
		defer consumerCancel()
	}

	sweeper.Start()
	defer sweeper.Stop()

	appHandler := contracts.Compose(
		bookingshandler.NewBookingHandler(coordinator, cfg.Log),
		bookingshandler.NewPaymentHandler(coordinator, cfg.Log),
		usershandler.NewUserHandler(initUserService(cfg), cfg.Log),
	)
	health := healthhandler.NewHandler(cfg.Client.Mongo, cfg.Log)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(appHandler, health)
	serverApp.Run()
}

func initServices(cfg *config.Config, producer *kafka.Producer) (bookingsservice.Coordinator, *intentsservice.Sweeper) {
	catalog := catalogservice.NewService(cfg)

	ledger := inventoryservice.NewLedger(cfg, inventoryrepository.NewMongoAvailabilityRepository(cfg))

	intentRepo := intentsrepository.NewMongoIntentRepository(cfg)
	intents := intentsservice.NewService(cfg, intentRepo)

	payments := paymentsservice.NewService(
		cfg,
		paymentsrepository.NewMongoPaymentRepository(cfg),
		paymentsservice.NewSimulatedGateway(),
	)

	// A nil publisher disables eventing; the coordinator checks before use.
	var events bookingsservice.EventPublisher
	if producer != nil {
		events = producer
	}

	coordinator := bookingsservice.NewCoordinator(
		cfg,
		catalog,
		ledger,
		intents,
		payments,
		bookingsrepository.NewMongoBookingRepository(cfg),
		events,
	)

	sweeper := intentsservice.NewSweeper(cfg, intentRepo, ledger, payments)

	cfg.Log.Info("Booking coordinator initialized", "database", cfg.MongoDatabaseName)
	return coordinator, sweeper
}

func initUserService(cfg *config.Config) usersservice.UserService {
	return usersservice.NewUserService(
		usersrepository.NewMongoUserRepository(cfg),
		usersvalidator.NewUserValidator(),
		cfg,
	)
}

func initProducer(cfg *config.Config) *kafka.Producer {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("Kafka brokers not configured; event publishing disabled")
		return nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaBookingTopic, cfg.KafkaDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	return producer
}

func initSettlementConsumer(cfg *config.Config, coordinator bookingsservice.Coordinator) (*kafka.Consumer, context.CancelFunc) {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("Kafka brokers not configured; settlement consumer disabled")
		return nil, nil
	}

	consumer, err := kafka.NewConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaSettlementTopic,
		cfg.KafkaConsumerGroup,
		cfg.KafkaDLQTopic,
		settlement.NewHandler(coordinator, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create settlement consumer", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Start(ctx); err != nil {
			cfg.Log.Error("Settlement consumer stopped", "error", err)
		}
	}()

	cfg.Log.Info("Settlement consumer started", "topic", cfg.KafkaSettlementTopic)
	return consumer, cancel
}
