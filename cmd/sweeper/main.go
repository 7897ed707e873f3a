// Standalone expiry sweeper. Deployments that scale the HTTP tier to zero
// still need holds released on time; this binary runs just the sweep loop.
package main

import (
	"os"
	"os/signal"
	"syscall"

	intentsrepository "wanderly/internal/intents/repository"
	intentsservice "wanderly/internal/intents/service"
	inventoryrepository "wanderly/internal/inventory/repository"
	inventoryservice "wanderly/internal/inventory/service"
	paymentsrepository "wanderly/internal/payments/repository"
	paymentsservice "wanderly/internal/payments/service"
	"wanderly/pkg/config"
)

const ServiceName = "wanderly-sweeper"

func main() {
	// Load validates and logs the configuration, exiting on bad values.
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting expiry sweeper")

	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	ledger := inventoryservice.NewLedger(cfg, inventoryrepository.NewMongoAvailabilityRepository(cfg))
	payments := paymentsservice.NewService(
		cfg,
		paymentsrepository.NewMongoPaymentRepository(cfg),
		paymentsservice.NewSimulatedGateway(),
	)

	sweeper := intentsservice.NewSweeper(
		cfg,
		intentsrepository.NewMongoIntentRepository(cfg),
		ledger,
		payments,
	)

	sweeper.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown

	cfg.Log.Info("Shutdown signal received", "signal", sig)
	sweeper.Stop()
}
