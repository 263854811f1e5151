package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/kurshub/kurshub/app/controllers"
	"github.com/kurshub/kurshub/app/repository"
	"github.com/kurshub/kurshub/internal/pkg/cache"
	"github.com/kurshub/kurshub/internal/pkg/database"
	"github.com/kurshub/kurshub/internal/pkg/env"
	"github.com/kurshub/kurshub/internal/pkg/notify"
	"github.com/kurshub/kurshub/internal/pkg/payments"
	"github.com/kurshub/kurshub/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "8080")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)

	// Payment core wiring: gateway client, notification dispatcher, service.
	gateway := payments.NewStripeGatewayFromEnv()
	notifier := notify.NewDispatcher(db)
	paymentService := payments.NewServiceFromDB(db, gateway, notifier)
	controllers.InitializePaymentController(paymentService)

	// Background lapse sweep keeps entitlements honest when the gateway goes
	// quiet about an expired subscription.
	payments.StartLapseSweeper(context.Background(), paymentService, 1*time.Hour)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "KursHub",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
