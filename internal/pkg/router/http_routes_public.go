package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kurshub/kurshub/app/controllers"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Account activation via mailed token
	app.Get("/activate/:token", controllers.HandleAuthActivate)

	// Payment gateway webhooks (no CSRF, signature-verified in the ingestor)
	app.Post("/webhooks/payment", controllers.HandlePaymentWebhook)
}
