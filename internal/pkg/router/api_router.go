package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/kurshub/kurshub/app/controllers"
	"github.com/kurshub/kurshub/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Public catalog
	v1.Get("/courses", controllers.HandleListCourses)
	v1.Get("/courses/:slug", controllers.HandleGetCourse)

	// Checkout
	v1.Post("/payments/checkout", middleware.RequireAuth, controllers.HandleCheckout)
	v1.Post("/payments/subscribe", middleware.RequireAuth, controllers.HandleSubscribe)

	// Account dashboard
	v1.Get("/me", middleware.RequireAuth, controllers.HandleGetMe)
	v1.Get("/me/transactions", middleware.RequireAuth, controllers.HandleListTransactions)
	v1.Get("/me/notifications", middleware.RequireAuth, controllers.HandleListNotifications)
	v1.Post("/me/notifications/:id/read", middleware.RequireAuth, controllers.HandleMarkNotificationRead)
	v1.Get("/me/courses/:id/access", middleware.RequireAuth, controllers.HandleGetCourseAccess)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
