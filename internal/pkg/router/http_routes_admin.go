package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kurshub/kurshub/app/controllers"
	"github.com/kurshub/kurshub/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	admin := app.Group("/admin", middleware.RequireAdmin)

	// Course catalog management
	admin.Get("/courses", controllers.HandleAdminListCourses)
	admin.Post("/courses", controllers.HandleAdminCreateCourse)
	admin.Put("/courses/:id", controllers.HandleAdminUpdateCourse)
	admin.Delete("/courses/:id", controllers.HandleAdminDeleteCourse)
}
