package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/kurshub/kurshub/app/models"
	"github.com/kurshub/kurshub/app/repository"
	"github.com/kurshub/kurshub/internal/pkg/cache"
)

const (
	courseCacheKeyPrefix = "course:slug:"
	courseCacheTTL       = 5 * time.Minute
)

type courseRequest struct {
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	PriceMinor      int64  `json:"price_minor"`
	Currency        string `json:"currency"`
	GatewayPriceRef string `json:"gateway_price_ref"`
	Published       bool   `json:"published"`
}

// HandleListCourses returns the published catalog.
func HandleListCourses(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	repo := repository.GetGlobalFactory().GetCourseRepository()
	courses, err := repo.ListPublished(offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load courses"})
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// HandleGetCourse returns a single published course by slug, cache first.
func HandleGetCourse(c *fiber.Ctx) error {
	slug := c.Params("slug")

	cacheKey := courseCacheKeyPrefix + slug
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		var course models.Course
		if err := json.Unmarshal([]byte(cached), &course); err == nil {
			return c.JSON(course)
		}
	}

	repo := repository.GetGlobalFactory().GetCourseRepository()
	course, err := repo.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load course"})
	}
	if !course.Published {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Course not found"})
	}

	if raw, err := json.Marshal(course); err == nil {
		_ = cache.Set(cacheKey, string(raw), courseCacheTTL)
	}

	return c.JSON(course)
}

// HandleAdminCreateCourse creates a catalog entry (admin only).
func HandleAdminCreateCourse(c *fiber.Ctx) error {
	var req courseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	course := &models.Course{
		Title:           req.Title,
		Slug:            req.Slug,
		Description:     req.Description,
		PriceMinor:      req.PriceMinor,
		Currency:        req.Currency,
		GatewayPriceRef: req.GatewayPriceRef,
		Published:       req.Published,
	}
	if course.Currency == "" {
		course.Currency = "EUR"
	}
	if err := course.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetCourseRepository()
	if err := repo.Create(course); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create course"})
	}

	return c.Status(fiber.StatusCreated).JSON(course)
}

// HandleAdminUpdateCourse updates a catalog entry (admin only).
func HandleAdminUpdateCourse(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid course id"})
	}

	repo := repository.GetGlobalFactory().GetCourseRepository()
	course, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load course"})
	}

	var req courseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	oldSlug := course.Slug
	course.Title = req.Title
	course.Slug = req.Slug
	course.Description = req.Description
	course.PriceMinor = req.PriceMinor
	if req.Currency != "" {
		course.Currency = req.Currency
	}
	course.GatewayPriceRef = req.GatewayPriceRef
	course.Published = req.Published

	if err := course.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := repo.Update(course); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update course"})
	}

	invalidateCourseCache(oldSlug, course.Slug)

	return c.JSON(course)
}

// HandleAdminDeleteCourse removes a catalog entry (admin only).
func HandleAdminDeleteCourse(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid course id"})
	}

	repo := repository.GetGlobalFactory().GetCourseRepository()
	course, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load course"})
	}

	if err := repo.Delete(course.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete course"})
	}

	invalidateCourseCache(course.Slug)

	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminListCourses lists the whole catalog including drafts (admin only).
func HandleAdminListCourses(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	repo := repository.GetGlobalFactory().GetCourseRepository()
	courses, err := repo.List(offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load courses"})
	}
	total, err := repo.Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count courses"})
	}
	return c.JSON(fiber.Map{"courses": courses, "total": total})
}

func invalidateCourseCache(slugs ...string) {
	for _, s := range slugs {
		if s == "" {
			continue
		}
		if err := cache.Delete(courseCacheKeyPrefix + s); err != nil {
			fmt.Printf("course cache invalidation failed for %s: %v\n", s, err)
		}
	}
}
