package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/repository"
	"github.com/noah-isme/placement-prep-api/internal/service"
)

// ProfileImageHandler serves the avatar endpoints. Responses keep the legacy
// bare JSON shapes instead of the API envelope so existing clients keep working.
type ProfileImageHandler struct {
	service service.ProfileImageService
	logger  zerolog.Logger
}

type legacyError struct {
	Error string `json:"error"`
}

// NewProfileImageHandler constructs the handler.
func NewProfileImageHandler(service service.ProfileImageService, logger zerolog.Logger) *ProfileImageHandler {
	return &ProfileImageHandler{
		service: service,
		logger:  logger.With().Str("component", "profile_image_handler").Logger(),
	}
}

// Register wires the avatar routes.
func (h *ProfileImageHandler) Register(router fiber.Router) {
	router.Post("/upload-profile-image", h.upload)
	router.Get("/get-profile-image/:id", h.get)
	router.Delete("/delete-profile-image/:id", h.delete)
}

func (h *ProfileImageHandler) upload(c *fiber.Ctx) error {
	var payload dto.UploadProfileImageRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(legacyError{Error: "Invalid request body"})
	}

	response, err := h.service.Upload(requestContext(c), payload)
	if err != nil {
		return h.handleError(c, err, "Failed to upload image")
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *ProfileImageHandler) get(c *fiber.Ctx) error {
	response, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err, "Failed to retrieve image")
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *ProfileImageHandler) delete(c *fiber.Ctx) error {
	var payload dto.DeleteProfileImageRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(legacyError{Error: "Invalid request body"})
		}
	}

	if err := h.service.Delete(requestContext(c), c.Params("id"), payload); err != nil {
		return h.handleError(c, err, "Failed to delete image")
	}
	return c.Status(fiber.StatusOK).JSON(dto.DeleteProfileImageResponse{Success: true})
}

func (h *ProfileImageHandler) handleError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return c.Status(fiber.StatusBadRequest).JSON(legacyError{Error: "Missing required fields"})
	case errors.Is(err, service.ErrInvalidImageData), errors.Is(err, service.ErrNotAnImage):
		return c.Status(fiber.StatusBadRequest).JSON(legacyError{Error: err.Error()})
	case errors.Is(err, service.ErrImageTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(legacyError{Error: err.Error()})
	case errors.Is(err, repository.ErrProfileImageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(legacyError{Error: "Image not found"})
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("profile image operation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(legacyError{Error: fallback})
	}
}
