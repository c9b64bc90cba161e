package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/service"
	"github.com/noah-isme/placement-prep-api/internal/utils"
)

// ResumeHandler exposes ATS resume scoring.
type ResumeHandler struct {
	service service.ResumeService
	logger  zerolog.Logger
}

// NewResumeHandler constructs the handler.
func NewResumeHandler(service service.ResumeService, logger zerolog.Logger) *ResumeHandler {
	return &ResumeHandler{
		service: service,
		logger:  logger.With().Str("component", "resume_handler").Logger(),
	}
}

// Register wires resume routes.
func (h *ResumeHandler) Register(router fiber.Router) {
	router.Post("/analyze", h.analyze)
	router.Get("/latest", h.latest)
}

func (h *ResumeHandler) analyze(c *fiber.Ctx) error {
	resume, err := readFormFile(c, "resume")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid resume upload")
	}

	payload := dto.AnalyzeResumeRequest{
		JobDescription: c.FormValue("job_description"),
		UseMock:        strings.EqualFold(c.FormValue("use_mock"), "true"),
	}

	response, err := h.service.Analyze(requestContext(c), userIDFromContext(c), payload, resume)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "resume analysed", response)
}

func (h *ResumeHandler) latest(c *fiber.Ctx) error {
	response, err := h.service.Latest(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "resume analysis retrieved", response)
}

func (h *ResumeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrResumeRequired),
		errors.Is(err, service.ErrUnsupportedResumeType),
		errors.Is(err, service.ErrJobDescriptionRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrResumeTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrResumeAnalysisNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("resume operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
