package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/service"
	"github.com/noah-isme/placement-prep-api/internal/utils"
)

// AssessmentHandler exposes the difficulty selector and the coding session.
type AssessmentHandler struct {
	service   service.AssessmentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssessmentHandler constructs the handler.
func NewAssessmentHandler(service service.AssessmentService, validator *validator.Validate, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "assessment_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *AssessmentHandler) Register(router fiber.Router) {
	router.Get("/options", h.options)
	router.Post("/start", h.start)
	router.Get("", h.get)
	router.Delete("", h.reset)
	router.Post("/questions", h.fetchQuestion)
	router.Put("/language", h.setLanguage)
	router.Put("/code", h.updateCode)
	router.Post("/examples/:index/run", h.runExample)
	router.Post("/submit", h.submit)
	router.Post("/end", h.end)
	router.Post("/submit-all", h.submitAll)
	router.Get("/results", h.results)
}

func (h *AssessmentHandler) options(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "assessment options", h.service.Options())
}

func (h *AssessmentHandler) start(c *fiber.Ctx) error {
	var payload dto.StartAssessmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	state, err := h.service.Start(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assessment started", state)
}

func (h *AssessmentHandler) get(c *fiber.Ctx) error {
	state, err := h.service.Get(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "assessment retrieved", state)
}

func (h *AssessmentHandler) fetchQuestion(c *fiber.Ctx) error {
	var payload dto.FetchQuestionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	state, err := h.service.FetchQuestion(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "question loaded", state)
}

func (h *AssessmentHandler) setLanguage(c *fiber.Ctx) error {
	var payload dto.SetLanguageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	state, err := h.service.SetLanguage(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "language updated", state)
}

func (h *AssessmentHandler) updateCode(c *fiber.Ctx) error {
	var payload dto.UpdateCodeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	state, err := h.service.UpdateCode(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "code saved", state)
}

func (h *AssessmentHandler) runExample(c *fiber.Ctx) error {
	index, err := parseIntParam(c, "index")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.RunExample(requestContext(c), userIDFromContext(c), index)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "test case executed", result)
}

func (h *AssessmentHandler) submit(c *fiber.Ctx) error {
	result, err := h.service.Submit(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "solution submitted", result)
}

func (h *AssessmentHandler) end(c *fiber.Ctx) error {
	results, err := h.service.End(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "assessment ended", results)
}

func (h *AssessmentHandler) submitAll(c *fiber.Ctx) error {
	results, err := h.service.SubmitAll(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "assessment submitted", results)
}

func (h *AssessmentHandler) results(c *fiber.Ctx) error {
	results, err := h.service.Results(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "assessment results", results)
}

func (h *AssessmentHandler) reset(c *fiber.Ctx) error {
	if err := h.service.Reset(requestContext(c), userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "assessment cleared", nil)
}

func (h *AssessmentHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrInvalidAssessmentConfig),
		errors.Is(err, service.ErrInvalidDifficulty),
		errors.Is(err, service.ErrUnsupportedLanguage):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrAssessmentNotFound), errors.Is(err, service.ErrExampleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTestsNotRun),
		errors.Is(err, service.ErrAssessmentComplete),
		errors.Is(err, service.ErrAssessmentFinished),
		errors.Is(err, service.ErrNoActiveQuestion),
		errors.Is(err, service.ErrAlreadyAccepted),
		errors.Is(err, service.ErrSubmitAllUnavailable),
		errors.Is(err, service.ErrSessionConflict):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("assessment operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
