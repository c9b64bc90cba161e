package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/middleware"
	"github.com/noah-isme/placement-prep-api/internal/service"
	"github.com/noah-isme/placement-prep-api/internal/utils"
)

// InterviewHandler exposes the mock interview endpoints and the voice channel.
type InterviewHandler struct {
	service   service.InterviewService
	voice     service.VoiceService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewInterviewHandler constructs the handler. voice may be nil to disable the websocket.
func NewInterviewHandler(service service.InterviewService, voice service.VoiceService, validator *validator.Validate, logger zerolog.Logger) *InterviewHandler {
	return &InterviewHandler{
		service:   service,
		voice:     voice,
		validator: validator,
		logger:    logger.With().Str("component", "interview_handler").Logger(),
	}
}

// Register wires interview routes. turnLimiter guards the turn endpoint when set.
func (h *InterviewHandler) Register(router fiber.Router, turnLimiter fiber.Handler) {
	if turnLimiter == nil {
		turnLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	router.Post("", h.start)
	router.Get("/assessment", h.assessment)
	router.Post("/speech", h.speech)
	router.Get("/:id", h.session)
	router.Post("/:id/turns", turnLimiter, h.turn)
	router.Post("/:id/end", h.end)
	if h.voice != nil {
		router.Get("/:id/voice", h.upgrade, websocket.New(h.handleVoice))
	}
}

func (h *InterviewHandler) start(c *fiber.Ctx) error {
	payload := dto.StartInterviewRequest{
		Name:      c.FormValue("name"),
		VoiceMode: strings.EqualFold(c.FormValue("voice_mode", "true"), "true"),
	}

	resume, err := readFormFile(c, "resume")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid resume upload")
	}

	response, err := h.service.Start(requestContext(c), userIDFromContext(c), payload, resume)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "interview started", response)
}

func (h *InterviewHandler) turn(c *fiber.Ctx) error {
	var payload dto.InterviewTurnRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.SendTurn(requestContext(c), userIDFromContext(c), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "reply generated", response)
}

func (h *InterviewHandler) end(c *fiber.Ctx) error {
	var payload dto.EndInterviewRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	userID := userIDFromContext(c)
	response, err := h.service.End(requestContext(c), userID, c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	if h.voice != nil {
		h.voice.SessionEnded(userID, response.SessionID)
	}
	return utils.SendSuccess(c, "interview ended", response)
}

func (h *InterviewHandler) session(c *fiber.Ctx) error {
	response, err := h.service.GetSession(requestContext(c), userIDFromContext(c), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "interview retrieved", response)
}

func (h *InterviewHandler) assessment(c *fiber.Ctx) error {
	assessment, err := h.service.GetAssessment(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "interview assessment", assessment)
}

// speech streams synthesized audio, or tells the client to use browser speech.
func (h *InterviewHandler) speech(c *fiber.Ctx) error {
	var payload dto.SpeechRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Synthesize(requestContext(c), payload.Text)
	if err != nil {
		return h.handleError(c, err)
	}

	if result.Mode == dto.PlaybackStream {
		contentType := result.ContentType
		if contentType == "" {
			contentType = "audio/mpeg"
		}
		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Status(fiber.StatusOK).Send(result.Audio)
	}

	return utils.SendSuccess(c, "use browser speech", dto.Playback{Mode: result.Mode, Text: result.Text})
}

func (h *InterviewHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("request_ctx", requestContext(c))
	c.Locals("correlation_id", middleware.GetCorrelationID(c))
	return c.Next()
}

func (h *InterviewHandler) handleVoice(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uint)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	sessionID := strings.TrimSpace(conn.Params("id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	correlation, _ := conn.Locals("correlation_id").(string)

	h.logger.Info().Uint("user_id", userID).Str("session_id", sessionID).Msg("voice websocket connected")
	h.voice.ServeConnection(conn, service.VoiceConnectionOptions{
		UserID:        userID,
		SessionID:     sessionID,
		CorrelationID: correlation,
		Context:       baseCtx,
	})
	h.logger.Info().Uint("user_id", userID).Str("session_id", sessionID).Msg("voice websocket disconnected")
}

func (h *InterviewHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrCandidateNameRequired),
		errors.Is(err, service.ErrEmptyTurn),
		errors.Is(err, service.ErrEmptySpeech),
		errors.Is(err, service.ErrInterviewConfirmationRequired),
		errors.Is(err, service.ErrUnsupportedResumeType):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrResumeTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrInterviewNotFound), errors.Is(err, service.ErrInterviewAssessmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInterviewEnded):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("interview operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
