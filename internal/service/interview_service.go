package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/models"
	"github.com/noah-isme/placement-prep-api/internal/observability"
	"github.com/noah-isme/placement-prep-api/internal/repository"
	"github.com/noah-isme/placement-prep-api/pkg/interviewer"
)

// minStreamAudioBytes is the smallest synthesized body treated as real audio.
const minStreamAudioBytes = 1000

var (
	// ErrCandidateNameRequired indicates the candidate name is empty after sanitizing.
	ErrCandidateNameRequired = errors.New("candidate name is required")
	// ErrInterviewNotFound indicates the session does not exist for the user.
	ErrInterviewNotFound = errors.New("interview session not found")
	// ErrInterviewEnded indicates the session no longer accepts turns.
	ErrInterviewEnded = errors.New("interview already ended")
	// ErrEmptyTurn indicates a blank candidate message.
	ErrEmptyTurn = errors.New("message is required")
	// ErrInterviewConfirmationRequired indicates End was called without confirmation.
	ErrInterviewConfirmationRequired = errors.New("ending the interview must be confirmed")
	// ErrInterviewAssessmentNotFound indicates no finished interview is cached.
	ErrInterviewAssessmentNotFound = errors.New("interview assessment not found")
	// ErrEmptySpeech indicates there is nothing to synthesize.
	ErrEmptySpeech = errors.New("text is required")
)

var fallbackFollowUps = []string{
	"That's interesting. Could you tell me more about a challenging project you've worked on recently?",
	"Thanks for sharing. How do you usually approach a bug you have never seen before?",
	"Which technology from your recent work are you most comfortable with, and why?",
	"Tell me about a time you had to balance delivery speed against code quality.",
	"How do you make sure the code you ship is well tested?",
}

// InterviewDialogue is the subset of the interview service client used by the controller.
type InterviewDialogue interface {
	Start(ctx context.Context, req interviewer.StartRequest) (interviewer.StartResponse, error)
	Respond(ctx context.Context, sessionID, message string) (interviewer.TurnResponse, error)
	End(ctx context.Context, sessionID string) (interviewer.EndResponse, error)
	StreamAudio(ctx context.Context, text string) (interviewer.Speech, error)
}

// InterviewService runs mock interviews against the dialogue service.
type InterviewService interface {
	Start(ctx context.Context, userID uint, req dto.StartInterviewRequest, resume *UploadedFile) (dto.InterviewStartResponse, error)
	SendTurn(ctx context.Context, userID uint, sessionID string, req dto.InterviewTurnRequest) (dto.InterviewTurnResponse, error)
	Synthesize(ctx context.Context, text string) (dto.SpeechResult, error)
	End(ctx context.Context, userID uint, sessionID string, req dto.EndInterviewRequest) (dto.InterviewEndResponse, error)
	GetAssessment(ctx context.Context, userID uint) (map[string]interface{}, error)
	GetSession(ctx context.Context, userID uint, sessionID string) (dto.InterviewSessionResponse, error)
}

// InterviewServiceConfig tunes interview limits.
type InterviewServiceConfig struct {
	MaxResumeBytes   int
	EndRedirectDelay time.Duration
	Clock            func() time.Time
}

type interviewService struct {
	store     SessionStore
	dialogue  InterviewDialogue
	sessions  repository.InterviewRepository
	profiles  repository.ProfileRepository
	events    EventPublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	config    InterviewServiceConfig
}

// NewInterviewService constructs the voice interview controller.
func NewInterviewService(store SessionStore, dialogue InterviewDialogue, sessions repository.InterviewRepository, profiles repository.ProfileRepository, events EventPublisher, validate *validator.Validate, logger zerolog.Logger, cfg InterviewServiceConfig) InterviewService {
	if cfg.MaxResumeBytes <= 0 {
		cfg.MaxResumeBytes = 5 * 1024 * 1024
	}
	if cfg.EndRedirectDelay <= 0 {
		cfg.EndRedirectDelay = 2 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if events == nil {
		events = NewNoopEventPublisher()
	}

	return &interviewService{
		store:     store,
		dialogue:  dialogue,
		sessions:  sessions,
		profiles:  profiles,
		events:    events,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "interview_service").Logger(),
		config:    cfg,
	}
}

func (s *interviewService) Start(ctx context.Context, userID uint, req dto.StartInterviewRequest, resume *UploadedFile) (dto.InterviewStartResponse, error) {
	name := plainText(s.sanitizer, req.Name)
	if name == "" {
		return dto.InterviewStartResponse{}, ErrCandidateNameRequired
	}
	req.Name = name
	if err := s.validator.Struct(req); err != nil {
		return dto.InterviewStartResponse{}, err
	}

	startReq := interviewer.StartRequest{Name: name, VoiceMode: req.VoiceMode}
	resumeName := ""
	if resume != nil && len(resume.Content) > 0 {
		if err := validateResume(resume, s.config.MaxResumeBytes); err != nil {
			return dto.InterviewStartResponse{}, err
		}
		resumeName = resume.FileName
		startReq.Resume = &interviewer.Resume{FileName: resume.FileName, Content: resume.Content}
	}

	log := s.logger.With().Uint("user_id", userID).Logger()

	opened, err := s.dialogue.Start(ctx, startReq)
	fallback := false
	if err != nil {
		log.Warn().Err(err).Msg("interview service unavailable, opening fallback session")
		observability.Fallbacks().WithLabelValues("interview", "start_interview").Inc()
		fallback = true
		opening := fmt.Sprintf("Hello, %s! I'm your interviewer today. Let's begin our technical interview. Could you tell me a bit about your background?", name)
		opened = interviewer.StartResponse{
			Success:      true,
			SessionID:    "fallback-" + uuid.NewString(),
			Message:      opening,
			TextForAudio: opening,
		}
	}
	if opened.TextForAudio == "" {
		opened.TextForAudio = opened.Message
	}

	session := &models.InterviewSession{
		SessionID:     opened.SessionID,
		UserID:        userID,
		CandidateName: name,
		VoiceMode:     req.VoiceMode,
		Status:        models.InterviewStatusActive,
		Fallback:      fallback,
		ResumeName:    resumeName,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return dto.InterviewStartResponse{}, err
	}
	if _, err := s.sessions.AppendTurn(ctx, session.ID, models.SpeakerAssistant, opened.Message); err != nil {
		return dto.InterviewStartResponse{}, err
	}

	if err := s.store.Set(ctx, userID, SessionKeyInterviewSessionID, opened.SessionID); err != nil {
		return dto.InterviewStartResponse{}, err
	}
	if err := s.store.Remove(ctx, userID, SessionKeyInterviewAssessment); err != nil {
		log.Warn().Err(err).Msg("failed to clear previous interview assessment")
	}

	observability.Interviews().WithLabelValues("started").Inc()
	log.Info().Str("session_id", opened.SessionID).Bool("fallback", fallback).Msg("interview started")

	return dto.InterviewStartResponse{
		SessionID:    opened.SessionID,
		Message:      opened.Message,
		TextForAudio: opened.TextForAudio,
		VoiceMode:    req.VoiceMode,
		Fallback:     fallback,
		Playback:     resolvePlayback("", opened.TextForAudio),
	}, nil
}

func (s *interviewService) SendTurn(ctx context.Context, userID uint, sessionID string, req dto.InterviewTurnRequest) (dto.InterviewTurnResponse, error) {
	message := plainText(s.sanitizer, req.Message)
	if message == "" {
		return dto.InterviewTurnResponse{}, ErrEmptyTurn
	}
	req.Message = message
	if err := s.validator.Struct(req); err != nil {
		return dto.InterviewTurnResponse{}, err
	}

	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return dto.InterviewTurnResponse{}, err
	}
	if session.IsTerminal() {
		return dto.InterviewTurnResponse{}, ErrInterviewEnded
	}

	if _, err := s.sessions.AppendTurn(ctx, session.ID, models.SpeakerUser, message); err != nil {
		return dto.InterviewTurnResponse{}, err
	}

	reply, audioURL, fallback := s.respond(ctx, session, message)

	if _, err := s.sessions.AppendTurn(ctx, session.ID, models.SpeakerAssistant, reply); err != nil {
		return dto.InterviewTurnResponse{}, err
	}

	return dto.InterviewTurnResponse{
		SessionID: session.SessionID,
		Message:   reply,
		Fallback:  fallback,
		Playback:  resolvePlayback(audioURL, reply),
	}, nil
}

func (s *interviewService) respond(ctx context.Context, session models.InterviewSession, message string) (string, string, bool) {
	if !session.Fallback {
		turn, err := s.dialogue.Respond(ctx, session.SessionID, message)
		if err == nil && turn.Message != "" {
			return turn.Message, turn.AudioURL, false
		}
		s.logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("interview reply unavailable, using follow-up question")
		observability.Fallbacks().WithLabelValues("interview", "interview_response").Inc()
	}

	answered := 0
	for _, turn := range session.Turns {
		if turn.Speaker == models.SpeakerUser {
			answered++
		}
	}
	return fallbackFollowUps[answered%len(fallbackFollowUps)], "", true
}

func resolvePlayback(audioURL, text string) dto.Playback {
	if audioURL != "" {
		return dto.Playback{Mode: dto.PlaybackStream, AudioURL: audioURL, Text: text}
	}
	return dto.Playback{Mode: dto.PlaybackBrowserTTS, Text: text}
}

// Synthesize resolves speech for text, falling back to browser TTS when no usable audio is returned.
func (s *interviewService) Synthesize(ctx context.Context, text string) (dto.SpeechResult, error) {
	text = plainText(s.sanitizer, text)
	if text == "" {
		return dto.SpeechResult{}, ErrEmptySpeech
	}

	browser := dto.SpeechResult{Mode: dto.PlaybackBrowserTTS, Text: text}

	speech, err := s.dialogue.StreamAudio(ctx, text)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Msg("speech synthesis failed, using browser speech")
		observability.Fallbacks().WithLabelValues("interview", "stream_audio").Inc()
		return browser, nil
	case speech.UseBrowserTTS:
		if speech.Text != "" {
			browser.Text = speech.Text
		}
		return browser, nil
	case len(speech.Audio) < minStreamAudioBytes:
		s.logger.Debug().Int("bytes", len(speech.Audio)).Msg("synthesized audio too small, using browser speech")
		return browser, nil
	}

	return dto.SpeechResult{
		Mode:        dto.PlaybackStream,
		Audio:       speech.Audio,
		ContentType: speech.ContentType,
		Text:        text,
	}, nil
}

func (s *interviewService) End(ctx context.Context, userID uint, sessionID string, req dto.EndInterviewRequest) (dto.InterviewEndResponse, error) {
	if !req.Confirm {
		return dto.InterviewEndResponse{}, ErrInterviewConfirmationRequired
	}

	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return dto.InterviewEndResponse{}, err
	}

	redirect := s.config.EndRedirectDelay.Milliseconds()
	if session.Status == models.InterviewStatusEnded {
		return dto.InterviewEndResponse{
			SessionID:       session.SessionID,
			Assessment:      session.Assessment,
			Fallback:        session.Fallback,
			RedirectAfterMS: redirect,
		}, nil
	}

	if err := s.sessions.UpdateStatus(ctx, session.ID, models.InterviewStatusEnding); err != nil {
		return dto.InterviewEndResponse{}, err
	}

	assessment, fallback := s.finalAssessment(ctx, session)

	if err := s.sessions.Complete(ctx, session.ID, assessment, s.config.Clock().UTC()); err != nil {
		return dto.InterviewEndResponse{}, err
	}

	log := s.logger.With().Uint("user_id", userID).Str("session_id", session.SessionID).Logger()

	encoded, err := json.Marshal(assessment)
	if err != nil {
		return dto.InterviewEndResponse{}, err
	}
	if err := s.store.Set(ctx, userID, SessionKeyInterviewAssessment, string(encoded)); err != nil {
		return dto.InterviewEndResponse{}, err
	}
	if err := s.store.Remove(ctx, userID, SessionKeyInterviewSessionID); err != nil {
		log.Warn().Err(err).Msg("failed to clear interview session id")
	}

	if s.profiles != nil {
		if err := s.profiles.IncrementStats(ctx, userID, models.ProfileStatsDelta{InterviewsCompleted: 1}); err != nil {
			log.Error().Err(err).Msg("failed to update profile statistics")
		}
	}
	if err := s.events.Publish(ctx, EventInterviewEnded, userID, map[string]interface{}{
		"session_id": session.SessionID,
		"fallback":   fallback,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to publish interview end")
	}

	observability.Interviews().WithLabelValues("ended").Inc()
	log.Info().Bool("fallback", fallback).Msg("interview ended")

	return dto.InterviewEndResponse{
		SessionID:       session.SessionID,
		Assessment:      assessment,
		Fallback:        fallback,
		RedirectAfterMS: redirect,
	}, nil
}

func (s *interviewService) finalAssessment(ctx context.Context, session models.InterviewSession) (map[string]interface{}, bool) {
	if !session.Fallback {
		ended, err := s.dialogue.End(ctx, session.SessionID)
		if err == nil && len(ended.Assessment) > 0 {
			return ended.Assessment, false
		}
		s.logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("assessment unavailable, using fallback assessment")
		observability.Fallbacks().WithLabelValues("interview", "end_interview").Inc()
	}

	return map[string]interface{}{
		"text_assessment": fmt.Sprintf("Assessment for %s: Thank you for participating in this technical interview. You showed promising skills, and a further conversation is recommended to complete the evaluation.", session.CandidateName),
	}, true
}

func (s *interviewService) GetAssessment(ctx context.Context, userID uint) (map[string]interface{}, error) {
	raw, ok, err := s.store.Get(ctx, userID, SessionKeyInterviewAssessment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInterviewAssessmentNotFound
	}

	var assessment map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &assessment); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("stored interview assessment unreadable")
		return map[string]interface{}{"text_assessment": raw}, nil
	}
	return assessment, nil
}

func (s *interviewService) GetSession(ctx context.Context, userID uint, sessionID string) (dto.InterviewSessionResponse, error) {
	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return dto.InterviewSessionResponse{}, err
	}

	response := dto.InterviewSessionResponse{
		SessionID:     session.SessionID,
		CandidateName: session.CandidateName,
		Status:        session.Status,
		VoiceMode:     session.VoiceMode,
		Fallback:      session.Fallback,
		Assessment:    session.Assessment,
		StartedAt:     session.CreatedAt,
		EndedAt:       session.EndedAt,
		Transcript:    make([]dto.InterviewTurnView, 0, len(session.Turns)),
	}
	for _, turn := range session.Turns {
		response.Transcript = append(response.Transcript, dto.InterviewTurnView{
			Speaker:  turn.Speaker,
			Text:     turn.Text,
			Sequence: turn.Sequence,
			At:       turn.CreatedAt,
		})
	}
	return response, nil
}

func (s *interviewService) loadSession(ctx context.Context, userID uint, sessionID string) (models.InterviewSession, error) {
	session, err := s.sessions.GetBySessionID(ctx, userID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.InterviewSession{}, ErrInterviewNotFound
	}
	if err != nil {
		return models.InterviewSession{}, err
	}
	return session, nil
}
