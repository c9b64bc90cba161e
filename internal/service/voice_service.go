package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/middleware"
	"github.com/noah-isme/placement-prep-api/internal/models"
	"github.com/noah-isme/placement-prep-api/internal/observability"
	"github.com/noah-isme/placement-prep-api/internal/voice"
)

const voiceSendBufferSize = 64

// ErrVoiceUnsupported indicates the browser cannot recognise speech.
var ErrVoiceUnsupported = errors.New("speech recognition is not available in this browser, switch to text mode")

var (
	errVoiceChannelClosed = errors.New("voice channel closed")
	errVoiceQueueFull     = errors.New("voice send queue full")
)

// VoiceConnectionOptions wraps metadata extracted during the HTTP upgrade.
type VoiceConnectionOptions struct {
	UserID        uint
	SessionID     string
	CorrelationID string
	Context       context.Context
}

// VoiceServiceConfig tunes the voice channel timings.
type VoiceServiceConfig struct {
	SilenceWindow time.Duration
	RearmDelay    time.Duration
	TickInterval  time.Duration
	Clock         voice.Clock
}

// VoiceService drives a voice interview over a websocket.
type VoiceService interface {
	ServeConnection(conn *websocket.Conn, opts VoiceConnectionOptions)
	// SessionEnded stops and closes every open channel of an interview that ended elsewhere.
	SessionEnded(userID uint, sessionID string)
}

// voiceConn is the part of the websocket connection the channel uses.
type voiceConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type voiceService struct {
	interviews InterviewService
	cfg        VoiceServiceConfig
	logger     zerolog.Logger

	mu      sync.Mutex
	clients map[string]map[*voiceClient]struct{}
}

type voiceOutbound struct {
	frame *dto.VoiceServerFrame
	audio []byte
}

type voiceClient struct {
	conn        voiceConn
	send        chan voiceOutbound
	options     VoiceConnectionOptions
	service     *voiceService
	coordinator *voice.Coordinator
	closed      chan struct{}
	once        sync.Once
	answers     sync.WaitGroup
	queued      atomic.Int64
	baseCtx     context.Context
	logger      zerolog.Logger
}

// NewVoiceService creates the voice channel service.
func NewVoiceService(interviews InterviewService, logger zerolog.Logger, cfg VoiceServiceConfig) VoiceService {
	return &voiceService{
		interviews: interviews,
		cfg:        cfg,
		logger:     logger.With().Str("component", "voice_service").Logger(),
		clients:    make(map[string]map[*voiceClient]struct{}),
	}
}

func voiceSessionKey(userID uint, sessionID string) string {
	return fmt.Sprintf("%d:%s", userID, sessionID)
}

func (s *voiceService) register(c *voiceClient) {
	key := voiceSessionKey(c.options.UserID, c.options.SessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[key] == nil {
		s.clients[key] = make(map[*voiceClient]struct{})
	}
	s.clients[key][c] = struct{}{}
}

func (s *voiceService) unregister(c *voiceClient) {
	key := voiceSessionKey(c.options.UserID, c.options.SessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients[key], c)
	if len(s.clients[key]) == 0 {
		delete(s.clients, key)
	}
}

func (s *voiceService) SessionEnded(userID uint, sessionID string) {
	key := voiceSessionKey(userID, sessionID)
	s.mu.Lock()
	clients := make([]*voiceClient, 0, len(s.clients[key]))
	for client := range s.clients[key] {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	for _, client := range clients {
		client.logger.Info().Msg("interview ended elsewhere, closing voice channel")
		client.coordinator.End()
		_ = client.emit(dto.VoiceServerFrame{Type: dto.VoiceFrameEnded, SessionID: sessionID})
		go client.drainAndClose()
	}
}

func (s *voiceService) ServeConnection(conn *websocket.Conn, opts VoiceConnectionOptions) {
	s.serve(conn, opts)
}

func (s *voiceService) serve(conn voiceConn, opts VoiceConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	correlation := opts.CorrelationID
	if correlation == "" {
		correlation = middleware.CorrelationIDFromContext(baseCtx)
	}

	client := &voiceClient{
		conn:    conn,
		send:    make(chan voiceOutbound, voiceSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
		logger: s.logger.With().
			Uint("user_id", opts.UserID).
			Str("session_id", opts.SessionID).
			Str("correlation_id", correlation).
			Logger(),
	}
	client.coordinator = voice.NewCoordinator(client, client, voice.Config{
		SilenceWindow: s.cfg.SilenceWindow,
		RearmDelay:    s.cfg.RearmDelay,
		TickInterval:  s.cfg.TickInterval,
		Clock:         s.cfg.Clock,
		Logger:        client.logger,
		Submit:        client.submit,
		OnCountdown:   client.countdown,
		OnPhase:       client.phaseChanged,
	})

	observability.VoiceSessions().Inc()
	defer observability.VoiceSessions().Dec()

	go client.writer()

	session, err := s.interviews.GetSession(baseCtx, opts.UserID, opts.SessionID)
	switch {
	case err != nil:
		client.fail(err)
		client.drainAndClose()
		return
	case session.Status != models.InterviewStatusActive:
		client.fail(ErrInterviewEnded)
		client.drainAndClose()
		return
	}

	s.register(client)
	defer s.unregister(client)

	client.logger.Info().Msg("voice channel opened")
	client.open(session)
	client.reader()
	client.logger.Info().Msg("voice channel closed")
}

// open voices the opening question of a fresh interview, otherwise starts listening.
func (c *voiceClient) open(session dto.InterviewSessionResponse) {
	transcript := session.Transcript
	if len(transcript) == 1 && transcript[0].Speaker == models.SpeakerAssistant {
		c.speak(transcript[0].Text)
		return
	}
	if err := c.coordinator.Listen(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to start listening")
	}
}

func (c *voiceClient) reader() {
	defer c.close()

	for {
		var frame dto.VoiceClientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.logger.Debug().Err(err).Msg("voice read loop ended")
			return
		}
		if !c.handle(frame) {
			c.drainAndClose()
			return
		}
	}
}

// handle applies a browser frame and reports whether the channel stays open.
func (c *voiceClient) handle(frame dto.VoiceClientFrame) bool {
	switch frame.Type {
	case dto.VoiceFrameInterim:
		c.coordinator.Interim(frame.Text)
	case dto.VoiceFrameFinal:
		c.coordinator.Final(frame.Text)
	case dto.VoiceFrameListen:
		if err := c.coordinator.Listen(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to start listening")
		}
	case dto.VoiceFramePlaybackStarted, dto.VoiceFramePlaybackProgress:
		c.coordinator.PlaybackProgress()
	case dto.VoiceFramePlaybackEnded:
		c.coordinator.PlaybackFinished()
	case dto.VoiceFramePlaybackError:
		reason := frame.Error
		if reason == "" {
			reason = "playback failed"
		}
		c.coordinator.PlaybackFailed(errors.New(reason))
	case dto.VoiceFrameRecognitionEnded:
		c.coordinator.RecognitionEnded()
	case dto.VoiceFrameUnsupported:
		c.coordinator.End()
		c.fail(ErrVoiceUnsupported)
		return false
	case dto.VoiceFrameEnd:
		c.coordinator.End()
		c.answers.Wait()
		if _, err := c.service.interviews.End(c.baseCtx, c.options.UserID, c.options.SessionID, dto.EndInterviewRequest{Confirm: true}); err != nil {
			c.logger.Warn().Err(err).Msg("failed to end interview from voice channel")
			c.fail(err)
		}
		_ = c.emit(dto.VoiceServerFrame{Type: dto.VoiceFrameEnded, SessionID: c.options.SessionID})
		return false
	default:
		c.logger.Debug().Str("type", frame.Type).Msg("ignoring unknown voice frame")
		_ = c.emit(dto.VoiceServerFrame{Type: dto.VoiceFrameError, Message: "unknown frame type"})
	}
	return true
}

// submit forwards a finished answer without blocking the coordinator.
func (c *voiceClient) submit(text string) {
	c.answers.Add(1)
	go func() {
		defer c.answers.Done()
		c.answer(text)
	}()
}

func (c *voiceClient) answer(text string) {
	reply, err := c.service.interviews.SendTurn(c.baseCtx, c.options.UserID, c.options.SessionID, dto.InterviewTurnRequest{Message: text})
	if err != nil {
		c.logger.Warn().Err(err).Msg("voice turn failed")
		_ = c.emit(dto.VoiceServerFrame{Type: dto.VoiceFrameError, Message: err.Error()})
		if errors.Is(err, ErrInterviewEnded) || errors.Is(err, ErrInterviewNotFound) {
			c.coordinator.End()
			return
		}
		if listenErr := c.coordinator.Resume(); listenErr != nil {
			c.logger.Warn().Err(listenErr).Msg("failed to resume listening")
		}
		return
	}

	_ = c.emit(dto.VoiceServerFrame{
		Type:      dto.VoiceFrameReply,
		SessionID: reply.SessionID,
		Text:      reply.Message,
		Fallback:  reply.Fallback,
	})
	c.speak(reply.Message)
}

func (c *voiceClient) speak(text string) {
	if c.coordinator.Phase() == voice.PhaseEnded {
		return
	}
	speech, err := c.service.interviews.Synthesize(c.baseCtx, text)
	if err != nil {
		c.logger.Debug().Err(err).Msg("synthesis unavailable, using browser speech")
		speech = dto.SpeechResult{Mode: dto.PlaybackBrowserTTS, Text: text}
	}
	c.coordinator.BeginSpeaking(voice.Utterance{
		Text:        speech.Text,
		Mode:        speech.Mode,
		Audio:       speech.Audio,
		ContentType: speech.ContentType,
	})
}

// StartRecognition asks the browser to start recognising speech.
func (c *voiceClient) StartRecognition() error {
	return c.emit(dto.VoiceServerFrame{Type: dto.VoiceFrameStartListening})
}

// StopRecognition asks the browser to stop recognising speech.
func (c *voiceClient) StopRecognition() {
	_ = c.emit(dto.VoiceServerFrame{Type: dto.VoiceFrameStopListening})
}

// Speak sends the utterance, followed by its audio when streaming.
func (c *voiceClient) Speak(utterance voice.Utterance) error {
	frame := dto.VoiceServerFrame{
		Type:        dto.VoiceFrameSpeak,
		Mode:        utterance.Mode,
		Text:        utterance.Text,
		ContentType: utterance.ContentType,
	}
	if utterance.Mode != voice.ModeStream {
		return c.emit(frame)
	}

	frame.AudioBytes = len(utterance.Audio)
	return c.enqueue(voiceOutbound{frame: &frame, audio: utterance.Audio})
}

// CancelSpeech asks the browser to stop playback.
func (c *voiceClient) CancelSpeech() {
	_ = c.emit(dto.VoiceServerFrame{Type: dto.VoiceFrameCancelSpeech})
}

func (c *voiceClient) countdown(percent int) {
	_ = c.emit(dto.VoiceServerFrame{Type: dto.VoiceFrameCountdown, Percent: percent})
}

func (c *voiceClient) phaseChanged(phase voice.Phase) {
	_ = c.emit(dto.VoiceServerFrame{Type: dto.VoiceFramePhase, Phase: string(phase)})
}

func (c *voiceClient) fail(err error) {
	_ = c.emit(dto.VoiceServerFrame{Type: dto.VoiceFrameError, Message: err.Error()})
}

func (c *voiceClient) emit(frame dto.VoiceServerFrame) error {
	return c.enqueue(voiceOutbound{frame: &frame})
}

func (c *voiceClient) enqueue(message voiceOutbound) error {
	select {
	case <-c.closed:
		return errVoiceChannelClosed
	default:
	}

	c.queued.Add(1)
	select {
	case c.send <- message:
		return nil
	case <-c.closed:
		c.queued.Add(-1)
		return errVoiceChannelClosed
	default:
		c.queued.Add(-1)
		c.logger.Warn().Str("type", message.frame.Type).Msg("voice send queue full, dropping frame")
		return errVoiceQueueFull
	}
}

func (c *voiceClient) writer() {
	defer c.close()

	for {
		select {
		case message := <-c.send:
			err := c.write(message)
			c.queued.Add(-1)
			if err != nil {
				c.logger.Debug().Err(err).Msg("voice write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.logger.Debug().Err(err).Msg("voice ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *voiceClient) write(message voiceOutbound) error {
	if message.frame != nil {
		if err := c.conn.WriteJSON(message.frame); err != nil {
			return err
		}
	}
	if len(message.audio) > 0 {
		return c.conn.WriteMessage(websocket.BinaryMessage, message.audio)
	}
	return nil
}

// drainAndClose flushes queued frames before closing the connection.
func (c *voiceClient) drainAndClose() {
	deadline := time.After(time.Second)
	for c.queued.Load() > 0 {
		select {
		case <-c.closed:
			return
		case <-deadline:
			c.close()
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	c.close()
}

func (c *voiceClient) close() {
	c.once.Do(func() {
		c.coordinator.End()
		close(c.closed)
		_ = c.conn.Close()
	})
}
