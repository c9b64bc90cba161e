// Package voice keeps speech recognition and playback mutually exclusive during a voice interview.
package voice

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Phase is the coordinator's current mode.
type Phase string

// Coordinator phases.
const (
	PhaseIdle      Phase = "idle"
	PhaseListening Phase = "listening"
	PhaseSpeaking  Phase = "speaking"
	PhaseEnded     Phase = "ended"
)

// Playback modes.
const (
	ModeStream     = "stream"
	ModeBrowserTTS = "browser_tts"
)

const (
	defaultSilenceWindow = 4 * time.Second
	defaultRearmDelay    = 1500 * time.Millisecond
	defaultTickInterval  = 100 * time.Millisecond
)

// Recognizer turns candidate speech into transcripts.
type Recognizer interface {
	StartRecognition() error
	StopRecognition()
}

// Speaker plays assistant speech. Completion is reported back through the coordinator.
type Speaker interface {
	Speak(utterance Utterance) error
	CancelSpeech()
}

// Utterance is one assistant reply to voice.
type Utterance struct {
	Text        string
	Mode        string
	Audio       []byte
	ContentType string
}

// Config wires timings and callbacks.
type Config struct {
	SilenceWindow time.Duration
	RearmDelay    time.Duration
	TickInterval  time.Duration
	Clock         Clock
	Logger        zerolog.Logger
	// Submit receives each finished candidate answer exactly once.
	Submit func(text string)
	// OnCountdown reports silence countdown progress from 0 to 100.
	OnCountdown func(percent int)
	// OnPhase reports phase transitions.
	OnPhase func(phase Phase)
}

// Coordinator is the voice channel state machine. It is safe for concurrent use.
type Coordinator struct {
	mu         sync.Mutex
	cfg        Config
	recognizer Recognizer
	speaker    Speaker

	phase       Phase
	recognizing bool
	speaking    bool

	pending       string
	lastSubmitted string
	// awaiting is set between a submission and the reply that answers it.
	awaiting bool

	countdownID    int
	countdownStart time.Time
	silenceTimer   Timer
	tickTimer      Timer

	rearmID    int
	rearmTimer Timer

	utterance  Utterance
	ttsRetried bool
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(recognizer Recognizer, speaker Speaker, cfg Config) *Coordinator {
	if cfg.SilenceWindow <= 0 {
		cfg.SilenceWindow = defaultSilenceWindow
	}
	if cfg.RearmDelay <= 0 {
		cfg.RearmDelay = defaultRearmDelay
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}

	return &Coordinator{
		cfg:        cfg,
		recognizer: recognizer,
		speaker:    speaker,
		phase:      PhaseIdle,
	}
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Recognizing reports whether recognition is currently on.
func (c *Coordinator) Recognizing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recognizing
}

// Speaking reports whether playback is currently on.
func (c *Coordinator) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Listen starts recognition unless playback is active or a submitted answer awaits its reply.
func (c *Coordinator) Listen() error {
	c.mu.Lock()
	if c.phase == PhaseEnded || c.phase == PhaseSpeaking || c.awaiting {
		c.mu.Unlock()
		return nil
	}
	return c.listenLocked()
}

// Resume reopens listening after a submitted answer failed to produce a reply.
func (c *Coordinator) Resume() error {
	c.mu.Lock()
	if c.phase == PhaseEnded || c.phase == PhaseSpeaking {
		c.mu.Unlock()
		return nil
	}
	c.awaiting = false
	return c.listenLocked()
}

// listenLocked opens a listening window and releases the lock.
func (c *Coordinator) listenLocked() error {
	if c.phase != PhaseListening {
		c.resetAnswerLocked()
	}
	err := c.startRecognitionLocked()
	notify := c.setPhaseLocked(PhaseListening)
	c.mu.Unlock()

	notify()
	return err
}

// BeginSpeaking forces recognition off and hands the utterance to the speaker.
func (c *Coordinator) BeginSpeaking(utterance Utterance) {
	c.mu.Lock()
	if c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}

	c.cancelCountdownLocked()
	c.cancelRearmLocked()
	c.stopRecognitionLocked()
	c.resetAnswerLocked()
	c.awaiting = false

	c.utterance = utterance
	c.ttsRetried = utterance.Mode == ModeBrowserTTS
	c.speaking = true
	notify := c.setPhaseLocked(PhaseSpeaking)
	speaker := c.speaker
	c.mu.Unlock()

	notify()
	if err := speaker.Speak(utterance); err != nil {
		c.PlaybackFailed(err)
	}
}

// PlaybackProgress is called on every playback callback and keeps recognition off.
func (c *Coordinator) PlaybackProgress() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseSpeaking {
		c.stopRecognitionLocked()
	}
}

// PlaybackFinished schedules recognition to re-arm after the rearm delay.
func (c *Coordinator) PlaybackFinished() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseSpeaking {
		return
	}

	c.stopRecognitionLocked()
	c.speaking = false
	c.scheduleRearmLocked()
}

// PlaybackFailed retries a failed stream once with browser speech, then re-arms.
func (c *Coordinator) PlaybackFailed(err error) {
	c.mu.Lock()
	if c.phase != PhaseSpeaking {
		c.mu.Unlock()
		return
	}
	c.stopRecognitionLocked()

	if !c.ttsRetried {
		c.ttsRetried = true
		retry := Utterance{Text: c.utterance.Text, Mode: ModeBrowserTTS}
		c.utterance = retry
		speaker := c.speaker
		c.mu.Unlock()

		c.cfg.Logger.Warn().Err(err).Msg("stream playback failed, retrying with browser speech")
		if speakErr := speaker.Speak(retry); speakErr != nil {
			c.PlaybackFailed(speakErr)
		}
		return
	}

	c.cfg.Logger.Warn().Err(err).Msg("browser speech failed, resuming listening")
	c.speaking = false
	c.scheduleRearmLocked()
	c.mu.Unlock()
}

// Interim handles a partial transcript and restarts the silence countdown.
func (c *Coordinator) Interim(text string) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.phase != PhaseListening || text == "" {
		c.mu.Unlock()
		return
	}
	if text != c.lastSubmitted {
		c.lastSubmitted = ""
	}
	c.pending = text
	c.startCountdownLocked()
	c.mu.Unlock()

	c.reportCountdown(0)
}

// Final handles a finished transcript and submits it immediately.
func (c *Coordinator) Final(text string) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.phase != PhaseListening {
		c.mu.Unlock()
		return
	}
	if text == "" {
		text = c.pending
	}
	submit := c.takeSubmissionLocked(text)
	c.mu.Unlock()

	submit()
}

// RecognitionEnded restarts recognition the engine stopped on its own while listening.
func (c *Coordinator) RecognitionEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recognizing = false
	if c.phase == PhaseListening && !c.speaking {
		if err := c.startRecognitionLocked(); err != nil {
			c.cfg.Logger.Warn().Err(err).Msg("failed to restart recognition")
		}
	}
}

// End stops recognition, playback and every timer.
func (c *Coordinator) End() {
	c.mu.Lock()
	if c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}

	c.cancelCountdownLocked()
	c.cancelRearmLocked()
	c.stopRecognitionLocked()
	if c.speaking {
		c.speaking = false
		c.speaker.CancelSpeech()
	}
	c.awaiting = false
	notify := c.setPhaseLocked(PhaseEnded)
	c.mu.Unlock()

	notify()
}

func (c *Coordinator) startRecognitionLocked() error {
	if c.recognizing || c.speaking {
		return nil
	}
	if err := c.recognizer.StartRecognition(); err != nil {
		return err
	}
	c.recognizing = true
	return nil
}

func (c *Coordinator) stopRecognitionLocked() {
	if !c.recognizing {
		return
	}
	c.recognizer.StopRecognition()
	c.recognizing = false
}

func (c *Coordinator) setPhaseLocked(phase Phase) func() {
	if c.phase == phase {
		return func() {}
	}
	c.phase = phase
	callback := c.cfg.OnPhase
	return func() {
		if callback != nil {
			callback(phase)
		}
	}
}

// takeSubmissionLocked moves to idle and returns the submit call, or a no-op for duplicates.
func (c *Coordinator) takeSubmissionLocked(text string) func() {
	c.cancelCountdownLocked()
	if text == "" || text == c.lastSubmitted {
		return func() {}
	}

	c.lastSubmitted = text
	c.pending = ""
	c.awaiting = true
	c.stopRecognitionLocked()
	notify := c.setPhaseLocked(PhaseIdle)
	submit := c.cfg.Submit

	return func() {
		notify()
		if submit != nil {
			submit(text)
		}
	}
}

// resetAnswerLocked forgets the previous answer so a new turn may repeat it.
func (c *Coordinator) resetAnswerLocked() {
	c.pending = ""
	c.lastSubmitted = ""
}

func (c *Coordinator) startCountdownLocked() {
	c.cancelCountdownLocked()
	c.countdownID++
	id := c.countdownID
	c.countdownStart = c.cfg.Clock.Now()

	c.silenceTimer = c.cfg.Clock.AfterFunc(c.cfg.SilenceWindow, func() { c.silenceElapsed(id) })
	c.tickTimer = c.cfg.Clock.AfterFunc(c.cfg.TickInterval, func() { c.tick(id) })
}

func (c *Coordinator) cancelCountdownLocked() {
	c.countdownID++
	if c.silenceTimer != nil {
		c.silenceTimer.Stop()
		c.silenceTimer = nil
	}
	if c.tickTimer != nil {
		c.tickTimer.Stop()
		c.tickTimer = nil
	}
}

func (c *Coordinator) tick(id int) {
	c.mu.Lock()
	if id != c.countdownID || c.phase != PhaseListening {
		c.mu.Unlock()
		return
	}

	elapsed := c.cfg.Clock.Now().Sub(c.countdownStart)
	percent := int(elapsed * 100 / c.cfg.SilenceWindow)
	if percent > 100 {
		percent = 100
	}
	if percent < 100 {
		c.tickTimer = c.cfg.Clock.AfterFunc(c.cfg.TickInterval, func() { c.tick(id) })
	}
	c.mu.Unlock()

	c.reportCountdown(percent)
}

func (c *Coordinator) silenceElapsed(id int) {
	c.mu.Lock()
	if id != c.countdownID || c.phase != PhaseListening {
		c.mu.Unlock()
		return
	}
	submit := c.takeSubmissionLocked(c.pending)
	c.mu.Unlock()

	c.reportCountdown(100)
	submit()
}

func (c *Coordinator) reportCountdown(percent int) {
	if c.cfg.OnCountdown != nil {
		c.cfg.OnCountdown(percent)
	}
}

func (c *Coordinator) scheduleRearmLocked() {
	c.cancelRearmLocked()
	c.rearmID++
	id := c.rearmID
	c.rearmTimer = c.cfg.Clock.AfterFunc(c.cfg.RearmDelay, func() { c.rearm(id) })
}

func (c *Coordinator) cancelRearmLocked() {
	c.rearmID++
	if c.rearmTimer != nil {
		c.rearmTimer.Stop()
		c.rearmTimer = nil
	}
}

func (c *Coordinator) rearm(id int) {
	c.mu.Lock()
	if id != c.rearmID || c.phase != PhaseSpeaking || c.speaking {
		c.mu.Unlock()
		return
	}

	c.resetAnswerLocked()
	err := c.startRecognitionLocked()
	notify := c.setPhaseLocked(PhaseListening)
	c.mu.Unlock()

	if err != nil {
		c.cfg.Logger.Warn().Err(err).Msg("failed to re-arm recognition")
	}
	notify()
}
