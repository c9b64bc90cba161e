package dto

import "time"

// Playback modes for assistant speech.
const (
	PlaybackStream     = "stream"
	PlaybackBrowserTTS = "browser_tts"
)

// StartInterviewRequest carries the form fields used to open an interview.
type StartInterviewRequest struct {
	Name      string `form:"name" validate:"required,max=120"`
	VoiceMode bool   `form:"voice_mode"`
}

// InterviewTurnRequest is a candidate answer.
type InterviewTurnRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// EndInterviewRequest must be confirmed before an interview is closed.
type EndInterviewRequest struct {
	Confirm bool `json:"confirm"`
}

// SpeechRequest asks for assistant speech.
type SpeechRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// Playback describes how the client should voice an assistant reply.
type Playback struct {
	Mode     string `json:"mode"`
	AudioURL string `json:"audio_url,omitempty"`
	Text     string `json:"text"`
}

// InterviewTurnView is one transcript line.
type InterviewTurnView struct {
	Speaker  string    `json:"speaker"`
	Text     string    `json:"text"`
	Sequence int       `json:"sequence"`
	At       time.Time `json:"at"`
}

// InterviewStartResponse is returned when an interview opens.
type InterviewStartResponse struct {
	SessionID    string   `json:"session_id"`
	Message      string   `json:"message"`
	TextForAudio string   `json:"text_for_audio"`
	VoiceMode    bool     `json:"voice_mode"`
	Fallback     bool     `json:"fallback"`
	Playback     Playback `json:"playback"`
}

// InterviewTurnResponse carries the interviewer reply.
type InterviewTurnResponse struct {
	SessionID string   `json:"session_id"`
	Message   string   `json:"message"`
	Fallback  bool     `json:"fallback"`
	Playback  Playback `json:"playback"`
}

// InterviewEndResponse carries the final assessment and the results redirect delay.
type InterviewEndResponse struct {
	SessionID       string                 `json:"session_id"`
	Assessment      map[string]interface{} `json:"assessment"`
	Fallback        bool                   `json:"fallback"`
	RedirectAfterMS int64                  `json:"redirect_after_ms"`
}

// InterviewSessionResponse is the persisted session with its transcript.
type InterviewSessionResponse struct {
	SessionID     string                 `json:"session_id"`
	CandidateName string                 `json:"candidate_name"`
	Status        string                 `json:"status"`
	VoiceMode     bool                   `json:"voice_mode"`
	Fallback      bool                   `json:"fallback"`
	Transcript    []InterviewTurnView    `json:"transcript"`
	Assessment    map[string]interface{} `json:"assessment,omitempty"`
	StartedAt     time.Time              `json:"started_at"`
	EndedAt       *time.Time             `json:"ended_at,omitempty"`
}

// SpeechResult is synthesized speech or an instruction to use browser TTS.
type SpeechResult struct {
	Mode        string
	Audio       []byte
	ContentType string
	Text        string
}

// Voice channel frame types sent by the browser.
const (
	VoiceFrameInterim          = "interim"
	VoiceFrameFinal            = "final"
	VoiceFrameListen           = "listen"
	VoiceFramePlaybackStarted  = "playback_started"
	VoiceFramePlaybackProgress = "playback_progress"
	VoiceFramePlaybackEnded    = "playback_ended"
	VoiceFramePlaybackError    = "playback_error"
	VoiceFrameRecognitionEnded = "recognition_ended"
	VoiceFrameUnsupported      = "unsupported"
	VoiceFrameEnd              = "end"
)

// Voice channel frame types sent by the server.
const (
	VoiceFrameStartListening = "start_listening"
	VoiceFrameStopListening  = "stop_listening"
	VoiceFrameSpeak          = "speak"
	VoiceFrameCancelSpeech   = "cancel_speech"
	VoiceFrameCountdown      = "countdown"
	VoiceFramePhase          = "phase"
	VoiceFrameReply          = "reply"
	VoiceFrameError          = "error"
	VoiceFrameEnded          = "ended"
)

// VoiceClientFrame is a message from the browser's speech layer.
type VoiceClientFrame struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// VoiceServerFrame instructs the browser's speech layer. Stream audio follows a speak frame as one binary message.
type VoiceServerFrame struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id,omitempty"`
	Phase       string `json:"phase,omitempty"`
	Percent     int    `json:"percent"`
	Mode        string `json:"mode,omitempty"`
	Text        string `json:"text,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	AudioBytes  int    `json:"audio_bytes,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Message     string `json:"message,omitempty"`
}
