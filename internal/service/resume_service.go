package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/models"
	"github.com/noah-isme/placement-prep-api/internal/observability"
	"github.com/noah-isme/placement-prep-api/internal/repository"
	"github.com/noah-isme/placement-prep-api/pkg/atsscorer"
)

const defaultResumeScoreTimeout = 10 * time.Second

var (
	// ErrJobDescriptionRequired indicates the job description is blank after sanitizing.
	ErrJobDescriptionRequired = errors.New("job description is required")
	// ErrResumeAnalysisNotFound indicates the user has not analysed a resume yet.
	ErrResumeAnalysisNotFound = errors.New("resume analysis not found")
)

// mockResumeAnalysis is the fixed demo verdict, also served when scoring fails.
var mockResumeAnalysis = atsscorer.Analysis{
	MatchScore:      "85",
	MissingKeywords: []string{"React Native", "Redux", "TypeScript"},
	ImprovementTips: []string{
		"Add more details about your React experience",
		"Include specific project metrics",
		"Highlight your team collaboration skills",
	},
}

// ResumeScorer scores a resume against a job description.
type ResumeScorer interface {
	Process(ctx context.Context, fileName string, resume []byte, jobDescription string) (atsscorer.Analysis, error)
}

// ResumeArchive keeps a copy of analysed resumes.
type ResumeArchive interface {
	Store(ctx context.Context, owner, name string, reader io.Reader) (string, error)
}

// ResumeService scores resumes and remembers the latest verdict.
type ResumeService interface {
	Analyze(ctx context.Context, userID uint, req dto.AnalyzeResumeRequest, resume *UploadedFile) (dto.ResumeAnalysisResponse, error)
	Latest(ctx context.Context, userID uint) (dto.ResumeAnalysisResponse, error)
}

// ResumeServiceConfig tunes resume scoring.
type ResumeServiceConfig struct {
	MaxResumeBytes int
	Timeout        time.Duration
	// MockByDefault answers every analysis with the canned result.
	MockByDefault bool
	Clock         func() time.Time
}

type resumeService struct {
	store     SessionStore
	scorer    ResumeScorer
	archive   ResumeArchive
	analyses  repository.ResumeAnalysisRepository
	profiles  repository.ProfileRepository
	events    EventPublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	config    ResumeServiceConfig
}

// NewResumeService creates the resume scoring service. scorer and archive may be nil.
func NewResumeService(store SessionStore, scorer ResumeScorer, archive ResumeArchive, analyses repository.ResumeAnalysisRepository, profiles repository.ProfileRepository, events EventPublisher, validate *validator.Validate, logger zerolog.Logger, cfg ResumeServiceConfig) ResumeService {
	if cfg.MaxResumeBytes <= 0 {
		cfg.MaxResumeBytes = 5 * 1024 * 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultResumeScoreTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if events == nil {
		events = NewNoopEventPublisher()
	}

	return &resumeService{
		store:     store,
		scorer:    scorer,
		archive:   archive,
		analyses:  analyses,
		profiles:  profiles,
		events:    events,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "resume_service").Logger(),
		config:    cfg,
	}
}

func (s *resumeService) Analyze(ctx context.Context, userID uint, req dto.AnalyzeResumeRequest, resume *UploadedFile) (dto.ResumeAnalysisResponse, error) {
	if err := validateResume(resume, s.config.MaxResumeBytes); err != nil {
		return dto.ResumeAnalysisResponse{}, err
	}
	jobDescription := plainText(s.sanitizer, req.JobDescription)
	if jobDescription == "" {
		return dto.ResumeAnalysisResponse{}, ErrJobDescriptionRequired
	}
	req.JobDescription = jobDescription
	if err := s.validator.Struct(req); err != nil {
		return dto.ResumeAnalysisResponse{}, err
	}

	log := s.logger.With().Uint("user_id", userID).Str("file_name", resume.FileName).Logger()

	analysis, source := s.score(ctx, log, resume, jobDescription, req.UseMock || s.config.MockByDefault)

	// Demo analyses never leave the process.
	var archiveURL string
	if source != models.ResumeSourceMock {
		archiveURL = s.archiveResume(ctx, log, userID, resume)
	}

	record := &models.ResumeAnalysis{
		UserID:          userID,
		FileName:        resume.FileName,
		MatchScore:      string(analysis.MatchScore),
		MissingKeywords: encodeStrings(analysis.MissingKeywords),
		ImprovementTips: encodeStrings(analysis.ImprovementTips),
		Source:          source,
		ArchiveURL:      archiveURL,
		CreatedAt:       s.config.Clock().UTC(),
	}
	if err := s.analyses.Create(ctx, record); err != nil {
		return dto.ResumeAnalysisResponse{}, err
	}

	response := toResumeAnalysisResponse(*record)
	if encoded, err := json.Marshal(response); err != nil {
		log.Warn().Err(err).Msg("failed to encode resume analysis for session")
	} else if err := s.store.Set(ctx, userID, SessionKeyResumeAnalysis, string(encoded)); err != nil {
		log.Warn().Err(err).Msg("failed to cache resume analysis")
	}

	if s.profiles != nil {
		if err := s.profiles.IncrementStats(ctx, userID, models.ProfileStatsDelta{ResumeAnalysisCount: 1}); err != nil {
			log.Error().Err(err).Msg("failed to update profile statistics")
		}
	}
	if err := s.events.Publish(ctx, EventResumeAnalyzed, userID, map[string]interface{}{
		"analysis_id": record.ID,
		"match_score": record.MatchScore,
		"source":      source,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to publish resume analysis")
	}

	log.Info().Str("source", source).Str("match_score", record.MatchScore).Msg("resume analysed")
	return response, nil
}

// score makes at most one scorer call. Demo mode and failures return the mock verdict.
func (s *resumeService) score(ctx context.Context, log zerolog.Logger, resume *UploadedFile, jobDescription string, useMock bool) (atsscorer.Analysis, string) {
	if useMock {
		return copyAnalysis(mockResumeAnalysis), models.ResumeSourceMock
	}
	if s.scorer == nil {
		log.Warn().Msg("resume scorer not configured, using fallback analysis")
		observability.Fallbacks().WithLabelValues("resume", "process").Inc()
		return copyAnalysis(mockResumeAnalysis), models.ResumeSourceFallback
	}

	scoreCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	analysis, err := s.scorer.Process(scoreCtx, resume.FileName, resume.Content, jobDescription)
	if err != nil {
		log.Warn().Err(err).Msg("resume scoring failed, using fallback analysis")
		observability.Fallbacks().WithLabelValues("resume", "process").Inc()
		return copyAnalysis(mockResumeAnalysis), models.ResumeSourceFallback
	}
	return analysis, models.ResumeSourceRemote
}

func (s *resumeService) archiveResume(ctx context.Context, log zerolog.Logger, userID uint, resume *UploadedFile) string {
	if s.archive == nil {
		return ""
	}
	owner := "user-" + strconv.FormatUint(uint64(userID), 10)
	url, err := s.archive.Store(ctx, owner, resume.FileName, bytes.NewReader(resume.Content))
	if err != nil {
		log.Warn().Err(err).Msg("failed to archive resume")
		return ""
	}
	return url
}

func (s *resumeService) Latest(ctx context.Context, userID uint) (dto.ResumeAnalysisResponse, error) {
	raw, ok, err := s.store.Get(ctx, userID, SessionKeyResumeAnalysis)
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to read cached resume analysis")
	}
	if ok {
		var cached dto.ResumeAnalysisResponse
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn().Uint("user_id", userID).Msg("discarding unreadable cached resume analysis")
	}

	record, err := s.analyses.Latest(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ResumeAnalysisResponse{}, ErrResumeAnalysisNotFound
	}
	if err != nil {
		return dto.ResumeAnalysisResponse{}, err
	}
	return toResumeAnalysisResponse(record), nil
}

func toResumeAnalysisResponse(record models.ResumeAnalysis) dto.ResumeAnalysisResponse {
	return dto.ResumeAnalysisResponse{
		ID:              record.ID,
		FileName:        record.FileName,
		MatchScore:      record.MatchScore,
		MissingKeywords: decodeStrings(record.MissingKeywords),
		ImprovementTips: decodeStrings(record.ImprovementTips),
		Source:          record.Source,
		ArchiveURL:      record.ArchiveURL,
		AnalyzedAt:      record.CreatedAt,
	}
}

func copyAnalysis(analysis atsscorer.Analysis) atsscorer.Analysis {
	analysis.MissingKeywords = append([]string(nil), analysis.MissingKeywords...)
	analysis.ImprovementTips = append([]string(nil), analysis.ImprovementTips...)
	return analysis
}

func encodeStrings(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(encoded)
}

func decodeStrings(raw datatypes.JSON) []string {
	values := []string{}
	if len(raw) == 0 {
		return values
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return []string{}
	}
	return values
}
