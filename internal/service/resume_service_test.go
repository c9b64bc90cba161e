package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/models"
	"github.com/noah-isme/placement-prep-api/internal/repository"
	"github.com/noah-isme/placement-prep-api/pkg/atsscorer"
)

type stubScorer struct {
	calls    int
	analysis atsscorer.Analysis
	err      error
	deadline time.Duration
}

func (s *stubScorer) Process(ctx context.Context, _ string, _ []byte, _ string) (atsscorer.Analysis, error) {
	s.calls++
	if deadline, ok := ctx.Deadline(); ok {
		s.deadline = time.Until(deadline)
	}
	return s.analysis, s.err
}

type stubArchive struct {
	owners []string
	err    error
}

func (a *stubArchive) Store(_ context.Context, owner, name string, reader io.Reader) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if _, err := io.ReadAll(reader); err != nil {
		return "", err
	}
	a.owners = append(a.owners, owner)
	return "https://res.cloudinary.com/demo/raw/upload/" + owner + "/" + name, nil
}

type resumeFixture struct {
	svc      ResumeService
	store    SessionStore
	scorer   *stubScorer
	archive  *stubArchive
	profiles *stubProfileRepo
	events   *recordingPublisher
}

func newResumeFixture(t *testing.T) resumeFixture {
	t.Helper()
	store, _ := newTestSessionStore(t)
	db := setupServiceTestDB(t, &models.ResumeAnalysis{})

	f := resumeFixture{
		store:    store,
		scorer:   &stubScorer{analysis: atsscorer.Analysis{MatchScore: "72", MissingKeywords: []string{"Kubernetes"}, ImprovementTips: []string{"Quantify impact"}}},
		archive:  &stubArchive{},
		profiles: newStubProfileRepo(),
		events:   &recordingPublisher{},
	}
	f.svc = NewResumeService(store, f.scorer, f.archive, repository.NewResumeAnalysisRepository(db), f.profiles, f.events, validator.New(), zerolog.Nop(), ResumeServiceConfig{
		MaxResumeBytes: 1024,
		Clock:          func() time.Time { return time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC) },
	})
	return f
}

func textResume() *UploadedFile {
	return &UploadedFile{FileName: "cv.txt", Content: []byte("Go engineer with five years of backend experience")}
}

func TestResumeMockModeSkipsScorer(t *testing.T) {
	f := newResumeFixture(t)

	resp, err := f.svc.Analyze(context.Background(), 4, dto.AnalyzeResumeRequest{JobDescription: "Backend role", UseMock: true}, textResume())
	require.NoError(t, err)
	require.Zero(t, f.scorer.calls)
	require.Equal(t, models.ResumeSourceMock, resp.Source)
	require.Equal(t, "85", resp.MatchScore)
	require.Equal(t, []string{"React Native", "Redux", "TypeScript"}, resp.MissingKeywords)
	require.Len(t, resp.ImprovementTips, 3)
	require.Empty(t, resp.ArchiveURL)
	require.Empty(t, f.archive.owners)
}

func TestResumeMockByDefaultSkipsScorerAndArchive(t *testing.T) {
	store, _ := newTestSessionStore(t)
	db := setupServiceTestDB(t, &models.ResumeAnalysis{})
	scorer := &stubScorer{}
	archive := &stubArchive{}
	svc := NewResumeService(store, scorer, archive, repository.NewResumeAnalysisRepository(db), newStubProfileRepo(), &recordingPublisher{}, validator.New(), zerolog.Nop(), ResumeServiceConfig{
		MockByDefault: true,
	})

	resp, err := svc.Analyze(context.Background(), 4, dto.AnalyzeResumeRequest{JobDescription: "Backend role"}, textResume())
	require.NoError(t, err)
	require.Equal(t, models.ResumeSourceMock, resp.Source)
	require.Zero(t, scorer.calls)
	require.Empty(t, archive.owners)
}

func TestResumeRemoteScoreIsPersistedAndCached(t *testing.T) {
	f := newResumeFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Analyze(ctx, 4, dto.AnalyzeResumeRequest{JobDescription: "<p>Platform engineer</p>"}, textResume())
	require.NoError(t, err)
	require.Equal(t, 1, f.scorer.calls)
	require.LessOrEqual(t, f.scorer.deadline, defaultResumeScoreTimeout)
	require.Equal(t, models.ResumeSourceRemote, resp.Source)
	require.Equal(t, "72", resp.MatchScore)
	require.Equal(t, []string{"Kubernetes"}, resp.MissingKeywords)
	require.Contains(t, resp.ArchiveURL, "user-4")
	require.NotZero(t, resp.ID)

	cached, ok, err := f.store.Get(ctx, 4, SessionKeyResumeAnalysis)
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, cached, `"match_score":"72"`)

	latest, err := f.svc.Latest(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, resp.ID, latest.ID)

	require.Equal(t, 1, f.profiles.profiles[4].ResumeAnalysisCount)
	require.Len(t, f.events.events, 1)
	require.Equal(t, EventResumeAnalyzed, f.events.events[0].Type)
}

func TestResumeScorerFailureFallsBackOnce(t *testing.T) {
	f := newResumeFixture(t)
	f.scorer.err = errors.New("connection refused")

	resp, err := f.svc.Analyze(context.Background(), 4, dto.AnalyzeResumeRequest{JobDescription: "Backend role"}, textResume())
	require.NoError(t, err)
	require.Equal(t, 1, f.scorer.calls)
	require.Equal(t, models.ResumeSourceFallback, resp.Source)
	require.Equal(t, "85", resp.MatchScore)
}

func TestResumeArchiveFailureDoesNotFailAnalysis(t *testing.T) {
	f := newResumeFixture(t)
	f.archive.err = errors.New("cloudinary down")

	resp, err := f.svc.Analyze(context.Background(), 4, dto.AnalyzeResumeRequest{JobDescription: "Backend role"}, textResume())
	require.NoError(t, err)
	require.Equal(t, models.ResumeSourceRemote, resp.Source)
	require.Equal(t, 1, f.scorer.calls)
	require.Empty(t, resp.ArchiveURL)
}

func TestResumeValidationHappensBeforeScoring(t *testing.T) {
	f := newResumeFixture(t)
	ctx := context.Background()

	_, err := f.svc.Analyze(ctx, 4, dto.AnalyzeResumeRequest{JobDescription: "Backend role"}, nil)
	require.ErrorIs(t, err, ErrResumeRequired)

	_, err = f.svc.Analyze(ctx, 4, dto.AnalyzeResumeRequest{JobDescription: "<i></i>  "}, textResume())
	require.ErrorIs(t, err, ErrJobDescriptionRequired)

	_, err = f.svc.Analyze(ctx, 4, dto.AnalyzeResumeRequest{JobDescription: "Backend role"}, &UploadedFile{FileName: "cv.png", Content: tinyPNG})
	require.ErrorIs(t, err, ErrUnsupportedResumeType)

	require.Zero(t, f.scorer.calls)
}

func TestResumeLatestWithoutAnalysis(t *testing.T) {
	f := newResumeFixture(t)
	_, err := f.svc.Latest(context.Background(), 99)
	require.ErrorIs(t, err, ErrResumeAnalysisNotFound)
}
