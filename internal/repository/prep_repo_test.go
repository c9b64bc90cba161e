package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/placement-prep-api/internal/models"
)

func setupPrepTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.UserProfile{},
		&models.AssessmentResult{},
		&models.InterviewSession{},
		&models.InterviewTurn{},
		&models.ResumeAnalysis{},
	))
	return db
}

func TestAssessmentResultRepositoryListsNewestFirst(t *testing.T) {
	db := setupPrepTestDB(t)
	repo := NewAssessmentResultRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, difficulty := range []string{"easy", "medium", "hard"} {
		require.NoError(t, repo.Create(ctx, &models.AssessmentResult{
			UserID:     7,
			Difficulty: difficulty,
			Score:      i * 5,
			FinishedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.AssessmentResult{UserID: 8, Difficulty: "easy", FinishedAt: base}))

	results, err := repo.ListByUser(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "hard", results[0].Difficulty)
	require.Equal(t, "easy", results[2].Difficulty)
}

func TestProfileRepositoryIncrementStatsCreatesRow(t *testing.T) {
	db := setupPrepTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.IncrementStats(ctx, 3, models.ProfileStatsDelta{CodingScore: 10, AssessmentsCompleted: 1, TotalQuestionsAttempted: 2}))
	require.NoError(t, repo.IncrementStats(ctx, 3, models.ProfileStatsDelta{CodingScore: 5, InterviewsCompleted: 1}))
	require.NoError(t, repo.IncrementStats(ctx, 3, models.ProfileStatsDelta{}))

	profile, err := repo.GetOrCreate(ctx, 3, "dev@example.com")
	require.NoError(t, err)
	require.Equal(t, 15, profile.CodingScore)
	require.Equal(t, 1, profile.AssessmentsCompleted)
	require.Equal(t, 1, profile.InterviewsCompleted)
	require.Equal(t, 2, profile.TotalQuestionsAttempted)
}

func TestProfileRepositoryUpdateKeepsCounters(t *testing.T) {
	db := setupPrepTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	profile, err := repo.GetOrCreate(ctx, 4, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", profile.Email)
	require.NoError(t, repo.IncrementStats(ctx, 4, models.ProfileStatsDelta{ResumeAnalysisCount: 2}))

	profile.FirstName = "Ana"
	profile.Bio = "Backend engineer"
	profile.ResumeAnalysisCount = 0
	require.NoError(t, repo.Update(ctx, &profile))

	stored, err := repo.GetOrCreate(ctx, 4, "")
	require.NoError(t, err)
	require.Equal(t, "Ana", stored.FirstName)
	require.Equal(t, "Backend engineer", stored.Bio)
	require.Equal(t, 2, stored.ResumeAnalysisCount)
}

func TestInterviewRepositoryTranscriptOrdering(t *testing.T) {
	db := setupPrepTestDB(t)
	repo := NewInterviewRepository(db)
	ctx := context.Background()

	session := &models.InterviewSession{SessionID: "sess-1", UserID: 9, CandidateName: "Dev", Status: models.InterviewStatusActive}
	require.NoError(t, repo.Create(ctx, session))

	_, err := repo.AppendTurn(ctx, session.ID, models.SpeakerAssistant, "Tell me about yourself")
	require.NoError(t, err)
	turn, err := repo.AppendTurn(ctx, session.ID, models.SpeakerUser, "I build APIs")
	require.NoError(t, err)
	require.Equal(t, 2, turn.Sequence)

	stored, err := repo.GetBySessionID(ctx, 9, "sess-1")
	require.NoError(t, err)
	require.Len(t, stored.Turns, 2)
	require.Equal(t, models.SpeakerAssistant, stored.Turns[0].Speaker)

	_, err = repo.GetBySessionID(ctx, 10, "sess-1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInterviewRepositoryComplete(t *testing.T) {
	db := setupPrepTestDB(t)
	repo := NewInterviewRepository(db)
	ctx := context.Background()

	session := &models.InterviewSession{SessionID: "sess-2", UserID: 1, CandidateName: "Dev", Status: models.InterviewStatusActive}
	require.NoError(t, repo.Create(ctx, session))
	require.NoError(t, repo.UpdateStatus(ctx, session.ID, models.InterviewStatusEnding))

	endedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Complete(ctx, session.ID, map[string]interface{}{"overall": "strong"}, endedAt))

	stored, err := repo.GetBySessionID(ctx, 1, "sess-2")
	require.NoError(t, err)
	require.Equal(t, models.InterviewStatusEnded, stored.Status)
	require.Equal(t, "strong", stored.Assessment["overall"])
	require.NotNil(t, stored.EndedAt)
	require.True(t, stored.IsTerminal())
}

func TestInterviewRepositoryConcurrentTurnsStayUnique(t *testing.T) {
	db := setupPrepTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewInterviewRepository(db)
	ctx := context.Background()
	session := &models.InterviewSession{SessionID: "sess-3", UserID: 1, CandidateName: "Dev", Status: models.InterviewStatusActive}
	require.NoError(t, repo.Create(ctx, session))

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, appendErr := repo.AppendTurn(ctx, session.ID, models.SpeakerUser, fmt.Sprintf("answer %d", n))
			errs <- appendErr
		}(i)
	}
	wg.Wait()
	close(errs)
	for appendErr := range errs {
		require.NoError(t, appendErr)
	}

	stored, err := repo.GetBySessionID(ctx, 1, "sess-3")
	require.NoError(t, err)
	require.Len(t, stored.Turns, 5)
	for i, turn := range stored.Turns {
		require.Equal(t, i+1, turn.Sequence)
	}
}

func TestResumeAnalysisRepositoryLatest(t *testing.T) {
	db := setupPrepTestDB(t)
	repo := NewResumeAnalysisRepository(db)
	ctx := context.Background()

	_, err := repo.Latest(ctx, 2)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Create(ctx, &models.ResumeAnalysis{UserID: 2, FileName: "old.pdf", MatchScore: "60", Source: models.ResumeSourceMock}))
	require.NoError(t, repo.Create(ctx, &models.ResumeAnalysis{UserID: 2, FileName: "new.pdf", MatchScore: "85", Source: models.ResumeSourceRemote}))

	latest, err := repo.Latest(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "new.pdf", latest.FileName)
}
