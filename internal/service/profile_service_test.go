package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/models"
)

func TestProfileServiceUpdateSanitizesFields(t *testing.T) {
	profiles := newStubProfileRepo()
	svc := NewProfileService(profiles, &stubAssessmentResultRepo{}, validator.New(), zerolog.Nop())

	resp, err := svc.Update(context.Background(), 3, "dev@example.com", dto.UpdateProfileRequest{
		FirstName: "  <b>Ada</b> ",
		LastName:  "Lovelace",
		Bio:       "<script>alert(1)</script>Engineer",
	})
	require.NoError(t, err)
	require.Equal(t, "Ada", resp.FirstName)
	require.Equal(t, "Engineer", resp.Bio)
	require.Equal(t, "dev@example.com", resp.Email)
}

func TestProfileServiceRejectsMalformedImageID(t *testing.T) {
	svc := NewProfileService(newStubProfileRepo(), nil, validator.New(), zerolog.Nop())
	_, err := svc.Update(context.Background(), 3, "", dto.UpdateProfileRequest{ProfileImageID: "nope"})
	require.Error(t, err)
}

func TestProfileServiceIncludesStatsAndHistory(t *testing.T) {
	profiles := newStubProfileRepo()
	results := &stubAssessmentResultRepo{}
	ctx := context.Background()
	require.NoError(t, profiles.IncrementStats(ctx, 8, models.ProfileStatsDelta{CodingScore: 25, AssessmentsCompleted: 1}))
	require.NoError(t, results.Create(ctx, &models.AssessmentResult{UserID: 8, Difficulty: "medium", Score: 25, Rating: "Good"}))

	svc := NewProfileService(profiles, results, validator.New(), zerolog.Nop())
	resp, err := svc.Get(ctx, 8, "x@example.com")
	require.NoError(t, err)
	require.Equal(t, 25, resp.Stats.CodingScore)
	require.Equal(t, 1, resp.Stats.AssessmentsCompleted)
	require.Len(t, resp.RecentResults, 1)
	require.Equal(t, "Good", resp.RecentResults[0].Rating)
}
