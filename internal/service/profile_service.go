package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/models"
	"github.com/noah-isme/placement-prep-api/internal/repository"
)

const profileHistoryLimit = 5

// ProfileService exposes the user's identity details and practice statistics.
type ProfileService interface {
	Get(ctx context.Context, userID uint, email string) (dto.ProfileResponse, error)
	Update(ctx context.Context, userID uint, email string, req dto.UpdateProfileRequest) (dto.ProfileResponse, error)
}

type profileService struct {
	profiles  repository.ProfileRepository
	results   repository.AssessmentResultRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewProfileService constructs the profile service.
func NewProfileService(profiles repository.ProfileRepository, results repository.AssessmentResultRepository, validate *validator.Validate, logger zerolog.Logger) ProfileService {
	return &profileService{
		profiles:  profiles,
		results:   results,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "profile_service").Logger(),
	}
}

func (s *profileService) Get(ctx context.Context, userID uint, email string) (dto.ProfileResponse, error) {
	profile, err := s.profiles.GetOrCreate(ctx, userID, email)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return s.buildResponse(ctx, profile), nil
}

func (s *profileService) Update(ctx context.Context, userID uint, email string, req dto.UpdateProfileRequest) (dto.ProfileResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ProfileResponse{}, err
	}

	profile, err := s.profiles.GetOrCreate(ctx, userID, email)
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	profile.FirstName = s.clean(req.FirstName)
	profile.LastName = s.clean(req.LastName)
	profile.Bio = s.clean(req.Bio)
	profile.ProfileImageID = strings.TrimSpace(req.ProfileImageID)

	if err := s.profiles.Update(ctx, &profile); err != nil {
		return dto.ProfileResponse{}, err
	}

	s.logger.Info().Uint("user_id", userID).Msg("profile updated")
	return s.buildResponse(ctx, profile), nil
}

func (s *profileService) clean(value string) string {
	return plainText(s.sanitizer, value)
}

func (s *profileService) buildResponse(ctx context.Context, profile models.UserProfile) dto.ProfileResponse {
	response := dto.ProfileResponse{
		UserID:         profile.UserID,
		FirstName:      profile.FirstName,
		LastName:       profile.LastName,
		Email:          profile.Email,
		Bio:            profile.Bio,
		ProfileImageID: profile.ProfileImageID,
		Stats: dto.ProfileStats{
			CodingScore:             profile.CodingScore,
			AssessmentsCompleted:    profile.AssessmentsCompleted,
			InterviewsCompleted:     profile.InterviewsCompleted,
			ResumeAnalysisCount:     profile.ResumeAnalysisCount,
			TotalQuestionsAttempted: profile.TotalQuestionsAttempted,
		},
		RecentResults: []dto.AssessmentHistoryItem{},
	}

	if s.results == nil {
		return response
	}

	history, err := s.results.ListByUser(ctx, profile.UserID, profileHistoryLimit)
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", profile.UserID).Msg("failed to load assessment history")
		return response
	}
	for _, item := range history {
		response.RecentResults = append(response.RecentResults, dto.AssessmentHistoryItem{
			Difficulty:         item.Difficulty,
			Score:              item.Score,
			Percentage:         item.Percentage,
			Rating:             item.Rating,
			QuestionsAttempted: item.QuestionsAttempted,
			TotalQuestions:     item.TotalQuestions,
			FinishedAt:         item.FinishedAt,
		})
	}
	return response
}
