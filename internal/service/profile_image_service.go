package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/placement-prep-api/internal/dto"
	"github.com/noah-isme/placement-prep-api/internal/models"
	"github.com/noah-isme/placement-prep-api/internal/repository"
)

const defaultImageFileName = "unknown"

var (
	// ErrInvalidImageData indicates the payload is not decodable base64.
	ErrInvalidImageData = errors.New("image data must be base64 encoded")
	// ErrImageTooLarge indicates the decoded image exceeds the upload limit.
	ErrImageTooLarge = errors.New("image exceeds upload limit")
	// ErrNotAnImage indicates the decoded bytes are not an image.
	ErrNotAnImage = errors.New("only image files are allowed")
)

// ProfileImageService stores and serves avatars.
type ProfileImageService interface {
	Upload(ctx context.Context, req dto.UploadProfileImageRequest) (dto.UploadProfileImageResponse, error)
	Get(ctx context.Context, id string) (dto.ProfileImageResponse, error)
	Delete(ctx context.Context, id string, req dto.DeleteProfileImageRequest) error
}

type profileImageService struct {
	repo      repository.ProfileImageRepository
	validator *validator.Validate
	logger    zerolog.Logger
	maxBytes  int
}

// NewProfileImageService constructs the avatar service with a decoded size limit in bytes.
func NewProfileImageService(repo repository.ProfileImageRepository, validate *validator.Validate, logger zerolog.Logger, maxBytes int) ProfileImageService {
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &profileImageService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "profile_image_service").Logger(),
		maxBytes:  maxBytes,
	}
}

func (s *profileImageService) Upload(ctx context.Context, req dto.UploadProfileImageRequest) (dto.UploadProfileImageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UploadProfileImageResponse{}, err
	}

	detected, err := s.inspect(req.ImageData)
	if err != nil {
		return dto.UploadProfileImageResponse{}, err
	}

	// The sniffed type wins over whatever the client declared.
	image := &models.ProfileImage{
		UserID:      strings.TrimSpace(req.UserID),
		FileName:    strings.TrimSpace(req.FileName),
		ContentType: detected,
		ImageData:   req.ImageData,
		CreatedAt:   time.Now().UTC(),
	}
	if image.FileName == "" {
		image.FileName = defaultImageFileName
	}
	if declared := strings.TrimSpace(req.ContentType); declared != "" && !strings.EqualFold(declared, detected) {
		s.logger.Debug().Str("declared", declared).Str("detected", detected).Msg("declared image type ignored")
	}

	id, err := s.repo.Create(ctx, image)
	if err != nil {
		return dto.UploadProfileImageResponse{}, err
	}

	s.logger.Info().Str("user_id", image.UserID).Str("image_id", id).Str("content_type", detected).Msg("profile image stored")
	return dto.UploadProfileImageResponse{Success: true, ImageID: id}, nil
}

// inspect decodes the payload and returns its detected MIME type.
func (s *profileImageService) inspect(imageData string) (string, error) {
	payload := imageData
	if strings.HasPrefix(payload, "data:") {
		if comma := strings.Index(payload, ","); comma >= 0 {
			payload = payload[comma+1:]
		}
	}
	payload = strings.TrimSpace(payload)

	if base64.StdEncoding.DecodedLen(len(payload)) > s.maxBytes+3 {
		return "", ErrImageTooLarge
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return "", ErrInvalidImageData
		}
	}
	if len(decoded) > s.maxBytes {
		return "", ErrImageTooLarge
	}

	detected, _, _ := strings.Cut(mimetype.Detect(decoded).String(), ";")
	if !strings.HasPrefix(detected, "image/") {
		return "", ErrNotAnImage
	}
	return detected, nil
}

func (s *profileImageService) Get(ctx context.Context, id string) (dto.ProfileImageResponse, error) {
	image, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return dto.ProfileImageResponse{}, err
	}
	return dto.ProfileImageResponse{
		ImageData:   image.ImageData,
		ContentType: image.ContentType,
		FileName:    image.FileName,
	}, nil
}

func (s *profileImageService) Delete(ctx context.Context, id string, req dto.DeleteProfileImageRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	if err := s.repo.DeleteOwned(ctx, strings.TrimSpace(id), strings.TrimSpace(req.UserID)); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", req.UserID).Str("image_id", id).Msg("profile image deleted")
	return nil
}
