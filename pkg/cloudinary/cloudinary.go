package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Archive stores analysed resumes as raw Cloudinary assets.
type Archive struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Cloudinary resume archive.
func New(cfg Config, logger zerolog.Logger) (*Archive, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Archive{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "resume_archive").Logger(),
		now:    time.Now,
	}, nil
}

// Store uploads the resume under the owner's folder and returns a secure URL.
func (a *Archive) Store(ctx context.Context, owner, name string, reader io.Reader) (string, error) {
	folder := strings.Trim(a.folder, "/")
	if owner != "" {
		folder = strings.Trim(folder+"/"+owner, "/")
	}

	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     buildPublicID(name, a.now()),
		ResourceType: "raw",
	}

	result, err := a.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to archive resume: %w", err)
	}

	a.logger.Info().Str("public_id", result.PublicID).Msg("resume archived")

	return result.SecureURL, nil
}

func buildPublicID(name string, now time.Time) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "resume"
	}

	// raw assets keep their extension in the public id
	return fmt.Sprintf("%s-%d%s", base, now.Unix(), strings.ToLower(ext))
}
