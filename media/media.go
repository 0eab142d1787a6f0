// Package media stores user images on an external media host.
package media

import (
	"context"
	"errors"
	"fmt"
	"go-user-api/config"
	"go-user-api/model"
)

var ErrNotOwned = errors.New("url does not belong to this media store")

// Result describes a stored media object.
type Result struct {
	URL      string
	PublicID string
}

// Uploader puts local files on the media host and removes them again.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, file model.UploadedFile) (*Result, error)
	Delete(ctx context.Context, url string) error
}

// New builds the uploader selected by media.provider.
func New(ctx context.Context, cfg *config.Config) (Uploader, error) {
	switch cfg.Media.Provider {
	case "cloudinary":
		return NewCloudinaryUploader(cfg)
	case "s3":
		return NewS3Uploader(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Media.Provider)
	}
}
