package handler

import (
	"errors"
	"fmt"
	"go-user-api/config"
	"go-user-api/logger"
	"go-user-api/model"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

var ErrInvalidForm = errors.New("invalid multipart form")

// multipartMemory is how much of a form net/http keeps in memory before
// spilling parts to disk.
const multipartMemory = 1 << 20

// UploadOptions limits and places files received in multipart forms.
type UploadOptions struct {
	TempDir      string
	MaxFileSize  int64
	AllowedTypes []string
}

func UploadOptionsFromConfig(cfg *config.Config) UploadOptions {
	return UploadOptions{
		TempDir:      cfg.Upload.TempDir,
		MaxFileSize:  cfg.Upload.MaxFileSize,
		AllowedTypes: cfg.Upload.AllowedTypes,
	}
}

// parseMultipart parses a multipart form and spools the files sent under
// fields into TempDir. The MIME type of each file is detected from its
// content, not taken from the client. The caller owns the returned files
// and must Cleanup them; on error nothing is left behind.
func (o UploadOptions) parseMultipart(w http.ResponseWriter, r *http.Request, fields ...string) (model.UploadedFiles, error) {
	if o.MaxFileSize > 0 {
		limit := o.MaxFileSize*int64(len(fields)) + multipartMemory
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, model.ErrFileTooLarge
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	defer r.MultipartForm.RemoveAll()

	files := model.UploadedFiles{}
	for _, field := range fields {
		for _, header := range r.MultipartForm.File[field] {
			f, err := o.spool(field, header)
			if err != nil {
				_ = files.Cleanup()
				return nil, err
			}
			files[field] = append(files[field], *f)
		}
	}

	if err := files.Validate(o.MaxFileSize, o.AllowedTypes); err != nil {
		_ = files.Cleanup()
		return nil, err
	}
	return files, nil
}

func (o UploadOptions) spool(field string, header *multipart.FileHeader) (*model.UploadedFile, error) {
	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(o.TempDir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	size, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	mtype, err := mimetype.DetectFile(dst.Name())
	if err != nil {
		os.Remove(dst.Name())
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	logger.Log.WithField("field", field).WithField("mime", mtype.String()).Debug("Spooled uploaded file")

	return &model.UploadedFile{
		Field:    field,
		Filename: filepath.Base(header.Filename),
		Path:     dst.Name(),
		MimeType: mtype.String(),
		Size:     size,
	}, nil
}
