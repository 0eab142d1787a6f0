package model

import (
	"errors"
	"fmt"
	"os"
	"slices"
)

var (
	ErrFileTooLarge      = errors.New("file is too large")
	ErrFileTypeForbidden = errors.New("file type is not allowed")
)

// UploadedFile is a multipart file spooled to local disk.
type UploadedFile struct {
	Field    string
	Filename string
	Path     string
	MimeType string
	Size     int64
}

// Validate checks the file against a size limit and a MIME allow-list.
// An empty allow-list accepts every type.
func (f UploadedFile) Validate(maxSize int64, allowed []string) error {
	if maxSize > 0 && f.Size > maxSize {
		return fmt.Errorf("%s: %w", f.Field, ErrFileTooLarge)
	}
	if len(allowed) > 0 && !slices.Contains(allowed, f.MimeType) {
		return fmt.Errorf("%s (%s): %w", f.Field, f.MimeType, ErrFileTypeForbidden)
	}
	return nil
}

// UploadedFiles groups spooled files by form field name.
type UploadedFiles map[string][]UploadedFile

// First returns the first file submitted under field, or nil.
func (u UploadedFiles) First(field string) *UploadedFile {
	files := u[field]
	if len(files) == 0 {
		return nil
	}
	return &files[0]
}

// Validate checks every file in the set.
func (u UploadedFiles) Validate(maxSize int64, allowed []string) error {
	for _, files := range u {
		for _, f := range files {
			if err := f.Validate(maxSize, allowed); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup removes all spooled files. Files already gone are ignored.
func (u UploadedFiles) Cleanup() error {
	var errs []error
	for _, files := range u {
		for _, f := range files {
			if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
