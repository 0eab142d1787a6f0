package service

import (
	"context"
	"errors"
	"fmt"
	"go-user-api/logger"
	"go-user-api/media"
	"go-user-api/metrics"
	"go-user-api/model"
	"go-user-api/repository"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Multipart field names for user images.
const (
	AvatarField     = "avatar"
	CoverImageField = "coverImage"
)

// UserService handles registration and profile changes.
type UserService struct {
	users    repository.IUserRepository
	hasher   *PasswordHasher
	uploader media.Uploader
	cache    *UserCache
}

func NewUserService(users repository.IUserRepository, hasher *PasswordHasher, uploader media.Uploader, cache *UserCache) *UserService {
	return &UserService{
		users:    users,
		hasher:   hasher,
		uploader: uploader,
		cache:    cache,
	}
}

// Register creates a user. An avatar file is required; a cover image is
// optional and a failed cover upload leaves the field empty.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest, files model.UploadedFiles) (*model.User, error) {
	fullName := strings.TrimSpace(req.FullName)
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" || username == "" || email == "" || strings.TrimSpace(req.Password) == "" {
		return nil, ErrMissingFields
	}
	if err := checkPasswordLength(req.Password); err != nil {
		return nil, err
	}

	log := logger.Log.WithFields(logrus.Fields{"username": username, "email": email})

	_, err := s.users.FindByIdentifier(ctx, username, email)
	switch {
	case err == nil:
		log.Info("Registration rejected: user already exists")
		return nil, ErrUserExists
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to check for existing user: %w", err)
	}

	avatarFile := files.First(AvatarField)
	if avatarFile == nil {
		return nil, ErrAvatarRequired
	}

	avatar, err := s.upload(ctx, *avatarFile)
	if err != nil {
		return nil, ErrUploadFailed
	}

	var coverURL string
	if coverFile := files.First(CoverImageField); coverFile != nil {
		if cover, err := s.upload(ctx, *coverFile); err == nil {
			coverURL = cover.URL
		} else {
			log.WithError(err).Warn("Cover image upload failed; registering without it")
		}
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		s.discard(ctx, avatar.URL, coverURL)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
		Password:   hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.discard(ctx, avatar.URL, coverURL)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.WithField("user_id", user.ID.Hex()).Info("User registered")
	return user.Sanitized(), nil
}

// GetUser returns the sanitized user with the given ID.
func (s *UserService) GetUser(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user.Sanitized(), nil
}

// UpdateAccountDetails replaces the full name and email of a user.
func (s *UserService) UpdateAccountDetails(ctx context.Context, id bson.ObjectID, fullName, email string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, ErrMissingFields
	}

	return s.updateProfile(ctx, id, model.ProfileUpdate{FullName: &fullName, Email: &email})
}

// UpdateAvatar uploads a new avatar and removes the previous one from the
// media host once the user record points at the new URL.
func (s *UserService) UpdateAvatar(ctx context.Context, id bson.ObjectID, file *model.UploadedFile) (*model.User, error) {
	if file == nil {
		return nil, ErrAvatarRequired
	}
	return s.replaceImage(ctx, id, *file, func(url string) model.ProfileUpdate {
		return model.ProfileUpdate{Avatar: &url}
	}, func(u *model.User) string { return u.Avatar })
}

// UpdateCoverImage is UpdateAvatar for the cover image.
func (s *UserService) UpdateCoverImage(ctx context.Context, id bson.ObjectID, file *model.UploadedFile) (*model.User, error) {
	if file == nil {
		return nil, ErrCoverImageRequired
	}
	return s.replaceImage(ctx, id, *file, func(url string) model.ProfileUpdate {
		return model.ProfileUpdate{CoverImage: &url}
	}, func(u *model.User) string { return u.CoverImage })
}

func (s *UserService) replaceImage(
	ctx context.Context,
	id bson.ObjectID,
	file model.UploadedFile,
	update func(url string) model.ProfileUpdate,
	current func(*model.User) string,
) (*model.User, error) {
	existing, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	previous := current(existing)

	uploaded, err := s.upload(ctx, file)
	if err != nil {
		return nil, ErrUploadFailed
	}

	user, err := s.updateProfile(ctx, id, update(uploaded.URL))
	if err != nil {
		s.discard(ctx, uploaded.URL)
		return nil, err
	}

	s.discard(ctx, previous)
	return user, nil
}

func (s *UserService) updateProfile(ctx context.Context, id bson.ObjectID, update model.ProfileUpdate) (*model.User, error) {
	user, err := s.users.UpdateProfile(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.cache.Invalidate(ctx, id)
	logger.Log.WithField("user_id", id.Hex()).Info("User profile updated")
	return user.Sanitized(), nil
}

func (s *UserService) upload(ctx context.Context, file model.UploadedFile) (*media.Result, error) {
	res, err := s.uploader.Upload(ctx, file)
	metrics.RecordUpload(s.uploader.Name(), err)
	if err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"field":    file.Field,
			"provider": s.uploader.Name(),
		}).Error("Media upload failed")
		return nil, err
	}
	return res, nil
}

// discard deletes media by URL, logging failures. Empty URLs are skipped.
func (s *UserService) discard(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.uploader.Delete(ctx, url); err != nil {
			logger.Log.WithError(err).WithField("url", url).Warn("Failed to delete stored media")
		}
	}
}
