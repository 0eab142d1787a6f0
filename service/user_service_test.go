package service

import (
	"context"
	"errors"
	"go-user-api/media"
	"go-user-api/model"
	"go-user-api/repository"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func registerRequest() model.RegisterRequest {
	return model.RegisterRequest{
		FullName: " Alice Liddell ",
		Username: "Alice",
		Email:    "A@x.com",
		Password: "secret1",
	}
}

func uploadedFiles(fields ...string) model.UploadedFiles {
	files := model.UploadedFiles{}
	for _, f := range fields {
		files[f] = []model.UploadedFile{{Field: f, Path: "/tmp/" + f + ".png", MimeType: "image/png"}}
	}
	return files
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success with avatar and cover", func(t *testing.T) {
		repo := new(mockUserRepo)
		up := new(mockUploader)
		svc := NewUserService(repo, newTestHasher(), up, nil)
		files := uploadedFiles(AvatarField, CoverImageField)

		repo.On("FindByIdentifier", mock.Anything, "alice", "a@x.com").Return(nil, repository.ErrNotFound).Once()
		up.On("Upload", mock.Anything, files[AvatarField][0]).Return(&media.Result{URL: "https://cdn/avatar.png"}, nil).Once()
		up.On("Upload", mock.Anything, files[CoverImageField][0]).Return(&media.Result{URL: "https://cdn/cover.png"}, nil).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Username == "alice" &&
				u.Email == "a@x.com" &&
				u.FullName == "Alice Liddell" &&
				u.Avatar == "https://cdn/avatar.png" &&
				u.CoverImage == "https://cdn/cover.png" &&
				u.Password != "secret1" && u.Password != ""
		})).Return(nil).Once()

		user, err := svc.Register(ctx, registerRequest(), files)
		require.NoError(t, err)
		assert.False(t, user.ID.IsZero())
		assert.Equal(t, "https://cdn/avatar.png", user.Avatar)
		assert.Empty(t, user.Password)
		assert.Nil(t, user.RefreshToken)
		repo.AssertExpectations(t)
		up.AssertExpectations(t)
	})

	t.Run("cover upload failure is tolerated", func(t *testing.T) {
		repo := new(mockUserRepo)
		up := new(mockUploader)
		svc := NewUserService(repo, newTestHasher(), up, nil)
		files := uploadedFiles(AvatarField, CoverImageField)

		repo.On("FindByIdentifier", mock.Anything, "alice", "a@x.com").Return(nil, repository.ErrNotFound).Once()
		up.On("Upload", mock.Anything, files[AvatarField][0]).Return(&media.Result{URL: "https://cdn/avatar.png"}, nil).Once()
		up.On("Upload", mock.Anything, files[CoverImageField][0]).Return(nil, errors.New("timeout")).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.CoverImage == ""
		})).Return(nil).Once()

		user, err := svc.Register(ctx, registerRequest(), files)
		require.NoError(t, err)
		assert.Empty(t, user.CoverImage)
	})

	t.Run("existing user", func(t *testing.T) {
		repo := new(mockUserRepo)
		up := new(mockUploader)
		svc := NewUserService(repo, newTestHasher(), up, nil)

		repo.On("FindByIdentifier", mock.Anything, "alice", "a@x.com").Return(&model.User{}, nil).Once()

		_, err := svc.Register(ctx, registerRequest(), uploadedFiles(AvatarField))
		assert.ErrorIs(t, err, ErrUserExists)
		up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})

	t.Run("missing avatar", func(t *testing.T) {
		repo := new(mockUserRepo)
		svc := NewUserService(repo, newTestHasher(), new(mockUploader), nil)
		repo.On("FindByIdentifier", mock.Anything, "alice", "a@x.com").Return(nil, repository.ErrNotFound).Once()

		_, err := svc.Register(ctx, registerRequest(), uploadedFiles(CoverImageField))
		assert.ErrorIs(t, err, ErrAvatarRequired)
	})

	t.Run("blank field", func(t *testing.T) {
		svc := NewUserService(new(mockUserRepo), newTestHasher(), new(mockUploader), nil)
		req := registerRequest()
		req.FullName = "   "

		_, err := svc.Register(ctx, req, uploadedFiles(AvatarField))
		assert.ErrorIs(t, err, ErrMissingFields)
	})

	t.Run("password over bcrypt limit uploads nothing", func(t *testing.T) {
		repo := new(mockUserRepo)
		up := new(mockUploader)
		svc := NewUserService(repo, newTestHasher(), up, nil)
		req := registerRequest()
		req.Password = strings.Repeat("é", 40)

		_, err := svc.Register(ctx, req, uploadedFiles(AvatarField))
		assert.ErrorIs(t, err, ErrPasswordTooLong)
		repo.AssertNotCalled(t, "FindByIdentifier", mock.Anything, mock.Anything, mock.Anything)
		up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})

	t.Run("avatar upload failure", func(t *testing.T) {
		repo := new(mockUserRepo)
		up := new(mockUploader)
		svc := NewUserService(repo, newTestHasher(), up, nil)

		repo.On("FindByIdentifier", mock.Anything, "alice", "a@x.com").Return(nil, repository.ErrNotFound).Once()
		up.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded")).Once()

		_, err := svc.Register(ctx, registerRequest(), uploadedFiles(AvatarField))
		assert.ErrorIs(t, err, ErrUploadFailed)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("lost race on unique index removes uploaded media", func(t *testing.T) {
		repo := new(mockUserRepo)
		up := new(mockUploader)
		svc := NewUserService(repo, newTestHasher(), up, nil)

		repo.On("FindByIdentifier", mock.Anything, "alice", "a@x.com").Return(nil, repository.ErrNotFound).Once()
		up.On("Upload", mock.Anything, mock.Anything).Return(&media.Result{URL: "https://cdn/avatar.png"}, nil).Once()
		repo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateKey).Once()
		up.On("Delete", mock.Anything, "https://cdn/avatar.png").Return(nil).Once()

		_, err := svc.Register(ctx, registerRequest(), uploadedFiles(AvatarField))
		assert.ErrorIs(t, err, ErrUserExists)
		up.AssertExpectations(t)
	})
}

func TestUserService_UpdateAccountDetails(t *testing.T) {
	ctx := context.Background()
	id := bson.NewObjectID()

	t.Run("success invalidates cache", func(t *testing.T) {
		repo := new(mockUserRepo)
		client := new(mockCacheClient)
		svc := NewUserService(repo, newTestHasher(), new(mockUploader), NewUserCache(client, time.Minute))

		name, email := "Alice L", "new@x.com"
		repo.On("UpdateProfile", mock.Anything, id, model.ProfileUpdate{FullName: &name, Email: &email}).
			Return(&model.User{ID: id, FullName: name, Email: email, Password: "hash"}, nil).Once()
		client.On("Del", mock.Anything, []string{"user:" + id.Hex()}).Return(redis.NewIntResult(1, nil)).Once()

		user, err := svc.UpdateAccountDetails(ctx, id, " Alice L ", "NEW@x.com")
		require.NoError(t, err)
		assert.Equal(t, "new@x.com", user.Email)
		assert.Empty(t, user.Password)
		client.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		repo := new(mockUserRepo)
		svc := NewUserService(repo, newTestHasher(), new(mockUploader), nil)
		repo.On("UpdateProfile", mock.Anything, id, mock.Anything).Return(nil, repository.ErrDuplicateKey).Once()

		_, err := svc.UpdateAccountDetails(ctx, id, "Alice", "b@x.com")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := NewUserService(new(mockUserRepo), newTestHasher(), new(mockUploader), nil)
		_, err := svc.UpdateAccountDetails(ctx, id, "", "b@x.com")
		assert.ErrorIs(t, err, ErrMissingFields)
	})
}

func TestUserService_UpdateAvatar(t *testing.T) {
	ctx := context.Background()
	id := bson.NewObjectID()
	file := &model.UploadedFile{Field: AvatarField, Path: "/tmp/new.png", MimeType: "image/png"}

	t.Run("replaces and deletes previous image", func(t *testing.T) {
		repo := new(mockUserRepo)
		up := new(mockUploader)
		svc := NewUserService(repo, newTestHasher(), up, nil)

		newURL := "https://cdn/new.png"
		repo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Avatar: "https://cdn/old.png"}, nil).Once()
		up.On("Upload", mock.Anything, *file).Return(&media.Result{URL: newURL}, nil).Once()
		repo.On("UpdateProfile", mock.Anything, id, model.ProfileUpdate{Avatar: &newURL}).
			Return(&model.User{ID: id, Avatar: newURL}, nil).Once()
		up.On("Delete", mock.Anything, "https://cdn/old.png").Return(errors.New("gone")).Once()

		user, err := svc.UpdateAvatar(ctx, id, file)
		require.NoError(t, err, "failed deletion of the old image is not fatal")
		assert.Equal(t, newURL, user.Avatar)
		up.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		svc := NewUserService(new(mockUserRepo), newTestHasher(), new(mockUploader), nil)
		_, err := svc.UpdateAvatar(ctx, id, nil)
		assert.ErrorIs(t, err, ErrAvatarRequired)
	})

	t.Run("upload failure keeps old image", func(t *testing.T) {
		repo := new(mockUserRepo)
		up := new(mockUploader)
		svc := NewUserService(repo, newTestHasher(), up, nil)

		repo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Avatar: "https://cdn/old.png"}, nil).Once()
		up.On("Upload", mock.Anything, *file).Return(nil, errors.New("503")).Once()

		_, err := svc.UpdateAvatar(ctx, id, file)
		assert.ErrorIs(t, err, ErrUploadFailed)
		repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
		up.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestUserService_UpdateCoverImage(t *testing.T) {
	ctx := context.Background()
	id := bson.NewObjectID()
	file := &model.UploadedFile{Field: CoverImageField, Path: "/tmp/cover.png", MimeType: "image/png"}

	t.Run("first cover image has nothing to delete", func(t *testing.T) {
		repo := new(mockUserRepo)
		up := new(mockUploader)
		svc := NewUserService(repo, newTestHasher(), up, nil)

		newURL := "https://cdn/cover.png"
		repo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id}, nil).Once()
		up.On("Upload", mock.Anything, *file).Return(&media.Result{URL: newURL}, nil).Once()
		repo.On("UpdateProfile", mock.Anything, id, model.ProfileUpdate{CoverImage: &newURL}).
			Return(&model.User{ID: id, CoverImage: newURL}, nil).Once()

		user, err := svc.UpdateCoverImage(ctx, id, file)
		require.NoError(t, err)
		assert.Equal(t, newURL, user.CoverImage)
		up.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(mockUserRepo)
		svc := NewUserService(repo, newTestHasher(), new(mockUploader), nil)
		repo.On("FindByID", mock.Anything, id).Return(nil, repository.ErrNotFound).Once()

		_, err := svc.UpdateCoverImage(ctx, id, file)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("no file", func(t *testing.T) {
		svc := NewUserService(new(mockUserRepo), newTestHasher(), new(mockUploader), nil)
		_, err := svc.UpdateCoverImage(ctx, id, nil)
		assert.ErrorIs(t, err, ErrCoverImageRequired)
	})
}

func TestUserService_GetUser(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewUserService(repo, newTestHasher(), new(mockUploader), nil)
	id := bson.NewObjectID()
	token := "stored"

	repo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Password: "hash", RefreshToken: &token}, nil).Once()
	user, err := svc.GetUser(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, user.Password)
	assert.Nil(t, user.RefreshToken)

	missing := bson.NewObjectID()
	repo.On("FindByID", mock.Anything, missing).Return(nil, repository.ErrNotFound).Once()
	_, err = svc.GetUser(context.Background(), missing)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserCache_NilClientIsNoop(t *testing.T) {
	var cache *UserCache
	ctx := context.Background()
	id := bson.NewObjectID()

	assert.Nil(t, cache.Get(ctx, id))
	cache.Set(ctx, &model.User{ID: id})
	cache.Invalidate(ctx, id)

	cache = NewUserCache(nil, time.Minute)
	assert.Nil(t, cache.Get(ctx, id))
}

func TestUserCache_MalformedEntryIsAMiss(t *testing.T) {
	client := new(mockCacheClient)
	cache := NewUserCache(client, time.Minute)
	id := bson.NewObjectID()

	client.On("Get", mock.Anything, "user:"+id.Hex()).Return(redis.NewStringResult("{not json", nil)).Once()
	assert.Nil(t, cache.Get(context.Background(), id))
}

func TestPasswordHasher_Limits(t *testing.T) {
	h := newTestHasher()

	_, err := h.HashPassword(strings.Repeat("p", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err := h.HashPassword(strings.Repeat("p", MaxPasswordBytes))
	require.NoError(t, err)
	assert.True(t, h.CheckPasswordHash(strings.Repeat("p", MaxPasswordBytes), hash))
	assert.False(t, h.CheckPasswordHash("p", hash))
}
