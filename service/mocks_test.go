package service

import (
	"context"
	"go-user-api/media"
	"go-user-api/model"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

// mockUserRepo is a mock implementation of IUserRepository.
type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = bson.NewObjectID()
	}
	return args.Error(0)
}

func (m *mockUserRepo) FindByIdentifier(ctx context.Context, username, email string) (*model.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id bson.ObjectID, update model.ProfileUpdate) (*model.User, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *mockUserRepo) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	return m.Called(ctx, id, token).Error(0)
}

func (m *mockUserRepo) ClearRefreshToken(ctx context.Context, id bson.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

// mockUploader is a mock implementation of media.Uploader.
type mockUploader struct{ mock.Mock }

func (m *mockUploader) Name() string { return "mock" }

func (m *mockUploader) Upload(ctx context.Context, file model.UploadedFile) (*media.Result, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Result), args.Error(1)
}

func (m *mockUploader) Delete(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

// mockCacheClient is a mock implementation of ICacheClient.
type mockCacheClient struct{ mock.Mock }

func (m *mockCacheClient) Get(ctx context.Context, key string) *redis.StringCmd {
	return m.Called(ctx, key).Get(0).(*redis.StringCmd)
}

func (m *mockCacheClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	return m.Called(ctx, key, value, expiration).Get(0).(*redis.StatusCmd)
}

func (m *mockCacheClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return m.Called(ctx, keys).Get(0).(*redis.IntCmd)
}

func newTestHasher() *PasswordHasher {
	return NewPasswordHasher(bcrypt.MinCost)
}

// storedUser returns a user record as the repository would hold it, with
// password hashed.
func storedUser(password string) *model.User {
	hash, err := newTestHasher().HashPassword(password)
	if err != nil {
		panic(err)
	}
	return &model.User{
		ID:       bson.NewObjectID(),
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice",
		Avatar:   "https://cdn.example.com/a.png",
		Password: hash,
	}
}
