package repository

import (
	"context"
	"errors"
	"go-user-api/logger"
	"go-user-api/model"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// IUserRepository defines the contract for user storage operations.
type IUserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByIdentifier(ctx context.Context, username, email string) (*model.User, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*model.User, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, update model.ProfileUpdate) (*model.User, error)
	UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error
	SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error
	ClearRefreshToken(ctx context.Context, id bson.ObjectID) error
}

// UserRepository implements IUserRepository on a MongoDB collection.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// Create inserts a new user and fills in its ID and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	log := logger.Log.WithFields(logrus.Fields{
		"username": user.Username,
		"email":    user.Email,
	})
	log.Info("Inserting a new user")

	now := time.Now().UTC()
	user.ID = bson.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Info("User insert rejected by unique index")
			return ErrDuplicateKey
		}
		log.WithError(err).Error("Failed to insert user")
		return err
	}
	return nil
}

// FindByIdentifier returns the user whose username or email matches. Empty
// identifiers are ignored; if both are empty ErrNotFound is returned.
func (r *UserRepository) FindByIdentifier(ctx context.Context, username, email string) (*model.User, error) {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}

	return r.findOne(ctx, bson.M{"$or": or}, logger.Log.WithFields(logrus.Fields{
		"username": username,
		"email":    email,
	}))
}

func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, logger.Log.WithField("user_id", id.Hex()))
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, log *logrus.Entry) (*model.User, error) {
	user := &model.User{}
	if err := r.coll.FindOne(ctx, filter).Decode(user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		log.WithError(err).Error("Failed to query user")
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of update and returns the user as
// stored afterwards. An empty update writes nothing and returns the user as is.
func (r *UserRepository) UpdateProfile(ctx context.Context, id bson.ObjectID, update model.ProfileUpdate) (*model.User, error) {
	if update.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	log := logger.Log.WithField("user_id", id.Hex())
	log.Info("Updating user profile")

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.FullName != nil {
		set["fullName"] = *update.FullName
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Avatar != nil {
		set["avatar"] = *update.Avatar
	}
	if update.CoverImage != nil {
		set["coverImage"] = *update.CoverImage
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	user := &model.User{}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(user)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, ErrDuplicateKey
		}
		log.WithError(err).Error("Failed to update user profile")
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	logger.Log.WithField("user_id", id.Hex()).Info("Updating user password")
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"password":  passwordHash,
		"updatedAt": time.Now().UTC(),
	}})
}

// SetRefreshToken stores token as the only valid refresh token for the user,
// replacing whatever was there.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"refreshToken": token}})
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id bson.ObjectID) error {
	logger.Log.WithField("user_id", id.Hex()).Info("Clearing refresh token")
	return r.updateOne(ctx, id, bson.M{"$unset": bson.M{"refreshToken": ""}})
}

func (r *UserRepository) updateOne(ctx context.Context, id bson.ObjectID, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", id.Hex()).Error("Failed to update user")
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
