package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User is the stored identity. Password and RefreshToken never leave the
// service: they are excluded from JSON and cleared by Sanitized.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string        `bson:"username" json:"username"`
	Email        string        `bson:"email" json:"email"`
	FullName     string        `bson:"fullName" json:"fullName"`
	Avatar       string        `bson:"avatar" json:"avatar"`
	CoverImage   string        `bson:"coverImage,omitempty" json:"coverImage"`
	Password     string        `bson:"password" json:"-"`
	RefreshToken *string       `bson:"refreshToken,omitempty" json:"-"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Sanitized returns a copy of the user without credential fields.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clean := *u
	clean.Password = ""
	clean.RefreshToken = nil
	return &clean
}

// ProfileUpdate lists the profile fields that can change after
// registration. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName   *string
	Email      *string
	Avatar     *string
	CoverImage *string
}

// IsEmpty reports whether the update would change nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.FullName == nil && p.Email == nil && p.Avatar == nil && p.CoverImage == nil
}
