package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User is the single account record for every role. The role lives in a
// field rather than in per-role collections so an email resolves to at
// most one account.
type User struct {
	ID             bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email          string          `bson:"email" json:"email"`
	PasswordHash   string          `bson:"passwordHash,omitempty" json:"-"` // never expose
	Role           Role            `bson:"role" json:"role"`
	Name           string          `bson:"name" json:"name"`
	ProfilePicture string          `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	IsActive       bool            `bson:"isActive" json:"isActive"`
	Wishlist       []bson.ObjectID `bson:"wishlist,omitempty" json:"wishlist,omitempty"`
	Enrolled       []bson.ObjectID `bson:"enrolledCourses,omitempty" json:"enrolledCourses,omitempty"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// PublicProfile is the shape returned by login and verify-login.
func (u *User) PublicProfile() map[string]any {
	return map[string]any{
		"id":             u.ID,
		"role":           u.Role,
		"email":          u.Email,
		"name":           u.Name,
		"profilePicture": u.ProfilePicture,
	}
}
