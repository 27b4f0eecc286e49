package domain

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the profile document stored under the authentication uid.
type User struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Phone     string    `json:"phoneNumber,omitempty" bson:"phone_number,omitempty"`
	Avatar    string    `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Role      string    `json:"role" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
