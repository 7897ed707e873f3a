package model

import "time"

// User mirrors the identity provider's account. UID is the provider's opaque
// identifier and is treated as a trusted string everywhere.
type User struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	UID       string    `json:"uid" bson:"uid" validate:"required"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type UserUpdate struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Name  string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone string `json:"phone,omitempty" validate:"omitempty,e164"`
}
