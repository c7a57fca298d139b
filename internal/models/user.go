package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a person responsible for one or more vehicles. Primary managers also
// receive fleet wide summaries.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Email            string             `bson:"email" json:"email"`
	Phone            string             `bson:"phone,omitempty" json:"phone,omitempty"`
	WhatsApp         string             `bson:"whatsapp,omitempty" json:"whatsapp,omitempty"`
	Company          string             `bson:"company,omitempty" json:"company,omitempty"`
	IsPrimaryManager bool               `bson:"is_primary_manager" json:"isPrimaryManager"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updatedAt"`
}

// MessagingNumber prefers the WhatsApp number over the phone number.
func (u *User) MessagingNumber() string {
	if u.WhatsApp != "" {
		return u.WhatsApp
	}
	return u.Phone
}
