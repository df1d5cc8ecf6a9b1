// models/discount.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Discount is a partner benefit offered by an allied business
type Discount struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	CommerceName string             `json:"commerceName" bson:"commerceName"`
	Category     string             `json:"category" bson:"category"`
	Benefit      string             `json:"benefit" bson:"benefit"`
	Code         string             `json:"code,omitempty" bson:"code,omitempty"`
	IsActive     bool               `json:"isActive" bson:"isActive"`
	CreatedBy    primitive.ObjectID `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}
