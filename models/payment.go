package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentExpired   PaymentStatus = "expired"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment is a record of one checkout session. The gateway itself is an
// external collaborator; this service only tracks status transitions
// reported by its webhook.
type Payment struct {
	ID              bson.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID          bson.ObjectID     `bson:"userId" json:"userId"`
	SessionID       string            `bson:"sessionId" json:"sessionId"`
	PaymentIntentID *string           `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	CourseIDs       []bson.ObjectID   `bson:"courseIds" json:"courseIds"`
	Amount          float64           `bson:"amount" json:"amount"`
	Currency        string            `bson:"currency" json:"currency"`
	Status          PaymentStatus     `bson:"status" json:"status"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
	CompletedAt     *time.Time        `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Metadata        map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}
