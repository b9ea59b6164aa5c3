package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
	ReferralCancelled ReferralStatus = "cancelled"
)

func (s ReferralStatus) Valid() bool {
	switch s {
	case ReferralPending, ReferralCompleted, ReferralCancelled:
		return true
	}
	return false
}

// Referral is the directed edge sponsor -> referred enrollee.
type Referral struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Referrer   primitive.ObjectID `bson:"referrer" json:"referrer"`
	Referred   primitive.ObjectID `bson:"referred" json:"referred"`
	Status     ReferralStatus     `bson:"status" json:"status"`
	Commission float64            `bson:"commission" json:"commission"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

type ReferralFilter struct {
	Status ReferralStatus
	Page   int
	Limit  int
}

type ReferralUpdate struct {
	Status     *ReferralStatus `json:"status,omitempty"`
	Commission *float64        `json:"commission,omitempty" validate:"omitempty,gte=0"`
}
