package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotifyNewEnrollment   NotificationType = "new_enrollment"
	NotifyTeamUpdate      NotificationType = "team_update"
	NotifyAchievement     NotificationType = "achievement_unlocked"
	NotifySystemMessage   NotificationType = "system_message"
	NotifyPaymentReminder NotificationType = "payment_reminder"
	NotifyImportantUpdate NotificationType = "important_update"
	NotifyWelcome         NotificationType = "welcome"
)

type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Recipient   primitive.ObjectID `bson:"recipient" json:"recipient"`
	Type        NotificationType   `bson:"type" json:"type"`
	Title       string             `bson:"title" json:"title"`
	Message     string             `bson:"message" json:"message"`
	Read        bool               `bson:"read" json:"read"`
	RelatedData map[string]any     `bson:"related_data,omitempty" json:"related_data,omitempty"`
	ActionURL   string             `bson:"action_url,omitempty" json:"action_url,omitempty"`
	ActionText  string             `bson:"action_text,omitempty" json:"action_text,omitempty"`
	// removed by the TTL index once passed
	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}
