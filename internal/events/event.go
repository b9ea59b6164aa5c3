package events

import (
	"context"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/google/uuid"
)

type Type string

const (
	EnrolleeCreated  Type = "enrollee.created"
	EnrolleeLinked   Type = "enrollee.linked"
	TeamChanged      Type = "enrollee.team_changed"
	PaymentCollected Type = "enrollee.payment_collected"
)

// Event is the envelope written to the enrollment topic.
type Event struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	EnrolleeID   string    `json:"enrollee_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Position     int64     `json:"position"`
	Package      string    `json:"package"`
	Team         string    `json:"team"`
	ReferralCode string    `json:"referral_code"`
	SponsorID    string    `json:"sponsor_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// New snapshots the enrollee into an event of the given type.
func New(t Type, e *models.Enrollee) Event {
	ev := Event{
		ID:           uuid.NewString(),
		Type:         t,
		EnrolleeID:   e.ID.Hex(),
		FullName:     e.FullName(),
		Email:        e.Email,
		Position:     e.Position,
		Package:      string(e.Package),
		Team:         string(e.Team),
		ReferralCode: e.ReferralCode,
		OccurredAt:   time.Now().UTC(),
	}
	if e.SponsorID != nil {
		ev.SponsorID = e.SponsorID.Hex()
	}
	return ev
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
