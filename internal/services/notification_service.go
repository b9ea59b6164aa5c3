package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/events"
	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	welcomeTTL        = 30 * 24 * time.Hour
	defaultNotifLimit = 50
)

// Pusher delivers a freshly stored notification to live connections.
type Pusher interface {
	Push(recipient string, n *models.Notification)
}

type NotificationService interface {
	events.Handler
	List(ctx context.Context, caller models.Caller, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, caller models.Caller, id string) error
	MarkAllRead(ctx context.Context, caller models.Caller) (int64, error)
	Delete(ctx context.Context, caller models.Caller, id string) error
}

type notificationService struct {
	repo   repository.NotificationRepository
	pusher Pusher
	log    *zap.Logger
	now    func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, pusher Pusher, log *zap.Logger) NotificationService {
	return &notificationService{repo: repo, pusher: pusher, log: log, now: time.Now}
}

// HandleEvent turns an enrollment event into notifications for the people it concerns.
func (s *notificationService) HandleEvent(ctx context.Context, ev events.Event) error {
	var errs []error
	for _, n := range s.notificationsFor(ev) {
		if err := s.repo.Create(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("store %s notification: %w", n.Type, err))
			continue
		}
		if s.pusher != nil {
			s.pusher.Push(n.Recipient.Hex(), n)
		}
	}
	return errors.Join(errs...)
}

func (s *notificationService) notificationsFor(ev events.Event) []*models.Notification {
	enrollee, err := primitive.ObjectIDFromHex(ev.EnrolleeID)
	if err != nil {
		s.log.Warn("event without a valid enrollee id", zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)))
		return nil
	}
	now := s.now().UTC()
	related := map[string]any{"enrollee_id": ev.EnrolleeID, "event_id": ev.ID}

	var out []*models.Notification
	switch ev.Type {
	case events.EnrolleeCreated:
		expires := now.Add(welcomeTTL)
		out = append(out, &models.Notification{
			Recipient: enrollee,
			Type:      models.NotifyWelcome,
			Title:     "Welcome to Kevin's Konga!",
			Message: fmt.Sprintf("You are #%d in the Konga line on the %s package. Share your referral code %s to grow your team.",
				ev.Position, models.PackageTier(ev.Package).Title(), ev.ReferralCode),
			RelatedData: related,
			ActionURL:   "/dashboard",
			ActionText:  "View dashboard",
			ExpiresAt:   &expires,
			CreatedAt:   now,
		})
		if n := s.sponsorNotice(ev, related, now); n != nil {
			out = append(out, n)
		}
	case events.EnrolleeLinked:
		if n := s.sponsorNotice(ev, related, now); n != nil {
			out = append(out, n)
		}
	case events.TeamChanged:
		out = append(out, &models.Notification{
			Recipient:   enrollee,
			Type:        models.NotifyTeamUpdate,
			Title:       "Team placement updated",
			Message:     fmt.Sprintf("You have been placed on the %s team.", ev.Team),
			RelatedData: map[string]any{"enrollee_id": ev.EnrolleeID, "event_id": ev.ID, "team": ev.Team},
			ActionURL:   "/team",
			ActionText:  "View team",
			CreatedAt:   now,
		})
	case events.PaymentCollected:
		out = append(out, &models.Notification{
			Recipient: enrollee,
			Type:      models.NotifyImportantUpdate,
			Title:     "Payment received",
			Message: fmt.Sprintf("Your %s package payment was received. Your enrollment is now active.",
				models.PackageTier(ev.Package).Title()),
			RelatedData: related,
			ActionURL:   "/enrollment/receipt",
			ActionText:  "Download receipt",
			CreatedAt:   now,
		})
	default:
		s.log.Debug("ignoring event", zap.String("type", string(ev.Type)))
	}
	return out
}

func (s *notificationService) sponsorNotice(ev events.Event, related map[string]any, now time.Time) *models.Notification {
	if ev.SponsorID == "" {
		return nil
	}
	sponsor, err := primitive.ObjectIDFromHex(ev.SponsorID)
	if err != nil {
		return nil
	}
	return &models.Notification{
		Recipient:   sponsor,
		Type:        models.NotifyNewEnrollment,
		Title:       "New enrollment on your team",
		Message:     fmt.Sprintf("%s just joined using your referral code.", ev.FullName),
		RelatedData: related,
		ActionURL:   "/referrals",
		ActionText:  "View referrals",
		CreatedAt:   now,
	}
}

func (s *notificationService) List(ctx context.Context, caller models.Caller, unreadOnly bool, limit int) ([]models.Notification, error) {
	recipient, ok := recipientOf(caller)
	if !ok {
		return []models.Notification{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = defaultNotifLimit
	}
	return s.repo.ListByRecipient(ctx, recipient, unreadOnly, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, caller models.Caller, id string) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return err
	}
	recipient, ok := recipientOf(caller)
	if !ok {
		return repository.ErrNotificationNotFound
	}
	return s.repo.MarkRead(ctx, oid, recipient)
}

func (s *notificationService) MarkAllRead(ctx context.Context, caller models.Caller) (int64, error) {
	recipient, ok := recipientOf(caller)
	if !ok {
		return 0, nil
	}
	return s.repo.MarkAllRead(ctx, recipient)
}

func (s *notificationService) Delete(ctx context.Context, caller models.Caller, id string) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return err
	}
	recipient, ok := recipientOf(caller)
	if !ok {
		return repository.ErrNotificationNotFound
	}
	return s.repo.Delete(ctx, oid, recipient)
}

// recipientOf maps the caller to its enrollee id; accounts without an
// enrollee (admins) have no inbox.
func recipientOf(caller models.Caller) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(caller.EnrolleeID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
