package services

import (
	"context"
	"testing"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/events"
	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/fathima-sithara/konga-enrollment/internal/repository"
	"github.com/fathima-sithara/konga-enrollment/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newNotificationFixture() (*notificationService, *repotest.Notifications, *recordingPusher, time.Time) {
	repo := &repotest.Notifications{}
	pusher := &recordingPusher{}
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	svc := &notificationService{repo: repo, pusher: pusher, log: zap.NewNop(), now: func() time.Time { return now }}
	return svc, repo, pusher, now
}

func TestHandleEventMapping(t *testing.T) {
	enrollee := primitive.NewObjectID()
	sponsor := primitive.NewObjectID()

	tests := []struct {
		name  string
		ev    events.Event
		types []models.NotificationType
		to    []primitive.ObjectID
	}{
		{"created without sponsor", events.Event{Type: events.EnrolleeCreated, EnrolleeID: enrollee.Hex(), Position: 3, Package: "elite"},
			[]models.NotificationType{models.NotifyWelcome}, []primitive.ObjectID{enrollee}},
		{"created with sponsor", events.Event{Type: events.EnrolleeCreated, EnrolleeID: enrollee.Hex(), SponsorID: sponsor.Hex(), FullName: "Bob Brown"},
			[]models.NotificationType{models.NotifyWelcome, models.NotifyNewEnrollment}, []primitive.ObjectID{enrollee, sponsor}},
		{"relinked", events.Event{Type: events.EnrolleeLinked, EnrolleeID: enrollee.Hex(), SponsorID: sponsor.Hex()},
			[]models.NotificationType{models.NotifyNewEnrollment}, []primitive.ObjectID{sponsor}},
		{"team changed", events.Event{Type: events.TeamChanged, EnrolleeID: enrollee.Hex(), Team: "left"},
			[]models.NotificationType{models.NotifyTeamUpdate}, []primitive.ObjectID{enrollee}},
		{"payment", events.Event{Type: events.PaymentCollected, EnrolleeID: enrollee.Hex(), Package: "pro"},
			[]models.NotificationType{models.NotifyImportantUpdate}, []primitive.ObjectID{enrollee}},
		{"unknown type", events.Event{Type: "enrollee.archived", EnrolleeID: enrollee.Hex()}, nil, nil},
		{"bad id", events.Event{Type: events.EnrolleeCreated, EnrolleeID: "nope"}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, pusher, _ := newNotificationFixture()
			require.NoError(t, svc.HandleEvent(context.Background(), tt.ev))

			var types []models.NotificationType
			var to []primitive.ObjectID
			for _, n := range repo.Items() {
				types = append(types, n.Type)
				to = append(to, n.Recipient)
			}
			assert.Equal(t, tt.types, types)
			assert.Equal(t, tt.to, to)
			assert.Len(t, pusher.pushed, len(tt.types))
		})
	}
}

func TestWelcomeExpires(t *testing.T) {
	svc, repo, _, now := newNotificationFixture()
	id := primitive.NewObjectID()
	require.NoError(t, svc.HandleEvent(context.Background(), events.Event{
		Type: events.EnrolleeCreated, EnrolleeID: id.Hex(), Position: 12, Package: "starter", ReferralCode: "JADO-ABC123",
	}))
	require.Len(t, repo.Items(), 1)
	n := repo.Items()[0]
	require.NotNil(t, n.ExpiresAt)
	assert.Equal(t, now.Add(30*24*time.Hour), *n.ExpiresAt)
	assert.Contains(t, n.Message, "#12")
	assert.Contains(t, n.Message, "Starter")
	assert.Contains(t, n.Message, "JADO-ABC123")
}

func TestNotificationInbox(t *testing.T) {
	svc, _, _, _ := newNotificationFixture()
	ctx := context.Background()
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()
	for _, id := range []primitive.ObjectID{me, me, other} {
		require.NoError(t, svc.HandleEvent(ctx, events.Event{Type: events.TeamChanged, EnrolleeID: id.Hex(), Team: "right"}))
	}
	caller := models.Caller{EnrolleeID: me.Hex()}

	list, err := svc.List(ctx, caller, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, svc.MarkRead(ctx, caller, list[0].ID.Hex()))
	unread, err := svc.List(ctx, caller, true, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	theirs, err := svc.List(ctx, models.Caller{EnrolleeID: other.Hex()}, false, 10)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.ErrorIs(t, svc.MarkRead(ctx, caller, theirs[0].ID.Hex()), repository.ErrNotificationNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, caller, theirs[0].ID.Hex()), repository.ErrNotificationNotFound)

	n, err := svc.MarkAllRead(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, svc.Delete(ctx, caller, list[1].ID.Hex()))
	list, err = svc.List(ctx, caller, false, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	adminList, err := svc.List(ctx, admin, false, 10)
	require.NoError(t, err)
	assert.Empty(t, adminList)
	assert.ErrorIs(t, svc.MarkRead(ctx, admin, list[0].ID.Hex()), repository.ErrNotificationNotFound)
}
