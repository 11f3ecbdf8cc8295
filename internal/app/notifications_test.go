package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/pawpulse/internal/domain"
)

func TestCreateNotification_AdminPersistsAndPushes(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.CreateNotification(context.Background(), f.admin, domain.NewNotification{
		UserID:  f.owner.UserID,
		Type:    "clinic_closure",
		Title:   " Clinic closed Friday ",
		Message: "We are closed for maintenance.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Clinic closed Friday", n.Title)
	assert.Equal(t, domain.PriorityMedium, n.Priority)
	assert.Len(t, f.notifications.forUser(f.owner.UserID), 1)

	pushes := f.notifier.all()
	require.Len(t, pushes, 1)
	assert.Equal(t, domain.TargetUser, pushes[0].Target)
	assert.Equal(t, f.owner.UserID.String(), pushes[0].Key)
	assert.Equal(t, domain.EventNotificationNew, pushes[0].Event)
}

func TestCreateNotification_Rejections(t *testing.T) {
	f := newFixture(t)
	valid := domain.NewNotification{UserID: f.owner.UserID, Type: "note", Title: "t", Message: "m"}

	_, err := f.svc.CreateNotification(context.Background(), f.vet, valid)
	require.ErrorIs(t, err, domain.ErrForbidden)

	unknown := valid
	unknown.UserID = uuid.New()
	_, err = f.svc.CreateNotification(context.Background(), f.admin, unknown)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	badPriority := valid
	badPriority.Priority = "critical"
	_, err = f.svc.CreateNotification(context.Background(), f.admin, badPriority)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, f.notifier.all())
}

func TestCreateNotification_PersistFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	f.notifications.createErr = errBoom

	_, err := f.svc.CreateNotification(context.Background(), f.admin, domain.NewNotification{
		UserID: f.owner.UserID, Type: "note", Title: "t", Message: "m",
	})
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.notifier.all(), "nothing to push when the record was not stored")
}

func TestNotificationInbox_ScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine, _ := f.notifications.Create(ctx, domain.NewNotification{UserID: f.owner.UserID, Type: "note", Title: "a", Message: "a", Priority: domain.PriorityLow})
	_, _ = f.notifications.Create(ctx, domain.NewNotification{UserID: f.owner.UserID, Type: "note", Title: "b", Message: "b", Priority: domain.PriorityLow})
	theirs, _ := f.notifications.Create(ctx, domain.NewNotification{UserID: f.other.UserID, Type: "note", Title: "c", Message: "c", Priority: domain.PriorityLow})

	require.NoError(t, f.svc.MarkNotificationRead(ctx, f.owner, mine.ID))
	require.ErrorIs(t, f.svc.MarkNotificationRead(ctx, f.owner, theirs.ID), domain.ErrNotFound)
	require.ErrorIs(t, f.svc.DeleteNotification(ctx, f.owner, theirs.ID), domain.ErrNotFound)

	unread, err := f.svc.CountUnreadNotifications(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	list, err := f.svc.ListNotifications(ctx, f.owner, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].Title)

	require.NoError(t, f.svc.MarkNotificationCompleted(ctx, f.owner, mine.ID))

	marked, err := f.svc.MarkAllNotificationsRead(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	deleted, err := f.svc.DeleteAllNotifications(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Len(t, f.notifications.forUser(f.other.UserID), 1, "other users' records survive")
}
