package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/pawpulse/internal/domain"
)

func TestProfileRepo_UpsertAndUpdate(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewProfileRepo(pool)
	ctx := context.Background()

	created := createTestProfile(t, pool, domain.RoleVeterinarian)
	assert.Equal(t, domain.RoleVeterinarian, created.Role)

	// A second upsert refreshes contact data but never the role.
	again, err := repo.Upsert(ctx, &domain.Profile{ID: created.ID, Email: "new@example.com", DisplayName: "Renamed", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", again.Email)
	assert.Equal(t, domain.RoleVeterinarian, again.Role)

	renamed, err := repo.UpdateDisplayName(ctx, created.ID, "Dr. Rivera")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rivera", renamed.DisplayName)

	promoted, err := repo.UpdateRole(ctx, created.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)

	got, err := repo.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, promoted.Role, got.Role)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.UpdateRole(ctx, uuid.New(), domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPetRepo_CRUD(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPetRepo(pool)
	ctx := context.Background()

	owner := createTestProfile(t, pool, domain.RoleUser)
	other := createTestProfile(t, pool, domain.RoleUser)

	weight := 12.5
	birth := time.Date(2020, 3, 14, 0, 0, 0, 0, time.UTC)
	pet, err := repo.Create(ctx, &domain.Pet{OwnerID: owner.ID, Name: "Biscuit", Species: "dog", Breed: "Beagle", BirthDate: &birth, WeightKg: &weight})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, pet.ID)
	require.NotNil(t, pet.WeightKg)
	assert.InDelta(t, 12.5, *pet.WeightKg, 0.001)
	require.NotNil(t, pet.BirthDate)
	assert.Equal(t, birth.Format(time.DateOnly), pet.BirthDate.Format(time.DateOnly))

	createTestPet(t, pool, other.ID, "Mittens")

	mine, err := repo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Biscuit", mine[0].Name)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pet.Name = "Sir Biscuit"
	pet.WeightKg = nil
	updated, err := repo.Update(ctx, pet)
	require.NoError(t, err)
	assert.Equal(t, "Sir Biscuit", updated.Name)
	assert.Nil(t, updated.WeightKg)

	require.NoError(t, repo.Delete(ctx, pet.ID))
	_, err = repo.GetByID(ctx, pet.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, pet.ID), domain.ErrNotFound)
}

func TestAppointmentRepo_StatusAndReminders(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAppointmentRepo(pool)
	ctx := context.Background()

	owner := createTestProfile(t, pool, domain.RoleUser)
	vet := createTestProfile(t, pool, domain.RoleVeterinarian)
	pet := createTestPet(t, pool, owner.ID, "Biscuit")
	now := time.Now().UTC().Truncate(time.Second)

	soon, err := repo.Create(ctx, &domain.Appointment{PetID: pet.ID, OwnerID: owner.ID, ScheduledAt: now.Add(2 * time.Hour), Reason: "Vaccination"})
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentPending, soon.Status)

	later, err := repo.Create(ctx, &domain.Appointment{PetID: pet.ID, OwnerID: owner.ID, ScheduledAt: now.Add(72 * time.Hour)})
	require.NoError(t, err)

	cancelled, err := repo.Create(ctx, &domain.Appointment{PetID: pet.ID, OwnerID: owner.ID, ScheduledAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, cancelled.ID, domain.AppointmentPending, domain.AppointmentCancelled, nil, "")
	require.NoError(t, err)

	confirmed, err := repo.UpdateStatus(ctx, soon.ID, domain.AppointmentPending, domain.AppointmentConfirmed, &vet.ID, "Bring records")
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.VeterinarianID)
	assert.Equal(t, vet.ID, *confirmed.VeterinarianID)
	assert.Equal(t, "Bring records", confirmed.Notes)

	kept, err := repo.UpdateStatus(ctx, soon.ID, domain.AppointmentConfirmed, domain.AppointmentConfirmed, nil, "")
	require.NoError(t, err)
	assert.Equal(t, vet.ID, *kept.VeterinarianID)
	assert.Equal(t, "Bring records", kept.Notes)

	due, err := repo.ListDueReminders(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, soon.ID, due[0].ID)

	require.NoError(t, repo.MarkReminderSent(ctx, soon.ID, now))
	assert.ErrorIs(t, repo.MarkReminderSent(ctx, soon.ID, now), domain.ErrNotFound, "second claim must lose")

	due, err = repo.ListDueReminders(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	mine, err := repo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	assert.Equal(t, later.ID, mine[0].ID, "latest scheduled first")

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppointmentRepo_ConcurrentStatusChangeLoses(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAppointmentRepo(pool)
	ctx := context.Background()

	owner := createTestProfile(t, pool, domain.RoleUser)
	vet := createTestProfile(t, pool, domain.RoleVeterinarian)
	pet := createTestPet(t, pool, owner.ID, "Biscuit")

	appt, err := repo.Create(ctx, &domain.Appointment{PetID: pet.ID, OwnerID: owner.ID, ScheduledAt: time.Now().Add(48 * time.Hour)})
	require.NoError(t, err)

	// Owner and vet both read pending; the owner's cancel lands first.
	_, err = repo.UpdateStatus(ctx, appt.ID, domain.AppointmentPending, domain.AppointmentCancelled, nil, "")
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, appt.ID, domain.AppointmentPending, domain.AppointmentConfirmed, &vet.ID, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := repo.GetByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentCancelled, stored.Status)
	assert.Nil(t, stored.VeterinarianID)
}

func TestArticleRepo_PublishFlow(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewArticleRepo(pool)
	ctx := context.Background()

	author := createTestProfile(t, pool, domain.RoleVeterinarian)
	draft, err := repo.Create(ctx, &domain.Article{AuthorID: author.ID, Title: "Summer heat", Body: "Keep water nearby.", Category: "care"})
	require.NoError(t, err)
	assert.False(t, draft.Published)

	published, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, published)

	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	at := time.Now().UTC().Truncate(time.Second)
	first, changed, err := repo.Publish(ctx, draft.ID, at)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, first.Published)
	require.NotNil(t, first.PublishedAt)

	second, changed, err := repo.Publish(ctx, draft.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, first.PublishedAt.Equal(*second.PublishedAt))

	published, err = repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, published, 1)

	require.NoError(t, repo.Delete(ctx, draft.ID))
	assert.ErrorIs(t, repo.Delete(ctx, draft.ID), domain.ErrNotFound)
	_, _, err = repo.Publish(ctx, draft.ID, at)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArticleRepo_ConcurrentPublishChangesOnce(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewArticleRepo(pool)
	ctx := context.Background()

	author := createTestProfile(t, pool, domain.RoleVeterinarian)
	draft, err := repo.Create(ctx, &domain.Article{AuthorID: author.ID, Title: "Winter paws", Body: "Rinse off road salt."})
	require.NoError(t, err)

	const publishers = 8
	var changedCount atomic.Int32
	var wg sync.WaitGroup
	for range publishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := repo.Publish(ctx, draft.ID, time.Now())
			assert.NoError(t, err)
			if changed {
				changedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), changedCount.Load())
}

func TestNotificationRepo_OwnershipScopedMutations(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewNotificationRepo(pool)
	ctx := context.Background()

	owner := createTestProfile(t, pool, domain.RoleUser)
	stranger := createTestProfile(t, pool, domain.RoleUser)
	pet := createTestPet(t, pool, owner.ID, "Biscuit")
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	first, err := repo.Create(ctx, domain.NewNotification{
		UserID: owner.ID, PetID: &pet.ID, Type: domain.NotificationVaccinationDue,
		Title: "Rabies booster", Message: "Biscuit is due", DueDate: &due, Priority: domain.PriorityHigh,
	})
	require.NoError(t, err)
	assert.False(t, first.Read)
	assert.Equal(t, domain.PriorityHigh, first.Priority)
	require.NotNil(t, first.PetID)
	assert.Equal(t, pet.ID, *first.PetID)

	second, err := repo.Create(ctx, domain.NewNotification{
		UserID: owner.ID, Type: "clinic_closed", Title: "Holiday hours", Message: "Closed Monday", Priority: domain.PriorityLow,
	})
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, owner.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	count, err := repo.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.ErrorIs(t, repo.MarkRead(ctx, stranger.ID, first.ID), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, stranger.ID, first.ID), domain.ErrNotFound)
	assert.ErrorIs(t, repo.MarkCompleted(ctx, stranger.ID, first.ID), domain.ErrNotFound)

	require.NoError(t, repo.MarkRead(ctx, owner.ID, first.ID))
	unread, err := repo.ListByUser(ctx, owner.ID, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)

	require.NoError(t, repo.MarkCompleted(ctx, owner.ID, second.ID))
	count, err = repo.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	n, err := repo.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, repo.Delete(ctx, owner.ID, first.ID))
	n, err = repo.DeleteAll(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err = repo.ListByUser(ctx, owner.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list)
}
