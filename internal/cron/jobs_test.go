package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/swifteats/swifteats-backend/internal/notifications"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	"github.com/swifteats/swifteats-backend/pkg/logger"
)

type fakeCleanupRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeCleanupRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestNotificationCleanupJob(t *testing.T) {
	repo := &fakeCleanupRepo{deleted: 12}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Repository: repo,
		Retention:  7,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	job.(*notificationCleanupJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := now.Add(-7 * 24 * time.Hour)
	if !repo.cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", repo.cutoff, want)
	}

	repo.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error when delete fails")
	}
}

type fakeStaleOrderRepo struct {
	stale     []models.Order
	noRowsFor map[uuid.UUID]bool
	canceled  []uuid.UUID
}

func (f *fakeStaleOrderRepo) ListStaleNew(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return f.stale, nil
}

func (f *fakeStaleOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (int64, error) {
	if f.noRowsFor[id] {
		return 0, nil
	}
	f.canceled = append(f.canceled, id)
	return 1, nil
}

type recordingDispatcher struct {
	dispatched []notifications.DispatchInput
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, input notifications.DispatchInput) (*models.Notification, error) {
	r.dispatched = append(r.dispatched, input)
	return &models.Notification{ID: uuid.New()}, nil
}

func TestOrderExpiryJobSkipsRacedOrders(t *testing.T) {
	staleOrder := models.Order{ID: uuid.New(), CustomerID: uuid.New(), Status: enums.OrderStatusNewOrder}
	racedOrder := models.Order{ID: uuid.New(), CustomerID: uuid.New(), Status: enums.OrderStatusNewOrder}
	repo := &fakeStaleOrderRepo{
		stale:     []models.Order{staleOrder, racedOrder},
		noRowsFor: map[uuid.UUID]bool{racedOrder.ID: true},
	}
	dispatcher := &recordingDispatcher{}

	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Repository: repo,
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(repo.canceled) != 1 || repo.canceled[0] != staleOrder.ID {
		t.Fatalf("canceled = %v, want only the stale order", repo.canceled)
	}
	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("notifications = %d, want 1", len(dispatcher.dispatched))
	}
	note := dispatcher.dispatched[0]
	if note.UserID != staleOrder.CustomerID || note.Type != enums.NotificationTypeOrderCanceled {
		t.Fatalf("notification = %+v", note)
	}
}

type fakeReconciler struct {
	calls int
	err   error
}

func (f *fakeReconciler) Reconcile(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestRatingReconcileJob(t *testing.T) {
	reconciler := &fakeReconciler{}
	job, err := NewRatingReconcileJob(RatingReconcileJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Reconciler: reconciler,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if reconciler.calls != 1 {
		t.Fatalf("reconcile called %d times", reconciler.calls)
	}

	reconciler.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error when reconcile fails")
	}
}
