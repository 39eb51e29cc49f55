package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/swifteats/swifteats-backend/internal/notifications"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	"github.com/swifteats/swifteats-backend/pkg/logger"
)

const defaultOrderExpiryMinutes = 60

// OrderExpiryJobParams configure the stale order cancellation job.
type OrderExpiryJobParams struct {
	Logger        *logger.Logger
	Repository    staleOrderRepo
	Dispatcher    notifications.Dispatcher
	ExpiryMinutes int
}

type staleOrderRepo interface {
	ListStaleNew(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (int64, error)
}

func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	minutes := params.ExpiryMinutes
	if minutes <= 0 {
		minutes = defaultOrderExpiryMinutes
	}
	return &orderExpiryJob{
		logg:       params.Logger,
		repo:       params.Repository,
		dispatcher: params.Dispatcher,
		expiry:     time.Duration(minutes) * time.Minute,
		now:        time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg       *logger.Logger
	repo       staleOrderRepo
	dispatcher notifications.Dispatcher
	expiry     time.Duration
	now        func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

// Run cancels orders that never left the initial status. The compare-and-set
// guard means an order confirmed mid-scan is left alone.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.expiry)

	stale, err := j.repo.ListStaleNew(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale orders: %w", err)
	}

	var errs error
	canceled := 0
	for _, order := range stale {
		affected, err := j.repo.UpdateStatus(ctx, order.ID, enums.OrderStatusNewOrder, enums.OrderStatusCanceled, map[string]any{
			"canceled_at": now,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		if affected == 0 {
			continue
		}
		canceled++
		j.notifyCustomer(ctx, order)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"stale":    len(stale),
		"canceled": canceled,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return errs
}

func (j *orderExpiryJob) notifyCustomer(ctx context.Context, order models.Order) {
	if j.dispatcher == nil {
		return
	}
	_, err := j.dispatcher.Dispatch(ctx, notifications.DispatchInput{
		UserID:  order.CustomerID,
		Type:    enums.NotificationTypeOrderCanceled,
		Title:   "Order update",
		Message: "Your order expired before it was confirmed and has been canceled",
		Data:    map[string]any{"order_id": order.ID.String()},
	})
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "order expiry notification failed")
	}
}
