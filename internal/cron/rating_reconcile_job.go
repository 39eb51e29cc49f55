package cron

import (
	"context"
	"fmt"

	"github.com/swifteats/swifteats-backend/pkg/logger"
)

// RatingReconcileJobParams configure the aggregate rating repair job.
type RatingReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler ratingReconciler
}

type ratingReconciler interface {
	Reconcile(ctx context.Context) error
}

func NewRatingReconcileJob(params RatingReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &ratingReconcileJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
	}, nil
}

type ratingReconcileJob struct {
	logg       *logger.Logger
	reconciler ratingReconciler
}

func (j *ratingReconcileJob) Name() string { return "rating-reconcile" }

func (j *ratingReconcileJob) Run(ctx context.Context) error {
	if err := j.reconciler.Reconcile(ctx); err != nil {
		return fmt.Errorf("rating reconcile: %w", err)
	}
	j.logg.Info(ctx, "rating reconcile complete")
	return nil
}
