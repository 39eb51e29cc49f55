package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/internal/notifications"
	"github.com/swifteats/swifteats-backend/internal/wallet"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type walletSource interface {
	Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	DebitInTx(ctx context.Context, tx *gorm.DB, input wallet.DebitInput) (*models.WalletTransaction, error)
}

// Service manages payout requests from vendors and riders and the admin
// decisions that settle them.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PayoutRequest, error)
	Get(ctx context.Context, payoutID, actorUserID uuid.UUID, actorRole enums.UserRole) (*models.PayoutRequest, error)
	// Decide settles a pending request as approved or rejected. Exactly one
	// decision wins when admins race.
	Decide(ctx context.Context, input DecideInput) (*models.PayoutRequest, error)
	// Process pays out an approved request, debiting the requester's wallet
	// in the same transaction as the status move.
	Process(ctx context.Context, payoutID, adminID uuid.UUID) (*models.PayoutRequest, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	wallets    walletSource
	dispatcher notifications.Dispatcher
	logg       *logger.Logger
}

// CreateInput opens a payout request against the requester's wallet balance.
type CreateInput struct {
	UserID        uuid.UUID
	Role          enums.UserRole
	Amount        decimal.Decimal
	BankName      string
	AccountNumber string
	AccountName   string
}

// DecideInput records an admin's approve or reject decision.
type DecideInput struct {
	PayoutID uuid.UUID
	AdminID  uuid.UUID
	Approve  bool
}

// ListParams pages payout requests, scoped to one user unless the caller
// is an admin.
type ListParams struct {
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
	Status      *enums.PayoutStatus
	Limit       int
	Cursor      string
}

// ListResult wraps payout requests and the cursor for the next page.
type ListResult struct {
	Items  []models.PayoutRequest `json:"items"`
	Cursor string                 `json:"cursor"`
}

func NewService(repo Repository, tx txRunner, wallets walletSource, dispatcher notifications.Dispatcher, logg *logger.Logger) (Service, error) {
	switch {
	case repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payouts repository required")
	case tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case wallets == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet service required")
	case logg == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		wallets:    wallets,
		dispatcher: dispatcher,
		logg:       logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PayoutRequest, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Role != enums.UserRoleVendor && input.Role != enums.UserRoleRider {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only vendors and riders can request payouts")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.BankName == "" || input.AccountNumber == "" || input.AccountName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank details required")
	}

	balance, err := s.wallets.Balance(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if balance.Balance.LessThan(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance does not cover the requested payout").
			WithDetails(map[string]string{
				"balance":   balance.Balance.StringFixed(2),
				"requested": input.Amount.StringFixed(2),
			})
	}

	payout := &models.PayoutRequest{
		UserID:        input.UserID,
		UserType:      input.Role,
		Amount:        input.Amount,
		Status:        enums.PayoutStatusPending,
		BankName:      input.BankName,
		AccountNumber: input.AccountNumber,
		AccountName:   input.AccountName,
		RequestedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, payout); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout request")
	}
	return payout, nil
}

func (s *service) Get(ctx context.Context, payoutID, actorUserID uuid.UUID, actorRole enums.UserRole) (*models.PayoutRequest, error) {
	payout, err := s.load(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if actorRole != enums.UserRoleAdmin && payout.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payout request belongs to another account")
	}
	return payout, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) (*models.PayoutRequest, error) {
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}
	payout, err := s.load(ctx, input.PayoutID)
	if err != nil {
		return nil, err
	}

	target := enums.PayoutStatusApproved
	if !input.Approve {
		target = enums.PayoutStatusRejected
	}

	affected, err := s.repo.UpdateStatus(ctx, payout.ID, enums.PayoutStatusPending, target, map[string]any{
		"processed_by": input.AdminID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout status")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout request already decided")
	}

	s.notify(ctx, payout.UserID, payout.ID, fmt.Sprintf("Your payout request was %s", target))
	return s.load(ctx, payout.ID)
}

func (s *service) Process(ctx context.Context, payoutID, adminID uuid.UUID) (*models.PayoutRequest, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}
	payout, err := s.load(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).UpdateStatus(ctx, payout.ID, enums.PayoutStatusApproved, enums.PayoutStatusProcessed, map[string]any{
			"processed_at": now,
			"processed_by": adminID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout status")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout request is not approved")
		}
		_, err = s.wallets.DebitInTx(ctx, tx, wallet.DebitInput{
			UserID:    payout.UserID,
			Amount:    payout.Amount,
			Reference: "payout:" + payout.ID.String(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, payout.UserID, payout.ID, fmt.Sprintf("Your payout of %s has been processed", payout.Amount.StringFixed(2)))
	return s.load(ctx, payout.ID)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listPayoutsParams{Status: params.Status, Limit: params.Limit}
	if params.ActorRole != enums.UserRoleAdmin {
		query.UserID = &params.ActorUserID
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout requests")
	}

	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) load(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout request")
	}
	return payout, nil
}

func (s *service) notify(ctx context.Context, userID, payoutID uuid.UUID, message string) {
	if s.dispatcher == nil {
		return
	}
	_, err := s.dispatcher.Dispatch(ctx, notifications.DispatchInput{
		UserID:  userID,
		Type:    enums.NotificationTypePayoutUpdate,
		Title:   "Payout update",
		Message: message,
		Data:    map[string]any{"payout_id": payoutID.String()},
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payout notification failed")
	}
}
