package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swifteats/swifteats-backend/api/responses"
	"github.com/swifteats/swifteats-backend/api/validators"
	"github.com/swifteats/swifteats-backend/internal/payouts"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
)

type payoutsService interface {
	Create(ctx context.Context, input payouts.CreateInput) (*models.PayoutRequest, error)
	Get(ctx context.Context, payoutID, actorUserID uuid.UUID, actorRole enums.UserRole) (*models.PayoutRequest, error)
	Decide(ctx context.Context, input payouts.DecideInput) (*models.PayoutRequest, error)
	Process(ctx context.Context, payoutID, adminID uuid.UUID) (*models.PayoutRequest, error)
	List(ctx context.Context, params payouts.ListParams) (*payouts.ListResult, error)
}

type createPayoutRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	BankName      string          `json:"bank_name" validate:"required"`
	AccountNumber string          `json:"account_number" validate:"required"`
	AccountName   string          `json:"account_name" validate:"required"`
}

// CreatePayout opens a withdrawal request against the caller's balance.
func CreatePayout(svc payoutsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := actorRole(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Create(r.Context(), payouts.CreateInput{
			UserID:        userID,
			Role:          role,
			Amount:        body.Amount,
			BankName:      strings.TrimSpace(body.BankName),
			AccountNumber: strings.TrimSpace(body.AccountNumber),
			AccountName:   strings.TrimSpace(body.AccountName),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// GetPayout returns one payout request, owner or admin only.
func GetPayout(svc payoutsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := actorRole(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := pathUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Get(r.Context(), payoutID, userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// ListPayouts pages payout requests, scoped to the caller unless admin.
func ListPayouts(svc payoutsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := actorRole(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := payouts.ListParams{
			ActorUserID: userID,
			ActorRole:   role,
			Limit:       limit,
			Cursor:      strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePayoutStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type decidePayoutRequest struct {
	Approve bool `json:"approve"`
}

// DecidePayout records the admin's approve or reject decision. Racing
// decisions on the same request settle exactly once.
func DecidePayout(svc payoutsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := pathUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body decidePayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Decide(r.Context(), payouts.DecideInput{
			PayoutID: payoutID,
			AdminID:  adminID,
			Approve:  body.Approve,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// ProcessPayout settles an approved request and debits the requester's wallet.
func ProcessPayout(svc payoutsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := pathUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.Process(r.Context(), payoutID, adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}
