package paystackwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/internal/wallet"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/paystack"
)

const eventChargeSuccess = "charge.success"

type userSource interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type walletCrediter interface {
	Credit(ctx context.Context, input wallet.CreditInput) (*models.WalletTransaction, error)
}

type ServiceParams struct {
	Users   userSource
	Wallets walletCrediter
	Logger  *logger.Logger
}

// Service applies gateway event deliveries to wallets. Charge events are
// matched to users by the customer email on the charge.
type Service struct {
	users   userSource
	wallets walletCrediter
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user source required")
	}
	if params.Wallets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Service{users: params.Users, wallets: params.Wallets, logg: params.Logger}, nil
}

// HandleEvent credits the wallet behind a successful charge. Events other
// than charge.success are acknowledged without action. Replayed references
// are treated as already applied, not as failures.
func (s *Service) HandleEvent(ctx context.Context, event *paystack.WebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event payload required")
	}
	if event.Event != eventChargeSuccess {
		s.logg.Info(ctx, fmt.Sprintf("ignoring paystack event %s", event.Event))
		return nil
	}

	reference := strings.TrimSpace(event.Data.Reference)
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge reference required")
	}
	if !strings.EqualFold(event.Data.Status, "success") {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("charge not successful: %s", event.Data.Status))
	}
	if event.Data.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	email := strings.ToLower(strings.TrimSpace(event.Data.Customer.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no account for charge customer")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up charge customer")
	}

	amount := decimal.NewFromInt(event.Data.Amount).Div(decimal.NewFromInt(100))
	metadata, _ := json.Marshal(map[string]any{
		"gateway":     "paystack",
		"event":       event.Event,
		"amount_kobo": event.Data.Amount,
		"currency":    event.Data.Currency,
		"received_at": time.Now().UTC(),
	})

	_, err = s.wallets.Credit(ctx, wallet.CreditInput{
		UserID:    user.ID,
		Amount:    amount,
		Reference: reference,
		Metadata:  metadata,
	})
	if err != nil {
		// The ledger's unique reference already absorbed this charge,
		// typically via the manual verify endpoint.
		if pkgerrors.CodeOf(err) == pkgerrors.CodeDuplicateTransaction {
			s.logg.Info(s.withReference(ctx, user.ID, reference), "charge already applied")
			return nil
		}
		return err
	}

	s.logg.Info(s.withReference(ctx, user.ID, reference), "wallet credited from charge event")
	return nil
}

func (s *Service) withReference(ctx context.Context, userID uuid.UUID, reference string) context.Context {
	return s.logg.WithField(s.logg.WithUserID(ctx, userID.String()), "reference", reference)
}
