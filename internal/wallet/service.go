package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swifteats/swifteats-backend/internal/notifications"
	"github.com/swifteats/swifteats-backend/pkg/db"
	"github.com/swifteats/swifteats-backend/pkg/db/models"
	"github.com/swifteats/swifteats-backend/pkg/enums"
	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/pagination"
	"github.com/swifteats/swifteats-backend/pkg/paystack"
)

// referenceConstraint is the unique index that deduplicates ledger entries.
const referenceConstraint = "wallet_transactions_reference_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gatewayVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifiedTransaction, error)
}

// Service defines wallet balance and ledger operations. DebitInTx exists so
// callers can fold the debit into their own transaction, keeping the spend
// atomic with the write it pays for.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, input CreditInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input DebitInput) (*models.WalletTransaction, error)
	DebitInTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.WalletTransaction, error)
	VerifyTopup(ctx context.Context, userID uuid.UUID, reference string) (*models.WalletTransaction, error)
	Transactions(ctx context.Context, params TransactionsParams) (*TransactionsResult, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	gateway    gatewayVerifier
	dispatcher notifications.Dispatcher
	logg       *logger.Logger
}

// CreditInput funds a wallet. Reference is the external gateway reference
// and must be globally unique; replays return CodeDuplicateTransaction.
type CreditInput struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Reference string
	Metadata  json.RawMessage
}

// DebitInput spends from a wallet atomically against the current balance.
type DebitInput struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Reference string
	Metadata  json.RawMessage
}

// TransactionsParams pages through a user's ledger, newest first.
type TransactionsParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}

// TransactionsResult wraps ledger rows and the cursor for the next page.
type TransactionsResult struct {
	Items  []models.WalletTransaction `json:"items"`
	Cursor string                     `json:"cursor"`
}

// NewService wires wallet dependencies. gateway and dispatcher may be nil;
// VerifyTopup then fails with a dependency error and topup notifications
// are skipped.
func NewService(repo Repository, tx txRunner, gateway gatewayVerifier, dispatcher notifications.Dispatcher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, tx: tx, gateway: gateway, dispatcher: dispatcher, logg: logg}, nil
}

// Balance returns the wallet, creating it on first access.
func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	wallet, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	created := &models.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := s.repo.Create(ctx, created); err != nil {
		// Concurrent first access loses the insert race; reread instead.
		if db.IsUniqueViolation(err, "") {
			return s.repo.FindByUserID(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return created, nil
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input.UserID, input.Amount, input.Reference); err != nil {
		return nil, err
	}

	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallet, err := lockOrCreateWallet(ctx, repo, input.UserID)
		if err != nil {
			return err
		}

		txn = &models.WalletTransaction{
			UserID:    input.UserID,
			Type:      enums.TransactionTypeCredit,
			Amount:    input.Amount,
			Reference: input.Reference,
			Status:    enums.TransactionStatusSuccess,
			Metadata:  input.Metadata,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			if db.IsUniqueViolation(err, referenceConstraint) {
				return pkgerrors.New(pkgerrors.CodeDuplicateTransaction, "transaction already processed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record credit")
		}
		return repo.UpdateBalance(ctx, wallet.ID, wallet.Balance.Add(input.Amount))
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Debit(ctx context.Context, input DebitInput) (*models.WalletTransaction, error) {
	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		debited, err := s.DebitInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		txn = debited
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) DebitInTx(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input.UserID, input.Amount, input.Reference); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	wallet, err := lockOrCreateWallet(ctx, repo, input.UserID)
	if err != nil {
		return nil, err
	}

	if wallet.Balance.LessThan(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds").
			WithDetails(map[string]string{
				"balance":   wallet.Balance.StringFixed(2),
				"requested": input.Amount.StringFixed(2),
			})
	}

	txn := &models.WalletTransaction{
		UserID:    input.UserID,
		Type:      enums.TransactionTypeDebit,
		Amount:    input.Amount,
		Reference: input.Reference,
		Status:    enums.TransactionStatusSuccess,
		Metadata:  input.Metadata,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, referenceConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateTransaction, "transaction already processed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record debit")
	}
	if err := repo.UpdateBalance(ctx, wallet.ID, wallet.Balance.Sub(input.Amount)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
	}
	return txn, nil
}

// VerifyTopup confirms the gateway reference server-side and credits the
// wallet with the verified amount. Gateway amounts arrive in kobo.
func (s *service) VerifyTopup(ctx context.Context, userID uuid.UUID, reference string) (*models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}

	verified, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !verified.Success() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("transaction not successful: %s", verified.Status))
	}
	if verified.AmountKobo <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verified amount must be positive")
	}

	amount := decimal.NewFromInt(verified.AmountKobo).Div(decimal.NewFromInt(100))
	metadata, _ := json.Marshal(map[string]any{"gateway": "paystack", "amount_kobo": verified.AmountKobo, "verified_at": time.Now().UTC()})

	txn, err := s.Credit(ctx, CreditInput{
		UserID:    userID,
		Amount:    amount,
		Reference: reference,
		Metadata:  metadata,
	})
	if err != nil {
		return nil, err
	}

	s.notifyTopup(ctx, userID, amount)
	return txn, nil
}

func (s *service) notifyTopup(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) {
	if s.dispatcher == nil {
		return
	}
	_, err := s.dispatcher.Dispatch(ctx, notifications.DispatchInput{
		UserID:  userID,
		Type:    enums.NotificationTypeWalletTopup,
		Title:   "Wallet funded",
		Message: fmt.Sprintf("Your wallet has been credited with %s", amount.StringFixed(2)),
		Data:    map[string]any{"amount": amount.StringFixed(2)},
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithUserID(ctx, userID.String()), "error", err.Error()), "topup notification failed")
	}
}

func (s *service) Transactions(ctx context.Context, params TransactionsParams) (*TransactionsResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listTransactionsParams{UserID: params.UserID, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListTransactions(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	result := &TransactionsResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func validateMutation(userID uuid.UUID, amount decimal.Decimal, reference string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}
	return nil
}

// lockOrCreateWallet row-locks the wallet for the whole mutation, creating
// it lazily on first use.
func lockOrCreateWallet(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := repo.FindByUserIDForUpdate(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}

	created := &models.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := repo.Create(ctx, created); err != nil {
		if db.IsUniqueViolation(err, "") {
			return repo.FindByUserIDForUpdate(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return created, nil
}
