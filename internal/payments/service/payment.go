package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	paymenterrors "wanderly/internal/payments/errors"
	"wanderly/internal/payments/repository"
	"wanderly/internal/payments/validator"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/logger"
	"wanderly/pkg/metrics"
	"wanderly/pkg/model"
)

// Service is the payment gateway adapter: it validates payment details,
// charges through the gateway with bounded retries, and persists only masked
// records.
type Service interface {
	Charge(ctx context.Context, req *ChargeRequest) (*model.PaymentRecord, error)
	Get(ctx context.Context, id string) (*model.PaymentRecord, error)
	GetByIntentID(ctx context.Context, intentID string) (*model.PaymentRecord, error)
	MarkSettled(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) error
}

type paymentService struct {
	cfg       *config.Config
	repo      repository.PaymentRepository
	gateway   Gateway
	validator *validator.PaymentValidator
	log       *logger.Logger
}

func NewService(cfg *config.Config, repo repository.PaymentRepository, gateway Gateway) Service {
	return &paymentService{
		cfg:       cfg,
		repo:      repo,
		gateway:   gateway,
		validator: validator.NewPaymentValidator(),
		log:       cfg.Log,
	}
}

func (s *paymentService) Charge(ctx context.Context, req *ChargeRequest) (*model.PaymentRecord, error) {
	if err := s.validateDetails(req); err != nil {
		metrics.PaymentAttempts.WithLabelValues(req.Method, "rejected").Inc()
		return nil, err
	}

	start := time.Now()
	result, err := s.chargeWithRetry(ctx, req)
	metrics.PaymentDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PaymentAttempts.WithLabelValues(req.Method, model.PaymentStatusFailed).Inc()
		return nil, apperrors.PaymentFailed("charge was not accepted", err)
	}

	payment := &model.PaymentRecord{
		ID:            uuid.New().String(),
		IntentID:      req.IntentID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Method:        req.Method,
		Status:        result.Status,
		TransactionID: result.TransactionID,
	}
	attachMaskedDetails(payment, req)

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, apperrors.StorageUnavailable("payment creation", err)
	}

	metrics.PaymentAttempts.WithLabelValues(req.Method, result.Status).Inc()
	s.log.Info("Payment processed",
		"payment_id", payment.ID,
		"intent_id", req.IntentID,
		"method", req.Method,
		"status", result.Status,
		"transaction_id", result.TransactionID,
	)
	return payment, nil
}

func (s *paymentService) validateDetails(req *ChargeRequest) error {
	switch req.Method {
	case model.PaymentMethodCard:
		return s.validator.ValidateCard(req.Card)
	case model.PaymentMethodBankTransfer:
		return s.validator.ValidateBank(req.Bank)
	case model.PaymentMethodDemo:
		return nil
	default:
		return apperrors.InvalidInput("unsupported payment method: " + req.Method)
	}
}

// chargeWithRetry retries transient gateway failures with linear backoff.
// Declines are permanent and return immediately.
func (s *paymentService) chargeWithRetry(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.ChargeMaxAttempts; attempt++ {
		result, err := s.gateway.Charge(ctx, req)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, paymenterrors.ErrGatewayTransient) {
			return nil, err
		}

		lastErr = err
		s.log.Warn("Transient gateway failure, retrying",
			"intent_id", req.IntentID,
			"method", req.Method,
			"attempt", attempt,
			"error", err,
		)
		if attempt < s.cfg.ChargeMaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
	}
	return nil, lastErr
}

func attachMaskedDetails(payment *model.PaymentRecord, req *ChargeRequest) {
	switch req.Method {
	case model.PaymentMethodCard:
		payment.CardDetails = &model.MaskedCard{
			Number:      maskNumber(req.Card.Number),
			Holder:      req.Card.Holder,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
		}
	case model.PaymentMethodBankTransfer:
		payment.BankDetails = &model.MaskedBank{
			AccountNumber: maskNumber(req.Bank.AccountNumber),
			AccountHolder: req.Bank.AccountHolder,
			BankCode:      req.Bank.BankCode,
			IFSCCode:      req.Bank.IFSCCode,
		}
	}
}

// maskNumber keeps the last four digits only.
func maskNumber(number string) string {
	if len(number) <= 4 {
		return "****" + number
	}
	return "****" + number[len(number)-4:]
}

func (s *paymentService) Get(ctx context.Context, id string) (*model.PaymentRecord, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, paymenterrors.ErrNotFound) || errors.Is(err, paymenterrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("payment", id)
		}
		return nil, apperrors.StorageUnavailable("payment lookup", err)
	}
	return payment, nil
}

func (s *paymentService) GetByIntentID(ctx context.Context, intentID string) (*model.PaymentRecord, error) {
	payment, err := s.repo.FindByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, paymenterrors.ErrNotFound) {
			return nil, apperrors.NotFound("payment for intent " + intentID)
		}
		return nil, apperrors.StorageUnavailable("payment lookup", err)
	}
	return payment, nil
}

// MarkSettled completes a pending payment. The boolean reports whether this
// call did the settling; false means it already happened.
func (s *paymentService) MarkSettled(ctx context.Context, id string) (bool, error) {
	settled, err := s.repo.MarkSettled(ctx, id)
	if err != nil {
		return false, apperrors.StorageUnavailable("payment settlement", err)
	}
	if settled {
		s.log.Info("Payment settled", "payment_id", id)
	}
	return settled, nil
}

func (s *paymentService) MarkFailed(ctx context.Context, id, reason string) error {
	if err := s.repo.MarkFailed(ctx, id, reason); err != nil {
		return apperrors.StorageUnavailable("payment update", err)
	}
	s.log.Warn("Payment marked failed", "payment_id", id, "reason", reason)
	return nil
}
