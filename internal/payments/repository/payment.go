package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	paymenterrors "wanderly/internal/payments/errors"
	"wanderly/pkg/config"
	"wanderly/pkg/model"
)

const (
	CollectionName = "Payments"
)

// PaymentRepository persists charge outcomes. Settlement is a compare-and-set
// from pending to completed so duplicate bank notifications apply once.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.PaymentRecord) error
	FindByID(ctx context.Context, id string) (*model.PaymentRecord, error)
	FindByIntentID(ctx context.Context, intentID string) (*model.PaymentRecord, error)
	MarkSettled(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) error
}

type mongoPaymentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPaymentRepository(cfg *config.Config) PaymentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPaymentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPaymentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoPaymentRepository) Create(ctx context.Context, payment *model.PaymentRecord) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	payment.CreatedAt = now
	payment.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, payment); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *mongoPaymentRepository) FindByID(ctx context.Context, id string) (*model.PaymentRecord, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if id == "" {
		return nil, paymenterrors.ErrInvalidID
	}

	var payment model.PaymentRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, paymenterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}

	return &payment, nil
}

func (r *mongoPaymentRepository) FindByIntentID(ctx context.Context, intentID string) (*model.PaymentRecord, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var payment model.PaymentRecord
	err := r.collection.FindOne(ctx, bson.M{"intent_id": intentID}).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, paymenterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment by intent: %w", err)
	}

	return &payment, nil
}

// MarkSettled flips a pending payment to completed. Returns false when the
// payment was not pending, which callers treat as a duplicate notification.
func (r *mongoPaymentRepository) MarkSettled(ctx context.Context, id string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": model.PaymentStatusPending}
	update := bson.M{"$set": bson.M{
		"status":     model.PaymentStatusCompleted,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to settle payment: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// MarkFailed fails a pending payment. Like MarkSettled it is a compare-and-set
// from pending, so a late failure report can never clobber settled money.
func (r *mongoPaymentRepository) MarkFailed(ctx context.Context, id, reason string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": model.PaymentStatusPending}
	update := bson.M{"$set": bson.M{
		"status":         model.PaymentStatusFailed,
		"failure_reason": reason,
		"updated_at":     time.Now().UTC().Truncate(time.Millisecond),
	}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}
