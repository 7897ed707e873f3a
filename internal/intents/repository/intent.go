package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	intenterrors "wanderly/internal/intents/errors"
	"wanderly/pkg/config"
	"wanderly/pkg/model"
)

const (
	CollectionName = "ReservationIntents"
)

// IntentRepository persists reservation intents. Every state change is a
// compare-and-set on the current state so concurrent confirm, cancel and
// sweep attempts cannot double-apply.
type IntentRepository interface {
	Create(ctx context.Context, intent *model.ReservationIntent) error
	FindByID(ctx context.Context, id string) (*model.ReservationIntent, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*model.ReservationIntent, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.ReservationIntent, error)

	MarkPendingSettlement(ctx context.Context, id, paymentID string, deadline time.Time) (bool, error)
	MarkConfirmed(ctx context.Context, id, fromState, paymentID, bookingID string) (bool, error)
	MarkExpired(ctx context.Context, id string) (bool, error)
	MarkCancelled(ctx context.Context, id, fromState, reason string) (bool, error)

	FindExpiredHeld(ctx context.Context, now time.Time, limit int) ([]*model.ReservationIntent, error)
	FindSettlementTimedOut(ctx context.Context, now time.Time, limit int) ([]*model.ReservationIntent, error)
}

type mongoIntentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoIntentRepository(cfg *config.Config) IntentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoIntentRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoIntentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoIntentRepository) Create(ctx context.Context, intent *model.ReservationIntent) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	intent.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.collection.InsertOne(ctx, intent); err != nil {
		return fmt.Errorf("failed to create intent: %w", err)
	}
	return nil
}

func (r *mongoIntentRepository) FindByID(ctx context.Context, id string) (*model.ReservationIntent, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if id == "" {
		return nil, intenterrors.ErrInvalidID
	}

	var intent model.ReservationIntent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&intent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, intenterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find intent: %w", err)
	}

	return &intent, nil
}

func (r *mongoIntentRepository) FindByPaymentID(ctx context.Context, paymentID string) (*model.ReservationIntent, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var intent model.ReservationIntent
	err := r.collection.FindOne(ctx, bson.M{"payment_id": paymentID}).Decode(&intent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, intenterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find intent by payment: %w", err)
	}

	return &intent, nil
}

func (r *mongoIntentRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.ReservationIntent, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query intents: %w", err)
	}
	defer cursor.Close(ctx)

	intents := []*model.ReservationIntent{}
	if err := cursor.All(ctx, &intents); err != nil {
		return nil, fmt.Errorf("failed to decode intents: %w", err)
	}

	return intents, nil
}

// MarkPendingSettlement moves a held intent into pending_settlement and
// pushes its deadline out to the settlement window.
func (r *mongoIntentRepository) MarkPendingSettlement(ctx context.Context, id, paymentID string, deadline time.Time) (bool, error) {
	return r.casUpdate(ctx, id, model.IntentStateHeld, bson.M{
		"state":      model.IntentStatePendingSettlement,
		"payment_id": paymentID,
		"expires_at": deadline,
	})
}

func (r *mongoIntentRepository) MarkConfirmed(ctx context.Context, id, fromState, paymentID, bookingID string) (bool, error) {
	return r.casUpdate(ctx, id, fromState, bson.M{
		"state":      model.IntentStateConfirmed,
		"payment_id": paymentID,
		"booking_id": bookingID,
	})
}

func (r *mongoIntentRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	return r.casUpdate(ctx, id, model.IntentStateHeld, bson.M{
		"state": model.IntentStateExpired,
	})
}

func (r *mongoIntentRepository) MarkCancelled(ctx context.Context, id, fromState, reason string) (bool, error) {
	return r.casUpdate(ctx, id, fromState, bson.M{
		"state":         model.IntentStateCancelled,
		"cancel_reason": reason,
	})
}

func (r *mongoIntentRepository) casUpdate(ctx context.Context, id, fromState string, set bson.M) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "state": fromState}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update intent state: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoIntentRepository) FindExpiredHeld(ctx context.Context, now time.Time, limit int) ([]*model.ReservationIntent, error) {
	return r.findStale(ctx, model.IntentStateHeld, now, limit)
}

func (r *mongoIntentRepository) FindSettlementTimedOut(ctx context.Context, now time.Time, limit int) ([]*model.ReservationIntent, error) {
	return r.findStale(ctx, model.IntentStatePendingSettlement, now, limit)
}

func (r *mongoIntentRepository) findStale(ctx context.Context, state string, now time.Time, limit int) ([]*model.ReservationIntent, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"state":      state,
		"expires_at": bson.M{"$lt": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "expires_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale intents: %w", err)
	}
	defer cursor.Close(ctx)

	intents := []*model.ReservationIntent{}
	if err := cursor.All(ctx, &intents); err != nil {
		return nil, fmt.Errorf("failed to decode stale intents: %w", err)
	}

	return intents, nil
}
