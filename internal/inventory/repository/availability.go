package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	inventoryerrors "wanderly/internal/inventory/errors"
	"wanderly/pkg/config"
	mongotx "wanderly/pkg/db/mongo"
	"wanderly/pkg/model"
)

const (
	AvailabilityCollection = "Availability"
	HoldsCollection        = "Holds"
)

// AvailabilityRepository owns the per-(listing, date) occupancy counters and
// the hold token documents. The conditional updates here are the single
// serialization point for capacity: they are safe under concurrent callers
// and across service instances because the check and the increment happen in
// one document write.
type AvailabilityRepository interface {
	EnsureDays(ctx context.Context, listingID string, dates []time.Time, capacity int) error
	ReserveDay(ctx context.Context, listingID string, date time.Time, guests int) error
	ReleaseDay(ctx context.Context, listingID string, date time.Time, guests int) error
	CommitDay(ctx context.Context, listingID string, date time.Time, guests int) error
	FindDays(ctx context.Context, listingID string, dates []time.Time) ([]*model.AvailabilityDay, error)

	CreateHold(ctx context.Context, hold *model.Hold) error
	FindHold(ctx context.Context, token string) (*model.Hold, error)
	TransitionHold(ctx context.Context, token, fromState, toState string) (bool, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAvailabilityRepository struct {
	cfg          *config.Config
	availability *mongo.Collection
	holds        *mongo.Collection
	txManager    mongotx.TransactionManager
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:          cfg,
		availability: db.Collection(AvailabilityCollection),
		holds:        db.Collection(HoldsCollection),
		txManager:    mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func dayID(listingID string, date time.Time) string {
	return listingID + ":" + date.UTC().Format("2006-01-02")
}

func (r *mongoAvailabilityRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// EnsureDays upserts a counter row for every date so later conditional
// updates always have a document to match. $setOnInsert keeps existing
// counters untouched when the row already exists.
func (r *mongoAvailabilityRepository) EnsureDays(ctx context.Context, listingID string, dates []time.Time, capacity int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(dates))
	for _, date := range dates {
		day := date.UTC().Truncate(24 * time.Hour)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": dayID(listingID, day)}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{
				"listing_id": listingID,
				"date":       day,
				"capacity":   capacity,
				"committed":  0,
				"held":       0,
			}}).
			SetUpsert(true))
	}

	if _, err := r.availability.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("failed to ensure availability rows: %w", err)
	}
	return nil
}

// ReserveDay atomically checks committed+held+guests <= capacity and
// increments held. A zero match means the day is sold out for this party
// size.
func (r *mongoAvailabilityRepository) ReserveDay(ctx context.Context, listingID string, date time.Time, guests int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id": dayID(listingID, date),
		"$expr": bson.M{
			"$lte": bson.A{
				bson.M{"$add": bson.A{"$committed", "$held", guests}},
				"$capacity",
			},
		},
	}
	update := bson.M{"$inc": bson.M{"held": guests}}

	result, err := r.availability.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reserve capacity: %w", err)
	}
	if result.MatchedCount == 0 {
		return inventoryerrors.ErrInsufficientCapacity
	}
	return nil
}

func (r *mongoAvailabilityRepository) ReleaseDay(ctx context.Context, listingID string, date time.Time, guests int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":  dayID(listingID, date),
		"held": bson.M{"$gte": guests},
	}
	update := bson.M{"$inc": bson.M{"held": -guests}}

	if _, err := r.availability.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to release capacity: %w", err)
	}
	return nil
}

func (r *mongoAvailabilityRepository) CommitDay(ctx context.Context, listingID string, date time.Time, guests int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":  dayID(listingID, date),
		"held": bson.M{"$gte": guests},
	}
	update := bson.M{"$inc": bson.M{"held": -guests, "committed": guests}}

	result, err := r.availability.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to commit capacity: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no held capacity to commit for %s", dayID(listingID, date))
	}
	return nil
}

func (r *mongoAvailabilityRepository) FindDays(ctx context.Context, listingID string, dates []time.Time) ([]*model.AvailabilityDay, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	ids := make([]string, 0, len(dates))
	for _, date := range dates {
		ids = append(ids, dayID(listingID, date))
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.availability.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer cursor.Close(ctx)

	days := []*model.AvailabilityDay{}
	if err := cursor.All(ctx, &days); err != nil {
		return nil, fmt.Errorf("failed to decode availability rows: %w", err)
	}

	return days, nil
}

func (r *mongoAvailabilityRepository) CreateHold(ctx context.Context, hold *model.Hold) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	hold.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if _, err := r.holds.InsertOne(ctx, hold); err != nil {
		return fmt.Errorf("failed to create hold: %w", err)
	}
	return nil
}

func (r *mongoAvailabilityRepository) FindHold(ctx context.Context, token string) (*model.Hold, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var hold model.Hold
	err := r.holds.FindOne(ctx, bson.M{"_id": token}).Decode(&hold)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, inventoryerrors.ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to find hold: %w", err)
	}

	return &hold, nil
}

// TransitionHold is a compare-and-set on the hold state. It returns false
// when the hold was not in fromState, which callers use to detect duplicate
// commits and releases.
func (r *mongoAvailabilityRepository) TransitionHold(ctx context.Context, token, fromState, toState string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": token, "state": fromState}
	update := bson.M{"$set": bson.M{"state": toState}}

	result, err := r.holds.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to transition hold: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoAvailabilityRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
