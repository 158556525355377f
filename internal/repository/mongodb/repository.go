// Package mongodb is the production farm data store.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdlog/internal/domain/models"
)

const (
	animalsCollection   = "animals"
	inventoryCollection = "feed_inventory"
	farmsCollection     = "farms"
	membersCollection   = "farm_members"
	approvalsCollection = "approvals"
)

// MongoDBRepository implements the farm store on MongoDB. Activity records live in one collection
// per kind ("milking_records", "feeding_records", ...). Batched inserts use multi-document
// transactions, so the server must run as a replica set.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

// EnsureIndexes creates the indexes the queries rely on.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		animalsCollection:   {{Keys: bson.D{{Key: "farm_id", Value: 1}}}},
		inventoryCollection: {{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "created_at", Value: 1}}}},
		membersCollection: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "phone", Value: 1}}},
		},
		approvalsCollection: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}}},
		},
	}
	for _, kind := range models.ActivityKinds {
		specs[recordsCollection(kind)] = []mongo.IndexModel{
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "date", Value: 1}}},
		}
	}

	for coll, indexes := range specs {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// ListAnimals returns the farm's animals ordered by id.
func (r *MongoDBRepository) ListAnimals(ctx context.Context, farmID string) ([]models.Animal, error) {
	var out []models.Animal
	err := r.findAll(ctx, animalsCollection, bson.M{"farm_id": farmID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}), &out)
	return out, err
}

// ListFeedInventory returns the farm's inventory lots oldest first.
func (r *MongoDBRepository) ListFeedInventory(ctx context.Context, farmID string) ([]models.FeedInventoryEntry, error) {
	var out []models.FeedInventoryEntry
	err := r.findAll(ctx, inventoryCollection, bson.M{"farm_id": farmID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}), &out)
	return out, err
}

// GetFarmSettings returns the farm settings or an empty settings value for unknown farms.
func (r *MongoDBRepository) GetFarmSettings(ctx context.Context, farmID string) (models.FarmSettings, error) {
	var farm models.FarmSettings
	err := r.db.Collection(farmsCollection).FindOne(ctx, bson.M{"_id": farmID}).Decode(&farm)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.FarmSettings{ID: farmID}, nil
	}
	if err != nil {
		return models.FarmSettings{}, fmt.Errorf("failed to load farm %s: %w", farmID, err)
	}
	return farm, nil
}

// GetMembership looks up a user's membership in a farm.
func (r *MongoDBRepository) GetMembership(ctx context.Context, farmID, userID string) (models.Membership, error) {
	return r.findMember(ctx, bson.M{"farm_id": farmID, "user_id": userID})
}

// FindMemberByPhone maps a WhatsApp sender to a membership.
func (r *MongoDBRepository) FindMemberByPhone(ctx context.Context, phone string) (models.Membership, error) {
	return r.findMember(ctx, bson.M{"phone": phone})
}

func (r *MongoDBRepository) findMember(ctx context.Context, filter bson.M) (models.Membership, error) {
	var m models.Membership
	err := r.db.Collection(membersCollection).FindOne(ctx, filter).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Membership{}, models.ErrNotFound
	}
	if err != nil {
		return models.Membership{}, fmt.Errorf("failed to load membership: %w", err)
	}
	return m, nil
}

// InsertActivityBatches writes every batch in one transaction spanning the per-kind collections.
func (r *MongoDBRepository) InsertActivityBatches(ctx context.Context, batches []models.ActivityBatch) error {
	var total int
	for _, b := range batches {
		total += len(b.Records)
	}
	if total == 0 {
		return nil
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, b := range batches {
			if len(b.Records) == 0 {
				continue
			}
			if _, err := r.db.Collection(recordsCollection(b.Kind)).InsertMany(sc, documents(b.Records)); err != nil {
				return nil, fmt.Errorf("insert %s records: %w", b.Kind, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert %d activity records: %w", total, err)
	}
	r.logger.Debug("activity records inserted", zap.Int("batches", len(batches)), zap.Int("count", total))
	return nil
}

func documents(records []models.ActivityRecord) []interface{} {
	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = rec
	}
	return docs
}

// CountActivities counts a farm's records of kind dated within [start, end] and sums their kilograms.
func (r *MongoDBRepository) CountActivities(ctx context.Context, farmID string, kind models.ActivityKind, start, end time.Time) (int, float64, error) {
	cursor, err := r.db.Collection(recordsCollection(kind)).Aggregate(ctx, countPipeline(farmID, start, end))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count %s records: %w", kind, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Count int     `bson:"count"`
		Kg    float64 `bson:"kg"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, fmt.Errorf("failed to decode %s counts: %w", kind, err)
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Count, rows[0].Kg, nil
}

// InsertApproval queues a pending approval.
func (r *MongoDBRepository) InsertApproval(ctx context.Context, a models.PendingApproval) error {
	if _, err := r.db.Collection(approvalsCollection).InsertOne(ctx, a); err != nil {
		return fmt.Errorf("failed to insert approval: %w", err)
	}
	return nil
}

// GetApproval returns a farm's approval by id.
func (r *MongoDBRepository) GetApproval(ctx context.Context, farmID, id string) (models.PendingApproval, error) {
	var a models.PendingApproval
	err := r.db.Collection(approvalsCollection).FindOne(ctx, bson.M{"_id": id, "farm_id": farmID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PendingApproval{}, models.ErrNotFound
	}
	if err != nil {
		return models.PendingApproval{}, fmt.Errorf("failed to load approval %s: %w", id, err)
	}
	return a, nil
}

// TransitionApproval moves an approval from one status to another only if it is still in from.
func (r *MongoDBRepository) TransitionApproval(ctx context.Context, id string, from, to models.ApprovalStatus, decidedBy, reason string, decidedAt *time.Time) (bool, error) {
	filter, update := transition(id, from, to, decidedBy, reason, decidedAt)
	res, err := r.db.Collection(approvalsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update approval %s: %w", id, err)
	}
	return res.MatchedCount == 1, nil
}

// ListApprovals returns a farm's approvals in status (all when empty), oldest first.
func (r *MongoDBRepository) ListApprovals(ctx context.Context, farmID string, status models.ApprovalStatus) ([]models.PendingApproval, error) {
	filter := bson.M{"farm_id": farmID}
	if status != "" {
		filter["status"] = status
	}
	var out []models.PendingApproval
	err := r.findAll(ctx, approvalsCollection, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}), &out)
	return out, err
}

// ListDueApprovals returns pending approvals whose deadline is at or before now, across farms.
func (r *MongoDBRepository) ListDueApprovals(ctx context.Context, now time.Time, limit int) ([]models.PendingApproval, error) {
	opts := options.Find().SetSort(bson.D{{Key: "deadline", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	var out []models.PendingApproval
	err := r.findAll(ctx, approvalsCollection, bson.M{
		"status":   models.ApprovalPending,
		"deadline": bson.M{"$lte": now},
	}, opts, &out)
	return out, err
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) findAll(ctx context.Context, coll string, filter bson.M, opts *options.FindOptions, out interface{}) error {
	cursor, err := r.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", coll, err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", coll, err)
	}
	return nil
}

func recordsCollection(kind models.ActivityKind) string {
	return string(kind) + "_records"
}

// transition builds the compare-and-set update. A nil decidedAt clears the decision fields.
func transition(id string, from, to models.ApprovalStatus, decidedBy, reason string, decidedAt *time.Time) (bson.M, bson.M) {
	filter := bson.M{"_id": id, "status": from}
	if decidedAt == nil {
		return filter, bson.M{
			"$set":   bson.M{"status": to},
			"$unset": bson.M{"decided_by": "", "decided_at": "", "reason": ""},
		}
	}
	set := bson.M{"status": to, "decided_by": decidedBy, "decided_at": *decidedAt}
	if reason != "" {
		set["reason"] = reason
	}
	return filter, bson.M{"$set": set}
}

func countPipeline(farmID string, start, end time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"farm_id": farmID,
			"date":    bson.M{"$gte": start, "$lte": end},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"kg":    bson.M{"$sum": "$quantity_kg"},
		}}},
	}
}
