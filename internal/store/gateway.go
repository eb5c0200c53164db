package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kcal_tracker_bot/internal/domain"
)

const (
	consumedSequence  = "consumed"
	disconnectTimeout = 5 * time.Second
)

type userCollection interface {
	countCollection
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type consumedCollection interface {
	countCollection
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOneAndDelete(ctx context.Context, filter interface{}, opts ...*options.FindOneAndDeleteOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type counterCollection interface {
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

// Gateway stores users and consumed items in MongoDB. Item ids come from a
// counter document so they stay small integers users can type.
type Gateway struct {
	*StatsProvider

	manager  *Manager
	users    userCollection
	consumed consumedCollection
	counters counterCollection
}

// NewGateway builds a Gateway over the manager's collections.
func NewGateway(m *Manager) (*Gateway, error) {
	if m == nil || m.db == nil {
		return nil, errors.New("store manager is not initialized")
	}

	g := newGateway(m.Users(), m.Consumed(), m.Counters())
	g.manager = m
	return g, nil
}

func newGateway(users userCollection, consumed consumedCollection, counters counterCollection) *Gateway {
	return &Gateway{
		StatsProvider: NewStatsProvider(users, consumed),
		users:         users,
		consumed:      consumed,
		counters:      counters,
	}
}

// HasUser reports whether userID is registered.
func (g *Gateway) HasUser(ctx context.Context, userID int64) (bool, error) {
	count, err := g.users.CountDocuments(ctx, bson.M{"user_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	return count > 0, nil
}

// RegisterUser upserts a user with offset 0 and no limit. An existing user is
// left untouched and created is false.
func (g *Gateway) RegisterUser(ctx context.Context, userID int64, registeredAt time.Time) (bool, error) {
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":         userID,
			"register_date":   registeredAt.UTC(),
			"timezone_offset": 0,
			"max_kcal":        nil,
		},
	}

	result, err := g.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Two concurrent upserts can both miss and race on the unique index.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("ensure user: %w", err)
	}

	return result != nil && result.UpsertedCount > 0, nil
}

// AddConsumedItem stores a new item for an existing user.
func (g *Gateway) AddConsumedItem(ctx context.Context, userID int64, text string, kcal *float64, at time.Time) (domain.ConsumedItem, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ConsumedItem{}, errors.New("item text is required")
	}

	exists, err := g.HasUser(ctx, userID)
	if err != nil {
		return domain.ConsumedItem{}, err
	}
	if !exists {
		return domain.ConsumedItem{}, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}

	id, err := g.nextSequence(ctx, consumedSequence)
	if err != nil {
		return domain.ConsumedItem{}, err
	}

	item := domain.ConsumedItem{
		ID:     id,
		UserID: userID,
		Date:   at.UTC(),
		Text:   text,
		Kcal:   kcal,
	}
	if _, err := g.consumed.InsertOne(ctx, item); err != nil {
		return domain.ConsumedItem{}, fmt.Errorf("insert consumed: %w", err)
	}

	return item, nil
}

// RemoveConsumedItem deletes item id. A non-nil owner restricts the delete to
// that user's items.
func (g *Gateway) RemoveConsumedItem(ctx context.Context, id int64, owner *int64) (domain.ConsumedItem, error) {
	filter := bson.M{"id": id}
	if owner != nil {
		filter["user_id"] = *owner
	}

	var item domain.ConsumedItem
	if err := g.consumed.FindOneAndDelete(ctx, filter).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ConsumedItem{}, fmt.Errorf("consumed %d: %w", id, domain.ErrNotFound)
		}
		return domain.ConsumedItem{}, fmt.Errorf("delete consumed: %w", err)
	}

	return item, nil
}

// ConsumedSum totals kcal for userID inside r. Items without kcal count as 0.
func (g *Gateway) ConsumedSum(ctx context.Context, r domain.Range, userID int64) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: rangeFilter(r, &userID)}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": bson.M{"$ifNull": bson.A{"$kcal", 0}}},
		}}},
	}

	cursor, err := g.consumed.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("sum consumed: %w", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Total float64 `bson:"total"`
	}
	if !cursor.Next(ctx) {
		return 0, cursor.Err()
	}
	if err := cursor.Decode(&result); err != nil {
		return 0, fmt.Errorf("decode consumed sum: %w", err)
	}

	return result.Total, nil
}

// ConsumedItems lists items inside r ordered by date then id. A nil userID
// lists every user's items.
func (g *Gateway) ConsumedItems(ctx context.Context, r domain.Range, userID *int64) ([]domain.ConsumedItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "id", Value: 1}})

	cursor, err := g.consumed.Find(ctx, rangeFilter(r, userID), opts)
	if err != nil {
		return nil, fmt.Errorf("find consumed: %w", err)
	}

	items := []domain.ConsumedItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode consumed: %w", err)
	}

	return items, nil
}

// TimezoneOffset returns the stored offset for userID.
func (g *Gateway) TimezoneOffset(ctx context.Context, userID int64) (int, error) {
	user, err := g.findUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.TimezoneOffset, nil
}

// SetTimezoneOffset replaces the offset for userID.
func (g *Gateway) SetTimezoneOffset(ctx context.Context, userID int64, offset int) error {
	return g.setUserField(ctx, userID, "timezone_offset", offset)
}

// MaxKcal returns the daily limit for userID, nil when unset.
func (g *Gateway) MaxKcal(ctx context.Context, userID int64) (*float64, error) {
	user, err := g.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.MaxKcal, nil
}

// SetMaxKcal replaces the daily limit for userID. nil clears it.
func (g *Gateway) SetMaxKcal(ctx context.Context, userID int64, limit *float64) error {
	return g.setUserField(ctx, userID, "max_kcal", limit)
}

// DeleteUser removes userID together with all of its consumed items.
func (g *Gateway) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := g.consumed.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("delete user consumed: %w", err)
	}

	result, err := g.users.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result == nil || result.DeletedCount == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}

	return nil
}

// Ping checks connectivity through the owning manager.
func (g *Gateway) Ping(ctx context.Context) error {
	if g == nil || g.manager == nil {
		return errors.New("store manager is not initialized")
	}
	return g.manager.Ping(ctx)
}

// Close disconnects the owning manager.
func (g *Gateway) Close() error {
	if g == nil || g.manager == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	return g.manager.Close(ctx)
}

func (g *Gateway) findUser(ctx context.Context, userID int64) (domain.User, error) {
	var user domain.User
	if err := g.users.FindOne(ctx, bson.M{"user_id": userID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (g *Gateway) setUserField(ctx context.Context, userID int64, field string, value interface{}) error {
	result, err := g.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{field: value}},
	)
	if err != nil {
		return fmt.Errorf("update user %s: %w", field, err)
	}
	if result == nil || result.MatchedCount == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func (g *Gateway) nextSequence(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}

	err := g.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}

	return counter.Seq, nil
}

func rangeFilter(r domain.Range, userID *int64) bson.M {
	filter := bson.M{}
	if userID != nil {
		filter["user_id"] = *userID
	}

	date := bson.M{}
	if r.Begin != nil {
		date["$gte"] = r.Begin.UTC()
	}
	if r.End != nil {
		date["$lt"] = r.End.UTC()
	}
	if len(date) > 0 {
		filter["date"] = date
	}

	return filter
}
