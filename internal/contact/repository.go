package contact

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, m Message) error
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Message, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	GetByID(ctx context.Context, id string) (Message, error)
	UpdateStatus(ctx context.Context, id, status string, now time.Time) (Message, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, m Message) error {
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, filterToBSON(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Message, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, filterToBSON(filter))
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Message, error) {
	var m Message
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id, status string, now time.Time) (Message, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": now}}

	var updated Message
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		return Message{}, err
	}
	return updated, nil
}

func filterToBSON(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}
