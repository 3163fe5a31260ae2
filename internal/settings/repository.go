package settings

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const documentID = "site"

type document struct {
	ID        string    `bson:"_id"`
	Data      Value     `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type Repository interface {
	// Load reports found=false when nothing was saved yet.
	Load(ctx context.Context) (Value, bool, error)
	Save(ctx context.Context, v Value, now time.Time) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Load(ctx context.Context) (Value, bool, error) {
	var doc document
	err := r.col.FindOne(ctx, bson.M{"_id": documentID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Value{}, false, nil
	}
	if err != nil {
		return Value{}, false, err
	}
	return doc.Data, true, nil
}

func (r *MongoRepository) Save(ctx context.Context, v Value, now time.Time) error {
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"_id": documentID},
		document{ID: documentID, Data: v, UpdatedAt: now},
		options.Replace().SetUpsert(true),
	)
	return err
}
