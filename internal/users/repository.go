package users

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	// GetByLogin matches either the username or the email.
	GetByLogin(ctx context.Context, login string) (User, error)
	List(ctx context.Context) ([]User, error)
	CountRole(ctx context.Context, role string) (int64, error)
	SetPassword(ctx context.Context, id, hash string, now time.Time) (bool, error)
	TouchLogin(ctx context.Context, id string, now time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, u User) error {
	_, err := r.col.InsertOne(ctx, u)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (User, error) {
	var u User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *MongoRepository) GetByLogin(ctx context.Context, login string) (User, error) {
	var u User
	filter := bson.M{"$or": bson.A{
		bson.M{"username": login},
		bson.M{"email": login},
	}}
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *MongoRepository) List(ctx context.Context) ([]User, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]User, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) CountRole(ctx context.Context, role string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"role": role})
}

func (r *MongoRepository) SetPassword(ctx context.Context, id, hash string, now time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"passwordHash": hash,
		"updatedAt":    now,
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoRepository) TouchLogin(ctx context.Context, id string, now time.Time) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLoginAt": now}})
	return err
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
