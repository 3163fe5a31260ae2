package portfolio

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, p Project) error
	Update(ctx context.Context, id string, set bson.M) (Project, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Project, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	GetPublishedBySlug(ctx context.Context, slug string) (Project, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, p Project) error {
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *MongoRepository) Update(ctx context.Context, id string, set bson.M) (Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Project
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return Project{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// List pages through projects; a zero limit returns everything.
func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Project, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "featured", Value: -1},
		{Key: "order", Value: 1},
		{Key: "createdAt", Value: -1},
	})
	if limit > 0 {
		opts.SetLimit(limit).SetSkip(offset)
	}

	cursor, err := r.col.Find(ctx, listQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Project, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, listQuery(filter))
}

func (r *MongoRepository) GetPublishedBySlug(ctx context.Context, slug string) (Project, error) {
	var p Project
	if err := r.col.FindOne(ctx, bson.M{"slug": slug, "published": true}).Decode(&p); err != nil {
		return Project{}, err
	}
	return p, nil
}

func listQuery(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.PublishedOnly {
		query["published"] = true
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Featured != nil {
		query["featured"] = *filter.Featured
	}
	return query
}
