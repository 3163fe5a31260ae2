package blog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, post Post) error
	GetByID(ctx context.Context, id string) (Post, error)
	Update(ctx context.Context, id string, set bson.M) (Post, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListPublic(ctx context.Context, filter PublicListFilter) ([]Post, error)
	GetPublishedBySlug(ctx context.Context, slug string) (Post, error)
	ListAdmin(ctx context.Context, filter AdminListFilter, limit, offset int64) ([]Post, error)
	CountAdmin(ctx context.Context, filter AdminListFilter) (int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, post Post) error {
	_, err := r.col.InsertOne(ctx, post)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Post, error) {
	var post Post
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return Post{}, err
	}
	return post, nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, set bson.M) (Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Post
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return Post{}, err
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

func (r *MongoRepository) ListPublic(ctx context.Context, filter PublicListFilter) ([]Post, error) {
	query := bson.M{"published": true}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Tag != "" {
		query["tags"] = filter.Tag
	}

	// The list view never shows the body.
	opts := options.Find().
		SetSort(bson.D{{Key: "publishedAt", Value: -1}}).
		SetProjection(bson.M{"content": 0, "contentHtml": 0})

	return r.find(ctx, query, opts)
}

func (r *MongoRepository) GetPublishedBySlug(ctx context.Context, slug string) (Post, error) {
	var post Post
	if err := r.col.FindOne(ctx, bson.M{"slug": slug, "published": true}).Decode(&post); err != nil {
		return Post{}, err
	}
	return post, nil
}

func (r *MongoRepository) ListAdmin(ctx context.Context, filter AdminListFilter, limit, offset int64) ([]Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	return r.find(ctx, adminQuery(filter), opts)
}

func (r *MongoRepository) CountAdmin(ctx context.Context, filter AdminListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, adminQuery(filter))
}

func adminQuery(filter AdminListFilter) bson.M {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Published != nil {
		query["published"] = *filter.Published
	}
	return query
}

func (r *MongoRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]Post, error) {
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Post, 0)
	for cursor.Next(ctx) {
		var item Post
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
