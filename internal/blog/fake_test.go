package blog

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var errDuplicate = mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "duplicate key"}}}

type memoryRepo struct {
	mu    sync.Mutex
	posts map[string]Post
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{posts: make(map[string]Post)}
}

func (m *memoryRepo) slugTaken(slug, exceptID string) bool {
	for id, p := range m.posts {
		if p.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}

func (m *memoryRepo) Create(_ context.Context, post Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTaken(post.Slug, "") {
		return errDuplicate
	}
	m.posts[post.ID] = post
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return Post{}, mongo.ErrNoDocuments
	}
	return p, nil
}

// Update applies set through a BSON round trip, the way the server would.
func (m *memoryRepo) Update(_ context.Context, id string, set bson.M) (Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.posts[id]
	if !ok {
		return Post{}, mongo.ErrNoDocuments
	}
	if slug, ok := set["slug"].(string); ok && m.slugTaken(slug, id) {
		return Post{}, errDuplicate
	}

	raw, err := bson.Marshal(current)
	if err != nil {
		return Post{}, err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return Post{}, err
	}
	for k, v := range set {
		doc[k] = v
	}
	raw, err = bson.Marshal(doc)
	if err != nil {
		return Post{}, err
	}
	var updated Post
	if err := bson.Unmarshal(raw, &updated); err != nil {
		return Post{}, err
	}
	m.posts[id] = updated
	return updated, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.posts[id]
	delete(m.posts, id)
	return ok, nil
}

func (m *memoryRepo) ListPublic(_ context.Context, filter PublicListFilter) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Post, 0)
	for _, p := range m.posts {
		if !p.IsPublished {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Tag != "" && !contains(p.Tags, filter.Tag) {
			continue
		}
		p.Content, p.ContentHTML = "", ""
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PublishedAt.After(*items[j].PublishedAt) })
	return items, nil
}

func (m *memoryRepo) GetPublishedBySlug(_ context.Context, slug string) (Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == slug && p.IsPublished {
			return p, nil
		}
	}
	return Post{}, mongo.ErrNoDocuments
}

func (m *memoryRepo) ListAdmin(_ context.Context, filter AdminListFilter, limit, offset int64) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Post, 0)
	for _, p := range m.posts {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Published != nil && p.IsPublished != *filter.Published {
			continue
		}
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if offset >= int64(len(items)) {
		return []Post{}, nil
	}
	end := offset + limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[offset:end], nil
}

func (m *memoryRepo) CountAdmin(ctx context.Context, filter AdminListFilter) (int64, error) {
	items, err := m.ListAdmin(ctx, filter, 1<<31, 0)
	return int64(len(items)), err
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
