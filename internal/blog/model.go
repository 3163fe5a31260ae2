package blog

import "time"

type Post struct {
	ID             string     `bson:"_id,omitempty" json:"id"`
	Slug           string     `bson:"slug" json:"slug"`
	Title          string     `bson:"title" json:"title"`
	Excerpt        string     `bson:"excerpt" json:"excerpt"`
	Content        string     `bson:"content" json:"content"`
	ContentHTML    string     `bson:"contentHtml" json:"contentHtml"`
	Category       string     `bson:"category" json:"category"`
	Tags           []string   `bson:"tags" json:"tags"`
	CoverImage     string     `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	ReadingMinutes int        `bson:"readingMinutes" json:"readingMinutes"`
	IsPublished    bool       `bson:"published" json:"isPublished"`
	PublishedAt    *time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type UpsertRequest struct {
	Slug        string   `json:"slug" validate:"omitempty,max=120"`
	Title       string   `json:"title" validate:"required,max=200"`
	Excerpt     string   `json:"excerpt" validate:"max=500"`
	Content     string   `json:"content" validate:"required"`
	Category    string   `json:"category" validate:"max=60"`
	Tags        []string `json:"tags" validate:"max=20,dive,required,max=40"`
	CoverImage  string   `json:"coverImage" validate:"omitempty,url"`
	IsPublished *bool    `json:"isPublished"`
}

type PublicListFilter struct {
	Category string
	Tag      string
}

type AdminListFilter struct {
	Category  string
	Published *bool
}
