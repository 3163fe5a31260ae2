package portfolio

import "time"

type Project struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Slug         string    `bson:"slug" json:"slug"`
	Title        string    `bson:"title" json:"title"`
	Category     string    `bson:"category" json:"category"`
	ClientName   string    `bson:"clientName" json:"clientName"`
	Summary      string    `bson:"summary" json:"summary"`
	Problem      string    `bson:"problem" json:"problem"`
	Solution     string    `bson:"solution" json:"solution"`
	Result       string    `bson:"result" json:"result"`
	Technologies []string  `bson:"technologies" json:"technologies"`
	ImageURL     string    `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	ProjectURL   string    `bson:"projectUrl,omitempty" json:"projectUrl,omitempty"`
	IsPublished  bool      `bson:"published" json:"isPublished"`
	IsFeatured   bool      `bson:"featured" json:"isFeatured"`
	SortOrder    int       `bson:"order" json:"sortOrder"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

type UpsertRequest struct {
	Slug         string   `json:"slug" validate:"omitempty,max=120"`
	Title        string   `json:"title" validate:"required,max=200"`
	Category     string   `json:"category" validate:"required,max=60"`
	ClientName   string   `json:"clientName" validate:"max=120"`
	Summary      string   `json:"summary" validate:"required,max=500"`
	Problem      string   `json:"problem"`
	Solution     string   `json:"solution"`
	Result       string   `json:"result"`
	Technologies []string `json:"technologies" validate:"max=30,dive,required,max=40"`
	ImageURL     string   `json:"imageUrl" validate:"omitempty,url"`
	ProjectURL   string   `json:"projectUrl" validate:"omitempty,url"`
	IsPublished  *bool    `json:"isPublished"`
	IsFeatured   *bool    `json:"isFeatured"`
	SortOrder    *int     `json:"sortOrder" validate:"omitempty,gte=0"`
}

type ListFilter struct {
	Category string
	Featured *bool
	// PublishedOnly is forced on for the public endpoints.
	PublishedOnly bool
}
