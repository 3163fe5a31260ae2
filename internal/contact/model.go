package contact

import "time"

const (
	StatusNew      = "new"
	StatusRead     = "read"
	StatusArchived = "archived"
)

func IsValidStatus(value string) bool {
	switch value {
	case StatusNew, StatusRead, StatusArchived:
		return true
	}
	return false
}

type Message struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Company   string    `bson:"company,omitempty" json:"company,omitempty"`
	Subject   string    `bson:"subject" json:"subject"`
	Body      string    `bson:"message" json:"message"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type CreateRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
	Company string `json:"company" validate:"max=120"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
	// Website is a honeypot: real visitors never see the field.
	Website string `json:"website"`
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=new read archived"`
}

type ListFilter struct {
	Status string
}
