package transaction

import "alumnet/internal/models"

type FeedbackInput struct {
	ToUserID   string   `json:"to_user_id" validate:"required,uuid"`
	Rating     int      `json:"rating" validate:"required,min=1,max=5"`
	Comment    string   `json:"comment" validate:"max=2000"`
	Categories []string `json:"categories" validate:"max=10,dive,required,max=40"`
}

type CompleteInput struct {
	Notes        string   `json:"notes" validate:"max=4000"`
	Deliverables []string `json:"deliverables" validate:"max=50,dive,max=500"`
}

type ListFilter struct {
	Status models.TransactionStatus
	Limit  int
	Offset int
}
