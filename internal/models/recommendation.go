package models

// RecommendationModel records one generated recommendation batch for a user,
// kept for history and for inspecting what the model suggested and why.
type RecommendationModel struct {
	Base
	UserID           string      `json:"user_id"           gorm:"index;not null"`
	RecommendedBooks StringArray `json:"recommended_books" gorm:"type:json"`
	Reasoning        string      `json:"reasoning"         gorm:"type:text"`
}

func (RecommendationModel) TableName() string { return "recommendations" }
