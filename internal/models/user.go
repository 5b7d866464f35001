package models

// UserModel represents a registered student or content author.
type UserModel struct {
	Base
	Email               string                 `json:"email"                gorm:"uniqueIndex;not null"`
	Name                string                 `json:"name"                 gorm:"not null"`
	Password            string                 `json:"-"                    gorm:"not null"`
	Grade               *string                `json:"grade"`
	Subjects            StringArray            `json:"subjects"             gorm:"type:json"`
	Preferences         map[string]interface{} `json:"preferences"          gorm:"type:longtext;serializer:json"`
	ReadingHistory      StringArray            `json:"reading_history"      gorm:"type:json"`
	OnboardingCompleted bool                   `json:"onboarding_completed"`
}

func (UserModel) TableName() string { return "users" }
