package models

// BookModel represents an educational text in the library. Content is stored
// inline; uploaded source files are kept as base64 data URLs (and optionally
// mirrored to S3), matching the records the MongoDB deployment produced.
type BookModel struct {
	Base
	Title      string                 `json:"title"       gorm:"not null;index"`
	Author     string                 `json:"author"      gorm:"not null;index"`
	Content    string                 `json:"content"     gorm:"type:longtext"`
	GradeLevel *string                `json:"grade_level" gorm:"index"`
	Subject    *string                `json:"subject"     gorm:"index"`
	FileURL    *string                `json:"-"           gorm:"type:longtext"`
	MirrorURL  *string                `json:"-"`
	Summary    *string                `json:"summary"     gorm:"type:text"`
	Keywords   StringArray            `json:"keywords"    gorm:"type:json"`
	AIInsights map[string]interface{} `json:"ai_insights" gorm:"type:longtext;serializer:json"`
	CreatedBy  string                 `json:"-"           gorm:"index;not null"`
	FileType   string                 `json:"file_type"   gorm:"default:'text'"`
}

func (BookModel) TableName() string { return "books" }
