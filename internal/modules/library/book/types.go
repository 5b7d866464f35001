package book

import "errors"

type CreateDTO struct {
	Title      string  `json:"title"  binding:"required"`
	Author     string  `json:"author" binding:"required"`
	Content    string  `json:"content"`
	GradeLevel *string `json:"grade_level"`
	Subject    *string `json:"subject"`
}

type SearchDTO struct {
	Query    string `json:"query" binding:"required"`
	Semantic *bool  `json:"semantic"`
}

// IsSemantic defaults to true when the client leaves the flag out, so search
// goes through the AI ranker unless explicitly asked not to.
func (d *SearchDTO) IsSemantic() bool {
	return d.Semantic == nil || *d.Semantic
}

type previewDTO struct {
	Content string `json:"content" binding:"required"`
	Title   string `json:"title"`
}

// UploadInput is the decoded multipart form. The handler owns the multipart
// mechanics and size/format validation; the service only sees clean bytes.
type UploadInput struct {
	Title       string
	Author      string
	GradeLevel  *string
	Subject     *string
	Filename    string
	ContentType string
	Payload     []byte
}

const (
	fileTypeText = "text"
	fileTypePDF  = "pdf"
)

var (
	errBookNotFound    = errors.New("book not found")
	errUnsupportedFile = errors.New("unsupported file type")
)
