// Package book owns the library catalog: creating and uploading books,
// browsing, and search. Uploaded source files are kept inline as base64 data
// URLs, optionally mirrored to S3.
package book

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vidyaverse/core/internal/models"
	"github.com/vidyaverse/core/internal/modules/processing/ai"
	"github.com/vidyaverse/core/internal/modules/processing/extract"
	"github.com/vidyaverse/core/internal/modules/storage/backup"
	"github.com/vidyaverse/core/internal/modules/system/core/configs"
)

const EventBookCreate = "BOOK_CREATE"

const (
	defaultListLimit = 20
	searchWindow     = 20
)

type Service struct {
	db        *gorm.DB
	cfgSvc    *configs.Service
	aiSvc     *ai.Service
	logger    *zap.Logger
	broadcast func(event string, payload interface{})
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("BookService")
		}
	}
}

func NewService(db *gorm.DB, cfgSvc *configs.Service, aiSvc *ai.Service, opts ...ServiceOption) *Service {
	s := &Service{
		db:     db,
		cfgSvc: cfgSvc,
		aiSvc:  aiSvc,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBroadcast wires the realtime gateway in after construction.
func (s *Service) SetBroadcast(fn func(event string, payload interface{})) {
	s.broadcast = fn
}

func (s *Service) emit(event string, payload interface{}) {
	if s.broadcast != nil {
		s.broadcast(event, payload)
	}
}

// Create stores a book supplied as inline text, running the AI pass to fill
// whatever the caller left blank.
func (s *Service) Create(userID string, dto *CreateDTO) (*models.BookModel, error) {
	book := &models.BookModel{
		Title:      strings.TrimSpace(dto.Title),
		Author:     strings.TrimSpace(dto.Author),
		Content:    dto.Content,
		GradeLevel: dto.GradeLevel,
		Subject:    dto.Subject,
		Keywords:   models.StringArray{},
		CreatedBy:  userID,
		FileType:   fileTypeText,
	}
	s.applyAnalysis(book)

	if err := s.db.Create(book).Error; err != nil {
		return nil, err
	}
	s.emit(EventBookCreate, gin.H{"id": book.ID, "title": book.Title})
	return book, nil
}

// Upload ingests a book from an uploaded file. PDFs go through text
// extraction; text files are taken as-is; anything else is rejected. The raw
// bytes are stored as a data URL so the source file survives round trips.
func (s *Service) Upload(ctx context.Context, userID string, in *UploadInput) (*models.BookModel, error) {
	contentType := detectContentType(in.Filename, in.Payload, in.ContentType)

	var content, fileType string
	switch {
	case contentType == "application/pdf" || extract.IsPDF(in.Payload):
		content = extract.PDFText(in.Payload)
		fileType = fileTypePDF
	case strings.HasPrefix(contentType, "text/"):
		content = strings.ToValidUTF8(string(in.Payload), "")
		fileType = fileTypeText
	default:
		return nil, errUnsupportedFile
	}

	fileURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(in.Payload)

	book := &models.BookModel{
		Title:      strings.TrimSpace(in.Title),
		Author:     strings.TrimSpace(in.Author),
		Content:    content,
		GradeLevel: in.GradeLevel,
		Subject:    in.Subject,
		FileURL:    &fileURL,
		Keywords:   models.StringArray{},
		CreatedBy:  userID,
		FileType:   fileType,
	}

	if url, ok := s.mirrorToS3(ctx, in, contentType); ok {
		book.MirrorURL = &url
	}

	s.applyAnalysis(book)

	if err := s.db.Create(book).Error; err != nil {
		return nil, err
	}
	s.emit(EventBookCreate, gin.H{"id": book.ID, "title": book.Title})
	return book, nil
}

// applyAnalysis runs the AI pass over the content and merges the result in.
// Caller-provided grade and subject always win; summary and keywords always
// come from the analysis.
func (s *Service) applyAnalysis(book *models.BookModel) {
	if !s.autoAnalysisEnabled() {
		return
	}

	insights := s.aiSvc.Analyze(book.Content, book.Title, book.Author, book.GradeLevel, book.Subject)
	book.AIInsights = insights

	summary := ai.InsightString(insights, "summary")
	book.Summary = &summary
	if kw := ai.InsightStringList(insights, "keywords"); len(kw) > 0 {
		book.Keywords = models.StringArray(kw)
	}
	if isBlank(book.GradeLevel) {
		if v := ai.InsightString(insights, "recommended_grade"); v != "" {
			book.GradeLevel = &v
		}
	}
	if isBlank(book.Subject) {
		if v := ai.InsightString(insights, "subject_category"); v != "" {
			book.Subject = &v
		}
	}
}

func (s *Service) autoAnalysisEnabled() bool {
	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return true
	}
	return cfg.AI.EnableAutoAnalysis
}

// mirrorToS3 pushes the raw upload to object storage when the mirror is
// enabled. The data URL in the row stays canonical; a mirror failure only
// logs.
func (s *Service) mirrorToS3(ctx context.Context, in *UploadInput, contentType string) (string, bool) {
	cfg, err := s.cfgSvc.Get()
	if err != nil || !cfg.UploadOptions.MirrorToS3 {
		return "", false
	}

	uploader, err := backup.NewS3Uploader(cfg.S3Options)
	if err != nil {
		s.logger.Warn("book mirror skipped", zap.Error(err))
		return "", false
	}

	objectKey := renderUploadObjectKey(cfg.UploadOptions.Path, in.Filename, in.Payload, time.Now())
	url, err := uploader.Upload(ctx, objectKey, in.Payload, contentType)
	if err != nil {
		s.logger.Warn("book mirror failed", zap.String("objectKey", objectKey), zap.Error(err))
		return "", false
	}
	return url, true
}

// List returns a window over the catalog, optionally filtered by grade and
// subject. Rows come back in insertion order.
func (s *Service) List(skip, limit int, grade, subject string) ([]models.BookModel, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := s.db.Model(&models.BookModel{})
	if grade != "" {
		q = q.Where("grade_level = ?", grade)
	}
	if subject != "" {
		q = q.Where("subject = ?", subject)
	}

	books := make([]models.BookModel, 0)
	err := q.Order("created_at ASC").Offset(skip).Limit(limit).Find(&books).Error
	return books, err
}

func (s *Service) GetByID(id string) (*models.BookModel, error) {
	var book models.BookModel
	if err := s.db.First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// KeywordSearch is the non-semantic path: a case-insensitive substring match
// across title, author, content, keywords, and subject. Students with a grade
// set only see books of their grade or ungraded ones.
func (s *Service) KeywordSearch(query, userID string) ([]models.BookModel, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	match := s.db.
		Where("LOWER(title) LIKE ?", like).
		Or("LOWER(author) LIKE ?", like).
		Or("LOWER(content) LIKE ?", like).
		Or("LOWER(CAST(keywords AS CHAR)) LIKE ?", like).
		Or("LOWER(subject) LIKE ?", like)

	q := s.db.Model(&models.BookModel{}).Where(match)

	var user models.UserModel
	if userID != "" && s.db.First(&user, "id = ?", userID).Error == nil {
		if !isBlank(user.Grade) {
			q = q.Where("(grade_level = ? OR grade_level IS NULL OR grade_level = '')", *user.Grade)
		}
	}

	books := make([]models.BookModel, 0)
	err := q.Limit(searchWindow).Find(&books).Error
	return books, err
}
