// Package reading tracks per-user reading sessions: one live session per
// (user, book) pair carrying progress, notes, bookmarks, and time spent.
package reading

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vidyaverse/core/internal/models"
)

const (
	EventReadingStart    = "READING_START"
	EventReadingProgress = "READING_PROGRESS"
)

const sessionWindow = 100

type Service struct {
	db        *gorm.DB
	logger    *zap.Logger
	broadcast func(event string, payload interface{})
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("ReadingService")
		}
	}
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, logger: zap.NewNop()}
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

// StartSession returns the existing session for (user, book) or creates one,
// recording the book in the user's reading history on first open.
func (s *Service) StartSession(userID, bookID string) (*models.ReadingSessionModel, error) {
	var count int64
	if err := s.db.Model(&models.BookModel{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errBookNotFound
	}

	var session models.ReadingSessionModel
	err := s.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session = models.ReadingSessionModel{
		UserID:    userID,
		BookID:    bookID,
		Bookmarks: models.IntArray{},
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}

	if err := s.addToHistory(userID, bookID); err != nil {
		s.logger.Warn("reading history update failed",
			zap.String("userId", userID), zap.String("bookId", bookID), zap.Error(err))
	}

	s.emit(EventReadingStart, gin.H{"user_id": userID, "book_id": bookID})
	return &session, nil
}

// addToHistory appends bookID to the user's reading history with set
// semantics. Done in one statement so concurrent session starts can't
// duplicate the entry.
func (s *Service) addToHistory(userID, bookID string) error {
	return s.db.Exec(
		`UPDATE users
		   SET reading_history = JSON_ARRAY_APPEND(COALESCE(reading_history, '[]'), '$', ?)
		 WHERE id = ?
		   AND NOT JSON_CONTAINS(COALESCE(reading_history, '[]'), JSON_QUOTE(?))`,
		bookID, userID, bookID,
	).Error
}

// UpdateSession replaces the mutable state of the owner's session and bumps
// the modified timestamp.
func (s *Service) UpdateSession(userID, sessionID string, dto *UpdateSessionDTO) (*models.ReadingSessionModel, error) {
	var session models.ReadingSessionModel
	if err := s.db.First(&session, "id = ? AND user_id = ?", sessionID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSessionNotFound
		}
		return nil, err
	}

	bookmarks := models.IntArray(dto.Bookmarks)
	if bookmarks == nil {
		bookmarks = models.IntArray{}
	}

	session.Progress = dto.Progress
	session.Notes = dto.Notes
	session.Bookmarks = bookmarks
	session.ReadingTime = dto.ReadingTime
	if err := s.db.Save(&session).Error; err != nil {
		return nil, err
	}

	s.emit(EventReadingProgress, gin.H{
		"user_id":  session.UserID,
		"book_id":  session.BookID,
		"progress": session.Progress,
	})
	return &session, nil
}

// ListSessions returns the user's sessions in creation order, window 100.
func (s *Service) ListSessions(userID string) ([]models.ReadingSessionModel, error) {
	sessions := make([]models.ReadingSessionModel, 0)
	err := s.db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Limit(sessionWindow).
		Find(&sessions).Error
	return sessions, err
}
