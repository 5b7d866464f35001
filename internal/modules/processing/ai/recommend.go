package ai

import (
	"github.com/gin-gonic/gin"
	"github.com/vidyaverse/core/internal/models"
	"go.uber.org/zap"
)

// EventRecommendationReady is broadcast when a recommendation batch lands.
const EventRecommendationReady = "RECOMMENDATION_READY"

// RecommendForUser generates a recommendation batch, persists it as a
// RecommendationModel row, and returns the hydrated books plus reasoning.
func (s *Service) RecommendForUser(userID string) ([]models.BookModel, string, error) {
	rec := s.recommend(userID)

	books := make([]models.BookModel, 0, len(rec.BookIDs))
	if len(rec.BookIDs) > 0 {
		if err := s.db.Where("id IN ?", rec.BookIDs).Find(&books).Error; err != nil {
			return nil, "", err
		}
	}

	row := models.RecommendationModel{
		UserID:           userID,
		RecommendedBooks: models.StringArray(rec.BookIDs),
		Reasoning:        rec.Reasoning,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, "", err
	}

	s.emit(EventRecommendationReady, gin.H{"user_id": userID, "count": len(books)})
	return books, rec.Reasoning, nil
}

// recommend picks unread books for the user. Like the other operations it
// never errors: missing users, empty libraries, provider failures and
// unparseable replies each map to a fixed reasoning string.
func (s *Service) recommend(userID string) RecommendationResult {
	var user models.UserModel
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return RecommendationResult{BookIDs: []string{}, Reasoning: "User not found"}
	}

	var readBooks []models.BookModel
	if len(user.ReadingHistory) > 0 {
		s.db.Where("id IN ?", []string(user.ReadingHistory)).Limit(100).Find(&readBooks)
	}

	var allBooks []models.BookModel
	if err := s.db.Limit(bookScanLimit).Find(&allBooks).Error; err != nil {
		return RecommendationResult{BookIDs: []string{}, Reasoning: "Recommendations temporarily unavailable"}
	}

	unread := make([]models.BookModel, 0, len(allBooks))
	for _, book := range allBooks {
		if !containsString(user.ReadingHistory, book.ID) {
			unread = append(unread, book)
		}
	}
	if len(unread) == 0 {
		return RecommendationResult{BookIDs: []string{}, Reasoning: "No unread books available"}
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return RecommendationResult{BookIDs: []string{}, Reasoning: "Recommendations temporarily unavailable"}
	}
	if !cfg.AI.EnableRecommendations {
		return fallbackRecommend(unread, user)
	}
	provider := selectAIProvider(cfg.AI, cfg.AI.RecommendationModel)
	if provider == nil {
		return fallbackRecommend(unread, user)
	}

	prompt := buildRecommendPrompt(user, readBooks, unread)
	raw, err := callAIWithSystemPrompt(provider, recommendSystemPrompt, prompt, recommendMaxOutputTokens)
	if err != nil {
		s.logger.Warn("recommendation call failed", zap.Error(err))
		return RecommendationResult{BookIDs: []string{}, Reasoning: "Recommendations temporarily unavailable"}
	}

	var reply struct {
		BookIDs   []string `json:"book_ids"`
		Reasoning string   `json:"reasoning"`
	}
	if err := unmarshalAIJSON(raw, &reply); err != nil {
		s.logger.Debug("recommendation reply was not JSON, using profile fallback")
		return fallbackRecommend(unread, user)
	}

	if reply.BookIDs == nil {
		reply.BookIDs = []string{}
	}
	if reply.Reasoning == "" {
		reply.Reasoning = "Personalized educational recommendations for " + gradeOrYour(user.Grade) + " grade level"
	}
	return RecommendationResult{BookIDs: reply.BookIDs, Reasoning: reply.Reasoning}
}

// fallbackRecommend picks unread books by profile when no model ranking is
// available: grade matches first, then subject matches, capped at five.
func fallbackRecommend(unread []models.BookModel, user models.UserModel) RecommendationResult {
	userGrade := strOr(user.Grade, "")

	preferred := make([]models.BookModel, 0, recommendResultLimit)
	rest := make([]models.BookModel, 0, recommendResultLimit)
	for _, book := range unread {
		bookGrade := strOr(book.GradeLevel, "")
		bookSubject := strOr(book.Subject, "")
		switch {
		case userGrade != "" && bookGrade == userGrade:
			preferred = append(preferred, book)
		case len(user.Subjects) == 0 || containsString(user.Subjects, bookSubject):
			rest = append(rest, book)
		}
	}

	picked := append(preferred, rest...)
	if len(picked) > recommendResultLimit {
		picked = picked[:recommendResultLimit]
	}

	ids := make([]string, 0, len(picked))
	for _, book := range picked {
		ids = append(ids, book.ID)
	}
	return RecommendationResult{
		BookIDs:   ids,
		Reasoning: "Educational recommendations tailored for " + gradeOrYour(user.Grade) + " grade level and preferred subjects",
	}
}

func gradeOrYour(grade *string) string {
	if grade == nil || *grade == "" {
		return "your"
	}
	return *grade
}
