package ai

import (
	"strings"

	"github.com/vidyaverse/core/internal/models"
	"go.uber.org/zap"
)

// SemanticSearch ranks the library against a free-text query by handing the
// candidate set to the configured model and reading back an ordered id list.
// A reply that cannot be parsed falls back to plain substring ranking over
// the same candidates; a transport failure yields an empty result.
func (s *Service) SemanticSearch(query, userID string) []models.BookModel {
	var user models.UserModel
	if userID != "" {
		s.db.First(&user, "id = ?", userID)
	}

	var books []models.BookModel
	if err := s.db.Limit(bookScanLimit).Find(&books).Error; err != nil {
		s.logger.Warn("semantic search could not load books", zap.Error(err))
		return []models.BookModel{}
	}

	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return []models.BookModel{}
	}
	if !cfg.AI.EnableSemanticSearch {
		return fallbackSearchRank(books, query, user)
	}
	provider := selectAIProvider(cfg.AI, cfg.AI.SearchModel)
	if provider == nil {
		return fallbackSearchRank(books, query, user)
	}

	prompt := buildSearchPrompt(query, user, books)
	raw, err := callAIWithSystemPrompt(provider, searchSystemPrompt, prompt, searchMaxOutputTokens)
	if err != nil {
		s.logger.Warn("semantic search call failed", zap.Error(err))
		return []models.BookModel{}
	}

	var rankedIDs []string
	if err := unmarshalAIJSON(raw, &rankedIDs); err != nil {
		s.logger.Debug("semantic search reply was not an id array, using substring fallback")
		return fallbackSearchRank(books, query, user)
	}

	results := make([]models.BookModel, 0, len(rankedIDs))
	for _, id := range rankedIDs {
		var book models.BookModel
		if err := s.db.First(&book, "id = ?", id).Error; err != nil {
			continue
		}
		results = append(results, book)
	}
	return results
}

// fallbackSearchRank is the non-model ranking: case-insensitive substring
// matching over title, author and a content prefix. Rows matching both the
// user's grade and one of their subjects sort ahead of the rest.
func fallbackSearchRank(books []models.BookModel, query string, user models.UserModel) []models.BookModel {
	queryLower := strings.ToLower(query)
	userGrade := strOr(user.Grade, "")

	preferred := make([]models.BookModel, 0, searchResultLimit)
	rest := make([]models.BookModel, 0, searchResultLimit)

	for _, book := range books {
		if !strings.Contains(strings.ToLower(book.Title), queryLower) &&
			!strings.Contains(strings.ToLower(book.Author), queryLower) &&
			!strings.Contains(truncateText(strings.ToLower(book.Content), searchContentWindow), queryLower) {
			continue
		}

		bookGrade := strOr(book.GradeLevel, "")
		bookSubject := strOr(book.Subject, "")
		gradeMatch := userGrade == "" || bookGrade == "" || bookGrade == userGrade
		subjectMatch := len(user.Subjects) == 0 || bookSubject == "" || containsString(user.Subjects, bookSubject)

		if gradeMatch && subjectMatch {
			preferred = append(preferred, book)
		} else {
			rest = append(rest, book)
		}
	}

	results := append(preferred, rest...)
	if len(results) > searchResultLimit {
		results = results[:searchResultLimit]
	}
	return results
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
