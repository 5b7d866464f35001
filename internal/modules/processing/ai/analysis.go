package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vidyaverse/core/internal/models"
	"github.com/vidyaverse/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TaskTypeAnalysis = "ai:analysis"

	// EventAnalysisDone is broadcast once an analysis lands on a book row.
	EventAnalysisDone = "AI_ANALYSIS_DONE"
)

var errBookNotFound = errors.New("book not found")

// Analyze runs the content analysis prompt over a book's fields and returns
// the insight document. The result is always usable: a disabled feature, a
// missing provider, a transport error, or an unparseable reply each degrade
// to one of two deterministic fallback documents instead of an error.
func (s *Service) Analyze(content, title, author string, gradeLevel, subject *string) map[string]interface{} {
	cfg, err := s.cfgSvc.Get()
	if err != nil || !cfg.AI.EnableAnalysis {
		return analysisUnavailableFallback(gradeLevel, subject)
	}
	provider := selectAIProvider(cfg.AI, cfg.AI.AnalysisModel)
	if provider == nil {
		return analysisUnavailableFallback(gradeLevel, subject)
	}

	prompt := buildAnalysisPrompt(title, author, gradeLevel, subject, content)
	raw, err := callAIWithSystemPrompt(provider, analysisSystemPrompt, prompt, analysisMaxOutputTokens)
	if err != nil {
		s.logger.Warn("content analysis call failed, serving fallback", zap.Error(err))
		return analysisUnavailableFallback(gradeLevel, subject)
	}

	var insights map[string]interface{}
	if err := unmarshalAIJSON(raw, &insights); err != nil || len(insights) == 0 {
		s.logger.Debug("content analysis reply was not JSON, serving fallback")
		return analysisParseFallback(title, author, gradeLevel, subject)
	}
	return insights
}

// AnalyzeBook re-analyzes a stored book and persists the insight document
// onto its row. The recommended grade and subject category override the
// stored values when the document carries non-empty ones.
func (s *Service) AnalyzeBook(book *models.BookModel) (map[string]interface{}, error) {
	insights := s.Analyze(book.Content, book.Title, book.Author, book.GradeLevel, book.Subject)

	book.AIInsights = insights
	summary := InsightString(insights, "summary")
	book.Summary = &summary
	if grade := InsightString(insights, "recommended_grade"); grade != "" {
		book.GradeLevel = &grade
	}
	if subject := InsightString(insights, "subject_category"); subject != "" {
		book.Subject = &subject
	}

	if err := s.db.Save(book).Error; err != nil {
		return nil, err
	}
	s.emit(EventAnalysisDone, gin.H{"book_id": book.ID, "title": book.Title})
	return insights, nil
}

// EnqueueAnalysis queues a background analysis for a book, deduplicated by
// book id while a previous run is still pending or running.
func (s *Service) EnqueueAnalysis(ctx context.Context, bookID string) (*taskqueue.Task, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, errors.New("bookId is required")
	}

	var book models.BookModel
	if err := s.db.Select("id").First(&book, "id = ?", bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBookNotFound
		}
		return nil, err
	}

	payload := AnalysisPayload{BookID: bookID}
	task, err := s.taskSvc.Enqueue(ctx, TaskTypeAnalysis, payload, bookID, bookID)
	if err != nil {
		return nil, err
	}

	// Execute immediately in a goroutine (in production use a worker pool)
	if task.Status == taskqueue.TaskPending {
		go s.executeAnalysis(context.Background(), task.ID, payload)
	}

	return task, nil
}

func (s *Service) executeAnalysis(ctx context.Context, taskID string, payload AnalysisPayload) {
	s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")

	var book models.BookModel
	if err := s.db.First(&book, "id = ?", payload.BookID).Error; err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, "book not found")
		return
	}

	insights, err := s.AnalyzeBook(&book)
	if err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, gin.H{
		"book_id": book.ID,
		"summary": InsightString(insights, "summary"),
	}, "")
}

// analysisParseFallback is served when the provider answered but the reply
// could not be decoded as JSON.
func analysisParseFallback(title, author string, gradeLevel, subject *string) map[string]interface{} {
	return map[string]interface{}{
		"summary":             "Educational content analysis available",
		"learning_objectives": []string{"Comprehensive learning experience"},
		"topics":              []string{"Various educational topics"},
		"themes":              []string{"Educational content"},
		"recommended_grade":   strOr(gradeLevel, "5th"),
		"subject_category":    strOr(subject, "General Education"),
		"difficulty":          "Intermediate",
		"educational_value":   "Engaging educational content",
		"keywords":            []string{strings.ToLower(title), strings.ToLower(author)},
		"prerequisites":       "Basic reading comprehension",
	}
}

// analysisUnavailableFallback is served when no provider call happened or the
// call itself failed.
func analysisUnavailableFallback(gradeLevel, subject *string) map[string]interface{} {
	return map[string]interface{}{
		"summary":             "Content analysis pending",
		"learning_objectives": []string{},
		"topics":              []string{},
		"themes":              []string{},
		"recommended_grade":   strOr(gradeLevel, "5th"),
		"subject_category":    strOr(subject, "General"),
		"difficulty":          "Unknown",
		"educational_value":   "Educational content",
		"keywords":            []string{},
		"prerequisites":       "None specified",
	}
}

// InsightString reads a string field out of an insight document; missing keys
// and non-string values yield "".
func InsightString(insights map[string]interface{}, key string) string {
	if insights == nil {
		return ""
	}
	if v, ok := insights[key].(string); ok {
		return v
	}
	return ""
}

// InsightStringList coerces an insight field into a string slice. Model
// output is not strictly typed: lists may arrive as JSON arrays of mixed
// values or as a single bare string.
func InsightStringList(insights map[string]interface{}, key string) []string {
	if insights == nil {
		return nil
	}
	switch v := insights[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}
