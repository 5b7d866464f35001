package ai

import (
	"encoding/json"
	"fmt"

	"github.com/vidyaverse/core/internal/models"
)

// Prompt windows and caps. The content window mirrors what the MongoDB-era
// API sent to its hosted model; output caps are sized for the largest JSON
// document each operation can produce.
const (
	analysisContentWindow   = 3000
	analysisMaxOutputTokens = 2048

	searchCandidateLimit  = 20
	searchHistoryWindow   = 10
	searchContentWindow   = 1000
	searchResultLimit     = 10
	searchMaxOutputTokens = 512

	recommendCandidateLimit  = 30
	recommendResultLimit     = 5
	recommendMaxOutputTokens = 1024

	bookScanLimit = 1000
)

const (
	analysisSystemPrompt  = "You are an expert educational content analyzer and curriculum specialist."
	searchSystemPrompt    = "You are an educational content search engine for a digital library."
	recommendSystemPrompt = "You are an educational recommendation engine for personalized learning."
)

func buildAnalysisPrompt(title, author string, gradeLevel, subject *string, content string) string {
	return fmt.Sprintf(`Analyze the following educational content and provide comprehensive insights:

Title: %s
Author: %s
Grade Level: %s
Subject: %s
Content: %s...

Please provide detailed analysis:
1. A concise summary (2-3 sentences)
2. Key learning objectives and outcomes
3. Main topics and concepts covered
4. Educational themes and pedagogical approaches
5. Appropriate grade level recommendation (1st-10th)
6. Subject classification (Mathematics, Science, English, Social Studies, etc.)
7. Difficulty level assessment (Beginner/Intermediate/Advanced)
8. Key insights and educational value
9. Relevant keywords and concepts for search
10. Prerequisites or prior knowledge required

Format as JSON with keys: summary, learning_objectives, topics, themes, recommended_grade, subject_category, difficulty, educational_value, keywords, prerequisites`,
		title,
		author,
		strOr(gradeLevel, "Not specified"),
		strOr(subject, "Not specified"),
		truncateText(content, analysisContentWindow),
	)
}

func buildSearchPrompt(query string, user models.UserModel, books []models.BookModel) string {
	history := user.ReadingHistory
	if len(history) > searchHistoryWindow {
		history = history[:searchHistoryWindow]
	}
	candidates := books
	if len(candidates) > searchCandidateLimit {
		candidates = candidates[:searchCandidateLimit]
	}

	return fmt.Sprintf(`Educational Search Query: "%s"
User Profile:
- Grade Level: %s
- Subjects: %s
- Reading History: %s

Available Educational Content:
%s

Rank these educational materials by relevance considering:
1. Grade level appropriateness for user
2. Subject alignment with user's interests
3. Title, author, and content relevance
4. Educational keywords and concepts
5. User's learning progression

Return top 10 book IDs in order of educational relevance as a JSON array.`,
		query,
		strOr(user.Grade, "Not specified"),
		marshalForPrompt([]string(user.Subjects)),
		marshalForPrompt([]string(history)),
		marshalForPrompt(toCandidates(candidates)),
	)
}

func buildRecommendPrompt(user models.UserModel, readBooks, unreadBooks []models.BookModel) string {
	read := make([]readBookContext, 0, len(readBooks))
	for _, b := range readBooks {
		read = append(read, readBookContext{
			Title:      b.Title,
			Author:     b.Author,
			GradeLevel: b.GradeLevel,
			Subject:    b.Subject,
		})
	}
	candidates := unreadBooks
	if len(candidates) > recommendCandidateLimit {
		candidates = candidates[:recommendCandidateLimit]
	}

	return fmt.Sprintf(`Student Profile:
- Grade Level: %s
- Preferred Subjects: %s
- Reading History: %s
- Additional Preferences: %s

Available Educational Materials:
%s

Recommend 5 educational materials based on:
1. Grade level appropriateness and learning progression
2. Subject alignment with student interests
3. Educational continuity from reading history
4. Skill development and knowledge building
5. Diverse learning experiences across subjects

Return JSON: {"book_ids": ["id1", "id2", ...], "reasoning": "educational explanation focusing on learning benefits"}`,
		strOr(user.Grade, "Not specified"),
		marshalForPrompt([]string(user.Subjects)),
		marshalForPrompt(read),
		marshalForPrompt(user.Preferences),
		marshalForPrompt(toCandidates(candidates)),
	)
}

func toCandidates(books []models.BookModel) []bookCandidate {
	out := make([]bookCandidate, 0, len(books))
	for _, b := range books {
		summary := ""
		if b.Summary != nil {
			summary = *b.Summary
		}
		out = append(out, bookCandidate{
			ID:         b.ID,
			Title:      b.Title,
			Author:     b.Author,
			GradeLevel: b.GradeLevel,
			Subject:    b.Subject,
			Summary:    summary,
			Keywords:   b.Keywords,
		})
	}
	return out
}

// marshalForPrompt serializes prompt context as compact JSON; marshal errors
// and nil collections degrade to an empty list rather than aborting the call.
func marshalForPrompt(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return "[]"
	}
	return string(data)
}

// strOr dereferences v, substituting fallback for nil or empty values.
func strOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
