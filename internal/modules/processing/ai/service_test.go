package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidyaverse/core/internal/models"
	"github.com/vidyaverse/core/internal/modules/system/core/configs"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// The default config enables every AI feature but configures no providers,
// so every operation below exercises its deterministic fallback path.
func setupAI(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.BookModel{},
		&models.UserModel{},
		&models.OptionModel{},
		&models.RecommendationModel{},
	))

	return NewService(db, configs.NewService(db), nil), db
}

func seedBook(t *testing.T, db *gorm.DB, title, author, content string, grade, subject *string) models.BookModel {
	t.Helper()
	book := models.BookModel{
		Title:      title,
		Author:     author,
		Content:    content,
		GradeLevel: grade,
		Subject:    subject,
		CreatedBy:  "seed",
	}
	require.NoError(t, db.Create(&book).Error)
	return book
}

func TestAnalyzeWithoutProviderServesPendingDocument(t *testing.T) {
	svc, _ := setupAI(t)

	insights := svc.Analyze("Rivers carve valleys over millennia.", "River Basics", "G. Stone", strPtr("7th"), nil)

	assert.Equal(t, "Content analysis pending", insights["summary"])
	assert.Equal(t, "7th", insights["recommended_grade"])
	assert.Equal(t, "General", insights["subject_category"])
	assert.Equal(t, "Unknown", insights["difficulty"])
	assert.Equal(t, "Educational content", insights["educational_value"])
	assert.Equal(t, "None specified", insights["prerequisites"])
	assert.Empty(t, insights["keywords"])
	assert.Empty(t, insights["topics"])
	assert.Empty(t, insights["learning_objectives"])
	assert.Empty(t, insights["themes"])
}

func TestAnalyzeDefaultsGradeAndSubject(t *testing.T) {
	svc, _ := setupAI(t)

	insights := svc.Analyze("text", "Untitled", "Anon", nil, nil)

	assert.Equal(t, "5th", insights["recommended_grade"])
	assert.Equal(t, "General", insights["subject_category"])
}

func TestAnalysisParseFallbackDocument(t *testing.T) {
	insights := analysisParseFallback("Moby Dick", "Melville", nil, strPtr("English"))

	assert.Equal(t, "Educational content analysis available", insights["summary"])
	assert.Equal(t, "5th", insights["recommended_grade"])
	assert.Equal(t, "English", insights["subject_category"])
	assert.Equal(t, "Intermediate", insights["difficulty"])
	assert.Equal(t, []string{"moby dick", "melville"}, insights["keywords"])
	assert.Equal(t, "Basic reading comprehension", insights["prerequisites"])
}

func TestAnalyzeBookPersistsFallbackInsights(t *testing.T) {
	svc, db := setupAI(t)
	book := seedBook(t, db, "Volcano Atlas", "T. Magma", "Lava flows downhill.", nil, strPtr("Science"))

	var events []string
	svc.SetBroadcast(func(event string, payload interface{}) { events = append(events, event) })

	insights, err := svc.AnalyzeBook(&book)
	require.NoError(t, err)
	assert.Equal(t, "Content analysis pending", InsightString(insights, "summary"))
	assert.Equal(t, []string{EventAnalysisDone}, events)

	var row models.BookModel
	require.NoError(t, db.First(&row, "id = ?", book.ID).Error)
	require.NotNil(t, row.Summary)
	assert.Equal(t, "Content analysis pending", *row.Summary)
	// The fallback grade is promoted onto the row; the stored subject wins
	// over the fallback default.
	require.NotNil(t, row.GradeLevel)
	assert.Equal(t, "5th", *row.GradeLevel)
	require.NotNil(t, row.Subject)
	assert.Equal(t, "Science", *row.Subject)
	assert.Equal(t, "Content analysis pending", row.AIInsights["summary"])
}

func TestInsightString(t *testing.T) {
	insights := map[string]interface{}{
		"summary": "A short recap",
		"count":   float64(3),
	}

	assert.Equal(t, "A short recap", InsightString(insights, "summary"))
	assert.Equal(t, "", InsightString(insights, "count"))
	assert.Equal(t, "", InsightString(insights, "missing"))
	assert.Equal(t, "", InsightString(nil, "summary"))
}

func TestInsightStringList(t *testing.T) {
	assert.Nil(t, InsightStringList(nil, "topics"))

	insights := map[string]interface{}{
		"typed":  []string{"a", "b"},
		"mixed":  []interface{}{"algebra", "", 7, "geometry"},
		"single": "fractions",
		"empty":  "",
		"number": float64(1),
	}

	assert.Equal(t, []string{"a", "b"}, InsightStringList(insights, "typed"))
	assert.Equal(t, []string{"algebra", "geometry"}, InsightStringList(insights, "mixed"))
	assert.Equal(t, []string{"fractions"}, InsightStringList(insights, "single"))
	assert.Nil(t, InsightStringList(insights, "empty"))
	assert.Nil(t, InsightStringList(insights, "number"))
	assert.Nil(t, InsightStringList(insights, "missing"))
}

func TestSemanticSearchWithoutProviderUsesSubstringRank(t *testing.T) {
	svc, db := setupAI(t)

	seedBook(t, db, "Glacier Geography", "E. Frost", "Ice sheets shape the land.", strPtr("6th"), strPtr("Science"))
	seedBook(t, db, "Ocean Currents", "M. Tide", "Glacier melt drives the ocean conveyor.", nil, nil)
	seedBook(t, db, "Glacier Economics", "P. Ledger", "Tourism revenue on ice.", strPtr("9th"), strPtr("History"))
	seedBook(t, db, "Sourdough at Home", "B. Crumb", "Flour, water, salt.", strPtr("6th"), strPtr("Science"))

	grade := "6th"
	user := models.UserModel{
		Email:    "searcher@example.com",
		Name:     "Searcher",
		Password: "x",
		Grade:    &grade,
		Subjects: models.StringArray{"Science"},
	}
	require.NoError(t, db.Create(&user).Error)

	results := svc.SemanticSearch("glacier", user.ID)
	require.Len(t, results, 3)

	// Profile matches (and books with no grade/subject at all) come first;
	// the off-profile hit trails.
	assert.Equal(t, "Glacier Economics", results[2].Title)
	leading := []string{results[0].Title, results[1].Title}
	assert.ElementsMatch(t, []string{"Glacier Geography", "Ocean Currents"}, leading)

	// Anonymous searches have no profile, so every hit ranks as preferred.
	anonymous := svc.SemanticSearch("GLACIER", "")
	assert.Len(t, anonymous, 3)
}

func TestFallbackSearchRankCapsResults(t *testing.T) {
	books := make([]models.BookModel, 0, 14)
	for i := 0; i < 14; i++ {
		books = append(books, models.BookModel{
			Title:  fmt.Sprintf("Star Atlas %d", i),
			Author: "Orbit Press",
		})
	}

	results := fallbackSearchRank(books, "star", models.UserModel{})
	assert.Len(t, results, searchResultLimit)

	none := fallbackSearchRank(books, "volcano", models.UserModel{})
	assert.Empty(t, none)
}

func TestFallbackRecommendPrefersGradeThenSubjects(t *testing.T) {
	grade := "6th"
	user := models.UserModel{Grade: &grade, Subjects: models.StringArray{"Science"}}

	unread := []models.BookModel{
		{Base: models.Base{ID: "hist"}, Title: "Medieval Guilds", GradeLevel: strPtr("8th"), Subject: strPtr("History")},
		{Base: models.Base{ID: "sci"}, Title: "Cell City", GradeLevel: strPtr("7th"), Subject: strPtr("Science")},
		{Base: models.Base{ID: "grade"}, Title: "Fractions in Practice", GradeLevel: strPtr("6th"), Subject: strPtr("Mathematics")},
	}

	rec := fallbackRecommend(unread, user)
	assert.Equal(t, []string{"grade", "sci"}, rec.BookIDs)
	assert.Equal(t, "Educational recommendations tailored for 6th grade level and preferred subjects", rec.Reasoning)
}

func TestFallbackRecommendWithoutProfileTakesEverything(t *testing.T) {
	unread := []models.BookModel{
		{Base: models.Base{ID: "a"}, Title: "A", GradeLevel: strPtr("8th"), Subject: strPtr("History")},
		{Base: models.Base{ID: "b"}, Title: "B"},
	}

	rec := fallbackRecommend(unread, models.UserModel{})
	assert.Equal(t, []string{"a", "b"}, rec.BookIDs)
	assert.Equal(t, "Educational recommendations tailored for your grade level and preferred subjects", rec.Reasoning)
}

func TestFallbackRecommendCapsAtFive(t *testing.T) {
	grade := "6th"
	unread := make([]models.BookModel, 0, 8)
	for i := 0; i < 8; i++ {
		unread = append(unread, models.BookModel{
			Base:       models.Base{ID: fmt.Sprintf("m-%d", i)},
			GradeLevel: strPtr("6th"),
		})
	}

	rec := fallbackRecommend(unread, models.UserModel{Grade: &grade})
	assert.Len(t, rec.BookIDs, recommendResultLimit)
}

func TestRecommendForUserMissingUser(t *testing.T) {
	svc, db := setupAI(t)

	books, reasoning, err := svc.RecommendForUser("ghost")
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Equal(t, "User not found", reasoning)

	// Even empty batches are recorded.
	var rows []models.RecommendationModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "ghost", rows[0].UserID)
	assert.Equal(t, "User not found", rows[0].Reasoning)
	assert.Empty(t, rows[0].RecommendedBooks)
}

func TestRecommendForUserNoUnreadBooks(t *testing.T) {
	svc, db := setupAI(t)
	book := seedBook(t, db, "The Only Book", "Solo", "text", nil, nil)

	user := models.UserModel{
		Email:          "done@example.com",
		Name:           "Done Reading",
		Password:       "x",
		ReadingHistory: models.StringArray{book.ID},
	}
	require.NoError(t, db.Create(&user).Error)

	books, reasoning, err := svc.RecommendForUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Equal(t, "No unread books available", reasoning)
}

func TestRecommendForUserFallbackBatch(t *testing.T) {
	svc, db := setupAI(t)

	mathBook := seedBook(t, db, "Fractions in Practice", "N. Patel", "halves and quarters", strPtr("6th"), strPtr("Mathematics"))
	sciBook := seedBook(t, db, "Cell City", "R. Bose", "organelles at work", strPtr("7th"), strPtr("Science"))
	seedBook(t, db, "Medieval Guilds", "H. Varma", "craft and trade", strPtr("9th"), strPtr("History"))
	readBook := seedBook(t, db, "Finished Already", "O. Ver", "old news", strPtr("6th"), strPtr("Science"))

	grade := "6th"
	user := models.UserModel{
		Email:          "reader@example.com",
		Name:           "Reader",
		Password:       "x",
		Grade:          &grade,
		Subjects:       models.StringArray{"Science"},
		ReadingHistory: models.StringArray{readBook.ID},
	}
	require.NoError(t, db.Create(&user).Error)

	var events []string
	svc.SetBroadcast(func(event string, payload interface{}) { events = append(events, event) })

	books, reasoning, err := svc.RecommendForUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Educational recommendations tailored for 6th grade level and preferred subjects", reasoning)

	titles := make([]string, 0, len(books))
	for _, b := range books {
		titles = append(titles, b.Title)
	}
	assert.ElementsMatch(t, []string{"Fractions in Practice", "Cell City"}, titles)
	assert.Equal(t, []string{EventRecommendationReady}, events)

	var row models.RecommendationModel
	require.NoError(t, db.First(&row, "user_id = ?", user.ID).Error)
	assert.ElementsMatch(t, []string{mathBook.ID, sciBook.ID}, []string(row.RecommendedBooks))
	assert.Equal(t, reasoning, row.Reasoning)
}

func TestUnmarshalAIJSON(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, unmarshalAIJSON(`{"summary": "ok"}`, &doc))
	assert.Equal(t, "ok", doc["summary"])

	doc = nil
	require.NoError(t, unmarshalAIJSON("```json\n{\"summary\": \"fenced\"}\n```", &doc))
	assert.Equal(t, "fenced", doc["summary"])

	doc = nil
	require.NoError(t, unmarshalAIJSON(`Here you go: {"summary": "wrapped"} hope that helps!`, &doc))
	assert.Equal(t, "wrapped", doc["summary"])

	var ids []string
	require.NoError(t, unmarshalAIJSON(`The ranking is ["b1", "b2"].`, &ids))
	assert.Equal(t, []string{"b1", "b2"}, ids)

	err := unmarshalAIJSON("no json here at all", &doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON response")
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "exact", truncateText("exact", 5))
	assert.Equal(t, "abc", truncateText("abcdef", 3))
	// Cuts on rune boundaries, not bytes.
	assert.Equal(t, "नमस्ते", truncateText("नमस्ते दुनिया", 6))
}

func TestPromptHelpers(t *testing.T) {
	assert.Equal(t, "5th", strOr(nil, "5th"))
	empty := ""
	assert.Equal(t, "5th", strOr(&empty, "5th"))
	grade := "7th"
	assert.Equal(t, "7th", strOr(&grade, "5th"))

	assert.Equal(t, "your", gradeOrYour(nil))
	assert.Equal(t, "your", gradeOrYour(&empty))
	assert.Equal(t, "7th", gradeOrYour(&grade))

	assert.Equal(t, "[]", marshalForPrompt(nil))
	assert.Equal(t, `["a","b"]`, marshalForPrompt([]string{"a", "b"}))
}
