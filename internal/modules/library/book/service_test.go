package book

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vidyaverse/core/internal/models"
	"github.com/vidyaverse/core/internal/modules/processing/ai"
	"github.com/vidyaverse/core/internal/modules/processing/extract"
	"github.com/vidyaverse/core/internal/modules/system/core/configs"
)

func strPtr(s string) *string { return &s }

func setupService(t *testing.T) (*Service, *gorm.DB, *configs.Service) {
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
	))

	cfgSvc := configs.NewService(db)
	aiSvc := ai.NewService(db, cfgSvc, nil)
	return NewService(db, cfgSvc, aiSvc), db, cfgSvc
}

func TestCreateFillsInsightsWhenNoProviderConfigured(t *testing.T) {
	svc, _, _ := setupService(t)

	book, err := svc.Create("user-1", &CreateDTO{
		Title:   "The Water Cycle",
		Author:  "J. Rivers",
		Content: "Water evaporates, condenses, and falls as rain.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, book.ID)

	require.NotNil(t, book.AIInsights)
	assert.Equal(t, "Content analysis pending", book.AIInsights["summary"])
	require.NotNil(t, book.Summary)
	assert.Equal(t, "Content analysis pending", *book.Summary)

	// Blank grade and subject pick up the analysis defaults.
	require.NotNil(t, book.GradeLevel)
	assert.Equal(t, "5th", *book.GradeLevel)
	require.NotNil(t, book.Subject)
	assert.Equal(t, "General", *book.Subject)
	assert.Equal(t, "text", book.FileType)
	assert.Equal(t, "user-1", book.CreatedBy)
}

func TestCreateKeepsCallerGradeAndSubject(t *testing.T) {
	svc, _, _ := setupService(t)

	book, err := svc.Create("user-1", &CreateDTO{
		Title:      "Fractions Made Easy",
		Author:     "M. Iyer",
		Content:    "Halves and quarters.",
		GradeLevel: strPtr("7th"),
		Subject:    strPtr("Mathematics"),
	})
	require.NoError(t, err)

	assert.Equal(t, "7th", *book.GradeLevel)
	assert.Equal(t, "Mathematics", *book.Subject)
	// The insight document echoes them too.
	assert.Equal(t, "7th", book.AIInsights["recommended_grade"])
	assert.Equal(t, "Mathematics", book.AIInsights["subject_category"])
}

func TestCreateSkipsAnalysisWhenDisabled(t *testing.T) {
	svc, _, cfgSvc := setupService(t)

	_, err := cfgSvc.Patch(map[string]json.RawMessage{
		"ai": json.RawMessage(`{"enable_auto_analysis": false}`),
	})
	require.NoError(t, err)

	book, err := svc.Create("user-1", &CreateDTO{Title: "Raw Book", Author: "Nobody"})
	require.NoError(t, err)

	assert.Nil(t, book.AIInsights)
	assert.Nil(t, book.Summary)
	assert.Nil(t, book.GradeLevel)
}

func TestCreateBroadcastsEvent(t *testing.T) {
	svc, _, _ := setupService(t)

	var gotEvent string
	svc.SetBroadcast(func(event string, _ interface{}) { gotEvent = event })

	_, err := svc.Create("user-1", &CreateDTO{Title: "Broadcast Me", Author: "A"})
	require.NoError(t, err)
	assert.Equal(t, EventBookCreate, gotEvent)
}

func TestListWindowAndFilters(t *testing.T) {
	svc, db, _ := setupService(t)

	rows := []models.BookModel{
		{Title: "A", Author: "x", GradeLevel: strPtr("6th"), Subject: strPtr("Science")},
		{Title: "B", Author: "x", GradeLevel: strPtr("6th"), Subject: strPtr("Mathematics")},
		{Title: "C", Author: "x", GradeLevel: strPtr("7th"), Subject: strPtr("Science")},
	}
	for i := range rows {
		rows[i].CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	books, err := svc.List(0, 2, "", "")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "A", books[0].Title)
	assert.Equal(t, "B", books[1].Title)

	books, err = svc.List(2, 10, "", "")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "C", books[0].Title)

	books, err = svc.List(0, 10, "6th", "")
	require.NoError(t, err)
	assert.Len(t, books, 2)

	books, err = svc.List(0, 10, "6th", "Science")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "A", books[0].Title)

	// Negative skip and zero limit fall back to sane values.
	books, err = svc.List(-5, 0, "", "")
	require.NoError(t, err)
	assert.Len(t, books, 3)
}

func TestGetByID(t *testing.T) {
	svc, db, _ := setupService(t)

	row := models.BookModel{Title: "Findable", Author: "x"}
	require.NoError(t, db.Create(&row).Error)

	book, err := svc.GetByID(row.ID)
	require.NoError(t, err)
	assert.Equal(t, "Findable", book.Title)

	_, err = svc.GetByID("does-not-exist")
	assert.ErrorIs(t, err, errBookNotFound)
}

func TestKeywordSearch(t *testing.T) {
	svc, db, _ := setupService(t)

	require.NoError(t, db.Create(&models.BookModel{
		Title: "Algebra Basics", Author: "N. Euler", GradeLevel: strPtr("6th"),
		Subject: strPtr("Mathematics"), Content: "Variables and equations.",
	}).Error)
	require.NoError(t, db.Create(&models.BookModel{
		Title: "Ocean Life", Author: "M. Costeau",
		Content: "Fish and coral reefs.", Keywords: models.StringArray{"marine", "biology"},
	}).Error)
	require.NoError(t, db.Create(&models.BookModel{
		Title: "Chemistry Lab", Author: "W. Heisen", GradeLevel: strPtr("8th"),
		Content: "Reactions and compounds.",
	}).Error)

	student := models.UserModel{Email: "kid@test", Name: "Kid", Password: "x", Grade: strPtr("6th")}
	require.NoError(t, db.Create(&student).Error)

	// Title match, case-insensitive.
	books, err := svc.KeywordSearch("ALGEBRA", student.ID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Algebra Basics", books[0].Title)

	// Ungraded books stay visible to a graded student.
	books, err = svc.KeywordSearch("ocean", student.ID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Ocean Life", books[0].Title)

	// Off-grade books are filtered out for that student...
	books, err = svc.KeywordSearch("chemistry", student.ID)
	require.NoError(t, err)
	assert.Empty(t, books)

	// ...but an anonymous search sees them.
	books, err = svc.KeywordSearch("chemistry", "")
	require.NoError(t, err)
	assert.Len(t, books, 1)

	// JSON keyword column matches too.
	books, err = svc.KeywordSearch("marine", student.ID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Ocean Life", books[0].Title)
}

func TestUploadTextFile(t *testing.T) {
	svc, _, _ := setupService(t)

	payload := []byte("Photosynthesis converts light into chemical energy.")
	book, err := svc.Upload(context.Background(), "user-1", &UploadInput{
		Title:       "Plant Biology",
		Author:      "G. Mendel",
		Filename:    "plants.txt",
		ContentType: "text/plain",
		Payload:     payload,
	})
	require.NoError(t, err)

	assert.Equal(t, "text", book.FileType)
	assert.Equal(t, string(payload), book.Content)
	require.NotNil(t, book.FileURL)
	assert.True(t, strings.HasPrefix(*book.FileURL, "data:text/plain;base64,"))
	assert.Nil(t, book.MirrorURL)
	// The fallback analysis still runs on uploads.
	assert.Equal(t, "Content analysis pending", book.AIInsights["summary"])
}

func TestUploadGarbagePDFKeepsFallbackContent(t *testing.T) {
	svc, _, _ := setupService(t)

	book, err := svc.Upload(context.Background(), "user-1", &UploadInput{
		Title:    "Broken Scan",
		Author:   "Scanner",
		Filename: "scan.pdf",
		Payload:  []byte("%PDF-1.4 this is not really a pdf"),
	})
	require.NoError(t, err)

	assert.Equal(t, "pdf", book.FileType)
	assert.Equal(t, extract.FallbackMessage, book.Content)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Upload(context.Background(), "user-1", &UploadInput{
		Title:       "Picture",
		Author:      "Cam",
		Filename:    "photo.png",
		ContentType: "image/png",
		Payload:     []byte{0x89, 0x50, 0x4E, 0x47},
	})
	assert.ErrorIs(t, err, errUnsupportedFile)
}
