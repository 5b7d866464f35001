package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vidyaverse/core/internal/middleware"
	"github.com/vidyaverse/core/internal/models"
)

type authBody struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID                  string   `json:"id"`
		Email               string   `json:"email"`
		Name                string   `json:"name"`
		Grade               *string  `json:"grade"`
		Subjects            []string `json:"subjects"`
		OnboardingCompleted bool     `json:"onboarding_completed"`
	} `json:"user"`
}

func setupUserAPI(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.UserSession{}))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewService(db)).RegisterRoutes(r.Group("/api"), middleware.Auth(db))
	return r, db
}

func doJSON(r *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerStudent(t *testing.T, r *gin.Engine, email string) authBody {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/register", "", gin.H{
		"email":    email,
		"name":     "Test Student",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body authBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body
}

func TestRegister(t *testing.T) {
	r, _ := setupUserAPI(t)

	body := registerStudent(t, r, "student@vidyaverse.test")
	assert.Equal(t, "Registration successful", body.Message)
	assert.Equal(t, "student@vidyaverse.test", body.User.Email)
	assert.Equal(t, "Test Student", body.User.Name)
	assert.False(t, body.User.OnboardingCompleted)
	assert.NotEmpty(t, body.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r, _ := setupUserAPI(t)
	registerStudent(t, r, "student@vidyaverse.test")

	// Same address again, different casing still counts as taken.
	w := doJSON(r, http.MethodPost, "/api/register", "", gin.H{
		"email":    "Student@Vidyaverse.TEST",
		"name":     "Other",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Email already registered")
}

func TestRegisterValidation(t *testing.T) {
	r, _ := setupUserAPI(t)

	tests := []struct {
		name    string
		payload gin.H
	}{
		{"missing email", gin.H{"name": "x", "password": "secret123"}},
		{"bad email", gin.H{"email": "not-an-email", "name": "x", "password": "secret123"}},
		{"short password", gin.H{"email": "a@b.test", "name": "x", "password": "123"}},
		{"missing name", gin.H{"email": "a@b.test", "password": "secret123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/register", "", tt.payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	r, _ := setupUserAPI(t)
	registerStudent(t, r, "student@vidyaverse.test")

	w := doJSON(r, http.MethodPost, "/api/login", "", gin.H{
		"email":    "STUDENT@vidyaverse.test",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body authBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Login successful", body.Message)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "student@vidyaverse.test", body.User.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	r, _ := setupUserAPI(t)
	registerStudent(t, r, "student@vidyaverse.test")

	w := doJSON(r, http.MethodPost, "/api/login", "", gin.H{
		"email":    "student@vidyaverse.test",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")
}

func TestGetProfile(t *testing.T) {
	r, _ := setupUserAPI(t)
	reg := registerStudent(t, r, "student@vidyaverse.test")

	w := doJSON(r, http.MethodGet, "/api/profile", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "student@vidyaverse.test", profile["email"])
	assert.NotContains(t, profile, "password")

	// No token means no profile.
	w = doJSON(r, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	r, _ := setupUserAPI(t)
	reg := registerStudent(t, r, "student@vidyaverse.test")

	w := doJSON(r, http.MethodPatch, "/api/profile", reg.Token, gin.H{
		"name":  "Renamed Student",
		"grade": "7th",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "Renamed Student", profile["name"])
	assert.Equal(t, "7th", profile["grade"])
	// Untouched fields survive.
	assert.Equal(t, "student@vidyaverse.test", profile["email"])
}

func TestCompleteOnboarding(t *testing.T) {
	r, _ := setupUserAPI(t)
	reg := registerStudent(t, r, "student@vidyaverse.test")

	w := doJSON(r, http.MethodPost, "/api/onboarding", reg.Token, gin.H{
		"grade":    "6th",
		"subjects": []string{"Mathematics", "Science"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Message string `json:"message"`
		User    struct {
			Grade               *string  `json:"grade"`
			Subjects            []string `json:"subjects"`
			OnboardingCompleted bool     `json:"onboarding_completed"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Onboarding completed successfully", body.Message)
	require.NotNil(t, body.User.Grade)
	assert.Equal(t, "6th", *body.User.Grade)
	assert.Equal(t, []string{"Mathematics", "Science"}, body.User.Subjects)
	assert.True(t, body.User.OnboardingCompleted)

	// The flag sticks on the next profile read.
	w = doJSON(r, http.MethodGet, "/api/profile", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"onboarding_completed":true`)
}

func TestCompleteOnboardingValidation(t *testing.T) {
	r, _ := setupUserAPI(t)
	reg := registerStudent(t, r, "student@vidyaverse.test")

	w := doJSON(r, http.MethodPost, "/api/onboarding", reg.Token, gin.H{"subjects": []string{"Science"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangePassword(t *testing.T) {
	r, _ := setupUserAPI(t)
	reg := registerStudent(t, r, "student@vidyaverse.test")

	w := doJSON(r, http.MethodPatch, "/api/password", reg.Token, gin.H{
		"old_password": "wrong",
		"new_password": "changed123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Current password is incorrect")

	w = doJSON(r, http.MethodPatch, "/api/password", reg.Token, gin.H{
		"old_password": "secret123",
		"new_password": "secret123",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(r, http.MethodPatch, "/api/password", reg.Token, gin.H{
		"old_password": "secret123",
		"new_password": "changed123",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Old password no longer works, new one does.
	w = doJSON(r, http.MethodPost, "/api/login", "", gin.H{"email": "student@vidyaverse.test", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(r, http.MethodPost, "/api/login", "", gin.H{"email": "student@vidyaverse.test", "password": "changed123"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	r, _ := setupUserAPI(t)
	reg := registerStudent(t, r, "student@vidyaverse.test")

	w := doJSON(r, http.MethodPost, "/api/logout", reg.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/api/profile", reg.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListSessions(t *testing.T) {
	r, _ := setupUserAPI(t)
	reg := registerStudent(t, r, "student@vidyaverse.test")

	w := doJSON(r, http.MethodGet, "/api/sessions", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data []struct {
			ID      string `json:"id"`
			Current bool   `json:"current"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.True(t, body.Data[0].Current)
}

func TestDeleteOtherSessions(t *testing.T) {
	r, _ := setupUserAPI(t)
	reg := registerStudent(t, r, "student@vidyaverse.test")

	// A second login creates a second session.
	w := doJSON(r, http.MethodPost, "/api/login", "", gin.H{"email": "student@vidyaverse.test", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var second authBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	w = doJSON(r, http.MethodDelete, "/api/sessions", reg.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// The caller's session survives, the other one is gone.
	w = doJSON(r, http.MethodGet, "/api/profile", reg.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(r, http.MethodGet, "/api/profile", second.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
