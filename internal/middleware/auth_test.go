package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vidyaverse/core/internal/models"
	jwtpkg "github.com/vidyaverse/core/internal/pkg/jwt"
	sessionpkg "github.com/vidyaverse/core/internal/pkg/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.UserSession{}))
	return db
}

func newAuthRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", Auth(db), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": CurrentUserID(c), "session_id": CurrentSessionID(c)})
	})
	r.GET("/maybe", OptionalAuth(db), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authed": IsAuthenticated(c), "user_id": CurrentUserID(c)})
	})
	return r
}

func doGet(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"abc.def.ghi", "abc.def.ghi"},
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc.def.ghi", "abc.def.ghi"},
		{"  BEARER   abc.def.ghi  ", "abc.def.ghi"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeToken(tt.raw), "raw=%q", tt.raw)
	}
}

func TestAuthRejectsMissingAndGarbageTokens(t *testing.T) {
	db := newTestDB(t)
	r := newAuthRouter(db)

	w := doGet(r, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid authentication credentials")

	w = doGet(r, "/private", map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAcceptsSessionBoundToken(t *testing.T) {
	db := newTestDB(t)
	r := newAuthRouter(db)

	token, s, err := sessionpkg.Issue(db, "user-42", "", "", time.Hour)
	require.NoError(t, err)

	w := doGet(r, "/private", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-42")
	assert.Contains(t, w.Body.String(), s.ID)
}

func TestAuthAcceptsQueryToken(t *testing.T) {
	db := newTestDB(t)
	r := newAuthRouter(db)

	token, _, err := sessionpkg.Issue(db, "user-42", "", "", time.Hour)
	require.NoError(t, err)

	w := doGet(r, "/private?token="+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	db := newTestDB(t)
	r := newAuthRouter(db)

	token, s, err := sessionpkg.Issue(db, "user-42", "", "", time.Hour)
	require.NoError(t, err)
	require.NoError(t, sessionpkg.Revoke(db, "user-42", s.ID))

	w := doGet(r, "/private", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAcceptsLegacyTokenWithoutSession(t *testing.T) {
	db := newTestDB(t)
	r := newAuthRouter(db)

	token, err := jwtpkg.Sign("user-legacy", time.Hour)
	require.NoError(t, err)

	w := doGet(r, "/private", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-legacy")
}

func TestOptionalAuthPassesThroughAnonymous(t *testing.T) {
	db := newTestDB(t)
	r := newAuthRouter(db)

	w := doGet(r, "/maybe", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authed":false`)

	// A bad token is ignored rather than rejected.
	w = doGet(r, "/maybe", map[string]string{"Authorization": "Bearer junk"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authed":false`)
}

func TestOptionalAuthSetsUserWhenTokenValid(t *testing.T) {
	db := newTestDB(t)
	r := newAuthRouter(db)

	token, _, err := sessionpkg.Issue(db, "user-42", "", "", time.Hour)
	require.NoError(t, err)

	w := doGet(r, "/maybe", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authed":true`)
	assert.Contains(t, w.Body.String(), "user-42")
}

func TestValidateToken(t *testing.T) {
	db := newTestDB(t)

	token, _, err := sessionpkg.Issue(db, "user-7", "", "", time.Hour)
	require.NoError(t, err)

	userID, err := ValidateToken(db, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", userID)

	_, err = ValidateToken(db, "")
	assert.Error(t, err)
}
