package lookup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLookupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler().RegisterRoutes(r.Group("/api"))
	return r
}

func TestGradesEndpoint(t *testing.T) {
	r := newLookupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/grades", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Grades []Option `json:"grades"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Grades, 10)
	assert.Equal(t, Option{Value: "1st", Label: "1st Grade"}, body.Grades[0])
	assert.Equal(t, Option{Value: "10th", Label: "10th Grade"}, body.Grades[9])
}

func TestSubjectsEndpoint(t *testing.T) {
	r := newLookupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/subjects", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Subjects []Option `json:"subjects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Subjects, 15)
	assert.Equal(t, Option{Value: "Mathematics", Label: "Mathematics"}, body.Subjects[0])
	// A few entries carry display labels that differ from their values.
	assert.Contains(t, body.Subjects, Option{Value: "English", Label: "English Language Arts"})
	assert.Contains(t, body.Subjects, Option{Value: "Health", Label: "Health & Wellness"})
}

func TestIsKnownGrade(t *testing.T) {
	assert.True(t, IsKnownGrade("5th"))
	assert.True(t, IsKnownGrade("10th"))
	assert.False(t, IsKnownGrade("11th"))
	assert.False(t, IsKnownGrade(""))
}

func TestIsKnownSubject(t *testing.T) {
	assert.True(t, IsKnownSubject("Computer Science"))
	assert.False(t, IsKnownSubject("Alchemy"))
}

func TestLookupsReturnCopies(t *testing.T) {
	got := Grades()
	got[0].Value = "mutated"
	assert.Equal(t, "1st", Grades()[0].Value)

	subjects := Subjects()
	subjects[0].Label = "mutated"
	assert.Equal(t, "Mathematics", Subjects()[0].Label)
}
