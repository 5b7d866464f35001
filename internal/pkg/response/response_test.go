package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestOK_Object(t *testing.T) {
	c, w := newTestContext(t)
	OK(c, gin.H{"id": "b-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "b-1", body["id"])
}

func TestOK_SliceWrapsInData(t *testing.T) {
	c, w := newTestContext(t)
	OK(c, []string{"a", "b"})

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"a", "b"}, body["data"])
}

func TestPaged(t *testing.T) {
	c, w := newTestContext(t)
	Paged(c, []int{1, 2, 3}, Pagination{
		Total:       3,
		CurrentPage: 1,
		TotalPage:   1,
		Size:        10,
	})

	var body struct {
		Data       []int      `json:"data"`
		Pagination Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []int{1, 2, 3}, body.Data)
	assert.Equal(t, int64(3), body.Pagination.Total)
	assert.False(t, body.Pagination.HasNextPage)
}

func TestErrorShapes(t *testing.T) {
	cases := []struct {
		name string
		fire func(c *gin.Context)
		code int
	}{
		{"bad request", func(c *gin.Context) { BadRequest(c, "nope") }, http.StatusBadRequest},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c) }, http.StatusUnauthorized},
		{"forbidden", func(c *gin.Context) { Forbidden(c) }, http.StatusForbidden},
		{"conflict", func(c *gin.Context) { Conflict(c, "taken") }, http.StatusConflict},
		{"unprocessable", func(c *gin.Context) { UnprocessableEntity(c, "bad shape") }, http.StatusUnprocessableEntity},
		{"method not allowed", func(c *gin.Context) { MethodNotAllowed(c) }, http.StatusMethodNotAllowed},
		{"internal", func(c *gin.Context) { InternalError(c, errors.New("boom")) }, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newTestContext(t)
			tc.fire(c)

			assert.Equal(t, tc.code, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, float64(0), body["ok"])
			assert.Equal(t, float64(tc.code), body["code"])
			assert.NotEmpty(t, body["message"])
			assert.True(t, c.IsAborted())
		})
	}
}

func TestNotFound_UsesLibraryMessages(t *testing.T) {
	c, w := newTestContext(t)
	NotFound(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	assert.Contains(t, notFoundMessages, msg)
}

func TestNotFoundMsg(t *testing.T) {
	c, w := newTestContext(t)
	NotFoundMsg(c, "Book not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Book not found", body["message"])
}

func TestNoContent(t *testing.T) {
	c, w := newTestContext(t)
	NoContent(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
