package pagination

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type pagedRow struct {
	ID   uint `gorm:"primaryKey;autoIncrement"`
	Name string
}

func contextWithQuery(t *testing.T, query string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return c
}

func TestFromContext(t *testing.T) {
	q := FromContext(contextWithQuery(t, "page=3&size=25"))
	assert.Equal(t, Query{Page: 3, Size: 25}, q)

	q = FromContext(contextWithQuery(t, ""))
	assert.Equal(t, Query{Page: DefaultPage, Size: DefaultSize}, q)

	q = FromContext(contextWithQuery(t, "page=-1&size=0"))
	assert.Equal(t, Query{Page: 1, Size: DefaultSize}, q)

	q = FromContext(contextWithQuery(t, "page=abc&size=9999"))
	assert.Equal(t, Query{Page: DefaultPage, Size: MaxSize}, q)
}

func TestPaginate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&pagedRow{}))

	for i := 1; i <= 25; i++ {
		require.NoError(t, db.Create(&pagedRow{Name: fmt.Sprintf("row-%02d", i)}).Error)
	}

	var rows []pagedRow
	meta, err := Paginate(db.Model(&pagedRow{}).Order("id ASC"), Query{Page: 2, Size: 10}, &rows)
	require.NoError(t, err)

	assert.Len(t, rows, 10)
	assert.Equal(t, "row-11", rows[0].Name)
	assert.Equal(t, int64(25), meta.Total)
	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 3, meta.TotalPage)
	assert.True(t, meta.HasNextPage)

	rows = nil
	meta, err = Paginate(db.Model(&pagedRow{}).Order("id ASC"), Query{Page: 3, Size: 10}, &rows)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.False(t, meta.HasNextPage)
}

func TestPaginateEmpty(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&pagedRow{}))

	var rows []pagedRow
	meta, err := Paginate(db.Model(&pagedRow{}), Query{Page: 1, Size: 10}, &rows)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, int64(0), meta.Total)
	assert.Equal(t, 0, meta.TotalPage)
	assert.False(t, meta.HasNextPage)
}
