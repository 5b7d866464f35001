package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestStringArray_Value(t *testing.T) {
	v, err := StringArray{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	v, err = StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestStringArray_ScanJSONArray(t *testing.T) {
	var a StringArray
	require.NoError(t, a.Scan(`["math","science"]`))
	assert.Equal(t, StringArray{"math", "science"}, a)

	require.NoError(t, a.Scan([]byte(`["x"]`)))
	assert.Equal(t, StringArray{"x"}, a)
}

func TestStringArray_ScanLegacyValues(t *testing.T) {
	var a StringArray
	require.NoError(t, a.Scan(nil))
	assert.Equal(t, StringArray{}, a)

	require.NoError(t, a.Scan("null"))
	assert.Equal(t, StringArray{}, a)

	// A JSON-quoted single string becomes a one-element array.
	require.NoError(t, a.Scan(`"history"`))
	assert.Equal(t, StringArray{"history"}, a)

	// A bare unquoted leftover is kept verbatim.
	require.NoError(t, a.Scan("plain-leftover"))
	assert.Equal(t, StringArray{"plain-leftover"}, a)
}

func TestStringArray_ScanRejectsUnknownType(t *testing.T) {
	var a StringArray
	assert.Error(t, a.Scan(42))
}

func TestStringArray_Contains(t *testing.T) {
	a := StringArray{"Mathematics", "Science"}
	assert.True(t, a.Contains("Science"))
	assert.False(t, a.Contains("Art"))
}

func TestIntArray_RoundTrip(t *testing.T) {
	v, err := IntArray{3, 14, 15}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[3,14,15]", v)

	var a IntArray
	require.NoError(t, a.Scan(v))
	assert.Equal(t, IntArray{3, 14, 15}, a)
}

func TestIntArray_ScanEmpty(t *testing.T) {
	var a IntArray
	require.NoError(t, a.Scan(nil))
	assert.Equal(t, IntArray{}, a)

	require.NoError(t, a.Scan(""))
	assert.Equal(t, IntArray{}, a)

	assert.Error(t, a.Scan("not-json"))
}

func TestBase_BeforeCreateAssignsUUID(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&OptionModel{}, &UserSession{}))

	s := UserSession{UserID: "u-1"}
	require.NoError(t, db.Create(&s).Error)
	assert.Len(t, s.ID, 36)
	assert.False(t, s.CreatedAt.IsZero())

	// A caller-provided id survives the hook.
	s2 := UserSession{Base: Base{ID: "fixed-id"}, UserID: "u-1"}
	require.NoError(t, db.Create(&s2).Error)
	assert.Equal(t, "fixed-id", s2.ID)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "users", UserModel{}.TableName())
	assert.Equal(t, "books", BookModel{}.TableName())
	assert.Equal(t, "reading_sessions", ReadingSessionModel{}.TableName())
	assert.Equal(t, "recommendations", RecommendationModel{}.TableName())
	assert.Equal(t, "user_sessions", UserSession{}.TableName())
	assert.Equal(t, "options", OptionModel{}.TableName())
}
