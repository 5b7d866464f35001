package backup

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", formatSize(0))
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.00 KB", formatSize(1<<10))
	assert.Equal(t, "1.50 KB", formatSize(1536))
	assert.Equal(t, "1.00 MB", formatSize(1<<20))
	assert.Equal(t, "5.25 MB", formatSize(5*(1<<20)+(1<<18)))
}

func TestRenderBackupObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	assert.Equal(t, "backups/2026/03/weekly.zip",
		renderBackupObjectKey("", "weekly.zip", now))
	assert.Equal(t, "backups/2026/03/weekly.zip",
		renderBackupObjectKey("   ", "weekly.zip", now))

	assert.Equal(t, "2026/03/14/092653/dump.zip",
		renderBackupObjectKey("{Y}/{m}/{d}/{H}{M}{s}/{filename}", "dump.zip", now))

	// The {h}/{i} token style renders identically to {H}/{M}.
	assert.Equal(t, "092653",
		renderBackupObjectKey("{h}{i}{s}", "x", now))

	assert.Equal(t, "archive/dump.zip",
		renderBackupObjectKey(`\archive\{filename}`, "dump.zip", now))
	assert.Equal(t, "a/dump.zip",
		renderBackupObjectKey("//a//{filename}", "dump.zip", now))

	// A template that renders to nothing falls back to the bare filename.
	assert.Equal(t, "dump.zip", renderBackupObjectKey("/", "dump.zip", now))
}

func TestCamelToSnake(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"CreatedAt":     "created_at",
		"userID":        "user_id",
		"ID":            "id",
		"HTTPServer":    "http_server",
		"Grade5Level":   "grade5_level",
		"already_snake": "already_snake",
		"kebab-case":    "kebab_case",
		"With Space":    "with_space",
		"__Wrapped__":   "wrapped",
	}
	for input, want := range cases {
		assert.Equal(t, want, camelToSnake(input), "input %q", input)
	}
}

func TestUnixNumberToTime(t *testing.T) {
	parsed, ok := unixNumberToTime(1708300800123)
	require.True(t, ok)
	assert.Equal(t, int64(1708300800123), parsed.UnixMilli())

	parsed, ok = unixNumberToTime(1708300800)
	require.True(t, ok)
	assert.Equal(t, int64(1708300800), parsed.Unix())

	_, ok = unixNumberToTime(12345)
	assert.False(t, ok)
	_, ok = unixNumberToTime(math.NaN())
	assert.False(t, ok)
	_, ok = unixNumberToTime(math.Inf(1))
	assert.False(t, ok)
}

func TestParseTimeString(t *testing.T) {
	parsed, ok := parseTimeString("2026-03-14T09:26:53Z")
	require.True(t, ok)
	assert.Equal(t, 2026, parsed.Year())
	assert.Equal(t, time.March, parsed.Month())

	_, ok = parseTimeString("2026-03-14T09:26:53.123456789Z")
	assert.True(t, ok)
	_, ok = parseTimeString("2026-03-14 09:26:53")
	assert.True(t, ok)
	_, ok = parseTimeString("2026-03-14")
	assert.True(t, ok)

	_, ok = parseTimeString("14/03/2026")
	assert.False(t, ok)
	_, ok = parseTimeString("")
	assert.False(t, ok)
}

func TestColumnTypeClassifiers(t *testing.T) {
	assert.True(t, isJSONLikeType("json"))
	assert.True(t, isJSONLikeType(" JSON "))
	assert.False(t, isJSONLikeType("longtext"))

	assert.True(t, isTextLikeType("VARCHAR(255)"))
	assert.True(t, isTextLikeType("longtext"))
	assert.True(t, isTextLikeType("enum('a','b')"))
	assert.False(t, isTextLikeType("INT"))

	assert.True(t, isTimeLikeType("datetime(3)"))
	assert.True(t, isTimeLikeType("DATE"))
	assert.True(t, isTimeLikeType("year"))
	assert.False(t, isTimeLikeType("bigint"))
}

func TestIsDuplicateConstraintError(t *testing.T) {
	assert.False(t, isDuplicateConstraintError(nil))

	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry 'a' for key 'PRIMARY'"}
	assert.True(t, isDuplicateConstraintError(dup))
	assert.True(t, isDuplicateConstraintError(fmt.Errorf("insert row: %w", dup)))

	assert.True(t, isDuplicateConstraintError(errors.New("UNIQUE constraint failed: books.id")))
	assert.True(t, isDuplicateConstraintError(errors.New("pq: duplicate key value violates unique constraint")))
	assert.False(t, isDuplicateConstraintError(errors.New("connection refused")))
	assert.False(t, isDuplicateConstraintError(&mysqlDriver.MySQLError{Number: 1045, Message: "access denied"}))
}

func TestNormalizeBSONValue(t *testing.T) {
	assert.Nil(t, normalizeBSONValue(nil))
	assert.Nil(t, normalizeBSONValue(primitive.Null{}))
	assert.Nil(t, normalizeBSONValue(primitive.Undefined{}))

	oid := primitive.NewObjectID()
	assert.Equal(t, oid.Hex(), normalizeBSONValue(oid))

	at := time.UnixMilli(1708300800123)
	normalized := normalizeBSONValue(primitive.NewDateTimeFromTime(at))
	got, ok := normalized.(time.Time)
	require.True(t, ok)
	assert.Equal(t, at.UnixMilli(), got.UnixMilli())

	assert.Equal(t, "blob", normalizeBSONValue([]byte("blob")))
	assert.Equal(t, "raw", normalizeBSONValue(primitive.Binary{Data: []byte("raw")}))

	doc := primitive.D{
		{Key: "id", Value: oid},
		{Key: "tags", Value: primitive.A{"a", primitive.Null{}}},
		{Key: "meta", Value: primitive.M{"depth": "deep"}},
	}
	flat := normalizeBSONValue(doc)
	asMap, ok := flat.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, oid.Hex(), asMap["id"])
	assert.Equal(t, []interface{}{"a", nil}, asMap["tags"])
	assert.Equal(t, map[string]interface{}{"depth": "deep"}, asMap["meta"])

	// Unknown scalars pass through untouched.
	assert.Equal(t, int64(7), normalizeBSONValue(int64(7)))
}

func TestBSONRowStreamRoundTrip(t *testing.T) {
	rows := []map[string]interface{}{
		{
			"title":    "Glacier Geography",
			"progress": 42,
			"payload":  []byte("binary source"),
			"insights": map[string]interface{}{"summary": "short"},
		},
		{"title": "Second Row"},
	}

	encoded, err := encodeBSONRows(rows)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := decodeBSONRows(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	first, ok := normalizeBSONValue(decoded[0]).(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Glacier Geography", first["title"])
	assert.EqualValues(t, 42, first["progress"])
	assert.Equal(t, "binary source", first["payload"])
	assert.Equal(t, map[string]interface{}{"summary": "short"}, first["insights"])

	second, ok := normalizeBSONValue(decoded[1]).(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Second Row", second["title"])
}

func TestEncodeBSONRowsEmpty(t *testing.T) {
	encoded, err := encodeBSONRows(nil)
	require.NoError(t, err)
	assert.Empty(t, encoded)

	decoded, err := decodeBSONRows(nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeBSONRowsRejectsCorruptStream(t *testing.T) {
	_, err := decodeBSONRows([]byte{0x01, 0x02})
	require.Error(t, err)

	// Length header claims more bytes than the stream holds.
	_, err = decodeBSONRows([]byte{0x40, 0x00, 0x00, 0x00})
	require.Error(t, err)

	_, err = decodeBSONRows([]byte{0x00, 0x00, 0x00, 0x00})
	require.Error(t, err)
}
