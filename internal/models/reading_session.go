package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ReadingSessionModel tracks one user's progress through one book. There is at
// most one live session per (user, book) pair; creation is lookup-before-insert.
type ReadingSessionModel struct {
	Base
	UserID      string   `json:"user_id"      gorm:"index;not null"`
	BookID      string   `json:"book_id"      gorm:"index;not null"`
	Progress    float64  `json:"progress"`
	Notes       string   `json:"notes"        gorm:"type:text"`
	Bookmarks   IntArray `json:"bookmarks"    gorm:"type:json"`
	ReadingTime int      `json:"reading_time"`
}

func (ReadingSessionModel) TableName() string { return "reading_sessions" }

// IntArray stores int lists (bookmark page numbers) as JSON.
type IntArray []int

func (a IntArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *IntArray) Scan(value interface{}) error {
	if a == nil {
		return fmt.Errorf("models.IntArray: Scan on nil pointer")
	}
	if value == nil {
		*a = []int{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("models.IntArray: unsupported Scan type %T", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		*a = []int{}
		return nil
	}

	var arr []int
	if err := json.Unmarshal([]byte(raw), &arr); err != nil {
		return fmt.Errorf("models.IntArray: %w", err)
	}
	*a = arr
	return nil
}
