package reading

import "errors"

// UpdateSessionDTO carries the full new state of a session. Fields the client
// leaves out reset to their zero values; updates are full-replace, not merge.
type UpdateSessionDTO struct {
	Progress    float64 `json:"progress"     form:"progress"`
	Notes       string  `json:"notes"        form:"notes"`
	Bookmarks   []int   `json:"bookmarks"    form:"bookmarks"`
	ReadingTime int     `json:"reading_time" form:"reading_time"`
}

var (
	errBookNotFound    = errors.New("book not found")
	errSessionNotFound = errors.New("reading session not found")
)
