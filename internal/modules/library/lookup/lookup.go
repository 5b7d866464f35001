// Package lookup serves the static grade and subject tables the onboarding
// and upload forms are built from.
package lookup

import (
	"github.com/gin-gonic/gin"
	"github.com/vidyaverse/core/internal/pkg/response"
)

// Option is one selectable entry in a lookup table.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var grades = []Option{
	{Value: "1st", Label: "1st Grade"},
	{Value: "2nd", Label: "2nd Grade"},
	{Value: "3rd", Label: "3rd Grade"},
	{Value: "4th", Label: "4th Grade"},
	{Value: "5th", Label: "5th Grade"},
	{Value: "6th", Label: "6th Grade"},
	{Value: "7th", Label: "7th Grade"},
	{Value: "8th", Label: "8th Grade"},
	{Value: "9th", Label: "9th Grade"},
	{Value: "10th", Label: "10th Grade"},
}

var subjects = []Option{
	{Value: "Mathematics", Label: "Mathematics"},
	{Value: "Science", Label: "Science"},
	{Value: "English", Label: "English Language Arts"},
	{Value: "Social Studies", Label: "Social Studies"},
	{Value: "History", Label: "History"},
	{Value: "Geography", Label: "Geography"},
	{Value: "Physics", Label: "Physics"},
	{Value: "Chemistry", Label: "Chemistry"},
	{Value: "Biology", Label: "Biology"},
	{Value: "Computer Science", Label: "Computer Science"},
	{Value: "Art", Label: "Art & Creativity"},
	{Value: "Music", Label: "Music"},
	{Value: "Physical Education", Label: "Physical Education"},
	{Value: "Health", Label: "Health & Wellness"},
	{Value: "Foreign Language", Label: "Foreign Language"},
}

// Grades returns the supported grade levels in display order.
func Grades() []Option {
	out := make([]Option, len(grades))
	copy(out, grades)
	return out
}

// Subjects returns the supported subjects in display order.
func Subjects() []Option {
	out := make([]Option, len(subjects))
	copy(out, subjects)
	return out
}

// IsKnownGrade reports whether value matches a supported grade level.
func IsKnownGrade(value string) bool {
	for _, g := range grades {
		if g.Value == value {
			return true
		}
	}
	return false
}

// IsKnownSubject reports whether value matches a supported subject.
func IsKnownSubject(value string) bool {
	for _, s := range subjects {
		if s.Value == value {
			return true
		}
	}
	return false
}

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/grades", h.getGrades)
	rg.GET("/subjects", h.getSubjects)
}

func (h *Handler) getGrades(c *gin.Context) {
	response.OK(c, gin.H{"grades": Grades()})
}

func (h *Handler) getSubjects(c *gin.Context) {
	response.OK(c, gin.H{"subjects": Subjects()})
}
