package user

import "github.com/vidyaverse/core/internal/models"

func toResponse(u *models.UserModel) *userResponse {
	subjects := []string(u.Subjects)
	if subjects == nil {
		subjects = []string{}
	}
	history := []string(u.ReadingHistory)
	if history == nil {
		history = []string{}
	}
	prefs := u.Preferences
	if prefs == nil {
		prefs = map[string]interface{}{}
	}
	return &userResponse{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		Grade:               u.Grade,
		Subjects:            subjects,
		Preferences:         prefs,
		ReadingHistory:      history,
		OnboardingCompleted: u.OnboardingCompleted,
	}
}
