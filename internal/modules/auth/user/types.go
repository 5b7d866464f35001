package user

import "errors"

type RegisterDTO struct {
	Email    string `json:"email"    binding:"required,email"`
	Name     string `json:"name"     binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginDTO struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type OnboardingDTO struct {
	Grade    string   `json:"grade"    binding:"required"`
	Subjects []string `json:"subjects" binding:"required"`
}

type UpdateProfileDTO struct {
	Name        *string                 `json:"name"`
	Grade       *string                 `json:"grade"`
	Subjects    *[]string               `json:"subjects"`
	Preferences *map[string]interface{} `json:"preferences"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// userResponse is the wire shape the MongoDB-era API exposed for a user.
// Password hash and timestamps stay out of it.
type userResponse struct {
	ID                  string                 `json:"id"`
	Email               string                 `json:"email"`
	Name                string                 `json:"name"`
	Grade               *string                `json:"grade"`
	Subjects            []string               `json:"subjects"`
	Preferences         map[string]interface{} `json:"preferences"`
	ReadingHistory      []string               `json:"reading_history"`
	OnboardingCompleted bool                   `json:"onboarding_completed"`
}

type authResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    *userResponse `json:"user"`
}

var (
	errEmailTaken        = errors.New("email already registered")
	errInvalidCredential = errors.New("invalid email or password")
	errUserNotFound      = errors.New("user not found")
	errWrongPassword     = errors.New("wrong password")
	errPasswordSameAsOld = errors.New("password same as old")
)
