package user

import (
	"errors"
	"strings"
	"time"

	"github.com/vidyaverse/core/internal/models"
	sessionpkg "github.com/vidyaverse/core/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) GetByEmail(email string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "email = ?", normalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Register creates an account and immediately issues a session token, so a new
// student lands logged in.
func (s *Service) Register(dto *RegisterDTO, ip, ua string) (string, *models.UserModel, error) {
	email := normalizeEmail(dto.Email)

	var count int64
	s.db.Model(&models.UserModel{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return "", nil, errEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	u := models.UserModel{
		Email:          email,
		Name:           strings.TrimSpace(dto.Name),
		Password:       string(hash),
		Subjects:       models.StringArray{},
		Preferences:    map[string]interface{}{},
		ReadingHistory: models.StringArray{},
	}
	if err := s.db.Create(&u).Error; err != nil {
		return "", nil, err
	}

	token, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, sessionpkg.DefaultTTL)
	return token, &u, err
}

// Login verifies credentials and issues a session token. Unknown emails get a
// 3 second tarpit before the same error a wrong password gets, so responses
// don't leak which addresses have accounts.
func (s *Service) Login(email, password, ip, ua string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(3 * time.Second)
			return "", nil, errInvalidCredential
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, errInvalidCredential
	}

	token, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, sessionpkg.DefaultTTL)
	return token, &u, err
}

// CompleteOnboarding records the student's grade and subject picks and marks
// onboarding done.
func (s *Service) CompleteOnboarding(id string, dto *OnboardingDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errUserNotFound
	}

	subjects := models.StringArray(dto.Subjects)
	if subjects == nil {
		subjects = models.StringArray{}
	}
	updates := map[string]interface{}{
		"grade":                dto.Grade,
		"subjects":             subjects,
		"onboarding_completed": true,
	}
	if err := s.db.Model(u).Updates(updates).Error; err != nil {
		return nil, err
	}

	grade := dto.Grade
	u.Grade = &grade
	u.Subjects = subjects
	u.OnboardingCompleted = true
	return u, nil
}

func (s *Service) UpdateProfile(id string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return u, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
		u.Name = *dto.Name
	}
	if dto.Grade != nil {
		updates["grade"] = *dto.Grade
		u.Grade = dto.Grade
	}
	if dto.Subjects != nil {
		subjects := models.StringArray(*dto.Subjects)
		if subjects == nil {
			subjects = models.StringArray{}
		}
		updates["subjects"] = subjects
		u.Subjects = subjects
	}
	if dto.Preferences != nil {
		prefs := *dto.Preferences
		if prefs == nil {
			prefs = map[string]interface{}{}
		}
		updates["preferences"] = prefs
		u.Preferences = prefs
	}
	if len(updates) == 0 {
		return u, nil
	}
	return u, s.db.Model(u).Updates(updates).Error
}

func (s *Service) ChangePassword(id, oldPwd, newPwd string) error {
	var u models.UserModel
	if err := s.db.Select("id, password").First(&u, "id = ?", id).Error; err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPwd)); err != nil {
		return errWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(newPwd)); err == nil {
		return errPasswordSameAsOld
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.Model(&u).Update("password", string(hash)).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
