package user

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vidyaverse/core/internal/middleware"
	"github.com/vidyaverse/core/internal/pkg/response"
	sessionpkg "github.com/vidyaverse/core/internal/pkg/session"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers account routes flat under the API root. Register,
// login, profile and onboarding keep the paths the MongoDB-era API used.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)

	a := rg.Group("", authMW)
	a.GET("/profile", h.getProfile)
	a.PATCH("/profile", h.updateProfile)
	a.POST("/onboarding", h.completeOnboarding)
	a.POST("/logout", h.logout)
	a.PATCH("/password", h.changePassword)
	a.GET("/sessions", h.listSessions)
	a.DELETE("/sessions", h.deleteAllSessions)
	a.DELETE("/sessions/all", h.deleteAllSessions)
	a.DELETE("/sessions/:sessionId", h.deleteSession)
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Register(&dto, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			response.BadRequest(c, "Email already registered")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, authResponse{
		Message: "Registration successful",
		Token:   token,
		User:    toResponse(u),
	})
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Email, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errInvalidCredential) {
			response.UnauthorizedMsg(c, "Invalid email or password")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, authResponse{
		Message: "Login successful",
		Token:   token,
		User:    toResponse(u),
	})
}

func (h *Handler) getProfile(c *gin.Context) {
	u, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) completeOnboarding(c *gin.Context) {
	var dto OnboardingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.CompleteOnboarding(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, errUserNotFound) {
			response.NotFoundMsg(c, "User not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{
		"message": "Onboarding completed successfully",
		"user":    toResponse(u),
	})
}

func (h *Handler) logout(c *gin.Context) {
	sessionID := middleware.CurrentSessionID(c)
	if sessionID != "" {
		_ = sessionpkg.Revoke(h.svc.db, middleware.CurrentUserID(c), sessionID)
	}
	response.NoContent(c)
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.ChangePassword(middleware.CurrentUserID(c), dto.OldPassword, dto.NewPassword); err != nil {
		if errors.Is(err, errWrongPassword) {
			response.BadRequest(c, "Current password is incorrect")
			return
		}
		if errors.Is(err, errPasswordSameAsOld) {
			response.UnprocessableEntity(c, "New password must differ from the old one")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	currentSessionID := middleware.CurrentSessionID(c)

	sessions, err := sessionpkg.ListActive(h.svc.db, userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	data := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		data = append(data, gin.H{
			"id":      s.ID,
			"ua":      s.UA,
			"ip":      s.IP,
			"date":    s.UpdatedAt,
			"current": s.ID == currentSessionID,
		})
	}
	if len(data) == 0 {
		// Legacy token without a session row; synthesize the current entry.
		data = append(data, gin.H{
			"id":      "legacy-current",
			"ua":      c.Request.UserAgent(),
			"ip":      c.ClientIP(),
			"date":    time.Now(),
			"current": true,
		})
	}

	response.OK(c, gin.H{"data": data})
}

func (h *Handler) deleteSession(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	sessionID := c.Param("sessionId")
	if err := sessionpkg.Revoke(h.svc.db, userID, sessionID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) deleteAllSessions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if err := sessionpkg.RevokeAllExcept(h.svc.db, userID, middleware.CurrentSessionID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
