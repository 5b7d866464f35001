package reading

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidyaverse/core/internal/middleware"
	"github.com/vidyaverse/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/reading", authMW)
	g.POST("/session", h.startSession)
	g.PUT("/session/:id", h.updateSession)
	g.GET("/sessions", h.listSessions)
}

func (h *Handler) startSession(c *gin.Context) {
	bookID := strings.TrimSpace(c.Query("book_id"))
	if bookID == "" {
		response.BadRequest(c, "book_id is required")
		return
	}

	session, err := h.svc.StartSession(middleware.CurrentUserID(c), bookID)
	if err != nil {
		if errors.Is(err, errBookNotFound) {
			response.NotFoundMsg(c, "Book not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, session)
}

// updateSession takes the new session state as a JSON body; bare query
// parameters still work for older clients.
func (h *Handler) updateSession(c *gin.Context) {
	var dto UpdateSessionDTO
	if c.Request.ContentLength > 0 && strings.Contains(c.ContentType(), "json") {
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	} else if err := c.ShouldBindQuery(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	session, err := h.svc.UpdateSession(middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, errSessionNotFound) {
			response.NotFoundMsg(c, "Reading session not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, session)
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.svc.ListSessions(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, sessions)
}
