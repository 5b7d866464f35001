package book

import (
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidyaverse/core/internal/middleware"
	"github.com/vidyaverse/core/internal/models"
	"github.com/vidyaverse/core/internal/modules/processing/ai"
	"github.com/vidyaverse/core/internal/modules/processing/markdown"
	"github.com/vidyaverse/core/internal/modules/system/core/configs"
	"github.com/vidyaverse/core/internal/pkg/response"
)

type Handler struct {
	svc    *Service
	aiSvc  *ai.Service
	cfgSvc *configs.Service
}

func NewHandler(svc *Service, aiSvc *ai.Service, cfgSvc *configs.Service) *Handler {
	return &Handler{svc: svc, aiSvc: aiSvc, cfgSvc: cfgSvc}
}

// RegisterRoutes mounts the catalog under /books. Browsing and rendering are
// public; everything that writes or searches requires a logged-in student.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/books")
	g.GET("", h.listBooks)
	g.GET("/:id", h.getBook)
	g.GET("/:id/render", h.renderBook)
	g.POST("", authMW, h.createBook)
	g.POST("/upload", authMW, h.uploadBook)
	g.POST("/search", authMW, h.searchBooks)
	g.POST("/preview", authMW, h.previewBook)
}

func (h *Handler) createBook(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	book, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, book)
}

func (h *Handler) uploadBook(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	author := strings.TrimSpace(c.PostForm("author"))
	if title == "" || author == "" {
		response.BadRequest(c, "title and author are required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	if cfg, err := h.cfgSvc.Get(); err == nil {
		opts := cfg.UploadOptions
		if err := validateUploadFile(fileHeader.Filename, fileHeader.Size, opts.AllowedFormats, opts.MaxSizeMB); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	in := &UploadInput{
		Title:       title,
		Author:      author,
		GradeLevel:  optionalForm(c, "grade_level"),
		Subject:     optionalForm(c, "subject"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Payload:     payload,
	}

	book, err := h.svc.Upload(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		if errors.Is(err, errUnsupportedFile) {
			response.BadRequest(c, "Unsupported file type. Please upload PDF or text files.")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, book)
}

func (h *Handler) listBooks(c *gin.Context) {
	skip := intQuery(c, "skip", 0)
	limit := intQuery(c, "limit", defaultListLimit)

	books, err := h.svc.List(skip, limit, strings.TrimSpace(c.Query("grade")), strings.TrimSpace(c.Query("subject")))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, books)
}

func (h *Handler) getBook(c *gin.Context) {
	book, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, errBookNotFound) {
			response.NotFoundMsg(c, "Book not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, book)
}

// renderBook serves the standalone reader page for a book, markdown-rendered
// with the theme picked via ?theme=.
func (h *Handler) renderBook(c *gin.Context) {
	book, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, errBookNotFound) {
			response.NotFoundMsg(c, "Book not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	html := markdown.RenderMarkdownContent(book.Content)
	structure := markdown.BuildRenderedMarkdownHTMLStructure(html, book.Title, c.Query("theme"))
	doc := markdown.RenderMarkdownHTMLDocument(structure, markdown.RenderDocumentOptions{
		Title: book.Title,
		Info:  readingInfo(book),
	})

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, doc)
}

func (h *Handler) searchBooks(c *gin.Context) {
	var dto SearchDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.CurrentUserID(c)

	var results []models.BookModel
	if dto.IsSemantic() {
		results = h.aiSvc.SemanticSearch(dto.Query, userID)
	} else {
		var err error
		results, err = h.svc.KeywordSearch(dto.Query, userID)
		if err != nil {
			response.InternalError(c, err)
			return
		}
	}
	if results == nil {
		results = []models.BookModel{}
	}

	response.OK(c, gin.H{"results": results})
}

// previewBook renders arbitrary content the same way the reader does, so
// librarians can check formatting before creating a book.
func (h *Handler) previewBook(c *gin.Context) {
	var dto previewDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	html := markdown.RenderMarkdownContent(dto.Content)
	structure := markdown.BuildRenderedMarkdownHTMLStructure(html, dto.Title, c.Query("theme"))
	doc := markdown.RenderMarkdownHTMLDocument(structure, markdown.RenderDocumentOptions{Title: dto.Title})

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, doc)
}

func readingInfo(book *models.BookModel) string {
	parts := []string{template.HTMLEscapeString(book.Author)}
	if !isBlank(book.GradeLevel) {
		parts = append(parts, template.HTMLEscapeString(*book.GradeLevel)+" Grade")
	}
	if !isBlank(book.Subject) {
		parts = append(parts, template.HTMLEscapeString(*book.Subject))
	}
	return strings.Join(parts, " / ")
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func optionalForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
