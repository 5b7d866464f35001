package ai

import (
	"errors"

	"github.com/gin-gonic/gin"
	appcfg "github.com/vidyaverse/core/internal/config"
	"github.com/vidyaverse/core/internal/middleware"
	"github.com/vidyaverse/core/internal/models"
	"github.com/vidyaverse/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/ai")

	g.POST("/analyze/:book_id", authMW, h.analyzeBook)
	g.GET("/recommendations", authMW, h.getRecommendations)

	modelsRoute := g.Group("/models", authMW)
	modelsRoute.GET("", h.getAvailableModels)
	modelsRoute.GET("/:providerId", h.getModelsForProvider)
	modelsRoute.POST("/list", h.fetchModelsList)
	g.POST("/test", authMW, h.testProviderConnection)

	analyses := g.Group("/analyses", authMW)
	analyses.POST("/task", h.createAnalysisTask)
	analyses.GET("/task", h.getAnalysisTask)

	tasks := g.Group("/tasks", authMW)
	tasks.GET("", h.listTasks)
	tasks.GET("/group/:groupKey", h.getTasksByGroup)
	tasks.GET("/:id", h.getTask)
	tasks.DELETE("/group/:groupKey", h.cancelTasksByGroup)
	tasks.DELETE("/:id", h.deleteTask)
	tasks.DELETE("", h.batchDeleteTasks)
	tasks.POST("/:id/cancel", h.cancelTask)
	tasks.POST("/:id/retry", h.retryTask)
}

// POST /ai/analyze/:book_id  [auth]
func (h *Handler) analyzeBook(c *gin.Context) {
	var book models.BookModel
	if err := h.svc.db.First(&book, "id = ?", c.Param("book_id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "Book not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	insights, err := h.svc.AnalyzeBook(&book)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"insights": insights})
}

// GET /ai/recommendations  [auth]
func (h *Handler) getRecommendations(c *gin.Context) {
	books, reasoning, err := h.svc.RecommendForUser(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"books": books, "reasoning": reasoning})
}

// GET /ai/models  [auth]
func (h *Handler) getAvailableModels(c *gin.Context) {
	cfg, err := h.svc.cfgSvc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]providerModelsResponse, 0, len(cfg.AI.Providers))
	for _, p := range cfg.AI.Providers {
		if !p.Enabled || p.APIKey == "" {
			continue
		}
		out = append(out, providerModelsResponse{
			ProviderID:   p.ID,
			ProviderName: p.Name,
			ProviderType: p.Type,
			Models:       modelsFromProvider(p),
		})
	}
	response.OK(c, out)
}

// GET /ai/models/:providerId  [auth]
func (h *Handler) getModelsForProvider(c *gin.Context) {
	providerID := c.Param("providerId")
	cfg, err := h.svc.cfgSvc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	for _, p := range cfg.AI.Providers {
		if p.ID == providerID {
			response.OK(c, providerModelsResponse{
				ProviderID:   p.ID,
				ProviderName: p.Name,
				ProviderType: p.Type,
				Models:       modelsFromProvider(p),
			})
			return
		}
	}
	response.NotFoundMsg(c, "AI provider not found")
}

// POST /ai/models/list  [auth]
func (h *Handler) fetchModelsList(c *gin.Context) {
	var dto fetchModelsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Prefer explicit request payload; fallback to stored provider.
	provider := appcfg.AIProvider{
		ID:           dto.ProviderID,
		Name:         dto.ProviderID,
		Type:         dto.Type,
		APIKey:       dto.APIKey,
		Endpoint:     dto.Endpoint,
		DefaultModel: "",
		Enabled:      true,
	}

	if dto.ProviderID != "" {
		if cfg, err := h.svc.cfgSvc.Get(); err == nil {
			for _, p := range cfg.AI.Providers {
				if p.ID == dto.ProviderID {
					if provider.Type == "" {
						provider.Type = p.Type
					}
					if provider.APIKey == "" {
						provider.APIKey = p.APIKey
					}
					if provider.Endpoint == "" {
						provider.Endpoint = p.Endpoint
					}
					if provider.DefaultModel == "" {
						provider.DefaultModel = p.DefaultModel
					}
					if provider.Name == "" {
						provider.Name = p.Name
					}
					break
				}
			}
		}
	}

	if provider.Type == "" || provider.APIKey == "" {
		response.OK(c, gin.H{
			"models": []modelInfo{},
			"error":  "Provider type and api key are required",
		})
		return
	}

	fetchedModels, err := fetchModelsFromProvider(provider)
	if err != nil {
		fallback := modelsFromProvider(provider)
		response.OK(c, gin.H{
			"models": fallback,
			"error":  err.Error(),
		})
		return
	}
	if len(fetchedModels) == 0 {
		fetchedModels = modelsFromProvider(provider)
	}

	response.OK(c, gin.H{
		"models": fetchedModels,
	})
}

// POST /ai/test  [auth]
func (h *Handler) testProviderConnection(c *gin.Context) {
	var dto testConnectionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.ProviderID != "" && (dto.Type == "" || dto.APIKey == "" || dto.Model == "") {
		if cfg, err := h.svc.cfgSvc.Get(); err == nil {
			for _, p := range cfg.AI.Providers {
				if p.ID == dto.ProviderID {
					if dto.Type == "" {
						dto.Type = p.Type
					}
					if dto.APIKey == "" {
						dto.APIKey = p.APIKey
					}
					if dto.Model == "" {
						dto.Model = p.DefaultModel
					}
					if dto.Endpoint == "" {
						dto.Endpoint = p.Endpoint
					}
					break
				}
			}
		}
	}
	if dto.Type == "" || dto.APIKey == "" || dto.Model == "" {
		response.BadRequest(c, "type, apiKey and model are required")
		return
	}

	provider := appcfg.AIProvider{
		Type:         dto.Type,
		APIKey:       dto.APIKey,
		Endpoint:     dto.Endpoint,
		DefaultModel: dto.Model,
		Enabled:      true,
	}

	if _, err := callAIWithSystemPrompt(&provider, "", "Say OK", 16); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}
