package configs

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/vidyaverse/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/configs")

	g.GET("", h.getPublic)

	a := g.Group("", authMW)
	a.GET("/all", h.getAll)
	a.PATCH("", h.patch)

	// /options/:key - used by admin panel (e.g. PATCH /options/ai)
	opts := rg.Group("/options", authMW)
	opts.GET("", h.getOptionsAll)
	opts.GET("/:key", h.getOption)
	opts.PATCH("/:key", h.patchOption)
}

// getPublic returns the public-safe subset of the config: site identity, URLs,
// and which AI features the frontend should surface.
func (h *Handler) getPublic(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	aiAvailable := hasEnabledAIProvider(cfg.AI.Providers)
	response.OK(c, gin.H{
		"site": cfg.Site,
		"url":  cfg.URL,
		"features": gin.H{
			"analysis":        cfg.AI.EnableAnalysis && aiAvailable,
			"semantic_search": cfg.AI.EnableSemanticSearch && aiAvailable,
			"recommendations": cfg.AI.EnableRecommendations,
		},
	})
}

// getAll returns the full config (admin only). Sensitive fields like API keys are included.
func (h *Handler) getAll(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, cfg)
}

// patch merges a partial config update.
func (h *Handler) patch(c *gin.Context) {
	var partial map[string]json.RawMessage
	if err := c.ShouldBindJSON(&partial); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	updated, err := h.svc.Patch(partial)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, updated)
}

// getOption returns a specific top-level config key (e.g. GET /options/ai).
func (h *Handler) getOption(c *gin.Context) {
	key := normalizeOptionKey(c.Param("key"))
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	// Re-marshal and pick the key
	full, _ := json.Marshal(cfg)
	var m map[string]json.RawMessage
	json.Unmarshal(full, &m)
	if val, ok := m[key]; ok {
		var result interface{}
		json.Unmarshal(val, &result)
		response.OK(c, convertMapKeys(result, snakeToCamelKey))
		return
	}
	response.NotFound(c)
}

// patchOption merges an update into a specific top-level config key (e.g. PATCH /options/ai).
func (h *Handler) patchOption(c *gin.Context) {
	key := normalizeOptionKey(c.Param("key"))
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	normalizedBody, err := normalizeJSONKeys(body, camelToSnakeKey)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	updated, err := h.svc.Patch(map[string]json.RawMessage{key: normalizedBody})
	if err != nil {
		response.InternalError(c, err)
		return
	}

	full, _ := json.Marshal(updated)
	var m map[string]json.RawMessage
	json.Unmarshal(full, &m)
	if val, ok := m[key]; ok {
		var result interface{}
		json.Unmarshal(val, &result)
		response.OK(c, convertMapKeys(result, snakeToCamelKey))
		return
	}
	response.OK(c, convertMapKeys(updated, snakeToCamelKey))
}

func (h *Handler) getOptionsAll(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, convertMapKeys(cfg, snakeToCamelKey))
}
