package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vidyaverse/core/internal/middleware"
	"github.com/vidyaverse/core/internal/modules/auth/user"
	"github.com/vidyaverse/core/internal/modules/gateway/gateway"
	"github.com/vidyaverse/core/internal/modules/library/book"
	"github.com/vidyaverse/core/internal/modules/library/lookup"
	"github.com/vidyaverse/core/internal/modules/library/reading"
	"github.com/vidyaverse/core/internal/modules/processing/ai"
	"github.com/vidyaverse/core/internal/modules/storage/backup"
	appconfigs "github.com/vidyaverse/core/internal/modules/system/core/configs"
	"github.com/vidyaverse/core/internal/modules/system/core/health"
	"github.com/vidyaverse/core/internal/modules/system/servertime"
	pkgredis "github.com/vidyaverse/core/internal/pkg/redis"
	"github.com/vidyaverse/core/internal/pkg/response"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "vidyaverse-core",
		"message":  "Vidyaverse API is running",
		"version":  "2.0.0",
		"homepage": "https://github.com/vidyaverse/core",
	}

	apiPrefix := "/api"

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw(), a.barkSvc))
	r.Use(middleware.Idempotence(rc.Raw()))

	// Root-level endpoints
	root := r.Group("")
	r.GET("/", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })

	// API under the original prefix
	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL:                    15 * time.Second,
		EnableCDNHeader:        true,
		EnableForceCacheHeader: false,
		Disable:                a.cfg.IsDev(),
		SkipPaths:              httpCacheSkipPaths(apiPrefix),
	}))

	// Liveness body at GET /api/ plus the authed cron/log operator surface.
	health.RegisterRoutes(api, db, rc, a.sched, authMW)

	// App info endpoints
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(a.cfgStartTime()).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})
	servertime.RegisterRoutes(api)

	cleanCache := func(c *gin.Context) {
		a.cfgSvc.Invalidate()
		deleted, err := middleware.PurgeHTTPCache(c.Request.Context(), rc.Raw())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":      0,
				"code":    http.StatusInternalServerError,
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
	}
	api.GET("/clean_cache", authMW, cleanCache)
	api.GET("/clean_catch", authMW, cleanCache) // legacy typo compatibility
	api.GET("/clean_redis", authMW, func(c *gin.Context) {
		rc.Raw().FlushDB(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Config
	appconfigs.NewHandler(a.cfgSvc).RegisterRoutes(api, authMW)

	// Static lookup tables
	lookup.NewHandler().RegisterRoutes(api)

	// Auth & users (flat under /api: register, login, profile, onboarding, sessions)
	user.NewHandler(user.NewService(db)).RegisterRoutes(api, authMW)

	// Domain services share one AI layer; realtime events ride the gateway.
	publish := func(event string, payload interface{}) {
		a.hub.BroadcastPublic(event, payload)
	}

	aiSvc := ai.NewService(db, a.cfgSvc, a.taskSvc, ai.WithLogger(a.logger))
	aiSvc.SetBroadcast(publish)

	bookSvc := book.NewService(db, a.cfgSvc, aiSvc, book.WithLogger(a.logger))
	bookSvc.SetBroadcast(publish)
	book.NewHandler(bookSvc, aiSvc, a.cfgSvc).RegisterRoutes(api, authMW)

	readingSvc := reading.NewService(db, reading.WithLogger(a.logger))
	readingSvc.SetBroadcast(func(event string, payload interface{}) {
		a.hub.BroadcastPublic(event, payload)
		m, ok := payload.(gin.H)
		if !ok {
			return
		}
		userID, _ := m["user_id"].(string)
		bookID, _ := m["book_id"].(string)
		if userID == "" || bookID == "" {
			return
		}
		progress, _ := m["progress"].(float64)
		a.hub.TouchReadingPresence(userID, bookID, progress)
	})
	reading.NewHandler(readingSvc).RegisterRoutes(api, authMW)

	ai.NewHandler(aiSvc).RegisterRoutes(api, authMW)

	// Backups
	backup.NewHandler(db, a.cfgSvc, rc,
		backup.WithLogger(a.logger),
		backup.WithTaskQueue(a.taskSvc),
	).RegisterRoutes(api, authMW)

	// WebSocket gateway
	gateway.RegisterRoutes(root, a.hub, authMW)
	api.GET("/gateway/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"public": a.hub.ClientCount(gateway.RoomPublic),
			"admin":  a.hub.ClientCount(gateway.RoomAdmin),
			"total":  a.hub.ClientCount(""),
		})
	})
}

func httpCacheSkipPaths(apiPrefix string) []string {
	p := strings.TrimSuffix(strings.TrimSpace(apiPrefix), "/")
	if p == "" {
		p = "/api"
	}
	return []string{
		p + "/uptime",
		p + "/ping",
		p + "/server-time",
		p + "/clean_cache",
		p + "/clean_catch",
		p + "/clean_redis",
		p + "/gateway/stats",
	}
}
