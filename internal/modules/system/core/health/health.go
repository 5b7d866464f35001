// Package health serves the public liveness endpoint and the operator
// surface for cron jobs and server logs.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vidyaverse/core/internal/pkg/cron"
	"github.com/vidyaverse/core/internal/pkg/nativelog"
	pkgredis "github.com/vidyaverse/core/internal/pkg/redis"
	"github.com/vidyaverse/core/internal/pkg/response"
)

// apiVersion is the wire version reported by GET /api/, carried over from the
// MongoDB-era deployment so existing clients keep parsing it.
const apiVersion = "2.0.0"

var startedAt = time.Now()

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Index    int    `json:"index"`
	Created  int64  `json:"created"`
}

func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, rdb *pkgredis.Client, sched *cron.Scheduler, authMW gin.HandlerFunc) {
	rg.GET("/", func(c *gin.Context) {
		dbOK := pingDB(db)
		redisOK := pingRedis(c.Request.Context(), rdb)

		status := "ok"
		code := http.StatusOK
		if !dbOK {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"message":  "Vidyaverse API is running",
			"version":  apiVersion,
			"status":   status,
			"database": dbOK,
			"redis":    redisOK,
			"uptime":   int64(time.Since(startedAt).Seconds()),
		})
	})

	adminHealth := rg.Group("/health", authMW)
	cronGroup := adminHealth.Group("/cron")
	{
		cronGroup.GET("", func(c *gin.Context) {
			items := sched.List()
			byName := make(map[string]cron.ListItem, len(items))
			for _, item := range items {
				byName[item.Name] = item
			}
			response.OK(c, byName)
		})

		cronGroup.POST("/run/:name", func(c *gin.Context) {
			if err := sched.Run(c.Request.Context(), c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, gin.H{"message": "job triggered"})
		})

		cronGroup.GET("/task/:name", func(c *gin.Context) {
			result, err := sched.GetTask(c.Param("name"))
			if err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, result)
		})
	}

	logGroup := adminHealth.Group("/log")
	{
		logGroup.GET("/list", func(c *gin.Context) {
			logDir := nativelog.ResolveDir()

			entries, err := os.ReadDir(logDir)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					response.OK(c, []logItem{})
					return
				}
				response.BadRequest(c, "log dir not exists")
				return
			}

			items := make([]logItem, 0, len(entries))
			index := 0
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				info, err := entry.Info()
				if err != nil {
					continue
				}

				items = append(items, logItem{
					Size:     formatByteSize(info.Size()),
					Filename: entry.Name(),
					Type:     "log",
					Index:    index,
					Created:  info.ModTime().UnixMilli(),
				})
				index++
			}

			sort.Slice(items, func(i, j int) bool {
				return items[i].Created > items[j].Created
			})
			response.OK(c, items)
		})

		logGroup.GET("", func(c *gin.Context) {
			filename := safeLogFilename(c.Query("filename"))
			if filename == "" {
				response.UnprocessableEntity(c, "filename must be string")
				return
			}

			data, err := os.ReadFile(filepath.Join(nativelog.ResolveDir(), filename))
			if err != nil {
				response.BadRequest(c, "log file not exists")
				return
			}
			c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
		})

		logGroup.DELETE("", func(c *gin.Context) {
			filename := safeLogFilename(c.Query("filename"))
			if filename == "" {
				response.UnprocessableEntity(c, "filename must be string")
				return
			}

			logDir := nativelog.ResolveDir()
			targetPath := filepath.Join(logDir, filename)
			todayPath := filepath.Join(logDir, nativelog.TodayFilename(time.Now()))

			// Today's file and the error log stay open in the writer, so they
			// get truncated instead of removed.
			if strings.HasSuffix(strings.ToLower(targetPath), "error.log") || filepath.Clean(targetPath) == filepath.Clean(todayPath) {
				if err := os.WriteFile(targetPath, []byte(""), 0o644); err != nil && !errors.Is(err, os.ErrNotExist) {
					response.InternalError(c, err)
					return
				}
			} else if err := os.Remove(targetPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				response.InternalError(c, err)
				return
			}

			response.NoContent(c)
		})
	}
}

func pingDB(db *gorm.DB) bool {
	if db == nil {
		return false
	}
	sqlDB, err := db.DB()
	return err == nil && sqlDB.Ping() == nil
}

func pingRedis(ctx context.Context, rdb *pkgredis.Client) bool {
	if rdb == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rdb.Raw().Ping(ctx).Err() == nil
}

func safeLogFilename(raw string) string {
	name := filepath.Base(strings.TrimSpace(raw))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
