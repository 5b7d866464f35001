package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vidyaverse/core/internal/modules/system/core/configs"
	pkgredis "github.com/vidyaverse/core/internal/pkg/redis"
	"github.com/vidyaverse/core/internal/pkg/response"
	"github.com/vidyaverse/core/internal/pkg/taskqueue"
)

// TaskTypeBackup identifies manual backup tasks on the shared queue.
const TaskTypeBackup = "backup:create"

func NewHandler(db *gorm.DB, cfgSvc *configs.Service, rc *pkgredis.Client, opts ...HandlerOption) *Handler {
	h := &Handler{db: db, cfgSvc: cfgSvc, rc: rc, logger: zap.NewNop()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// HandlerOption configures a backup Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger for the backup handler.
func WithLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l.Named("BackupService")
		}
	}
}

// WithTaskQueue lets manual backup requests run through the shared task
// queue instead of blocking the request.
func WithTaskQueue(ts *taskqueue.Service) HandlerOption {
	return func(h *Handler) {
		h.taskSvc = ts
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	h.mount(rg.Group("/backup", authMW))
	// Older clients used the plural path.
	h.mount(rg.Group("/backups", authMW))
}

func (h *Handler) mount(g *gin.RouterGroup) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/new", h.createAndDownload)
	g.GET("/:filename", h.download)
	g.POST("/rollback", h.uploadAndRestore)
	g.POST("/upload-to-s3", h.uploadToS3)
	g.PATCH("/rollback/:filename", h.rollback)
	g.PATCH("/:filename", h.rollback)
	g.DELETE("", h.delete)
	g.DELETE("/:filename", h.deleteOne)
}

// GET /backup
func (h *Handler) list(c *gin.Context) {
	items := listBackups()
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// POST /backup
//
// Triggers a backup. With the task queue available it returns 202 and the
// task record; otherwise the backup runs inline and the response carries
// the finished artifact.
func (h *Handler) create(c *gin.Context) {
	if h.taskSvc != nil {
		task, err := h.taskSvc.Enqueue(c.Request.Context(), TaskTypeBackup, gin.H{"trigger": "manual"}, "", TaskTypeBackup)
		if err == nil {
			if task.Status == taskqueue.TaskPending {
				go h.executeBackupTask(context.Background(), task.ID)
			}
			c.JSON(http.StatusAccepted, gin.H{"data": task})
			return
		}
		h.logger.Warn("backup enqueue failed, running inline", zap.Error(err))
	}

	artifact, err := h.createLocalBackupArtifact(time.Now())
	if err != nil {
		h.logger.Warn("backup failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}
	h.logger.Info("backup written", zap.String("filename", artifact.Filename))
	response.OK(c, backupItem{
		Filename: artifact.Filename,
		Size:     formatSize(int64(artifact.Buffer.Len())),
	})
}

func (h *Handler) executeBackupTask(ctx context.Context, taskID string) {
	h.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")

	artifact, err := h.createLocalBackupArtifact(time.Now())
	if err != nil {
		h.logger.Warn("backup task failed", zap.Error(err))
		h.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	h.logger.Info("backup written", zap.String("filename", artifact.Filename))
	h.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, gin.H{
		"filename": artifact.Filename,
		"size":     formatSize(int64(artifact.Buffer.Len())),
	}, "")
}

// GET /backup/new
func (h *Handler) createAndDownload(c *gin.Context) {
	h.logger.Info("creating database backup")
	buf, err := h.createBackupZip()
	if err != nil {
		h.logger.Warn("backup failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}

	backupDir := resolveBackupDir()
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		response.InternalError(c, err)
		return
	}
	filename := fmt.Sprintf("backup-%s.zip", time.Now().Format("2006-01-02T15-04-05"))
	path := filepath.Join(backupDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		response.InternalError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
	h.logger.Info("backup written", zap.String("filename", filename))
}

// GET /backup/:filename
func (h *Handler) download(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	if !strings.HasSuffix(filename, ".zip") {
		response.BadRequest(c, "invalid filename")
		return
	}
	backupDir := resolveBackupDir()
	path := filepath.Join(backupDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFoundMsg(c, "backup file not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", data)
}

// POST /backup/rollback
func (h *Handler) uploadAndRestore(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		response.BadRequest(c, "invalid zip file")
		return
	}

	if err := RestoreFromZip(h.db, zr); err != nil {
		h.logger.Warn("restore failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}
	h.invalidateRuntimeCaches(c)
	h.logger.Info("restore completed from uploaded archive")
	response.OK(c, gin.H{"message": "restore successful"})
}

// PATCH /backup/rollback/:filename
func (h *Handler) rollback(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	backupDir := resolveBackupDir()
	path := filepath.Join(backupDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFoundMsg(c, "backup file not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		response.BadRequest(c, "invalid zip file")
		return
	}

	h.logger.Info("rolling back to backup", zap.String("filename", filename))
	if err := RestoreFromZip(h.db, zr); err != nil {
		h.logger.Warn("rollback failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}
	h.invalidateRuntimeCaches(c)
	h.logger.Info("rollback completed")
	response.OK(c, gin.H{"message": "rollback successful"})
}

// Restored rows invalidate everything derived from the old data, so drop the
// cached config and flush redis.
func (h *Handler) invalidateRuntimeCaches(c *gin.Context) {
	if h.cfgSvc != nil {
		h.cfgSvc.Invalidate()
	}
	_ = h.rc.Raw().FlushDB(c.Request.Context())
}

// DELETE /backup
func (h *Handler) delete(c *gin.Context) {
	files := strings.TrimSpace(c.Query("files"))

	var body struct {
		Files string `json:"files"`
	}
	if files == "" {
		_ = c.ShouldBindJSON(&body)
		files = strings.TrimSpace(body.Files)
	}
	if files == "" {
		response.BadRequest(c, "missing files")
		return
	}

	backupDir := resolveBackupDir()
	filenames := strings.Split(files, ",")
	for _, name := range filenames {
		name = strings.TrimSpace(filepath.Base(name))
		if name == "" || !strings.HasSuffix(name, ".zip") {
			continue
		}
		os.Remove(filepath.Join(backupDir, name))
	}
	response.NoContent(c)
}

func (h *Handler) deleteOne(c *gin.Context) {
	filename := strings.TrimSpace(filepath.Base(c.Param("filename")))
	if filename == "" || !strings.HasSuffix(filename, ".zip") {
		response.BadRequest(c, "invalid filename")
		return
	}
	backupDir := resolveBackupDir()
	_ = os.Remove(filepath.Join(backupDir, filename))
	response.NoContent(c)
}

// POST /backup/upload-to-s3
func (h *Handler) uploadToS3(c *gin.Context) {
	if h.cfgSvc == nil {
		response.InternalError(c, fmt.Errorf("config service is unavailable"))
		return
	}

	cfg, err := h.cfgSvc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if cfg == nil {
		response.InternalError(c, fmt.Errorf("configs not initialized"))
		return
	}
	if !cfg.BackupOptions.Enable {
		// Backup disabled means no-op.
		response.NoContent(c)
		return
	}

	uploader, err := NewS3Uploader(cfg.S3Options)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	now := time.Now()
	artifact, err := h.createLocalBackupArtifact(now)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	key := renderBackupObjectKey(cfg.BackupOptions.Path, artifact.Filename, now)
	h.logger.Info("uploading backup to s3", zap.String("key", key))
	if _, err := uploader.Upload(c.Request.Context(), key, artifact.Buffer.Bytes(), "application/zip"); err != nil {
		h.logger.Warn("s3 upload failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}

	h.logger.Info("s3 upload finished")
	response.NoContent(c)
}
