package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vidyaverse/core/internal/models"
	"github.com/vidyaverse/core/internal/modules/storage/backup"
	appconfigs "github.com/vidyaverse/core/internal/modules/system/core/configs"
	"github.com/vidyaverse/core/internal/pkg/bark"
	pkgcron "github.com/vidyaverse/core/internal/pkg/cron"
	"github.com/vidyaverse/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, cfgSvc *appconfigs.Service, barkSvc *bark.Service, taskSvc *taskqueue.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "cleanup_sessions",
		Description: "Remove token sessions expired or revoked over 7 days ago",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -7)
			result := db.Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff).
				Delete(&models.UserSession{})
			if result.Error != nil {
				cronLogger.Warn("session cleanup failed", zap.Error(result.Error))
				return result.Error
			}
			cronLogger.Info(fmt.Sprintf("session cleanup done, %d rows removed", result.RowsAffected))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_tasks",
		Description: "Purge finished queue tasks older than 7 days",
		Interval:    12 * time.Hour,
		Fn: func(ctx context.Context) error {
			if taskSvc == nil {
				return nil
			}
			before := time.Now().AddDate(0, 0, -7).UnixMilli()
			if err := taskSvc.DeleteCompleted(ctx, before); err != nil {
				cronLogger.Warn("task cleanup failed", zap.Error(err))
				return err
			}
			cronLogger.Info("task cleanup done")
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "auto_backup",
		Description: "Back up the library database to local storage",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cfg, err := cfgSvc.Get()
			if err != nil {
				return err
			}
			if !cfg.BackupOptions.Enable {
				return nil
			}
			cronLogger.Info("backing up database...")
			if err := backup.CreateLocalBackup(db); err != nil {
				cronLogger.Warn("backup failed", zap.Error(err))
				if barkSvc != nil {
					_ = barkSvc.Push("Auto backup failed", err.Error())
				}
				return err
			}
			cronLogger.Info("backup done")
			return nil
		},
	})
}
