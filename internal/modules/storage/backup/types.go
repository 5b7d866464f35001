package backup

import (
	"archive/zip"
	"bytes"
	"time"

	"github.com/vidyaverse/core/internal/modules/system/core/configs"
	pkgredis "github.com/vidyaverse/core/internal/pkg/redis"
	"github.com/vidyaverse/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const backupRootDir = "vidyaverse"
const backupDBDir = backupRootDir + "/db"
const backupManifestFile = backupRootDir + "/manifest.json"
const backupFormat = "vidyaverse-core-bson"
const backupFormatVersion = 1
const defaultS3PathTemplate = "backups/{Y}/{m}/{filename}"
const EnvBackupDir = "VIDYAVERSE_BACKUP_DIR"

// backupTableNames lists every table a backup covers. Restore inserts in this
// order, referenced tables before referencing ones.
var backupTableNames = []string{
	"users",
	"user_sessions",
	"books",
	"reading_sessions",
	"recommendations",
	"options",
}

var backupTableNameSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(backupTableNames))
	for _, table := range backupTableNames {
		set[table] = struct{}{}
	}
	return set
}()

// restoreColumnAliases maps field names found in MongoDB-era dumps onto
// current column names. That deployment already wrote snake_case fields, so
// the list is short.
var restoreColumnAliases = map[string]string{
	"_id": "id",
}

var restoreColumnAliasesByTable = map[string]map[string]string{
	"users": {
		"password_hash": "password",
	},
}

// legacyOptionKeyAliases maps per-section option rows, as older builds stored
// them, onto section keys of the consolidated configs row.
var legacyOptionKeyAliases = map[string]string{
	"site":          "site",
	"url":           "url",
	"backupoptions": "backup_options",
	"s3options":     "s3_options",
	"uploadoptions": "upload_options",
	"barkoptions":   "bark_options",
	"ai":            "ai",
}

// Handler is the HTTP handler for backup operations.
type Handler struct {
	db      *gorm.DB
	cfgSvc  *configs.Service
	rc      *pkgredis.Client
	taskSvc *taskqueue.Service
	logger  *zap.Logger
}

type backupManifest struct {
	Format    string    `json:"format"`
	Version   int       `json:"version"`
	Engine    string    `json:"engine"`
	CreatedAt time.Time `json:"created_at"`
	Tables    []string  `json:"tables"`
}

type backupEntryCandidate struct {
	File   *zip.File
	Format string
}

type tableColumn struct {
	DBType string
}

type backupItem struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
}

type backupArtifact struct {
	Filename string
	Path     string
	Buffer   *bytes.Buffer
}
