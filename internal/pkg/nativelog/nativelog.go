package nativelog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vidyaverse/core/internal/pkg/prettylog"
)

const (
	EnvLogDir          = "VIDYAVERSE_LOG_DIR"
	EnvLogRotateSizeMB = "VIDYAVERSE_LOG_ROTATE_SIZE_MB"
	EnvLogRotateKeep   = "VIDYAVERSE_LOG_ROTATE_KEEP"

	defaultSubBufSize    = 128
	defaultLogFilePerm   = 0o644
	defaultLogDirPerm    = 0o755
	defaultRotateSizeMB  = 50
	defaultRotateKeep    = 10
	rotatedSegmentFormat = "%s.%d.log"
)

var startupTime = time.Now()

// ResolveDir resolves native log directory path.
func ResolveDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvLogDir)); dir != "" {
		return dir
	}

	candidates := make([]string, 0, 4)
	if strings.EqualFold(strings.TrimSpace(os.Getenv("NODE_ENV")), "development") {
		candidates = append(candidates, filepath.Join(".", "tmp", "log"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		candidates = append(candidates, filepath.Join(home, ".vidyaverse", "log"))
	}
	candidates = append(candidates, filepath.Join(".", "logs"))
	candidates = append(candidates, filepath.Join(".", "tmp", "log"))

	for _, dir := range candidates {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return filepath.Join(".", "logs")
}

// TodayFilename returns daily native log filename.
func TodayFilename(now time.Time) string {
	return "stdout_" + now.Format("1-2-06") + ".log"
}

// TodayFilePath returns today's native log file path.
func TodayFilePath(now time.Time) string {
	return filepath.Join(ResolveDir(), TodayFilename(now))
}

// SnapshotFilesSinceStartup returns the native log files written since process
// startup, ordered oldest first. Today's rotated segments come before the
// live file so a reader sees frames in chronological order.
func SnapshotFilesSinceStartup(now time.Time) ([]string, error) {
	dir := ResolveDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "stdout_") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(startupTime) {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, name),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	paths := make([]string, 0, len(candidates))
	for _, c := range candidates {
		paths = append(paths, c.path)
	}
	return paths, nil
}

// Writer writes logs into the native daily log file and pushes realtime frames.
// Files rotate once they exceed the configured size and old segments beyond
// the keep count are pruned.
type Writer struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
	keep     int
}

// NewWriter creates a native log writer. Rotation limits come from the
// environment; zero or negative values disable the corresponding behavior.
func NewWriter() (*Writer, error) {
	dir := ResolveDir()
	if err := os.MkdirAll(dir, defaultLogDirPerm); err != nil {
		return nil, err
	}
	_ = os.Setenv(EnvLogDir, dir)

	sizeMB := envInt(EnvLogRotateSizeMB, defaultRotateSizeMB)
	keep := envInt(EnvLogRotateKeep, defaultRotateKeep)

	return &Writer{
		dir:      dir,
		maxBytes: int64(sizeMB) * 1024 * 1024,
		keep:     keep,
	}, nil
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var n int
	// Cluster workers are separate processes sharing the daily file, so
	// rotation and append run under a cross-process lock where needed.
	err := withProcessLogLock(func() error {
		path := filepath.Join(w.dir, TodayFilename(time.Now()))
		w.rotateIfNeeded(path, len(p))

		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, defaultLogFilePerm)
		if err != nil {
			return err
		}
		written, writeErr := file.Write(p)
		closeErr := file.Close()
		n = written
		if writeErr != nil {
			return writeErr
		}
		return closeErr
	})

	if n > 0 {
		Publish(string(p[:n]))
	}
	return n, err
}

func (w *Writer) Sync() error {
	return nil
}

// rotateIfNeeded renames the live file to a numbered segment when the next
// write would exceed the size limit, then prunes old segments. Caller holds
// the writer lock.
func (w *Writer) rotateIfNeeded(path string, incoming int) {
	if w.maxBytes <= 0 {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.Size()+int64(incoming) <= w.maxBytes {
		return
	}

	base := strings.TrimSuffix(filepath.Base(path), ".log")
	seq := 1
	for {
		segment := filepath.Join(w.dir, fmt.Sprintf(rotatedSegmentFormat, base, seq))
		if _, err := os.Stat(segment); os.IsNotExist(err) {
			_ = os.Rename(path, segment)
			break
		}
		seq++
		if seq > 10000 {
			return
		}
	}

	w.pruneSegments(base)
}

var segmentPattern = regexp.MustCompile(`\.(\d+)\.log$`)

func (w *Writer) pruneSegments(base string) {
	if w.keep <= 0 {
		return
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}

	type segment struct {
		name string
		seq  int
	}
	segments := make([]segment, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, base+".") {
			continue
		}
		m := segmentPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		segments = append(segments, segment{name: name, seq: seq})
	}
	if len(segments) <= w.keep {
		return
	}

	sort.Slice(segments, func(i, j int) bool { return segments[i].seq < segments[j].seq })
	for _, s := range segments[:len(segments)-w.keep] {
		_ = os.Remove(filepath.Join(w.dir, s.name))
	}
}

type streamHub struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[int]chan string
}

func newStreamHub() *streamHub {
	return &streamHub{
		subscribers: make(map[int]chan string),
	}
}

var globalStreamHub = newStreamHub()

// Subscribe subscribes realtime native log frames.
func Subscribe(buffer int) (int, <-chan string) {
	if buffer <= 0 {
		buffer = defaultSubBufSize
	}
	return globalStreamHub.subscribe(buffer)
}

// Unsubscribe unsubscribes realtime native log frames.
func Unsubscribe(id int) {
	globalStreamHub.unsubscribe(id)
}

// Publish pushes a native log frame to all current subscribers.
func Publish(message string) {
	if message == "" {
		return
	}
	globalStreamHub.publish(message)
}

func (h *streamHub) subscribe(buffer int) (int, <-chan string) {
	ch := make(chan string, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()

	return id, ch
}

func (h *streamHub) unsubscribe(id int) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	if ok {
		close(ch)
	}
}

func (h *streamHub) publish(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- message:
		default:
		}
	}
}

// NewZapLogger creates a zap logger that tees to stdout and the native daily
// log file. Stdout gets the pretty console encoder; the file keeps the plain
// layout so frames stream cleanly to gateway subscribers.
func NewZapLogger() (*zap.Logger, error) {
	writer, err := NewWriter()
	if err != nil {
		return nil, err
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	fileEncoder := zapcore.NewConsoleEncoder(encoderConfig)
	stdoutEncoder := prettylog.NewEncoder(prettylog.ShouldColor())
	core := zapcore.NewTee(
		zapcore.NewCore(stdoutEncoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(fileEncoder, zapcore.AddSync(writer), level),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	_ = zap.RedirectStdLog(logger)
	return logger, nil
}
