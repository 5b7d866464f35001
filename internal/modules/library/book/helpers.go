package book

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var strTokenPattern = regexp.MustCompile(`\{str-(\d+)\}`)

// renderUploadObjectKey expands the configured S3 key template with date,
// hash, and random tokens for a mirrored book file.
func renderUploadObjectKey(template, originalName string, payload []byte, now time.Time) string {
	tpl := strings.TrimSpace(template)
	if tpl == "" {
		tpl = "books/{Y}/{m}/{uuid}.{ext}"
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(originalName)), ".")
	if ext == "" {
		ext = "dat"
	}

	filename := strings.TrimSuffix(filepath.Base(strings.TrimSpace(originalName)), filepath.Ext(strings.TrimSpace(originalName)))
	filename = strings.TrimSpace(filename)
	if filename == "" || filename == "." {
		filename = "book"
	}

	sum := md5.Sum(payload)
	md5Hex := hex.EncodeToString(sum[:])
	uuidValue := strings.ReplaceAll(uuid.NewString(), "-", "")

	replacer := strings.NewReplacer(
		"{Y}", now.Format("2006"),
		"{y}", now.Format("06"),
		"{m}", now.Format("01"),
		"{d}", now.Format("02"),
		"{h}", now.Format("15"),
		"{i}", now.Format("04"),
		"{s}", now.Format("05"),
		"{timestamp}", strconv.FormatInt(now.Unix(), 10),
		"{uuid}", uuidValue,
		"{md5}", md5Hex,
		"{md5-16}", md5Hex[:16],
		"{filename}", filename,
		"{ext}", ext,
	)

	key := replacer.Replace(tpl)
	key = strTokenPattern.ReplaceAllStringFunc(key, func(token string) string {
		matches := strTokenPattern.FindStringSubmatch(token)
		if len(matches) != 2 {
			return token
		}
		n, err := strconv.Atoi(matches[1])
		if err != nil || n <= 0 {
			return token
		}
		if n > 128 {
			n = 128
		}
		return randomString(n)
	})

	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimSpace(strings.TrimPrefix(key, "/"))
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	if key == "" {
		return fmt.Sprintf("books/%s/%s/%s.%s", now.Format("2006"), now.Format("01"), uuidValue, ext)
	}
	return key
}

// validateUploadFile checks extension and size against the configured limits.
// Files without an extension pass here and get judged by content type instead.
func validateUploadFile(filename string, size int64, allowedFormats string, maxSizeMB int) error {
	if maxSizeMB > 0 && size > int64(maxSizeMB)*1024*1024 {
		return fmt.Errorf("file size exceeds %dMB", maxSizeMB)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(filename))), ".")
	if ext == "" {
		return nil
	}

	allowSet := make(map[string]struct{})
	for _, item := range strings.Split(allowedFormats, ",") {
		item = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(item)), ".")
		if item == "" {
			continue
		}
		allowSet[item] = struct{}{}
	}
	if len(allowSet) == 0 {
		return nil
	}
	if _, ok := allowSet[ext]; !ok {
		return fmt.Errorf("file format .%s is not allowed", ext)
	}
	return nil
}

// detectContentType sniffs the MIME type from the upload header, extension,
// or raw payload bytes, in that priority order.
func detectContentType(filename string, payload []byte, fallback string) string {
	contentType := strings.TrimSpace(fallback)
	if contentType != "" {
		return contentType
	}
	if ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename))); ext != "" {
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			return guessed
		}
	}
	if len(payload) > 0 {
		return http.DetectContentType(payload)
	}
	return "application/octet-stream"
}

// randomString generates a cryptographically random alphanumeric string of
// length n, falling back to UUID concatenation on rand.Read failure.
func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		fallback := strings.ReplaceAll(uuid.NewString(), "-", "")
		for len(fallback) < n {
			fallback += strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		return fallback[:n]
	}
	for i := range buf {
		buf[i] = letters[int(buf[i])%len(letters)]
	}
	return string(buf)
}

func isBlank(v *string) bool {
	return v == nil || *v == ""
}
