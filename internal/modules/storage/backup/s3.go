package backup

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appcfg "github.com/vidyaverse/core/internal/config"
)

// S3Uploader pushes a payload to object storage and returns a public URL for it.
// Shared by backup archival and book-file mirroring.
type S3Uploader interface {
	Upload(ctx context.Context, objectKey string, payload []byte, contentType string) (string, error)
}

type s3Uploader struct {
	client       *s3.Client
	endpoint     *url.URL
	bucket       string
	customDomain string
	pathStyle    bool
}

func NewS3Uploader(opts appcfg.S3Options) (S3Uploader, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if bucket == "" || region == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid s3 endpoint: %s", endpoint)
	}

	// Custom endpoints (MinIO, R2, and friends) rarely resolve
	// bucket subdomains, so force path-style for them.
	pathStyle := opts.PathStyleAccess
	if opts.Endpoint != "" && !opts.PathStyleAccess {
		pathStyle = true
	}

	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: pathStyle,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
	})

	return &s3Uploader{
		client:       client,
		endpoint:     parsed,
		bucket:       bucket,
		customDomain: strings.TrimRight(strings.TrimSpace(opts.CustomDomain), "/"),
		pathStyle:    pathStyle,
	}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, objectKey string, payload []byte, contentType string) (string, error) {
	key := normalizeObjectKey(objectKey)
	if key == "" {
		return "", fmt.Errorf("invalid s3 object key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(payload))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	return u.publicURL(key), nil
}

func (u *s3Uploader) publicURL(objectKey string) string {
	if u.customDomain != "" {
		return u.customDomain + "/" + objectKey
	}

	encodedKey := encodeObjectKey(objectKey)
	basePath := strings.TrimSuffix(u.endpoint.Path, "/")

	if u.pathStyle {
		return u.endpoint.Scheme + "://" + u.endpoint.Host + joinURLPath(basePath, u.bucket, encodedKey)
	}

	host := u.endpoint.Host
	if !strings.HasPrefix(strings.ToLower(host), strings.ToLower(u.bucket)+".") {
		host = u.bucket + "." + host
	}
	return u.endpoint.Scheme + "://" + host + joinURLPath(basePath, encodedKey)
}

func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}

func encodeObjectKey(key string) string {
	key = normalizeObjectKey(key)
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func joinURLPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		for _, seg := range strings.Split(p, "/") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}
