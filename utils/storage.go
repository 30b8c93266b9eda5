package utils

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
)

// ObjectStorage is the slice of an object store the course controllers
// need. Two backends exist: GCS and Cloudflare R2 (S3 API); STORAGE_BACKEND
// selects one ("gcs" default, "r2").
type ObjectStorage interface {
	UploadImages(ctx context.Context, courseSlug string, files []*multipart.FileHeader) ([]string, error)
	DeleteObjects(ctx context.Context, objectNames []string) error
	ObjectNameFromPublicURL(raw string) (string, error)
}

func NewObjectStorage(ctx context.Context) (ObjectStorage, error) {
	switch strings.ToLower(os.Getenv("STORAGE_BACKEND")) {
	case "", "gcs":
		return newGCSStorage(ctx)
	case "r2":
		return newR2Storage(ctx)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", os.Getenv("STORAGE_BACKEND"))
	}
}

func objectName(courseSlug, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("courses/%s/%d%s", courseSlug, time.Now().UnixNano(), ext)
}

func contentTypeFor(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename)))
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}

// --- GCS backend ---

type gcsStorage struct {
	client *storage.Client
	bucket string
}

func newGCSStorage(ctx context.Context) (*gcsStorage, error) {
	bucket := os.Getenv("GCS_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("missing GCS_BUCKET env var")
	}

	credentialsPath := os.Getenv("CREDENTIALS_FILE_LOCATION")
	var opts []option.ClientOption
	if credentialsPath != "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, filepath.Join(wd, credentialsPath)))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &gcsStorage{client: client, bucket: bucket}, nil
}

func (g *gcsStorage) UploadImages(ctx context.Context, courseSlug string, files []*multipart.FileHeader) ([]string, error) {
	if len(files) < 1 {
		return nil, fmt.Errorf("at least one image is required")
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		name := objectName(courseSlug, fh.Filename)

		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}

		w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
		w.ContentType = contentTypeFor(fh)
		w.CacheControl = "no-cache"

		if _, err := io.Copy(w, f); err != nil {
			_ = f.Close()
			_ = w.Close()
			return nil, fmt.Errorf("upload copy: %w", err)
		}
		_ = f.Close()

		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("upload close: %w", err)
		}

		urls = append(urls, fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, name))
	}
	return urls, nil
}

func (g *gcsStorage) DeleteObjects(ctx context.Context, objectNames []string) error {
	var firstErr error
	for _, obj := range objectNames {
		if obj == "" {
			continue
		}
		if err := g.client.Bucket(g.bucket).Object(obj).Delete(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("delete %s: %w", obj, err)
		}
	}
	return firstErr
}

func (g *gcsStorage) ObjectNameFromPublicURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	host := strings.ToLower(u.Host)
	path := strings.TrimPrefix(u.Path, "/")

	// style 1: storage.googleapis.com/<bucket>/<object>
	if host == "storage.googleapis.com" {
		prefix := g.bucket + "/"
		if !strings.HasPrefix(path, prefix) {
			return "", fmt.Errorf("url bucket mismatch")
		}
		return strings.TrimPrefix(path, prefix), nil
	}

	// style 2: <bucket>.storage.googleapis.com/<object>
	if host == strings.ToLower(g.bucket)+".storage.googleapis.com" {
		if path == "" {
			return "", fmt.Errorf("missing object path")
		}
		return path, nil
	}

	return "", fmt.Errorf("not a gcs public url")
}

// --- R2 backend (S3 API) ---

type r2Storage struct {
	client *s3.Client
	bucket string
	domain string // public domain, custom or r2.dev
}

func newR2Storage(ctx context.Context) (*r2Storage, error) {
	bucket := os.Getenv("R2_BUCKET")
	accessKey := os.Getenv("R2_ACCESS_KEY_ID")
	secretKey := os.Getenv("R2_SECRET_ACCESS_KEY")
	endpoint := os.Getenv("R2_ENDPOINT") // https://<account-id>.r2.cloudflarestorage.com

	if bucket == "" || accessKey == "" || secretKey == "" || endpoint == "" {
		return nil, fmt.Errorf("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true // required for R2
	})

	return &r2Storage{
		client: client,
		bucket: bucket,
		domain: strings.TrimRight(os.Getenv("R2_PUBLIC_DOMAIN"), "/"),
	}, nil
}

func (r *r2Storage) UploadImages(ctx context.Context, courseSlug string, files []*multipart.FileHeader) ([]string, error) {
	if len(files) < 1 {
		return nil, fmt.Errorf("at least one image is required")
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		name := objectName(courseSlug, fh.Filename)

		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}

		_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(r.bucket),
			Key:         aws.String(name),
			Body:        f,
			ContentType: aws.String(contentTypeFor(fh)),
		})
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", fh.Filename, err)
		}

		urls = append(urls, fmt.Sprintf("%s/%s/%s", r.domain, r.bucket, name))
	}
	return urls, nil
}

func (r *r2Storage) DeleteObjects(ctx context.Context, objectNames []string) error {
	var firstErr error
	for _, obj := range objectNames {
		if obj == "" {
			continue
		}
		_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(obj),
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("delete %s: %w", obj, err)
		}
	}
	return firstErr
}

func (r *r2Storage) ObjectNameFromPublicURL(raw string) (string, error) {
	if r.domain != "" && strings.HasPrefix(raw, r.domain+"/"+r.bucket+"/") {
		return strings.TrimPrefix(raw, r.domain+"/"+r.bucket+"/"), nil
	}

	// r2.dev style: https://<bucket>.<account>.r2.dev/<object>
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(raw, prefix) {
			withoutScheme := strings.TrimPrefix(raw, prefix)
			slash := strings.Index(withoutScheme, "/")
			if slash == -1 {
				return "", fmt.Errorf("no object path in url")
			}
			return withoutScheme[slash+1:], nil
		}
	}

	return "", fmt.Errorf("not a recognised R2 public url")
}
