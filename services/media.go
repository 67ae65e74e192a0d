package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImagePrefix is the media directory post images are stored under.
const ImagePrefix = "posts/"

// Upload is an image received from the post form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageStorage keeps post images. Keys are relative paths such as
// "posts/<uuid>-small.gif", which is what the post row stores.
type ImageStorage interface {
	Save(ctx context.Context, up Upload) (string, error)
	Remove(ctx context.Context, key string) error
	// Handler serves stored keys relative to the /media/ prefix.
	Handler() http.Handler
}

// Stored extension per decoded format, and the type each extension is
// served with.
var (
	imageExts  = map[string]string{"gif": ".gif", "jpeg": ".jpg", "png": ".png"}
	imageTypes = map[string]string{".gif": "image/gif", ".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png"}
)

const maxStemLen = 40

// CheckImage decodes the header of up and returns its format.
func CheckImage(up Upload) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(up.Data))
	if err != nil {
		return "", invalid("image", "Upload a valid image.")
	}
	if _, ok := imageExts[format]; !ok {
		return "", invalid("image", "Upload a valid image.")
	}
	return format, nil
}

// imageKey names an upload uniquely; the client file name only survives as
// a readable stem and the extension follows the decoded format.
func imageKey(up Upload) (key, contentType string, err error) {
	format, err := CheckImage(up)
	if err != nil {
		return "", "", err
	}
	name := path.Base(strings.ReplaceAll(up.Filename, "\\", "/"))
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSuffix(name, path.Ext(name)))
	stem = strings.Trim(stem, "_")
	if len(stem) > maxStemLen {
		stem = stem[:maxStemLen]
	}
	if stem == "" {
		stem = "image"
	}
	ext := imageExts[format]
	return ImagePrefix + uuid.NewString() + "-" + stem + ext, imageTypes[ext], nil
}

// servable reports the content type for a media path, or false when the
// path is outside the image prefix.
func servable(urlPath string) (string, string, bool) {
	key := strings.TrimPrefix(urlPath, "/")
	ctype, ok := imageTypes[strings.ToLower(path.Ext(key))]
	if !ok || !strings.HasPrefix(key, ImagePrefix) || strings.Contains(key, "..") {
		return "", "", false
	}
	return key, ctype, true
}

// DiskStorage writes images below Root.
type DiskStorage struct {
	Root string
}

func NewDiskStorage(root string) *DiskStorage {
	return &DiskStorage{Root: root}
}

func (s *DiskStorage) Save(_ context.Context, up Upload) (string, error) {
	key, _, err := imageKey(up)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(full, up.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return key, nil
}

func (s *DiskStorage) Remove(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Handler serves images only, with a fixed content type so browsers never
// sniff an upload into something else.
func (s *DiskStorage) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.Root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ctype, ok := servable(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ctype)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// S3Storage keeps images in a MinIO/S3 bucket and serves them through
// short-lived presigned URLs.
type S3Storage struct {
	cfg    S3Config
	client *minio.Client
}

func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &S3Storage{cfg: cfg, client: cl}, nil
}

func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *S3Storage) Save(ctx context.Context, up Upload) (string, error) {
	key, ctype, err := imageKey(up)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(up.Data), int64(len(up.Data)),
		minio.PutObjectOptions{ContentType: ctype})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

func (s *S3Storage) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{})
}

func (s *S3Storage) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _, ok := servable(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		u, err := s.client.PresignedGetObject(r.Context(), s.cfg.Bucket, key, 15*time.Minute, nil)
		if err != nil {
			log.Printf("[Media] presign %s error: %v", key, err)
			http.Error(w, "Image unavailable", http.StatusBadGateway)
			return
		}
		http.Redirect(w, r, u.String(), http.StatusFound)
	})
}
