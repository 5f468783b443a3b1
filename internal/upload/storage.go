package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/bazaar/internal/identity"
)

const storageURL = "https://firebasestorage.googleapis.com"

var ErrNotImage = errors.New("file is not an image")

type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// StorageUploader stores images under users/{uid}/ in a Firebase Storage
// bucket and returns their public download URL.
type StorageUploader struct {
	bucket   string
	baseURL  string
	http     *http.Client
	identity identity.Resolver
}

type StorageOption func(*StorageUploader)

// WithStorageEmulator points uploads at a storage emulator on host:port.
func WithStorageEmulator(host string) StorageOption {
	return func(s *StorageUploader) {
		if host != "" {
			s.baseURL = "http://" + strings.TrimPrefix(host, "http://")
		}
	}
}

func WithStorageHTTPClient(hc *http.Client) StorageOption {
	return func(s *StorageUploader) { s.http = hc }
}

func NewStorageUploader(bucket string, resolver identity.Resolver, opts ...StorageOption) *StorageUploader {
	s := &StorageUploader{
		bucket:   bucket,
		baseURL:  storageURL,
		http:     &http.Client{Timeout: 60 * time.Second},
		identity: resolver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StorageUploader) Upload(ctx context.Context, f File) (string, error) {
	ct := f.contentType()
	if mt, _, err := mime.ParseMediaType(ct); err != nil || !strings.HasPrefix(mt, "image/") {
		return "", fmt.Errorf("%w: %s (%s)", ErrNotImage, f.Name, ct)
	}
	p, token, err := identity.Require(ctx, s.identity)
	if err != nil {
		return "", err
	}

	object := "users/" + p.UID() + "/" + uuid.NewString()
	if ext := extension(f.Name); ext != "" {
		object += "." + ext
	}

	u := s.baseURL + "/v0/b/" + url.PathEscape(s.bucket) + "/o?name=" + url.QueryEscape(object)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(f.Data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Firebase "+token)
	req.Header.Set("Content-Type", ct)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if len(body) > 0 {
			return "", fmt.Errorf("upload %s failed: status=%d body=%s", f.Name, resp.StatusCode, body)
		}
		return "", fmt.Errorf("upload %s failed: status=%d", f.Name, resp.StatusCode)
	}
	return s.DownloadURL(object), nil
}

// DownloadURL is the public URL of an object in the bucket.
func (s *StorageUploader) DownloadURL(object string) string {
	return s.baseURL + "/v0/b/" + url.PathEscape(s.bucket) + "/o/" + url.PathEscape(object) + "?alt=media"
}
