// Package imagestore keeps product images on an afero filesystem and hands
// out the URLs they are served from.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image too large")
	ErrForeignURL        = errors.New("url does not belong to this store")
)

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var allowedExt = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
}

// FSStore stores images under keys on fs. The returned URL is baseURL/key.
type FSStore struct {
	fs       afero.Fs
	baseURL  string
	maxBytes int64
}

func NewFSStore(fs afero.Fs, baseURL string, maxBytes int64) *FSStore {
	return &FSStore{
		fs:       fs,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}
}

// NewOsFSStore roots an FSStore at cfg.Dir on the local disk.
func NewOsFSStore(cfg config.Image) (*FSStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	return NewFSStore(afero.NewBasePathFs(osFs, cfg.Dir), cfg.BaseURL, cfg.MaxBytes), nil
}

// ProductKey builds the storage key of a product image. The extension comes
// from filename, or from contentType when filename has none.
func ProductKey(productID uuid.UUID, filename, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = extByContentType[strings.ToLower(contentType)]
	}
	if _, ok := allowedExt[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return path.Join("products", productID.String()+ext), nil
}

// Store writes r under key, replacing any previous content.
func (s *FSStore) Store(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	if s.maxBytes > 0 {
		r = io.LimitReader(r, s.maxBytes+1)
	}

	// The upload lands next to the target and replaces it only once it is
	// complete, so a rejected upload keeps the previous image.
	tmp := fsPath(key) + ".upload-" + uuid.NewString()
	if err := afero.WriteReader(s.fs, tmp, r); err != nil {
		_ = s.fs.Remove(tmp)
		return "", fmt.Errorf("write image: %w", err)
	}

	if s.maxBytes > 0 {
		info, err := s.fs.Stat(tmp)
		if err != nil {
			_ = s.fs.Remove(tmp)
			return "", fmt.Errorf("stat image: %w", err)
		}
		if info.Size() > s.maxBytes {
			_ = s.fs.Remove(tmp)
			return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
		}
	}

	if err := s.fs.Rename(tmp, fsPath(key)); err != nil {
		_ = s.fs.Remove(tmp)
		return "", fmt.Errorf("rename image: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

// Delete removes the image behind url. Deleting a missing image succeeds.
func (s *FSStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignURL, url)
	}

	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(fsPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}

	return nil
}

// Handler serves the stored images. Mount it with the base URL stripped.
func (s *FSStore) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(s.fs))
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != key {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return cleaned, nil
}

// fsPath anchors key at the filesystem root, matching the paths the file
// server asks for.
func fsPath(key string) string {
	return "/" + key
}
