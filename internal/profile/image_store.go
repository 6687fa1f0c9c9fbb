package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/myazlifresh/foundersite/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrImageNotFound    = errors.New("profile image not found")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageStore keeps the single founder profile image on disk. A new
// upload replaces whatever was there before.
type ImageStore struct {
	rootPath string
	mutex    sync.RWMutex
}

func NewImageStore(rootPath string) (*ImageStore, error) {
	if rootPath == "" {
		return nil, errors.New("root path cannot be empty")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create profile images dir: %w", err)
	}
	return &ImageStore{
		rootPath: rootPath,
	}, nil
}

// Save stores the uploaded image and removes the previous one
func (s *ImageStore) Save(ctx context.Context, contentType string, image io.Reader) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "profileImageStore.save")
	span.SetAttributes(attribute.String("content.type", contentType))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ext, ok := imageExtensions[contentType]
	if !ok {
		return ErrUnsupportedImage
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	newImagePath := path.Join(s.rootPath, "profile"+ext)
	tmpPath := newImagePath + ".tmp"

	dst, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(dst, image); err != nil {
		dst.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write image file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close image file: %w", err)
	}

	// clear previous images with a different extension first
	for _, oldExt := range imageExtensions {
		if oldExt == ext {
			continue
		}
		oldPath := path.Join(s.rootPath, "profile"+oldExt)
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			log.Errorf("failed to remove previous profile image %s: %s", oldPath, err)
		}
	}

	if err := os.Rename(tmpPath, newImagePath); err != nil {
		return fmt.Errorf("move image file in place: %w", err)
	}

	log.Debugf("profile image saved: %s", newImagePath)
	return nil
}

// Get returns the path and content type of the current profile image
func (s *ImageStore) Get(ctx context.Context) (imagePath, contentType string, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "profileImageStore.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entries, err := os.ReadDir(s.rootPath)
	if err != nil {
		return "", "", fmt.Errorf("read profile images dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "profile") {
			continue
		}
		for ct, ext := range imageExtensions {
			if filepath.Ext(name) == ext {
				return path.Join(s.rootPath, name), ct, nil
			}
		}
	}

	return "", "", ErrImageNotFound
}
