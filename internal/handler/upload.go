package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/review-jury/internal/service"
	"github.com/fleveque/review-jury/internal/storage"
)

// errBadUpload marks multipart bodies the client got wrong.
var errBadUpload = errors.New("invalid upload")

// Uploads saves image form files into the upload store.
type Uploads struct {
	Store    *storage.UploadStore
	MaxBytes int64
}

// save stores the file in the given form field and returns its path. A form
// without that file, or a body that isn't multipart, yields an empty path and
// no error.
func (u Uploads) save(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return "", nil
	case errors.Is(err, http.ErrMissingBoundary), errors.Is(err, multipart.ErrMessageTooLarge):
		return "", fmt.Errorf("%w: %v", errBadUpload, err)
	case err != nil:
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if fh.Size == 0 {
		return "", nil
	}
	if u.MaxBytes > 0 && fh.Size > u.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", service.ErrImageTooLarge, fh.Size, u.MaxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	return u.Store.Save(data, filepath.Ext(fh.Filename))
}

// discard removes an upload once a review has consumed it.
func (u Uploads) discard(path string, logger *zap.Logger) {
	if path == "" || !u.Store.Owns(path) {
		return
	}
	if err := u.Store.Delete(path); err != nil {
		logger.Warn("failed to delete upload", zap.String("path", path), zap.Error(err))
	}
}
