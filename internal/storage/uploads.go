// Package storage keeps uploaded images on disk for the lifetime of a review.
package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when an upload doesn't exist or isn't ours.
var ErrNotFound = errors.New("upload not found")

// UploadStore writes uploads to {baseDir}/{random}{ext}. Paths handed out by
// Save are the only paths Read and Delete will touch.
type UploadStore struct {
	baseDir string
}

// NewUploadStore creates the store, ensuring the base directory exists.
func NewUploadStore(baseDir string) (*UploadStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving upload directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &UploadStore{baseDir: abs}, nil
}

// Save writes data under a fresh name and returns its path.
func (s *UploadStore) Save(data []byte, ext string) (string, error) {
	var id [16]byte
	if _, err := rand.Read(id[:]); err != nil {
		return "", fmt.Errorf("generating upload name: %w", err)
	}

	path := filepath.Join(s.baseDir, hex.EncodeToString(id[:])+cleanExt(ext))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}

// Owns reports whether path names a file directly inside the upload directory.
func (s *UploadStore) Owns(path string) bool {
	clean := filepath.Clean(path)
	return filepath.IsAbs(clean) && filepath.Dir(clean) == s.baseDir
}

// Read returns the bytes of an upload.
func (s *UploadStore) Read(path string) ([]byte, error) {
	if !s.Owns(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}

// Delete removes an upload. Deleting a missing upload is not an error.
func (s *UploadStore) Delete(path string) error {
	if !s.Owns(path) {
		return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting upload: %w", err)
	}
	return nil
}

// Sweep deletes uploads last modified before now minus maxAge and returns how
// many it removed. It catches uploads that were never reviewed.
func (s *UploadStore) Sweep(now time.Time, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("listing uploads: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("deleting stale upload: %w", err)
		}
		removed++
	}
	return removed, nil
}

// cleanExt keeps only the alphanumeric part of an extension, so a client
// supplied filename can't steer the path.
func cleanExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + b.String()
}
