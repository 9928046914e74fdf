// Package blobstore stores uploaded documents as shareable blobs.
//
// The only backend is Google Drive, behind a narrow FileAPI seam so the
// store logic tests against in-memory fakes.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DefaultFilename names blobs uploaded without one.
const DefaultFilename = "upload.bin"

// Object describes a stored blob.
type Object struct {
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Filename string `json:"filename"`
}

// File is the backend's view of a stored blob.
type File struct {
	ID             string
	WebViewLink    string
	WebContentLink string
}

// FileAPI is the narrow backend seam.
type FileAPI interface {
	// Upload streams r into a new file and returns its links.
	Upload(ctx context.Context, name, contentType string, r io.Reader) (*File, error)
	// Share makes the file readable by anyone with the link.
	Share(ctx context.Context, fileID string) error
}

// Store puts blobs into a FileAPI backend.
type Store struct {
	api FileAPI
	log *slog.Logger
}

// New creates a Store. logger may be nil.
func New(api FileAPI, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{api: api, log: logger}
}

// Put uploads r under name and returns the shareable object. A failed
// share leaves the blob owner-only readable; the upload still counts,
// so the object is returned with a warning logged.
func (s *Store) Put(ctx context.Context, name, contentType string, r io.Reader) (*Object, error) {
	name = cleanFilename(name)

	cr := &countingReader{r: r}
	f, err := s.api.Upload(ctx, name, contentType, cr)
	if err != nil {
		return nil, fmt.Errorf("blob upload: %w", err)
	}

	if err := s.api.Share(ctx, f.ID); err != nil {
		s.log.Warn("blob sharing failed, link may require sign-in", "file_id", f.ID, "error", err)
	}

	url := f.WebContentLink
	if url == "" {
		url = f.WebViewLink
	}
	if url == "" {
		return nil, errors.New("blob upload: backend returned no link")
	}

	s.log.Info("document uploaded", "filename", name, "size", cr.n, "file_id", f.ID)
	return &Object{URL: url, Size: cr.n, Filename: name}, nil
}

// cleanFilename strips any path the client sent along with the name.
// Browsers on Windows still submit full backslash paths.
func cleanFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = strings.TrimSpace(name[i+1:])
	}
	if name == "" || name == "." || name == ".." {
		return DefaultFilename
	}
	return name
}

// countingReader tracks how many bytes the backend consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
